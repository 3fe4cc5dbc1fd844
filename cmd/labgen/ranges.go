package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/labgen-api/internal/generation"
	"github.com/noah-isme/labgen-api/internal/models"
)

type parseRangesOutput struct {
	Variables models.VariableSet           `json:"variables"`
	Errors    []generation.RangeParseError `json:"errors,omitempty"`
}

var parseRangesCmd = &cobra.Command{
	Use:     "parse-ranges <declarations>",
	Short:   "Parse free-text variable ranges into variable specs",
	Example: `  labgen parse-ranges "volume: 20-30 mL, acid: HCl|H2SO4"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vars, errs := generation.ParseVariableRanges(strings.Join(args, " "))
		return writeJSON(cmd.OutOrStdout(), parseRangesOutput{Variables: vars, Errors: errs})
	},
}
