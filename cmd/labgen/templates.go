package main

import (
	"github.com/spf13/cobra"

	"github.com/noah-isme/labgen-api/internal/dto"
	"github.com/noah-isme/labgen-api/internal/repository"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Print the bundled starter templates as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeJSON(cmd.OutOrStdout(), dto.NewTemplateResponseSlice(repository.DefaultTemplates()))
	},
}
