package generation

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/noah-isme/labgen-api/internal/models"
)

// RangeParseError describes one variable-range entry that could not be parsed.
type RangeParseError struct {
	Entry  string `json:"entry"`
	Reason string `json:"reason"`
}

func (e RangeParseError) Error() string {
	return fmt.Sprintf("variable range %q: %s", e.Entry, e.Reason)
}

// ParseVariableRanges reads free-text declarations such as
//
//	volume: 20-30 mL, concentration: 0.1-0.2, acid: HCl|H2SO4
//
// Entries are separated by commas, semicolons or newlines. A numeric entry is
// "name: min-max" with an optional trailing unit; a categorical entry lists options
// separated by "|". Malformed entries are skipped and reported; the rest are kept.
func ParseVariableRanges(input string) (models.VariableSet, []RangeParseError) {
	vars := models.VariableSet{}
	var problems []RangeParseError

	entries := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}

		name, spec, err := parseRangeEntry(entry)
		if err != nil {
			problems = append(problems, RangeParseError{Entry: entry, Reason: err.Error()})
			continue
		}
		if _, exists := vars[name]; exists {
			problems = append(problems, RangeParseError{Entry: entry, Reason: "duplicate variable name"})
			continue
		}
		vars[name] = spec
	}

	return vars, problems
}

func parseRangeEntry(entry string) (string, models.VariableSpec, error) {
	name, value, ok := strings.Cut(entry, ":")
	if !ok {
		return "", models.VariableSpec{}, fmt.Errorf("expected name: range")
	}
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)
	if name == "" {
		return "", models.VariableSpec{}, fmt.Errorf("missing variable name")
	}
	if value == "" {
		return "", models.VariableSpec{}, fmt.Errorf("missing range")
	}

	if strings.Contains(value, "|") {
		var options []string
		for _, option := range strings.Split(value, "|") {
			if trimmed := strings.TrimSpace(option); trimmed != "" {
				options = append(options, trimmed)
			}
		}
		if len(options) == 0 {
			return "", models.VariableSpec{}, fmt.Errorf("no options listed")
		}
		return name, models.CategoricalVariable(options...), nil
	}

	sep := rangeSeparator(value)
	if sep < 0 {
		return "", models.VariableSpec{}, fmt.Errorf("expected min-max")
	}

	min, err := strconv.ParseFloat(strings.TrimSpace(value[:sep]), 64)
	if err != nil {
		return "", models.VariableSpec{}, fmt.Errorf("invalid minimum")
	}

	fields := strings.Fields(value[sep+1:])
	if len(fields) == 0 {
		return "", models.VariableSpec{}, fmt.Errorf("missing maximum")
	}
	max, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return "", models.VariableSpec{}, fmt.Errorf("invalid maximum")
	}

	spec := models.NumericVariable(min, max, strings.Join(fields[1:], " "))
	if err := spec.Validate(); err != nil {
		return "", models.VariableSpec{}, fmt.Errorf("minimum exceeds maximum")
	}
	return name, spec, nil
}

// rangeSeparator finds the dash between the bounds. A dash at the start of the value
// or directly after another separator is a sign, not a separator.
func rangeSeparator(value string) int {
	for i := 1; i < len(value); i++ {
		if value[i] != '-' {
			continue
		}
		prev := rune(value[i-1])
		if unicode.IsDigit(prev) || prev == '.' || prev == ' ' {
			left := strings.TrimSpace(value[:i])
			if left != "" && left != "-" {
				return i
			}
		}
	}
	return -1
}
