package generation

import (
	"regexp"

	"github.com/noah-isme/labgen-api/internal/models"
)

var placeholderPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// Render substitutes every {name} occurrence with the value drawn for name.
// Placeholders without a value are left verbatim and units are never appended.
// Substitution is a single pass, so values that look like placeholders are not expanded again.
func Render(text string, vars models.GeneratedVariables) string {
	if len(vars) == 0 {
		return text
	}
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := match[1 : len(match)-1]
		value, ok := vars[name]
		if !ok {
			return match
		}
		return value.String()
	})
}

// Placeholders lists the distinct placeholder names in order of first appearance.
func Placeholders(text string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		if _, ok := seen[match[1]]; ok {
			continue
		}
		seen[match[1]] = struct{}{}
		names = append(names, match[1])
	}
	return names
}

// UndeclaredPlaceholders returns placeholders in text that have no declaration in vars.
func UndeclaredPlaceholders(text string, vars models.VariableSet) []string {
	var missing []string
	for _, name := range Placeholders(text) {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
