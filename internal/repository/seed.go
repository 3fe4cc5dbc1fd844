package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/labgen-api/internal/models"
)

// DefaultTemplates returns the starter templates shipped with a fresh install.
func DefaultTemplates() []models.QuestionTemplate {
	return []models.QuestionTemplate{
		models.NewQuestionTemplate(
			"Chemistry",
			"Acid-Base Titration",
			"You are performing a titration of {volume} mL of {concentration1} M {acid} with {concentration2} M {base}. Calculate the volume of {base} required to reach the equivalence point.",
			models.VariableSet{
				"volume":         models.NumericVariable(20, 30, "mL"),
				"concentration1": models.NumericVariable(0.1, 0.2, "M"),
				"concentration2": models.NumericVariable(0.1, 0.2, "M"),
				"acid":           models.CategoricalVariable("HCl", "H2SO4", "HNO3"),
				"base":           models.CategoricalVariable("NaOH", "KOH"),
			},
			models.DifficultyRange{Min: 6, Max: 8},
			"calculation",
		),
		models.NewQuestionTemplate(
			"Physics",
			"Heat Conduction",
			"Find the thermal conductivity of a {material} rod of length {length} cm and diameter {diameter} mm at a temperature difference of {tempDiff}°C. Given the heat transfer rate is {heatRate} W.",
			models.VariableSet{
				"material": models.CategoricalVariable("copper", "aluminum", "steel"),
				"length":   models.NumericVariable(15, 25, "cm"),
				"diameter": models.NumericVariable(5, 15, "mm"),
				"tempDiff": models.NumericVariable(20, 50, "°C"),
				"heatRate": models.NumericVariable(10, 30, "W"),
			},
			models.DifficultyRange{Min: 7, Max: 9},
			"calculation",
		),
	}
}

// SeedTemplates inserts the given templates when the store has none yet and
// returns how many were written.
func SeedTemplates(ctx context.Context, store TemplateRepository, templates []models.QuestionTemplate) (int, error) {
	existing, err := store.ListTemplates(ctx)
	if err != nil {
		return 0, fmt.Errorf("list templates: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	for i := range templates {
		template := templates[i]
		if err := store.CreateTemplate(ctx, &template); err != nil {
			return i, fmt.Errorf("seed template %q: %w", template.Topic, err)
		}
	}
	return len(templates), nil
}
