package utils

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return validate
}

// ValidationDetails maps each failing field to a short description of the rule it broke.
// It returns nil when err carries no validation errors.
func ValidationDetails(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		key := fieldErr.Namespace()
		if idx := strings.Index(key, "."); idx >= 0 {
			key = key[idx+1:]
		}
		rule := fieldErr.Tag()
		if param := fieldErr.Param(); param != "" {
			rule += "=" + param
		}
		details[key] = "failed " + rule
	}
	return details
}
