package generation

import (
	"errors"
	"fmt"

	"github.com/noah-isme/labgen-api/internal/models"
)

var (
	// ErrEmptyOptionSet is wrapped by EmptyOptionSetError.
	ErrEmptyOptionSet = errors.New("categorical variable has no options")
	// ErrUnknownVariableType is wrapped by UnknownVariableTypeError.
	ErrUnknownVariableType = errors.New("unknown variable type")
	// ErrNoTwoDecimalValue is wrapped by NarrowRangeError.
	ErrNoTwoDecimalValue = errors.New("numeric range holds no value with at most two decimals")
)

// EmptyOptionSetError reports a categorical variable declared without options.
type EmptyOptionSetError struct {
	Variable string
}

func (e *EmptyOptionSetError) Error() string {
	return fmt.Sprintf("variable %q: %v", e.Variable, ErrEmptyOptionSet)
}

func (e *EmptyOptionSetError) Unwrap() error { return ErrEmptyOptionSet }

// UnknownVariableTypeError reports a variable whose type tag is neither number nor string.
type UnknownVariableTypeError struct {
	Variable string
	Type     models.VariableKind
}

func (e *UnknownVariableTypeError) Error() string {
	return fmt.Sprintf("variable %q: %v %q", e.Variable, ErrUnknownVariableType, e.Type)
}

func (e *UnknownVariableTypeError) Unwrap() error { return ErrUnknownVariableType }

// NarrowRangeError reports a numeric range such as [1.234, 1.236] that no
// two-decimal value fits in.
type NarrowRangeError struct {
	Variable string
	Min, Max float64
}

func (e *NarrowRangeError) Error() string {
	return fmt.Sprintf("variable %q: %v: [%v, %v]", e.Variable, ErrNoTwoDecimalValue, e.Min, e.Max)
}

func (e *NarrowRangeError) Unwrap() error { return ErrNoTwoDecimalValue }

// Sampler draws concrete values for a template's variables.
type Sampler struct {
	rng Random
}

// NewSampler creates a sampler. A nil source falls back to the process-wide generator.
func NewSampler(rng Random) *Sampler {
	if rng == nil {
		rng = globalRandom{}
	}
	return &Sampler{rng: rng}
}

// Sample produces one value per declared variable. Numeric values are rounded to two
// decimals and stay inside their declared range; categorical values are one of the options.
func (s *Sampler) Sample(vars models.VariableSet) (models.GeneratedVariables, error) {
	out := make(models.GeneratedVariables, len(vars))
	for _, name := range vars.Names() {
		spec := vars[name]
		switch spec.Type {
		case models.VariableNumber:
			min, max := spec.Bounds()
			if min > max {
				min, max = max, min
			}
			value, ok := sampleOnGrid(s.rng, min, max, 100)
			if !ok {
				return nil, &NarrowRangeError{Variable: name, Min: min, Max: max}
			}
			out[name] = models.NumberValue(value, spec.Unit)
		case models.VariableString:
			if len(spec.Options) == 0 {
				return nil, &EmptyOptionSetError{Variable: name}
			}
			out[name] = models.TextValue(spec.Options[s.rng.IntN(len(spec.Options))])
		default:
			return nil, &UnknownVariableTypeError{Variable: name, Type: spec.Type}
		}
	}
	return out, nil
}
