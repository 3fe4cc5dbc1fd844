package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// VariableKind discriminates the two shapes a template variable can take.
type VariableKind string

const (
	// VariableNumber marks a numeric variable sampled from a closed range.
	VariableNumber VariableKind = "number"
	// VariableString marks a categorical variable chosen from a fixed option list.
	VariableString VariableKind = "string"
)

var (
	// ErrInvalidVariableSpec indicates a variable declaration that cannot be sampled.
	ErrInvalidVariableSpec = errors.New("invalid variable spec")
	// ErrInvalidDifficultyRange indicates a difficulty range outside [0,10] or with min > max.
	ErrInvalidDifficultyRange = errors.New("invalid difficulty range")
)

// VariableSpec declares how one template variable is sampled. Numeric specs carry
// Range and an optional Unit, categorical specs carry Options.
type VariableSpec struct {
	Type    VariableKind `json:"type"`
	Range   []float64    `json:"range,omitempty"`
	Unit    string       `json:"unit,omitempty"`
	Options []string     `json:"options,omitempty"`
}

// NumericVariable declares a numeric variable over [min, max].
func NumericVariable(min, max float64, unit string) VariableSpec {
	return VariableSpec{Type: VariableNumber, Range: []float64{min, max}, Unit: unit}
}

// CategoricalVariable declares a categorical variable over the given options.
func CategoricalVariable(options ...string) VariableSpec {
	return VariableSpec{Type: VariableString, Options: append([]string(nil), options...)}
}

// Bounds returns the numeric range. It is only meaningful for numeric specs.
func (s VariableSpec) Bounds() (float64, float64) {
	if len(s.Range) != 2 {
		return 0, 0
	}
	return s.Range[0], s.Range[1]
}

// Validate reports whether the spec is well formed.
func (s VariableSpec) Validate() error {
	switch s.Type {
	case VariableNumber:
		if len(s.Range) != 2 {
			return fmt.Errorf("%w: numeric range needs exactly two bounds", ErrInvalidVariableSpec)
		}
		min, max := s.Range[0], s.Range[1]
		if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
			return fmt.Errorf("%w: numeric bounds must be finite", ErrInvalidVariableSpec)
		}
		if min > max {
			return fmt.Errorf("%w: min %v exceeds max %v", ErrInvalidVariableSpec, min, max)
		}
		// Sampled values carry at most two decimals, so the range must contain one.
		if math.Ceil(min*100-1e-9) > math.Floor(max*100+1e-9) {
			return fmt.Errorf("%w: range [%v, %v] holds no value with at most two decimals", ErrInvalidVariableSpec, min, max)
		}
	case VariableString:
		if len(s.Options) == 0 {
			return fmt.Errorf("%w: categorical variable has no options", ErrInvalidVariableSpec)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidVariableSpec, s.Type)
	}
	return nil
}

// VariableSet maps variable names to their declarations.
type VariableSet map[string]VariableSpec

// Names returns the declared variable names in lexical order.
func (v VariableSet) Names() []string {
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks every declaration in the set.
func (v VariableSet) Validate() error {
	for _, name := range v.Names() {
		if name == "" {
			return fmt.Errorf("%w: empty variable name", ErrInvalidVariableSpec)
		}
		if err := v[name].Validate(); err != nil {
			return fmt.Errorf("variable %q: %w", name, err)
		}
	}
	return nil
}

// DifficultyRange bounds the difficulty assigned to questions produced from a template.
type DifficultyRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Validate ensures 0 <= min <= max <= 10.
func (r DifficultyRange) Validate() error {
	if r.Min < 0 || r.Max > 10 || r.Min > r.Max {
		return fmt.Errorf("%w: [%v, %v]", ErrInvalidDifficultyRange, r.Min, r.Max)
	}
	return nil
}

// GeneratedValue is a concrete value drawn for one variable.
type GeneratedValue struct {
	Type   VariableKind
	Number float64
	Text   string
	Unit   string
}

// NumberValue builds a numeric generated value.
func NumberValue(value float64, unit string) GeneratedValue {
	return GeneratedValue{Type: VariableNumber, Number: value, Unit: unit}
}

// TextValue builds a categorical generated value.
func TextValue(value string) GeneratedValue {
	return GeneratedValue{Type: VariableString, Text: value}
}

// String returns the textual form used when substituting into a template.
func (g GeneratedValue) String() string {
	if g.Type == VariableNumber {
		return strconv.FormatFloat(g.Number, 'f', -1, 64)
	}
	return g.Text
}

type generatedValueWire struct {
	Type  VariableKind    `json:"type"`
	Value json.RawMessage `json:"value"`
	Unit  string          `json:"unit,omitempty"`
}

// MarshalJSON encodes the value as {"type", "value", "unit"}.
func (g GeneratedValue) MarshalJSON() ([]byte, error) {
	var (
		raw []byte
		err error
	)
	if g.Type == VariableNumber {
		raw, err = json.Marshal(g.Number)
	} else {
		raw, err = json.Marshal(g.Text)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(generatedValueWire{Type: g.Type, Value: raw, Unit: g.Unit})
}

// UnmarshalJSON decodes the {"type", "value", "unit"} form.
func (g *GeneratedValue) UnmarshalJSON(data []byte) error {
	var wire generatedValueWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	decoded := GeneratedValue{Type: wire.Type, Unit: wire.Unit}
	switch wire.Type {
	case VariableNumber:
		if err := json.Unmarshal(wire.Value, &decoded.Number); err != nil {
			return fmt.Errorf("decode numeric value: %w", err)
		}
	case VariableString:
		if err := json.Unmarshal(wire.Value, &decoded.Text); err != nil {
			return fmt.Errorf("decode text value: %w", err)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidVariableSpec, wire.Type)
	}

	*g = decoded
	return nil
}

// GeneratedVariables maps variable names to the values drawn for one question.
type GeneratedVariables map[string]GeneratedValue

// Names returns the variable names in lexical order.
func (g GeneratedVariables) Names() []string {
	names := make([]string, 0, len(g))
	for name := range g {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
