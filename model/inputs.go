package model

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Func is one element computation. It receives the accumulated namespace
// merged with the element's retrieved reference coefficients.
type Func func(in Inputs) (cty.Value, error)

// Inputs is the read-only record an element function computes from. The
// typed getters panic on an absent or unconvertible key; element calls
// recover such panics into an element-named error, so functions can assume
// their declared keys are present.
type Inputs struct {
	vals map[string]cty.Value
}

// Has reports whether key is present, for optional parameters.
func (in Inputs) Has(key string) bool {
	_, ok := in.vals[key]
	return ok
}

// Value returns the raw value for key.
func (in Inputs) Value(key string) cty.Value {
	v, ok := in.vals[key]
	if !ok {
		panic(&inputError{key: key, reason: "missing"})
	}
	return v
}

// Float returns key as a float64.
func (in Inputs) Float(key string) float64 {
	n, err := convert.Convert(in.Value(key), cty.Number)
	if err != nil {
		panic(&inputError{key: key, reason: "not numeric"})
	}
	f, _ := n.AsBigFloat().Float64()
	return f
}

// Int returns key as an int, truncating toward zero.
func (in Inputs) Int(key string) int {
	return int(in.Float(key))
}

// String returns key as a string.
func (in Inputs) String(key string) string {
	s, err := convert.Convert(in.Value(key), cty.String)
	if err != nil {
		panic(&inputError{key: key, reason: "not a string"})
	}
	return s.AsString()
}

// Bool returns key as a bool. Numbers are truthy when nonzero.
func (in Inputs) Bool(key string) bool {
	v := in.Value(key)
	switch v.Type() {
	case cty.Bool:
		return v.True()
	case cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return f != 0
	}
	b, err := convert.Convert(v, cty.Bool)
	if err != nil {
		panic(&inputError{key: key, reason: "not a bool"})
	}
	return b.True()
}

type inputError struct {
	key    string
	reason string
}

func (e *inputError) Error() string {
	return fmt.Sprintf("input %q: %s", e.key, e.reason)
}
