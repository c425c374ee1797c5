package validate

import (
	"context"
	"fmt"
	"math/big"
	"math/rand"
	"sort"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Enforce selects how a validator reacts when its check fails.
type Enforce int

const (
	// EnforceStrict returns an error on violation.
	EnforceStrict Enforce = iota
	// EnforceSnap clamps the value to the nearest evaluated bound. Limits only.
	EnforceSnap
	// EnforceDefault substitutes the validator's default value on failure.
	EnforceDefault
	// EnforceType coerces to the declared type without checking.
	EnforceType
	// EnforceNone performs no check and no coercion.
	EnforceNone
	// EnforceWarn logs the violation and passes the value through. Limits only.
	EnforceWarn
)

func (e Enforce) String() string {
	switch e {
	case EnforceStrict:
		return "strict"
	case EnforceSnap:
		return "snap"
	case EnforceDefault:
		return "default"
	case EnforceType:
		return "type"
	case EnforceNone:
		return "none"
	case EnforceWarn:
		return "warn"
	}
	return fmt.Sprintf("enforce(%d)", int(e))
}

// Closed selects which ends of a numeric interval are inclusive.
type Closed int

const (
	ClosedBoth Closed = iota
	ClosedNeither
	ClosedLeft
	ClosedRight
)

func (c Closed) String() string {
	switch c {
	case ClosedBoth:
		return "both"
	case ClosedNeither:
		return "neither"
	case ClosedLeft:
		return "left"
	case ClosedRight:
		return "right"
	}
	return fmt.Sprintf("closed(%d)", int(c))
}

// within reports whether x falls inside [min, max] honoring closure.
func (c Closed) within(x, min, max float64) bool {
	var left, right bool
	if c == ClosedLeft || c == ClosedBoth {
		left = x >= min
	} else {
		left = x > min
	}
	if c == ClosedRight || c == ClosedBoth {
		right = x <= max
	} else {
		right = x < max
	}
	return left && right
}

// ConditionPolicy selects how Validate responds when a validator's
// conditions are not met.
type ConditionPolicy int

const (
	// ConditionsPass makes an unmet-condition validator inert: the original
	// value is returned unchanged.
	ConditionsPass ConditionPolicy = iota
	// ConditionsRaise turns unmet conditions into ErrConditionNotMet.
	ConditionsRaise
)

// Validator checks a single named parameter against a record of all known
// values. Implementations are Limits and Values.
type Validator interface {
	// Param returns the parameter name this validator is attached to.
	Param() string

	// Keys returns every record key the validator needs to run: its own key,
	// condition keys (recursively), functional bound keys, and subtract/add
	// shift keys.
	Keys() []string

	// Validate checks the parameter's value in rec against the validator,
	// returning the value to store back (possibly coerced, clamped, or
	// substituted).
	Validate(ctx context.Context, policy ConditionPolicy, rec map[string]cty.Value) (cty.Value, error)

	// Random draws a feasible candidate for the parameter from rng, inserts
	// it into a copy of rec, and re-validates it under policy.
	Random(ctx context.Context, rng *rand.Rand, policy ConditionPolicy, rec map[string]cty.Value) (cty.Value, error)

	// Describe returns a human-readable summary of the constraint.
	Describe() string
}

// Number wraps a float64 as a cty value.
func Number(f float64) cty.Value { return cty.NumberFloatVal(f) }

// Numbers builds an admissible-value set from numeric literals.
func Numbers(vs ...float64) []cty.Value {
	out := make([]cty.Value, len(vs))
	for i, v := range vs {
		out[i] = cty.NumberFloatVal(v)
	}
	return out
}

// Strings builds an admissible-value set from string literals.
func Strings(vs ...string) []cty.Value {
	out := make([]cty.Value, len(vs))
	for i, v := range vs {
		out[i] = cty.StringVal(v)
	}
	return out
}

// asFloat coerces a cty value to float64.
func asFloat(v cty.Value) (float64, error) {
	n, err := convert.Convert(v, cty.Number)
	if err != nil {
		return 0, err
	}
	f, _ := n.AsBigFloat().Float64()
	return f, nil
}

// valueString renders a cty value for error messages and descriptions.
func valueString(v cty.Value) string {
	if v.IsNull() || !v.IsKnown() {
		return "null"
	}
	switch v.Type() {
	case cty.String:
		return v.AsString()
	case cty.Number:
		return v.AsBigFloat().Text('f', -1)
	case cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	}
	return v.GoString()
}

// contains reports whether candidate equals any member of values after
// coercion to the member's type.
func contains(candidate cty.Value, values []cty.Value) bool {
	for _, v := range values {
		c, err := convert.Convert(candidate, v.Type())
		if err != nil {
			continue
		}
		if c.RawEquals(v) {
			return true
		}
		// Numbers may differ in internal big.Float precision.
		if v.Type() == cty.Number && c.Type() == cty.Number {
			if v.AsBigFloat().Cmp(c.AsBigFloat()) == 0 {
				return true
			}
		}
	}
	return false
}

// missingKeys returns the subset of keys absent from rec, sorted.
func missingKeys(keys []string, rec map[string]cty.Value) []string {
	var missing []string
	for _, k := range keys {
		if _, ok := rec[k]; !ok {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return missing
}

func rangeNotation(min, max float64, closed Closed) string {
	lb, rb := "[", "]"
	if closed == ClosedRight || closed == ClosedNeither {
		lb = "("
	}
	if closed == ClosedLeft || closed == ClosedNeither {
		rb = ")"
	}
	return fmt.Sprintf("%s%s to %s%s", lb, floatText(min), floatText(max), rb)
}

func floatText(f float64) string {
	return big.NewFloat(f).Text('g', -1)
}
