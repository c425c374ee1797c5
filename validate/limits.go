package validate

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/tariqshihadah/cpm/internal/ctxlog"
)

// Limits validates a numeric parameter against a range. Bounds may be
// constants or functions of other parameters; the Subtract and Add lists
// shift the evaluated max and min by the current values of the named
// parameters (e.g. usable length after subtracting ramp lengths).
type Limits struct {
	// Key is the parameter name this validator is attached to.
	Key string

	// Min and Max are the range ends. An unset Bound is unbounded.
	Min, Max Bound

	// Closed selects which range ends are inclusive.
	Closed Closed

	// Type is the coercion target; the zero value means cty.Number.
	Type cty.Type

	// Integral truncates the coerced number toward zero.
	Integral bool

	// Default substitutes the value under EnforceDefault.
	Default cty.Value

	// Subtract names parameters whose values reduce the evaluated Max;
	// Add names parameters whose values raise the evaluated Min.
	Subtract, Add []string

	// Enforce selects the reaction to a violation.
	Enforce Enforce

	// Conditions gate whether the validator applies at all.
	Conditions map[string]Condition

	// Notes document the parameter for Describe output.
	Notes []string
}

// Param is part of the Validator interface.
func (l Limits) Param() string { return l.Key }

// Keys is part of the Validator interface.
func (l Limits) Keys() []string {
	set := map[string]struct{}{l.Key: {}}
	for _, k := range conditionKeys(l.Conditions) {
		set[k] = struct{}{}
	}
	for _, k := range l.Min.Keys() {
		set[k] = struct{}{}
	}
	for _, k := range l.Max.Keys() {
		set[k] = struct{}{}
	}
	for _, k := range l.Subtract {
		set[k] = struct{}{}
	}
	for _, k := range l.Add {
		set[k] = struct{}{}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// coerce applies the declared type (Number when unset) and the Integral
// truncation.
func (l Limits) coerce(v cty.Value) (cty.Value, error) {
	typ := l.Type
	if typ == cty.NilType {
		typ = cty.Number
	}
	c, err := convert.Convert(v, typ)
	if err != nil {
		return cty.NilVal, &TypeError{Key: l.Key, Want: typ, Err: err}
	}
	if l.Integral && typ == cty.Number {
		f, _ := c.AsBigFloat().Float64()
		c = cty.NumberFloatVal(math.Trunc(f))
	}
	return c, nil
}

// bounds evaluates Min and Max against rec, then applies the Add and
// Subtract shifts.
func (l Limits) bounds(rec map[string]cty.Value) (float64, float64, error) {
	vmin, err := l.Min.eval(l.Key, rec, unboundedMin)
	if err != nil {
		return 0, 0, err
	}
	vmax, err := l.Max.eval(l.Key, rec, unboundedMax)
	if err != nil {
		return 0, 0, err
	}
	for _, k := range l.Add {
		v, ok := rec[k]
		if !ok {
			return 0, 0, &MissingKeysError{Key: l.Key, Missing: []string{k}}
		}
		f, err := asFloat(v)
		if err != nil {
			return 0, 0, &TypeError{Key: k, Want: cty.Number, Err: err}
		}
		vmin += f
	}
	for _, k := range l.Subtract {
		v, ok := rec[k]
		if !ok {
			return 0, 0, &MissingKeysError{Key: l.Key, Missing: []string{k}}
		}
		f, err := asFloat(v)
		if err != nil {
			return 0, 0, &TypeError{Key: k, Want: cty.Number, Err: err}
		}
		vmax -= f
	}
	return vmin, vmax, nil
}

// Validate is part of the Validator interface.
func (l Limits) Validate(ctx context.Context, policy ConditionPolicy, rec map[string]cty.Value) (cty.Value, error) {
	x, ok := rec[l.Key]
	if !ok {
		return cty.NilVal, &MissingKeysError{Key: l.Key, Missing: []string{l.Key}}
	}
	if missing := missingKeys(l.Keys(), rec); len(missing) > 0 {
		return cty.NilVal, &MissingKeysError{Key: l.Key, Missing: missing}
	}

	met, err := checkConditions(ctx, l.Conditions, rec)
	if err != nil {
		return cty.NilVal, err
	}
	if !met {
		if policy == ConditionsRaise {
			return cty.NilVal, fmt.Errorf("validator for %q: %w", l.Key, ErrConditionNotMet)
		}
		return x, nil
	}

	if l.Enforce == EnforceNone {
		return x, nil
	}
	c, err := l.coerce(x)
	if err != nil {
		return cty.NilVal, err
	}
	if l.Enforce == EnforceType {
		return c, nil
	}

	vmin, vmax, err := l.bounds(rec)
	if err != nil {
		return cty.NilVal, err
	}
	f, err := asFloat(c)
	if err != nil {
		return cty.NilVal, &TypeError{Key: l.Key, Want: cty.Number, Err: err}
	}
	within := l.Closed.within(f, vmin, vmax)

	switch l.Enforce {
	case EnforceSnap:
		// Clamp against the bounds as evaluated for this record, not any
		// static declaration.
		return cty.NumberFloatVal(math.Min(math.Max(f, vmin), vmax)), nil
	case EnforceDefault:
		if !within {
			return l.Default, nil
		}
		return c, nil
	case EnforceWarn:
		if !within {
			ctxlog.FromContext(ctx).Warn("argument outside validator limits",
				"key", l.Key, "value", f,
				"range", rangeNotation(vmin, vmax, l.Closed))
		}
		return c, nil
	case EnforceStrict:
		if !within {
			return cty.NilVal, &RangeError{Key: l.Key, Value: f, Min: vmin, Max: vmax, Closed: l.Closed}
		}
		return c, nil
	}
	return cty.NilVal, fmt.Errorf("validator for %q: invalid enforcement %v", l.Key, l.Enforce)
}

// Random is part of the Validator interface. The draw is uniform over the
// evaluated [min, max] range for this record.
func (l Limits) Random(ctx context.Context, rng *rand.Rand, policy ConditionPolicy, rec map[string]cty.Value) (cty.Value, error) {
	vmin, vmax, err := l.bounds(rec)
	if err != nil {
		return cty.NilVal, err
	}
	if math.IsInf(vmin, 0) || math.IsInf(vmax, 0) {
		return cty.NilVal, fmt.Errorf("validator for %q: cannot draw from an unbounded range", l.Key)
	}
	candidate := make(map[string]cty.Value, len(rec)+1)
	for k, v := range rec {
		candidate[k] = v
	}
	candidate[l.Key] = cty.NumberFloatVal(vmin + rng.Float64()*(vmax-vmin))
	return l.Validate(ctx, policy, candidate)
}

// Describe is part of the Validator interface.
func (l Limits) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n- range=%s, enforce=%s",
		l.Key, l.describeRange(), l.Enforce)
	for _, n := range l.Notes {
		fmt.Fprintf(&b, "\n  - %s", n)
	}
	if len(l.Subtract) > 0 {
		fmt.Fprintf(&b, "\n  - subtracting %s from max", strings.Join(l.Subtract, ", "))
	}
	if len(l.Add) > 0 {
		fmt.Fprintf(&b, "\n  - adding %s to min", strings.Join(l.Add, ", "))
	}
	for _, line := range describeConditions(l.Conditions) {
		fmt.Fprintf(&b, "\n%s", line)
	}
	return b.String()
}

func (l Limits) describeRange() string {
	lb, rb := "[", "]"
	if l.Closed == ClosedRight || l.Closed == ClosedNeither {
		lb = "("
	}
	if l.Closed == ClosedLeft || l.Closed == ClosedNeither {
		rb = ")"
	}
	return fmt.Sprintf("%s%s to %s%s", lb, l.Min.describe("-inf"), l.Max.describe("+inf"), rb)
}
