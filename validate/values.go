package validate

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Values validates a parameter against a finite admissible set.
type Values struct {
	// Key is the parameter name this validator is attached to.
	Key string

	// Values is the admissible set, compared after coercion to each
	// member's type.
	Values []cty.Value

	// Type optionally coerces the input before checking. Unset means no
	// coercion.
	Type cty.Type

	// Default substitutes the value under EnforceDefault.
	Default cty.Value

	// Enforce selects the reaction to a violation. Snap and Warn are not
	// meaningful for discrete sets and are rejected.
	Enforce Enforce

	// Conditions gate whether the validator applies at all.
	Conditions map[string]Condition

	// Notes document the parameter for Describe output.
	Notes []string
}

// Param is part of the Validator interface.
func (v Values) Param() string { return v.Key }

// Keys is part of the Validator interface.
func (v Values) Keys() []string {
	set := map[string]struct{}{v.Key: {}}
	for _, k := range conditionKeys(v.Conditions) {
		set[k] = struct{}{}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (v Values) coerce(x cty.Value) (cty.Value, error) {
	if v.Type == cty.NilType {
		return x, nil
	}
	c, err := convert.Convert(x, v.Type)
	if err != nil {
		return cty.NilVal, &TypeError{Key: v.Key, Want: v.Type, Err: err}
	}
	return c, nil
}

// Validate is part of the Validator interface.
func (v Values) Validate(ctx context.Context, policy ConditionPolicy, rec map[string]cty.Value) (cty.Value, error) {
	x, ok := rec[v.Key]
	if !ok {
		return cty.NilVal, &MissingKeysError{Key: v.Key, Missing: []string{v.Key}}
	}
	if missing := missingKeys(v.Keys(), rec); len(missing) > 0 {
		return cty.NilVal, &MissingKeysError{Key: v.Key, Missing: missing}
	}

	met, err := checkConditions(ctx, v.Conditions, rec)
	if err != nil {
		return cty.NilVal, err
	}
	if !met {
		if policy == ConditionsRaise {
			return cty.NilVal, fmt.Errorf("validator for %q: %w", v.Key, ErrConditionNotMet)
		}
		return x, nil
	}

	switch v.Enforce {
	case EnforceNone:
		return x, nil
	case EnforceType:
		return v.coerce(x)
	case EnforceDefault:
		c, err := v.coerce(x)
		if err != nil {
			return cty.NilVal, err
		}
		if !contains(c, v.Values) {
			return v.Default, nil
		}
		return c, nil
	case EnforceStrict:
		c, err := v.coerce(x)
		if err != nil {
			return cty.NilVal, err
		}
		if !contains(c, v.Values) {
			return cty.NilVal, &MembershipError{Key: v.Key, Value: c, Values: v.Values}
		}
		return c, nil
	}
	return cty.NilVal, fmt.Errorf("validator for %q: enforcement %v is not valid for a value set", v.Key, v.Enforce)
}

// Random is part of the Validator interface. The draw is a uniform choice
// over the admissible set.
func (v Values) Random(ctx context.Context, rng *rand.Rand, policy ConditionPolicy, rec map[string]cty.Value) (cty.Value, error) {
	if len(v.Values) == 0 {
		return cty.NilVal, fmt.Errorf("validator for %q: cannot draw from an empty value set", v.Key)
	}
	candidate := make(map[string]cty.Value, len(rec)+1)
	for k, val := range rec {
		candidate[k] = val
	}
	candidate[v.Key] = v.Values[rng.Intn(len(v.Values))]
	return v.Validate(ctx, policy, candidate)
}

// Describe is part of the Validator interface.
func (v Values) Describe() string {
	vals := make([]string, len(v.Values))
	for i, val := range v.Values {
		vals[i] = valueString(val)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n- values={%s}, enforce=%s", v.Key, strings.Join(vals, ", "), v.Enforce)
	if v.Default != cty.NilVal {
		fmt.Fprintf(&b, ", default=%s", valueString(v.Default))
	}
	for _, n := range v.Notes {
		fmt.Fprintf(&b, "\n  - %s", n)
	}
	for _, line := range describeConditions(v.Conditions) {
		fmt.Fprintf(&b, "\n%s", line)
	}
	return b.String()
}
