package validate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Condition gates whether a validator applies, based on the value of some
// other parameter in the record. Exactly one of the three forms is set.
type Condition struct {
	rng   *conditionRange
	oneOf []cty.Value
	valid Validator
}

type conditionRange struct {
	min, max float64
	closed   Closed
}

// Between builds a both-closed range condition.
func Between(min, max float64) Condition {
	return BetweenClosed(min, max, ClosedBoth)
}

// BetweenClosed builds a range condition with explicit interval closure.
func BetweenClosed(min, max float64, closed Closed) Condition {
	return Condition{rng: &conditionRange{min: min, max: max, closed: closed}}
}

// OneOf builds a discrete-membership condition.
func OneOf(values ...cty.Value) Condition {
	return Condition{oneOf: values}
}

// MetBy builds a condition satisfied when the given validator accepts the
// record. A validation error of any kind counts as "not met".
func MetBy(v Validator) Condition {
	return Condition{valid: v}
}

// keys returns the record keys the condition itself needs beyond the
// conditioned parameter name.
func (c Condition) keys() []string {
	if c.valid != nil {
		return c.valid.Keys()
	}
	return nil
}

// met evaluates the condition against rec[key].
func (c Condition) met(ctx context.Context, key string, rec map[string]cty.Value) (bool, error) {
	switch {
	case c.rng != nil:
		v, ok := rec[key]
		if !ok {
			return false, &MissingKeysError{Key: key, Missing: []string{key}}
		}
		f, err := asFloat(v)
		if err != nil {
			return false, &TypeError{Key: key, Want: cty.Number, Err: err}
		}
		return c.rng.closed.within(f, c.rng.min, c.rng.max), nil
	case c.oneOf != nil:
		v, ok := rec[key]
		if !ok {
			return false, &MissingKeysError{Key: key, Missing: []string{key}}
		}
		return contains(v, c.oneOf), nil
	case c.valid != nil:
		if _, err := c.valid.Validate(ctx, ConditionsPass, rec); err != nil {
			return false, nil
		}
		return true, nil
	}
	return false, fmt.Errorf("condition for %q has no form set", key)
}

// describe renders the condition for documentation text.
func (c Condition) describe(key string) string {
	switch {
	case c.rng != nil:
		return fmt.Sprintf("  - where %s: range=%s", key,
			rangeNotation(c.rng.min, c.rng.max, c.rng.closed))
	case c.oneOf != nil:
		vals := make([]string, len(c.oneOf))
		for i, v := range c.oneOf {
			vals[i] = valueString(v)
		}
		return fmt.Sprintf("  - where %s: values={%s}", key, strings.Join(vals, ", "))
	case c.valid != nil:
		return "  - where " + c.valid.Describe()
	}
	return fmt.Sprintf("  - where %s: (empty condition)", key)
}

// checkConditions evaluates every condition in declaration-independent map
// order; any unmet condition makes the whole set unmet.
func checkConditions(ctx context.Context, conditions map[string]Condition, rec map[string]cty.Value) (bool, error) {
	for key, cond := range conditions {
		ok, err := cond.met(ctx, key, rec)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// conditionKeys collects the record keys a condition set requires.
func conditionKeys(conditions map[string]Condition) []string {
	var keys []string
	for key, cond := range conditions {
		keys = append(keys, key)
		keys = append(keys, cond.keys()...)
	}
	return keys
}

// describeConditions renders each condition line, sorted by key for
// deterministic output.
func describeConditions(conditions map[string]Condition) []string {
	keys := make([]string, 0, len(conditions))
	for k := range conditions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, conditions[k].describe(k))
	}
	return lines
}
