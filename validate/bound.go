package validate

import (
	"fmt"
	"math"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Bound is one end of a Limits range: absent, a constant, or a function of
// other named parameters. The zero Bound is unbounded.
type Bound struct {
	kind boundKind
	num  float64
	keys []string
	fn   func(vals map[string]float64) float64
}

type boundKind int

const (
	boundNone boundKind = iota
	boundNum
	boundFn
)

// Num builds a constant bound.
func Num(v float64) Bound {
	return Bound{kind: boundNum, num: v}
}

// Fn builds a functional bound evaluated against the named parameters.
// The key list is the bound's full declared dependency set; evaluation
// receives exactly those keys and fails if any is missing from the record.
func Fn(fn func(vals map[string]float64) float64, keys ...string) Bound {
	return Bound{kind: boundFn, keys: keys, fn: fn}
}

// Keys returns the parameter names a functional bound depends on.
func (b Bound) Keys() []string {
	return append([]string(nil), b.keys...)
}

// eval resolves the bound against rec. fallback is returned for an unset
// bound (±Inf in practice). key names the owning validator for errors.
func (b Bound) eval(key string, rec map[string]cty.Value, fallback float64) (float64, error) {
	switch b.kind {
	case boundNone:
		return fallback, nil
	case boundNum:
		return b.num, nil
	case boundFn:
		vals := make(map[string]float64, len(b.keys))
		var missing []string
		for _, k := range b.keys {
			v, ok := rec[k]
			if !ok {
				missing = append(missing, k)
				continue
			}
			f, err := asFloat(v)
			if err != nil {
				return 0, &TypeError{Key: k, Want: cty.Number, Err: err}
			}
			vals[k] = f
		}
		if len(missing) > 0 {
			return 0, &MissingKeysError{Key: key, Missing: missing}
		}
		return b.fn(vals), nil
	}
	return 0, fmt.Errorf("validator for %q: invalid bound", key)
}

func (b Bound) describe(fallback string) string {
	switch b.kind {
	case boundNum:
		return floatText(b.num)
	case boundFn:
		return fmt.Sprintf("f(%s)", strings.Join(b.keys, ", "))
	}
	return fallback
}

// unboundedMin and unboundedMax are the fallbacks for unset bounds.
var (
	unboundedMin = math.Inf(-1)
	unboundedMax = math.Inf(1)
)
