package validate

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func rec(kv ...any) map[string]cty.Value {
	out := make(map[string]cty.Value, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key := kv[i].(string)
		switch v := kv[i+1].(type) {
		case float64:
			out[key] = cty.NumberFloatVal(v)
		case int:
			out[key] = cty.NumberIntVal(int64(v))
		case string:
			out[key] = cty.StringVal(v)
		case bool:
			out[key] = cty.BoolVal(v)
		case cty.Value:
			out[key] = v
		default:
			panic("unsupported record value")
		}
	}
	return out
}

func f64(t *testing.T, v cty.Value) float64 {
	t.Helper()
	require.Equal(t, cty.Number, v.Type())
	f, _ := v.AsBigFloat().Float64()
	return f
}

func TestLimitsStrict(t *testing.T) {
	ctx := context.Background()
	l := Limits{Key: "aadt", Min: Num(0), Max: Num(17800), Enforce: EnforceStrict}

	t.Run("accepts in range", func(t *testing.T) {
		got, err := l.Validate(ctx, ConditionsPass, rec("aadt", 8500.0))
		require.NoError(t, err)
		assert.InDelta(t, 8500.0, f64(t, got), 1e-12)
	})

	t.Run("rejects out of range", func(t *testing.T) {
		_, err := l.Validate(ctx, ConditionsPass, rec("aadt", 20000.0))
		require.Error(t, err)
		var re *RangeError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, "aadt", re.Key)
		assert.Equal(t, 20000.0, re.Value)
	})

	t.Run("rejects missing key", func(t *testing.T) {
		_, err := l.Validate(ctx, ConditionsPass, rec("length", 1.0))
		var me *MissingKeysError
		require.ErrorAs(t, err, &me)
		assert.Equal(t, []string{"aadt"}, me.Missing)
	})

	t.Run("coercion failure is a type error, not a range error", func(t *testing.T) {
		_, err := l.Validate(ctx, ConditionsPass, rec("aadt", "plenty"))
		var te *TypeError
		require.ErrorAs(t, err, &te)
		var re *RangeError
		assert.False(t, errors.As(err, &re))
	})
}

func TestLimitsClosure(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name   string
		closed Closed
		value  float64
		ok     bool
	}{
		{"both includes min", ClosedBoth, 0, true},
		{"both includes max", ClosedBoth, 10, true},
		{"neither excludes min", ClosedNeither, 0, false},
		{"neither excludes max", ClosedNeither, 10, false},
		{"left includes min", ClosedLeft, 0, true},
		{"left excludes max", ClosedLeft, 10, false},
		{"right excludes min", ClosedRight, 0, false},
		{"right includes max", ClosedRight, 10, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := Limits{Key: "x", Min: Num(0), Max: Num(10), Closed: tc.closed, Enforce: EnforceStrict}
			_, err := l.Validate(ctx, ConditionsPass, rec("x", tc.value))
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestLimitsSnap(t *testing.T) {
	ctx := context.Background()
	l := Limits{Key: "grade", Min: Num(0), Max: Num(6), Enforce: EnforceSnap}

	t.Run("clamps above max", func(t *testing.T) {
		got, err := l.Validate(ctx, ConditionsPass, rec("grade", 9.5))
		require.NoError(t, err)
		assert.Equal(t, 6.0, f64(t, got))
	})

	t.Run("clamps below min", func(t *testing.T) {
		got, err := l.Validate(ctx, ConditionsPass, rec("grade", -2.0))
		require.NoError(t, err)
		assert.Equal(t, 0.0, f64(t, got))
	})

	t.Run("snap is idempotent", func(t *testing.T) {
		once, err := l.Validate(ctx, ConditionsPass, rec("grade", 9.5))
		require.NoError(t, err)
		twice, err := l.Validate(ctx, ConditionsPass, rec("grade", once))
		require.NoError(t, err)
		assert.Equal(t, f64(t, once), f64(t, twice))
	})
}

func TestLimitsFunctionalBounds(t *testing.T) {
	ctx := context.Background()
	// Curve length cannot exceed segment length.
	l := Limits{
		Key: "curve_length",
		Min: Num(0),
		Max: Fn(func(vals map[string]float64) float64 {
			return vals["length"]
		}, "length"),
		Enforce: EnforceSnap,
	}

	t.Run("clamps to evaluated bound", func(t *testing.T) {
		got, err := l.Validate(ctx, ConditionsPass, rec("curve_length", 2.0, "length", 1.25))
		require.NoError(t, err)
		assert.Equal(t, 1.25, f64(t, got))
	})

	t.Run("bound varies with the record", func(t *testing.T) {
		got, err := l.Validate(ctx, ConditionsPass, rec("curve_length", 2.0, "length", 3.0))
		require.NoError(t, err)
		assert.Equal(t, 2.0, f64(t, got))
	})

	t.Run("missing bound key", func(t *testing.T) {
		_, err := l.Validate(ctx, ConditionsPass, rec("curve_length", 2.0))
		var me *MissingKeysError
		require.ErrorAs(t, err, &me)
		assert.Contains(t, me.Missing, "length")
	})

	t.Run("keys include functional dependencies", func(t *testing.T) {
		assert.Equal(t, []string{"curve_length", "length"}, l.Keys())
	})
}

func TestLimitsShifts(t *testing.T) {
	ctx := context.Background()
	l := Limits{
		Key:      "weave_length",
		Min:      Num(0),
		Max:      Num(10),
		Subtract: []string{"ramp_length"},
		Enforce:  EnforceStrict,
	}

	t.Run("subtract lowers the max", func(t *testing.T) {
		_, err := l.Validate(ctx, ConditionsPass, rec("weave_length", 9.0, "ramp_length", 2.0))
		var re *RangeError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, 8.0, re.Max)
	})

	t.Run("within shifted range", func(t *testing.T) {
		got, err := l.Validate(ctx, ConditionsPass, rec("weave_length", 7.0, "ramp_length", 2.0))
		require.NoError(t, err)
		assert.Equal(t, 7.0, f64(t, got))
	})

	add := Limits{Key: "x", Min: Num(0), Max: Num(100), Add: []string{"offset"}, Enforce: EnforceStrict}
	t.Run("add raises the min", func(t *testing.T) {
		_, err := add.Validate(ctx, ConditionsPass, rec("x", 3.0, "offset", 5.0))
		var re *RangeError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, 5.0, re.Min)
	})
}

func TestLimitsEnforcementModes(t *testing.T) {
	ctx := context.Background()

	t.Run("default substitutes on violation", func(t *testing.T) {
		l := Limits{Key: "rhr", Min: Num(1), Max: Num(7), Default: cty.NumberFloatVal(3),
			Enforce: EnforceDefault}
		got, err := l.Validate(ctx, ConditionsPass, rec("rhr", 12.0))
		require.NoError(t, err)
		assert.Equal(t, 3.0, f64(t, got))
	})

	t.Run("none passes anything through untouched", func(t *testing.T) {
		l := Limits{Key: "note", Min: Num(0), Max: Num(1), Enforce: EnforceNone}
		got, err := l.Validate(ctx, ConditionsPass, rec("note", "freeform"))
		require.NoError(t, err)
		assert.Equal(t, cty.StringVal("freeform"), got)
	})

	t.Run("warn passes the value through", func(t *testing.T) {
		l := Limits{Key: "grade", Min: Num(0), Max: Num(6), Enforce: EnforceWarn}
		got, err := l.Validate(ctx, ConditionsPass, rec("grade", 9.0))
		require.NoError(t, err)
		assert.Equal(t, 9.0, f64(t, got))
	})

	t.Run("type coerces without range check", func(t *testing.T) {
		l := Limits{Key: "lanes", Min: Num(1), Max: Num(4), Integral: true, Enforce: EnforceType}
		got, err := l.Validate(ctx, ConditionsPass, rec("lanes", cty.StringVal("7.9")))
		require.NoError(t, err)
		assert.Equal(t, 7.0, f64(t, got))
	})
}

func TestLimitsIntegral(t *testing.T) {
	ctx := context.Background()
	l := Limits{Key: "driveways", Min: Num(0), Max: Num(50), Integral: true, Enforce: EnforceStrict}
	got, err := l.Validate(ctx, ConditionsPass, rec("driveways", 12.7))
	require.NoError(t, err)
	assert.Equal(t, 12.0, f64(t, got))
}

func TestLimitsConditions(t *testing.T) {
	ctx := context.Background()
	l := Limits{
		Key: "median_width", Min: Num(0), Max: Num(100), Enforce: EnforceStrict,
		Conditions: map[string]Condition{"divided": OneOf(cty.True)},
	}

	t.Run("unmet under pass policy returns value untouched", func(t *testing.T) {
		got, err := l.Validate(ctx, ConditionsPass, rec("median_width", 500.0, "divided", false))
		require.NoError(t, err)
		assert.Equal(t, 500.0, f64(t, got))
	})

	t.Run("unmet under raise policy errors", func(t *testing.T) {
		_, err := l.Validate(ctx, ConditionsRaise, rec("median_width", 12.0, "divided", false))
		assert.ErrorIs(t, err, ErrConditionNotMet)
	})

	t.Run("met condition enforces normally", func(t *testing.T) {
		_, err := l.Validate(ctx, ConditionsPass, rec("median_width", 500.0, "divided", true))
		var re *RangeError
		assert.ErrorAs(t, err, &re)
	})

	t.Run("range condition", func(t *testing.T) {
		lc := Limits{
			Key: "twltl", Min: Num(0), Max: Num(1), Enforce: EnforceStrict,
			Conditions: map[string]Condition{"lanes": Between(2, 2)},
		}
		got, err := lc.Validate(ctx, ConditionsPass, rec("twltl", 5.0, "lanes", 4.0))
		require.NoError(t, err)
		assert.Equal(t, 5.0, f64(t, got))
		_, err = lc.Validate(ctx, ConditionsPass, rec("twltl", 5.0, "lanes", 2.0))
		assert.Error(t, err)
	})

	t.Run("nested validator condition", func(t *testing.T) {
		inner := Limits{Key: "aadt", Min: Num(0), Max: Num(1000), Enforce: EnforceStrict}
		lc := Limits{
			Key: "x", Min: Num(0), Max: Num(1), Enforce: EnforceStrict,
			Conditions: map[string]Condition{"aadt": MetBy(inner)},
		}
		assert.Contains(t, lc.Keys(), "aadt")
		_, err := lc.Validate(ctx, ConditionsPass, rec("x", 0.5, "aadt", 900.0))
		assert.NoError(t, err)
		got, err := lc.Validate(ctx, ConditionsPass, rec("x", 5.0, "aadt", 5000.0))
		require.NoError(t, err)
		assert.Equal(t, 5.0, f64(t, got))
	})
}

func TestLimitsRandom(t *testing.T) {
	ctx := context.Background()
	l := Limits{Key: "grade", Min: Num(0), Max: Num(6), Enforce: EnforceStrict}

	t.Run("draw is in range and deterministic per seed", func(t *testing.T) {
		a, err := l.Random(ctx, rand.New(rand.NewSource(42)), ConditionsPass, rec())
		require.NoError(t, err)
		b, err := l.Random(ctx, rand.New(rand.NewSource(42)), ConditionsPass, rec())
		require.NoError(t, err)
		assert.Equal(t, f64(t, a), f64(t, b))
		fa := f64(t, a)
		assert.GreaterOrEqual(t, fa, 0.0)
		assert.LessOrEqual(t, fa, 6.0)
	})

	t.Run("unbounded range cannot be drawn", func(t *testing.T) {
		open := Limits{Key: "x", Min: Num(0), Enforce: EnforceStrict}
		_, err := open.Random(ctx, rand.New(rand.NewSource(1)), ConditionsPass, rec())
		assert.Error(t, err)
	})
}

func TestLimitsDescribe(t *testing.T) {
	l := Limits{
		Key: "lane_width", Min: Num(9), Max: Num(12), Enforce: EnforceSnap,
		Notes: []string{"feet"},
	}
	d := l.Describe()
	assert.Contains(t, d, "lane_width")
	assert.Contains(t, d, "snap")
	assert.Contains(t, d, "feet")
	assert.Contains(t, d, "[9 to 12]")
}
