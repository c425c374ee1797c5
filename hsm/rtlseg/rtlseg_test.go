package rtlseg

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func baseRecord() map[string]cty.Value {
	rec := map[string]cty.Value{
		"aadt":              cty.NumberFloatVal(5000),
		"length":            cty.NumberFloatVal(1.0),
		"lane_width":        cty.NumberFloatVal(12),
		"shld_width":        cty.NumberFloatVal(8),
		"shld_type":         cty.StringVal("paved"),
		"rumble_cl":         cty.NumberFloatVal(0),
		"passing_lanes":     cty.NumberFloatVal(0),
		"twltl":             cty.NumberFloatVal(0),
		"curve_length":      cty.NumberFloatVal(0),
		"curve_radius":      cty.NumberFloatVal(0),
		"spiral_transition": cty.NumberFloatVal(0),
		"se_var":            cty.NumberFloatVal(0),
		"grade":             cty.NumberFloatVal(0),
		"dwy_density":       cty.NumberFloatVal(0),
		"rhr":               cty.NumberFloatVal(3),
		"lighting":          cty.NumberFloatVal(0),
		"ase":               cty.NumberFloatVal(0),
		"obs_kabco":         cty.NumberFloatVal(-1),
		"num_years":         cty.NumberFloatVal(1),
	}
	return rec
}

func TestBaseConditions(t *testing.T) {
	ctx := context.Background()
	m, err := New()
	require.NoError(t, err)

	p, err := m.PredictOne(ctx, baseRecord())
	require.NoError(t, err)

	t.Run("every adjustment factor is 1.0 at base conditions", func(t *testing.T) {
		for _, name := range afNames {
			f, ok := p.Float(name)
			require.True(t, ok, name)
			assert.InDelta(t, 1.00, f, 1e-12, name)
		}
		afTotal, ok := p.Float("af_total")
		require.True(t, ok)
		assert.InDelta(t, 1.00, afTotal, 1e-12)
	})

	t.Run("prediction reduces to the calibrated SPF", func(t *testing.T) {
		spf, ok := p.Float("spf_kabco")
		require.True(t, ok)
		cf, ok := p.Float("cf_total")
		require.True(t, ok)
		pred, ok := p.Float("pred_kabco")
		require.True(t, ok)
		assert.InDelta(t, spf*cf, pred, 1e-12)

		// HSM equation 10-7 at aadt=5000, length=1.
		want := 5000 * 1.0 * 365 * 1e-6 * math.Exp(-0.312)
		assert.InDelta(t, want, spf, 1e-9)
	})

	t.Run("EB analysis is skipped for obs_kabco of -1", func(t *testing.T) {
		exp, ok := p.Float("exp_kabco")
		require.True(t, ok)
		assert.Equal(t, -1.0, exp)
	})
}

func TestAdjustmentFactors(t *testing.T) {
	ctx := context.Background()
	m, err := New()
	require.NoError(t, err)

	predict := func(t *testing.T, overrides map[string]cty.Value) map[string]float64 {
		t.Helper()
		rec := baseRecord()
		for k, v := range overrides {
			rec[k] = v
		}
		p, err := m.PredictOne(ctx, rec)
		require.NoError(t, err)
		out := make(map[string]float64)
		for k := range p.Namespace() {
			if f, ok := p.Float(k); ok {
				out[k] = f
			}
		}
		return out
	}

	t.Run("narrow lanes on a busy road increase crashes", func(t *testing.T) {
		got := predict(t, map[string]cty.Value{"lane_width": cty.NumberFloatVal(9)})
		assert.InDelta(t, (1.50-1.0)*0.574+1, got["af_lane_width"], 1e-12)
	})

	t.Run("turf shoulder is worse than paved", func(t *testing.T) {
		paved := predict(t, nil)
		turf := predict(t, map[string]cty.Value{"shld_type": cty.StringVal("turf")})
		assert.Greater(t, turf["af_shld"], paved["af_shld"])
	})

	t.Run("horizontal curve factor floors at 1.0", func(t *testing.T) {
		got := predict(t, map[string]cty.Value{
			"curve_length": cty.NumberFloatVal(0.5),
			"curve_radius": cty.NumberFloatVal(1e5),
		})
		assert.GreaterOrEqual(t, got["af_hor_curve"], 1.0)
	})

	t.Run("steep grade raises the factor", func(t *testing.T) {
		got := predict(t, map[string]cty.Value{"grade": cty.NumberFloatVal(-8)})
		assert.Equal(t, 1.16, got["af_grade"])
	})

	t.Run("driveway density below five is neutral", func(t *testing.T) {
		got := predict(t, map[string]cty.Value{"dwy_density": cty.NumberFloatVal(4)})
		assert.Equal(t, 1.0, got["af_dwy_density"])
	})

	t.Run("treatment factors apply when present", func(t *testing.T) {
		got := predict(t, map[string]cty.Value{
			"rumble_cl":     cty.NumberFloatVal(1),
			"passing_lanes": cty.NumberFloatVal(1),
			"ase":           cty.NumberFloatVal(1),
		})
		assert.Equal(t, 0.94, got["af_rumble_cl"])
		assert.Equal(t, 0.75, got["af_passing_lanes"])
		assert.Equal(t, 0.93, got["af_ase"])
	})

	t.Run("EB blends prediction with observations", func(t *testing.T) {
		got := predict(t, map[string]cty.Value{"obs_kabco": cty.NumberFloatVal(3)})
		pred := got["pred_kabco"]
		w := 1 / (1 + 0.236/1.0*pred)
		assert.InDelta(t, w*pred+(1-w)*3, got["exp_kabco"], 1e-12)
	})
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	m, err := New()
	require.NoError(t, err)

	t.Run("bad shoulder type is rejected", func(t *testing.T) {
		rec := baseRecord()
		rec["shld_type"] = cty.StringVal("dirt")
		_, err := m.PredictOne(ctx, rec)
		assert.Error(t, err)
	})

	t.Run("curve length cannot exceed segment length", func(t *testing.T) {
		rec := baseRecord()
		rec["curve_length"] = cty.NumberFloatVal(2.0)
		rec["curve_radius"] = cty.NumberFloatVal(1000)
		_, err := m.PredictOne(ctx, rec)
		assert.Error(t, err)
	})

	t.Run("required keys cover the documented inputs", func(t *testing.T) {
		keys := m.RequiredKeys()
		for _, want := range []string{"aadt", "length", "shld_type", "rhr", "obs_kabco", "num_years"} {
			assert.Contains(t, keys, want)
		}
		// Reference-supplied coefficients are not caller inputs.
		assert.NotContains(t, keys, "cf")
		assert.NotContains(t, keys, "k")
	})
}

func TestFeasibleSynthesis(t *testing.T) {
	ctx := context.Background()
	m, err := New()
	require.NoError(t, err)

	rec, err := m.InitOne(ctx, nil, 20, 99)
	require.NoError(t, err)
	_, err = m.PredictOne(ctx, rec)
	assert.NoError(t, err)
}
