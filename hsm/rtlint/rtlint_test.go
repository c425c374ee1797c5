package rtlint

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func baseRecord(factype string) map[string]cty.Value {
	return map[string]cty.Value{
		"factype":          cty.StringVal(factype),
		"aadt_maj":         cty.NumberFloatVal(8000),
		"aadt_min":         cty.NumberFloatVal(1000),
		"skew":             cty.NumberFloatVal(0),
		"left_turn_lanes":  cty.NumberFloatVal(0),
		"right_turn_lanes": cty.NumberFloatVal(0),
		"lighting":         cty.NumberFloatVal(0),
		"obs_kabco":        cty.NumberFloatVal(-1),
		"num_years":        cty.NumberFloatVal(1),
	}
}

func TestBaseConditions(t *testing.T) {
	ctx := context.Background()
	m, err := New()
	require.NoError(t, err)

	for _, factype := range []string{"3st", "4st", "4sg"} {
		t.Run(factype, func(t *testing.T) {
			p, err := m.PredictOne(ctx, baseRecord(factype))
			require.NoError(t, err)

			afTotal, ok := p.Float("af_total")
			require.True(t, ok)
			assert.InDelta(t, 1.00, afTotal, 1e-12)

			spf, _ := p.Float("spf_kabco")
			pred, _ := p.Float("pred_kabco")
			assert.InDelta(t, spf, pred, 1e-12)

			exp, _ := p.Float("exp_kabco")
			assert.Equal(t, -1.0, exp)
		})
	}
}

func TestSPFByFacilityType(t *testing.T) {
	ctx := context.Background()
	m, err := New()
	require.NoError(t, err)

	p, err := m.PredictOne(ctx, baseRecord("3st"))
	require.NoError(t, err)
	spf, ok := p.Float("spf_kabco")
	require.True(t, ok)

	// HSM equation 10-8 with the 3ST coefficients.
	want := math.Exp(-9.86 + 0.79*math.Log(8000) + 0.49*math.Log(1000))
	assert.InDelta(t, want, spf, 1e-9)
}

func TestSeveritySplit(t *testing.T) {
	ctx := context.Background()
	m, err := New()
	require.NoError(t, err)

	for _, factype := range []string{"3st", "4st", "4sg"} {
		t.Run(factype, func(t *testing.T) {
			p, err := m.PredictOne(ctx, baseRecord(factype))
			require.NoError(t, err)
			total, _ := p.Float("pred_kabco")
			fi, _ := p.Float("pred_kabc")
			pdo, _ := p.Float("pred_o")
			// The severity proportions partition the total.
			assert.InDelta(t, total, fi+pdo, 1e-9)
		})
	}
}

func TestAdjustmentFactors(t *testing.T) {
	ctx := context.Background()
	m, err := New()
	require.NoError(t, err)

	predict := func(t *testing.T, factype string, overrides map[string]cty.Value) func(string) float64 {
		t.Helper()
		rec := baseRecord(factype)
		for k, v := range overrides {
			rec[k] = v
		}
		p, err := m.PredictOne(ctx, rec)
		require.NoError(t, err)
		return func(key string) float64 {
			f, ok := p.Float(key)
			require.True(t, ok, key)
			return f
		}
	}

	t.Run("skew is neutral at signalized intersections", func(t *testing.T) {
		got := predict(t, "4sg", map[string]cty.Value{"skew": cty.NumberFloatVal(30)})
		assert.Equal(t, 1.00, got("af_skew"))
	})

	t.Run("skew raises stop-controlled crashes", func(t *testing.T) {
		got := predict(t, "3st", map[string]cty.Value{"skew": cty.NumberFloatVal(30)})
		assert.InDelta(t, math.Exp(0.0040*30), got("af_skew"), 1e-12)
	})

	t.Run("left turn lanes cap at two for stop control", func(t *testing.T) {
		got := predict(t, "3st", map[string]cty.Value{"left_turn_lanes": cty.NumberFloatVal(3)})
		assert.InDelta(t, 0.56*0.56, got("af_left_turn_lanes"), 1e-12)
	})

	t.Run("lighting uses the default night proportion", func(t *testing.T) {
		got := predict(t, "4st", map[string]cty.Value{"lighting": cty.NumberFloatVal(1)})
		assert.InDelta(t, 1.00-0.38*0.244, got("af_lighting"), 1e-12)
	})

	t.Run("lighting honors an explicit night proportion", func(t *testing.T) {
		got := predict(t, "4st", map[string]cty.Value{
			"lighting": cty.NumberFloatVal(1),
			"p_night":  cty.NumberFloatVal(0.5),
		})
		assert.InDelta(t, 1.00-0.38*0.5, got("af_lighting"), 1e-12)
	})

	t.Run("EB blends prediction with observations", func(t *testing.T) {
		got := predict(t, "4sg", map[string]cty.Value{"obs_kabco": cty.NumberFloatVal(5)})
		pred := got("pred_kabco")
		w := 1 / (1 + 0.11*pred)
		assert.InDelta(t, w*pred+(1-w)*5, got("exp_kabco"), 1e-12)
	})
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	m, err := New()
	require.NoError(t, err)

	t.Run("bad facility type is rejected", func(t *testing.T) {
		rec := baseRecord("5leg")
		_, err := m.PredictOne(ctx, rec)
		assert.Error(t, err)
	})

	t.Run("turn lane counts are truncated to integers", func(t *testing.T) {
		rec := baseRecord("3st")
		rec["left_turn_lanes"] = cty.NumberFloatVal(1.7)
		p, err := m.PredictOne(ctx, rec)
		require.NoError(t, err)
		f, _ := p.Float("af_left_turn_lanes")
		assert.InDelta(t, 0.56, f, 1e-12)
	})

	t.Run("reference levels count as required inputs", func(t *testing.T) {
		assert.Contains(t, m.RequiredKeys(), "factype")
		assert.NotContains(t, m.RequiredKeys(), "p_night")
	})
}

func TestFeasibleSynthesis(t *testing.T) {
	ctx := context.Background()
	m, err := New()
	require.NoError(t, err)

	rec, err := m.InitOne(ctx, nil, 20, 7)
	require.NoError(t, err)
	_, err = m.PredictOne(ctx, rec)
	assert.NoError(t, err)
}
