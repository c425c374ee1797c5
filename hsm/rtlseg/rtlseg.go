// Package rtlseg defines the rural two-lane, two-way roadway segment crash
// prediction model from HSM chapter 10.
package rtlseg

import (
	_ "embed"
	"math"

	"github.com/zclconf/go-cty/cty"

	"github.com/tariqshihadah/cpm/model"
	"github.com/tariqshihadah/cpm/validate"
)

//go:embed spf.json
var spfJSON []byte

//go:embed calibration.json
var calibrationJSON []byte

// New builds the rtl_seg model.
func New() (*model.Model, error) {
	b := model.NewBuilder("rtl_seg")

	if err := b.AddReferenceJSON("calibration", calibrationJSON); err != nil {
		return nil, err
	}
	if err := b.AddReferenceJSON("spf", spfJSON); err != nil {
		return nil, err
	}
	for _, v := range validators() {
		if err := b.AddValidator(v); err != nil {
			return nil, err
		}
	}

	type registration struct {
		add  func(model.ElementSpec) error
		spec model.ElementSpec
	}
	regs := []registration{
		{b.AddSPF, model.ElementSpec{
			Name: "spf_kabco", Layer: 0, Func: spfKABCO,
			Uses: []string{"aadt", "length", "a", "b", "cf"},
			Refs: []model.RefBinding{{Ref: "spf",
				Fixed: map[string]cty.Value{"severity": cty.StringVal("kabco")}}},
		}},
		{b.AddAF, model.ElementSpec{
			Name: "af_lane_width", Layer: 0, Func: afLaneWidth,
			Uses: []string{"lane_width", "aadt"},
		}},
		{b.AddAF, model.ElementSpec{
			Name: "af_shld", Layer: 0, Func: afShld,
			Uses: []string{"aadt", "shld_width", "shld_type"},
		}},
		{b.AddAF, model.ElementSpec{
			Name: "af_hor_curve", Layer: 0, Func: afHorCurve,
			Uses: []string{"length", "curve_length", "curve_radius", "spiral_transition"},
		}},
		{b.AddAF, model.ElementSpec{
			Name: "af_se_var", Layer: 0, Func: afSeVar,
			Uses: []string{"se_var"},
		}},
		{b.AddAF, model.ElementSpec{
			Name: "af_grade", Layer: 0, Func: afGrade,
			Uses: []string{"grade"},
		}},
		{b.AddAF, model.ElementSpec{
			Name: "af_dwy_density", Layer: 0, Func: afDwyDensity,
			Uses: []string{"aadt", "dwy_density"},
		}},
		{b.AddAF, model.ElementSpec{
			Name: "af_rumble_cl", Layer: 0, Func: afRumbleCL,
			Uses: []string{"rumble_cl"},
		}},
		{b.AddAF, model.ElementSpec{
			Name: "af_passing_lanes", Layer: 0, Func: afPassingLanes,
			Uses: []string{"passing_lanes"},
		}},
		{b.AddAF, model.ElementSpec{
			Name: "af_twltl", Layer: 0, Func: afTWLTL,
			Uses: []string{"twltl", "dwy_density"},
		}},
		{b.AddAF, model.ElementSpec{
			Name: "af_rhr", Layer: 0, Func: afRHR,
			Uses: []string{"rhr"},
		}},
		{b.AddAF, model.ElementSpec{
			Name: "af_lighting", Layer: 0, Func: afLighting,
			Uses: []string{"lighting"},
		}},
		{b.AddAF, model.ElementSpec{
			Name: "af_ase", Layer: 0, Func: afASE,
			Uses: []string{"ase"},
		}},
		{b.AddAF, model.ElementSpec{
			Name: "af_total", Layer: 1, Func: afTotal,
			Uses: afNames,
		}},
		{b.AddCF, model.ElementSpec{
			Name: "cf_total", Layer: 2, Func: cfTotal,
			Uses: []string{"cf"},
			Refs: []model.RefBinding{{Ref: "calibration"}},
		}},
		{b.AddResult, model.ElementSpec{
			Name: "pred_kabco", Layer: 3, Func: predKABCO,
			Uses: []string{"spf_kabco", "af_total", "cf_total", "num_years"},
			Comp: map[string]cty.Value{
				"severity":   cty.StringVal("kabco"),
				"crash_type": cty.StringVal("all"),
			},
		}},
		{b.AddResult, model.ElementSpec{
			Name: "exp_kabco", Layer: 4, Func: expKABCO,
			Uses: []string{"obs_kabco", "pred_kabco", "k", "length"},
			Refs: []model.RefBinding{{Ref: "spf",
				Fixed: map[string]cty.Value{"severity": cty.StringVal("kabco")}}},
			Comp: map[string]cty.Value{
				"severity":   cty.StringVal("kabco"),
				"crash_type": cty.StringVal("all"),
			},
		}},
	}
	for _, r := range regs {
		if err := r.add(r.spec); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

var afNames = []string{
	"af_lane_width", "af_shld", "af_hor_curve", "af_se_var", "af_grade",
	"af_dwy_density", "af_rumble_cl", "af_passing_lanes", "af_twltl",
	"af_rhr", "af_lighting", "af_ase",
}

func validators() []validate.Validator {
	return []validate.Validator{
		validate.Limits{Key: "aadt", Min: validate.Num(1), Max: validate.Num(17800),
			Enforce: validate.EnforceWarn},

		validate.Limits{Key: "length", Min: validate.Num(0), Max: validate.Num(1e2)},
		validate.Limits{Key: "lane_width", Min: validate.Num(6), Max: validate.Num(24)},
		validate.Limits{Key: "shld_width", Min: validate.Num(0), Max: validate.Num(20)},
		validate.Values{Key: "shld_type",
			Values: validate.Strings("paved", "gravel", "composite", "turf")},
		validate.Values{Key: "rumble_cl", Values: validate.Numbers(0, 1),
			Notes: []string{"Centerline rumblestrips", "0: not present; 1: present"}},
		validate.Values{Key: "passing_lanes", Values: validate.Numbers(0, 1, 2)},
		validate.Values{Key: "twltl", Values: validate.Numbers(0, 1),
			Notes: []string{"Two-way left-turn lane", "0: not present; 1: present"}},

		validate.Values{Key: "spiral_transition", Values: validate.Numbers(0, 0.5, 1),
			Notes: []string{"0: not present; 0.5: present on one end only; 1: present on both ends"}},
		validate.Limits{Key: "curve_length", Min: validate.Num(0),
			Max: validate.Fn(func(vals map[string]float64) float64 {
				return vals["length"]
			}, "length"),
			Notes: []string{"Length of the horizontal curve in miles"}},
		validate.Limits{Key: "curve_radius", Min: validate.Num(0), Max: validate.Num(1e5),
			Notes: []string{"Radius of the horizontal curve in feet"}},
		validate.Limits{Key: "se_var", Min: validate.Num(0), Max: validate.Num(0.10),
			Notes: []string{"Superelevation variance"}},
		validate.Limits{Key: "grade", Min: validate.Num(-20), Max: validate.Num(20)},

		validate.Limits{Key: "dwy_density", Min: validate.Num(0), Max: validate.Num(100),
			Enforce: validate.EnforceWarn,
			Notes:   []string{"Number of driveways per mile"}},
		validate.Values{Key: "rhr", Values: validate.Numbers(1, 2, 3, 4, 5, 6, 7),
			Type:  cty.Number,
			Notes: []string{"Roadside hazard rating"}},
		validate.Values{Key: "lighting", Values: validate.Numbers(0, 1),
			Notes: []string{"0: not present; 1: present"}},
		validate.Values{Key: "ase", Values: validate.Numbers(0, 1),
			Notes: []string{"Automated speed enforcement", "0: not present; 1: present"}},

		validate.Limits{Key: "obs_kabco", Min: validate.Num(-1), Max: validate.Num(1e3),
			Enforce: validate.EnforceWarn,
			Notes:   []string{"If historic crash data is unavailable, enter -1 to skip EB analysis."}},
		validate.Limits{Key: "num_years", Min: validate.Num(0), Max: validate.Num(1e2),
			Enforce: validate.EnforceWarn},
	}
}

// spfKABCO implements HSM equation 10-7.
func spfKABCO(in model.Inputs) (cty.Value, error) {
	n := in.Float("a") * in.Float("aadt") * in.Float("length") * 365 * 1e-6 *
		math.Exp(in.Float("b")) * in.Float("cf")
	return cty.NumberFloatVal(n), nil
}

// afLaneWidth implements HSM table 10-8 and equation 10-11.
func afLaneWidth(in model.Inputs) (cty.Value, error) {
	laneWidth := in.Float("lane_width")
	aadt := in.Float("aadt")
	var af float64
	switch {
	case laneWidth < 10:
		switch {
		case aadt < 400:
			af = 1.05
		case aadt > 2000:
			af = 1.50
		default:
			af = 1.05 + 2.81*1e-4*(aadt-400)
		}
	case laneWidth < 11:
		switch {
		case aadt < 400:
			af = 1.02
		case aadt > 2000:
			af = 1.30
		default:
			af = 1.02 + 1.75*1e-4*(aadt-400)
		}
	case laneWidth < 12:
		switch {
		case aadt < 400:
			af = 1.01
		case aadt > 2000:
			af = 1.05
		default:
			af = 1.01 + 2.50*1e-5*(aadt-400)
		}
	default:
		af = 1.00
	}
	// Generalize to total crashes per equation 10-11.
	return cty.NumberFloatVal((af-1.0)*0.574 + 1), nil
}

// afShld implements HSM tables 10-9 and 10-10 and equation 10-12. Widths up
// to and including 8 ft take the base width factor of 1.00.
func afShld(in model.Inputs) (cty.Value, error) {
	aadt := in.Float("aadt")
	shldWidth := in.Float("shld_width")
	shldType := in.String("shld_type")

	typeRow := func(paved, gravel, composite, turf float64) float64 {
		switch shldType {
		case "paved":
			return paved
		case "gravel":
			return gravel
		case "composite":
			return composite
		}
		return turf
	}
	var afTyp float64
	switch {
	case shldWidth < 1:
		afTyp = 1.00
	case shldWidth < 2:
		afTyp = typeRow(1.00, 1.00, 1.01, 1.01)
	case shldWidth < 3:
		afTyp = typeRow(1.00, 1.01, 1.02, 1.03)
	case shldWidth < 4:
		afTyp = typeRow(1.00, 1.01, 1.02, 1.04)
	case shldWidth < 6:
		afTyp = typeRow(1.00, 1.01, 1.03, 1.05)
	case shldWidth <= 8:
		afTyp = typeRow(1.00, 1.02, 1.04, 1.08)
	default:
		afTyp = typeRow(1.00, 1.02, 1.06, 1.11)
	}

	var afWth float64
	switch {
	case shldWidth < 2:
		switch {
		case aadt < 400:
			afWth = 1.10
		case aadt > 2000:
			afWth = 1.50
		default:
			afWth = 1.10 + 2.50*1e-4*(aadt-400)
		}
	case shldWidth < 4:
		switch {
		case aadt < 400:
			afWth = 1.07
		case aadt > 2000:
			afWth = 1.30
		default:
			afWth = 1.07 + 1.43*1e-4*(aadt-400)
		}
	case shldWidth < 6:
		switch {
		case aadt < 400:
			afWth = 1.02
		case aadt > 2000:
			afWth = 1.15
		default:
			afWth = 1.02 + 8.125*1e-5*(aadt-400)
		}
	case shldWidth <= 8:
		afWth = 1.00
	default:
		switch {
		case aadt < 400:
			afWth = 0.98
		case aadt > 2000:
			afWth = 0.87
		default:
			afWth = 0.98 - 6.875*1e-5*(aadt-400)
		}
	}

	// Generalize to total crashes per equation 10-12.
	return cty.NumberFloatVal((afTyp*afWth-1.0)*0.574 + 1), nil
}

// afHorCurve implements HSM equation 10-13.
func afHorCurve(in model.Inputs) (cty.Value, error) {
	curveLength := in.Float("curve_length")
	curveRadius := in.Float("curve_radius")
	if curveLength == 0 && curveRadius == 0 {
		return cty.NumberFloatVal(1.00), nil
	}
	curveLength = math.Min(curveLength, in.Float("length"))
	curveLength = math.Max(curveLength, 100.0/5280.0)
	curveRadius = math.Max(curveRadius, 100)
	af := ((1.55 * curveLength) + (80.2 / curveRadius) -
		(0.012 * in.Float("spiral_transition"))) / (1.55 * curveLength)
	return cty.NumberFloatVal(math.Max(af, 1.00)), nil
}

// afSeVar implements HSM equations 10-14, 10-15, and 10-16.
func afSeVar(in model.Inputs) (cty.Value, error) {
	seVar := in.Float("se_var")
	var af float64
	switch {
	case seVar < 0.01:
		af = 1.00
	case seVar >= 0.02:
		af = 1.06 + 3*(seVar-0.02)
	default:
		af = 1.00 + 6*(seVar-0.01)
	}
	return cty.NumberFloatVal(af), nil
}

// afGrade implements HSM table 10-11.
func afGrade(in model.Inputs) (cty.Value, error) {
	grade := math.Abs(in.Float("grade"))
	var af float64
	switch {
	case grade <= 3.00:
		af = 1.00
	case grade <= 6.00:
		af = 1.10
	default:
		af = 1.16
	}
	return cty.NumberFloatVal(af), nil
}

// afDwyDensity implements HSM equation 10-17.
func afDwyDensity(in model.Inputs) (cty.Value, error) {
	dwyDensity := in.Float("dwy_density")
	if dwyDensity < 5 {
		return cty.NumberFloatVal(1.00), nil
	}
	aadt := in.Float("aadt")
	af := (0.322 + dwyDensity*(0.05-0.005*math.Log(aadt))) /
		(0.322 + 5*(0.05-0.005*math.Log(aadt)))
	return cty.NumberFloatVal(af), nil
}

func afRumbleCL(in model.Inputs) (cty.Value, error) {
	if in.Bool("rumble_cl") {
		return cty.NumberFloatVal(0.94), nil
	}
	return cty.NumberFloatVal(1.00), nil
}

func afPassingLanes(in model.Inputs) (cty.Value, error) {
	var af float64
	switch in.Int("passing_lanes") {
	case 0:
		af = 1.00
	case 1:
		af = 0.75
	default:
		af = 0.65
	}
	return cty.NumberFloatVal(af), nil
}

// afTWLTL implements HSM equations 10-18 and 10-19.
func afTWLTL(in model.Inputs) (cty.Value, error) {
	dwyDensity := in.Float("dwy_density")
	if !in.Bool("twltl") || dwyDensity < 5 {
		return cty.NumberFloatVal(1.00), nil
	}
	dwyProp := (0.0047*dwyDensity + 0.0024*dwyDensity*dwyDensity) /
		(1.199 + 0.0047*dwyDensity + 0.0024*dwyDensity*dwyDensity)
	return cty.NumberFloatVal(1.0 - 0.7*dwyProp*0.5), nil
}

// afRHR implements HSM equation 10-20 with the roadside hazard rating of
// appendix 13A.
func afRHR(in model.Inputs) (cty.Value, error) {
	af := math.Exp(-0.6869+0.0668*in.Float("rhr")) / math.Exp(-0.4865)
	return cty.NumberFloatVal(af), nil
}

// afLighting implements HSM equation 10-21 and table 10-12.
func afLighting(in model.Inputs) (cty.Value, error) {
	if in.Bool("lighting") {
		return cty.NumberFloatVal(1.0 - (1.0-0.72*0.382-0.83*0.618)*0.370), nil
	}
	return cty.NumberFloatVal(1.00), nil
}

func afASE(in model.Inputs) (cty.Value, error) {
	if in.Bool("ase") {
		return cty.NumberFloatVal(0.93), nil
	}
	return cty.NumberFloatVal(1.00), nil
}

func afTotal(in model.Inputs) (cty.Value, error) {
	af := 1.0
	for _, name := range afNames {
		af *= in.Float(name)
	}
	return cty.NumberFloatVal(af), nil
}

func cfTotal(in model.Inputs) (cty.Value, error) {
	return cty.NumberFloatVal(in.Float("cf")), nil
}

func predKABCO(in model.Inputs) (cty.Value, error) {
	res := in.Float("spf_kabco") * in.Float("af_total") * in.Float("cf_total") *
		in.Float("num_years")
	return cty.NumberFloatVal(res), nil
}

// expKABCO blends the predicted and observed crash frequencies using the
// empirical Bayes weight. An observed count of -1 skips the EB analysis.
func expKABCO(in model.Inputs) (cty.Value, error) {
	obs := in.Float("obs_kabco")
	if obs == -1 {
		return cty.NumberFloatVal(-1), nil
	}
	pred := in.Float("pred_kabco")
	w := 1 / (1 + (in.Float("k")/in.Float("length"))*pred)
	return cty.NumberFloatVal(w*pred + (1-w)*obs), nil
}
