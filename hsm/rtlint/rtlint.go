// Package rtlint defines the rural two-lane, two-way intersection crash
// prediction model from HSM chapter 10.
package rtlint

import (
	_ "embed"
	"math"

	"github.com/zclconf/go-cty/cty"

	"github.com/tariqshihadah/cpm/model"
	"github.com/tariqshihadah/cpm/validate"
)

//go:embed spf.json
var spfJSON []byte

//go:embed dist_all.json
var distAllJSON []byte

//go:embed calibration.json
var calibrationJSON []byte

// New builds the rtl_int model.
func New() (*model.Model, error) {
	b := model.NewBuilder("rtl_int")

	if err := b.AddReferenceJSON("calibration", calibrationJSON); err != nil {
		return nil, err
	}
	if err := b.AddReferenceJSON("spf", spfJSON); err != nil {
		return nil, err
	}
	if err := b.AddReferenceJSON("dist_all", distAllJSON); err != nil {
		return nil, err
	}
	for _, v := range validators() {
		if err := b.AddValidator(v); err != nil {
			return nil, err
		}
	}

	compAll := func(severity string) map[string]cty.Value {
		return map[string]cty.Value{
			"severity":   cty.StringVal(severity),
			"crash_type": cty.StringVal("all"),
		}
	}

	type registration struct {
		add  func(model.ElementSpec) error
		spec model.ElementSpec
	}
	regs := []registration{
		{b.AddSPF, model.ElementSpec{
			Name: "spf_kabco", Layer: 0, Func: spfKABCO,
			Uses: []string{"factype", "aadt_maj", "aadt_min", "a", "b", "c", "cf"},
			Refs: []model.RefBinding{{Ref: "spf",
				Fixed: map[string]cty.Value{"severity": cty.StringVal("kabco")}}},
		}},
		{b.AddSPF, model.ElementSpec{
			Name: "spf_kabc", Layer: 1, Func: spfKABC,
			Uses: []string{"factype", "spf_kabco", "k", "a", "b", "c"},
			Refs: []model.RefBinding{{Ref: "dist_all"}},
		}},
		{b.AddSPF, model.ElementSpec{
			Name: "spf_o", Layer: 1, Func: spfO,
			Uses: []string{"factype", "spf_kabco", "o"},
			Refs: []model.RefBinding{{Ref: "dist_all"}},
		}},
		{b.AddAF, model.ElementSpec{
			Name: "af_skew", Layer: 1, Func: afSkew,
			Uses: []string{"factype", "skew"},
		}},
		{b.AddAF, model.ElementSpec{
			Name: "af_left_turn_lanes", Layer: 1, Func: afLeftTurnLanes,
			Uses: []string{"factype", "left_turn_lanes"},
		}},
		{b.AddAF, model.ElementSpec{
			Name: "af_right_turn_lanes", Layer: 1, Func: afRightTurnLanes,
			Uses: []string{"factype", "right_turn_lanes"},
		}},
		{b.AddAF, model.ElementSpec{
			Name: "af_lighting", Layer: 1, Func: afLighting,
			Uses: []string{"factype", "lighting"},
		}},
		{b.AddAF, model.ElementSpec{
			Name: "af_total", Layer: 2, Func: afTotal,
			Uses: afNames,
		}},
		{b.AddCF, model.ElementSpec{
			Name: "cf_total", Layer: 3, Func: cfTotal,
			Uses: []string{"cf"},
			Refs: []model.RefBinding{{Ref: "calibration"}},
		}},
		{b.AddResult, model.ElementSpec{
			Name: "pred_kabco", Layer: 4, Func: pred("spf_kabco"),
			Uses: []string{"spf_kabco", "af_total", "cf_total", "num_years"},
			Comp: compAll("kabco"),
		}},
		{b.AddResult, model.ElementSpec{
			Name: "pred_kabc", Layer: 4, Func: pred("spf_kabc"),
			Uses: []string{"spf_kabc", "af_total", "cf_total", "num_years"},
			Comp: compAll("kabc"),
		}},
		{b.AddResult, model.ElementSpec{
			Name: "pred_o", Layer: 4, Func: pred("spf_o"),
			Uses: []string{"spf_o", "af_total", "cf_total", "num_years"},
			Comp: compAll("o"),
		}},
		{b.AddResult, model.ElementSpec{
			Name: "exp_kabco", Layer: 5, Func: expKABCO,
			Uses: []string{"factype", "obs_kabco", "pred_kabco", "k"},
			Refs: []model.RefBinding{{Ref: "spf",
				Fixed: map[string]cty.Value{"severity": cty.StringVal("kabco")}}},
			Comp: compAll("kabco"),
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
	"af_skew", "af_left_turn_lanes", "af_right_turn_lanes", "af_lighting",
}

func validators() []validate.Validator {
	factype := func(types ...string) map[string]validate.Condition {
		vals := make([]cty.Value, len(types))
		for i, t := range types {
			vals[i] = cty.StringVal(t)
		}
		return map[string]validate.Condition{"factype": validate.OneOf(vals...)}
	}
	return []validate.Validator{
		validate.Limits{Key: "aadt_maj", Min: validate.Num(1), Max: validate.Num(19500),
			Enforce: validate.EnforceWarn, Conditions: factype("3st")},
		validate.Limits{Key: "aadt_maj", Min: validate.Num(1), Max: validate.Num(14700),
			Enforce: validate.EnforceWarn, Conditions: factype("4st")},
		validate.Limits{Key: "aadt_maj", Min: validate.Num(1), Max: validate.Num(25200),
			Enforce: validate.EnforceWarn, Conditions: factype("4sg")},

		validate.Limits{Key: "aadt_min", Min: validate.Num(1), Max: validate.Num(4300),
			Enforce: validate.EnforceWarn, Conditions: factype("3st")},
		validate.Limits{Key: "aadt_min", Min: validate.Num(1), Max: validate.Num(3500),
			Enforce: validate.EnforceWarn, Conditions: factype("4st")},
		validate.Limits{Key: "aadt_min", Min: validate.Num(1), Max: validate.Num(12500),
			Enforce: validate.EnforceWarn, Conditions: factype("4sg")},

		validate.Values{Key: "factype", Values: validate.Strings("3st", "4st", "4sg"),
			Notes: []string{
				"3st: 3-leg stop-controlled",
				"4st: 4-leg stop-controlled",
				"4sg: 4-leg signalized",
			}},

		validate.Limits{Key: "skew", Min: validate.Num(0), Max: validate.Num(90)},
		validate.Values{Key: "lighting", Values: validate.Numbers(0, 1),
			Notes: []string{"0: not present; 1: present"}},

		validate.Limits{Key: "left_turn_lanes", Min: validate.Num(0), Max: validate.Num(3),
			Integral: true, Conditions: factype("3st")},
		validate.Limits{Key: "left_turn_lanes", Min: validate.Num(0), Max: validate.Num(4),
			Integral: true, Conditions: factype("4st", "4sg")},

		validate.Limits{Key: "right_turn_lanes", Min: validate.Num(0), Max: validate.Num(3),
			Integral: true, Conditions: factype("3st")},
		validate.Limits{Key: "right_turn_lanes", Min: validate.Num(0), Max: validate.Num(4),
			Integral: true, Conditions: factype("4st", "4sg")},

		validate.Limits{Key: "obs_kabco", Min: validate.Num(-1), Max: validate.Num(1e3),
			Enforce: validate.EnforceWarn,
			Notes:   []string{"If historic crash data is unavailable, enter -1 to skip EB analysis."}},
		validate.Limits{Key: "num_years", Min: validate.Num(0), Max: validate.Num(1e2),
			Enforce: validate.EnforceWarn},
	}
}

// spfKABCO implements HSM equations 10-8, 10-9, and 10-10.
func spfKABCO(in model.Inputs) (cty.Value, error) {
	n := math.Exp(in.Float("a")+in.Float("b")*math.Log(in.Float("aadt_maj"))+
		in.Float("c")*math.Log(in.Float("aadt_min"))) * in.Float("cf")
	return cty.NumberFloatVal(n), nil
}

// spfKABC scales the total SPF by the fatal-and-injury crash proportion.
func spfKABC(in model.Inputs) (cty.Value, error) {
	prop := in.Float("k") + in.Float("a") + in.Float("b") + in.Float("c")
	return cty.NumberFloatVal(in.Float("spf_kabco") * prop), nil
}

// spfO scales the total SPF by the property-damage-only crash proportion.
func spfO(in model.Inputs) (cty.Value, error) {
	return cty.NumberFloatVal(in.Float("spf_kabco") * in.Float("o")), nil
}

// afSkew implements HSM equations 10-22 and 10-23.
func afSkew(in model.Inputs) (cty.Value, error) {
	var af float64
	switch in.String("factype") {
	case "3st":
		af = math.Exp(0.0040 * in.Float("skew"))
	case "4st":
		af = math.Exp(0.0054 * in.Float("skew"))
	default:
		af = 1.00
	}
	return cty.NumberFloatVal(af), nil
}

// afLeftTurnLanes implements HSM table 10-13.
func afLeftTurnLanes(in model.Inputs) (cty.Value, error) {
	lanes := in.Float("left_turn_lanes")
	var af float64
	switch in.String("factype") {
	case "3st":
		af = math.Pow(0.56, math.Min(2, lanes))
	case "4st":
		af = math.Pow(0.72, math.Min(2, lanes))
	default:
		af = math.Pow(0.82, math.Min(4, lanes))
	}
	return cty.NumberFloatVal(af), nil
}

// afRightTurnLanes implements HSM table 10-14.
func afRightTurnLanes(in model.Inputs) (cty.Value, error) {
	lanes := in.Float("right_turn_lanes")
	var af float64
	switch in.String("factype") {
	case "3st":
		af = math.Pow(0.86, math.Min(2, lanes))
	case "4st":
		af = math.Pow(0.86, math.Min(2, lanes))
	default:
		af = math.Pow(0.96, math.Min(4, lanes))
	}
	return cty.NumberFloatVal(af), nil
}

// afLighting implements HSM table 10-15 and equation 10-24. The nighttime
// crash proportion p_night is optional; per-facility defaults apply when it
// is not supplied.
func afLighting(in model.Inputs) (cty.Value, error) {
	if !in.Bool("lighting") {
		return cty.NumberFloatVal(1.00), nil
	}
	var pNight float64
	if in.Has("p_night") {
		pNight = in.Float("p_night")
	} else {
		switch in.String("factype") {
		case "3st":
			pNight = 0.260
		case "4st":
			pNight = 0.244
		default:
			pNight = 0.286
		}
	}
	return cty.NumberFloatVal(1.00 - 0.38*pNight), nil
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

// pred builds the result function for one severity's SPF.
func pred(spfName string) model.Func {
	return func(in model.Inputs) (cty.Value, error) {
		res := in.Float(spfName) * in.Float("af_total") * in.Float("cf_total") *
			in.Float("num_years")
		return cty.NumberFloatVal(res), nil
	}
}

// expKABCO blends the predicted and observed crash frequencies using the
// empirical Bayes weight. An observed count of -1 skips the EB analysis.
func expKABCO(in model.Inputs) (cty.Value, error) {
	obs := in.Float("obs_kabco")
	if obs == -1 {
		return cty.NumberFloatVal(-1), nil
	}
	pred := in.Float("pred_kabco")
	w := 1 / (1 + in.Float("k")*pred)
	return cty.NumberFloatVal(w*pred + (1-w)*obs), nil
}
