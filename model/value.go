package model

import (
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

func floatOf(v cty.Value) (float64, error) {
	n, err := convert.Convert(v, cty.Number)
	if err != nil {
		return 0, err
	}
	f, _ := n.AsBigFloat().Float64()
	return f, nil
}

func memberOf(v cty.Value, set []cty.Value) bool {
	for _, s := range set {
		c, err := convert.Convert(v, s.Type())
		if err != nil {
			continue
		}
		if c.RawEquals(s) {
			return true
		}
		if s.Type() == cty.Number && c.Type() == cty.Number &&
			s.AsBigFloat().Cmp(c.AsBigFloat()) == 0 {
			return true
		}
	}
	return false
}

func coerceTo(v cty.Value, typ cty.Type) (cty.Value, error) {
	return convert.Convert(v, typ)
}

func copyRecord(rec map[string]cty.Value) map[string]cty.Value {
	out := make(map[string]cty.Value, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
