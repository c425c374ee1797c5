package model

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/tariqshihadah/cpm/reference"
)

// ResultValue is one reportable model output: a numeric value tagged with
// the composition it represents (e.g. severity and crash type).
type ResultValue struct {
	name  string
	value float64
	comp  map[string]cty.Value
}

// Name returns the originating element's name.
func (r ResultValue) Name() string { return r.name }

// Value returns the numeric result.
func (r ResultValue) Value() float64 { return r.value }

// Comp returns a copy of the composition the value represents.
func (r ResultValue) Comp() map[string]cty.Value { return copyRecord(r.comp) }

// Convert re-expresses the value under a different composition using a
// ratio table: the result is value * (to / from), where both factors are
// looked up in ref. The returned value carries the target composition, so
// converting back recovers the original.
func (r ResultValue) Convert(ref *reference.Reference, comp map[string]cty.Value) (ResultValue, error) {
	from, err := ref.Factor(r.comp)
	if err != nil {
		return ResultValue{}, fmt.Errorf(
			"result %q: current composition is not representable by reference %q: %w",
			r.name, ref.Name(), err)
	}
	to, err := ref.Factor(comp)
	if err != nil {
		return ResultValue{}, fmt.Errorf(
			"result %q: requested composition is not representable by reference %q: %w",
			r.name, ref.Name(), err)
	}
	if from == 0 {
		return ResultValue{}, fmt.Errorf(
			"result %q: current composition has a zero factor in reference %q",
			r.name, ref.Name())
	}
	return ResultValue{
		name:  r.name,
		value: r.value * (to / from),
		comp:  copyRecord(comp),
	}, nil
}

// Prediction is one evaluation record: the full namespace of inputs and
// element outputs, plus the ordered set of result-kind values.
type Prediction struct {
	namespace map[string]cty.Value
	results   []ResultValue
}

// Value returns a namespace entry (raw input or any element's output).
func (p *Prediction) Value(key string) (cty.Value, bool) {
	v, ok := p.namespace[key]
	return v, ok
}

// Float returns a namespace entry as a float64.
func (p *Prediction) Float(key string) (float64, bool) {
	v, ok := p.namespace[key]
	if !ok {
		return 0, false
	}
	f, err := floatOf(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Namespace returns a copy of the full evaluation namespace.
func (p *Prediction) Namespace() map[string]cty.Value {
	return copyRecord(p.namespace)
}

// Results returns the result-kind outputs in element registration order.
func (p *Prediction) Results() []ResultValue {
	return append([]ResultValue(nil), p.results...)
}

// Result returns the named result value.
func (p *Prediction) Result(name string) (ResultValue, bool) {
	for _, r := range p.results {
		if r.name == name {
			return r, true
		}
	}
	return ResultValue{}, false
}
