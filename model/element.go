package model

import (
	"context"
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/tariqshihadah/cpm/reference"
)

// binding pairs a reference with the query values fixed at registration
// time. Unfixed levels are filled from the namespace at call time.
type binding struct {
	ref   *reference.Reference
	fixed map[string]cty.Value
}

// Element is one named computation in the graph: a pure function plus its
// declared input keys, reference bindings, inline fast-fail checks, and
// composition metadata.
type Element struct {
	name     string
	kind     Kind
	fn       Func
	uses     []string
	bindings []binding
	comp     map[string]cty.Value
	limits   map[string][2]float64
	values   map[string][]cty.Value
	astype   cty.Type
}

// Name returns the element's unique name.
func (e *Element) Name() string { return e.name }

// Kind returns the element's role tag.
func (e *Element) Kind() Kind { return e.kind }

// Comp returns a copy of the element's composition metadata.
func (e *Element) Comp() map[string]cty.Value {
	out := make(map[string]cty.Value, len(e.comp))
	for k, v := range e.comp {
		out[k] = v
	}
	return out
}

// Uses returns the element's declared input keys.
func (e *Element) Uses() []string {
	return append([]string(nil), e.uses...)
}

// RequiredKeys returns the declared input keys not satisfied by the
// element's reference bindings, sorted.
func (e *Element) RequiredKeys() []string {
	supplied := make(map[string]struct{})
	for _, b := range e.bindings {
		for _, k := range b.ref.Keys() {
			supplied[k] = struct{}{}
		}
	}
	var keys []string
	for _, k := range e.uses {
		if _, ok := supplied[k]; ok {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Call evaluates the element against the namespace: inline checks first,
// then reference bindings merged in declared order (last writer wins), then
// the wrapped function. Failures surface as an ElementError naming the
// element.
func (e *Element) Call(ctx context.Context, ns map[string]cty.Value) (out cty.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*inputError)
			if !ok {
				panic(r)
			}
			out, err = cty.NilVal, &ElementError{Element: e.name, Err: ie}
		}
	}()

	if err := e.checkInline(ns); err != nil {
		return cty.NilVal, &ElementError{Element: e.name, Err: err}
	}

	if missing := e.missingKeys(ns); len(missing) > 0 {
		return cty.NilVal, &ElementError{Element: e.name,
			Err: fmt.Errorf("missing required keys: %v", missing)}
	}

	merged := make(map[string]cty.Value, len(ns))
	for k, v := range ns {
		merged[k] = v
	}
	for _, b := range e.bindings {
		query := make(map[string]cty.Value, len(merged)+len(b.fixed))
		for k, v := range merged {
			query[k] = v
		}
		for k, v := range b.fixed {
			query[k] = v
		}
		rec, err := b.ref.Retrieve(query)
		if err != nil {
			return cty.NilVal, &ElementError{Element: e.name, Err: err}
		}
		for k, v := range rec {
			merged[k] = v
		}
	}

	res, err := e.fn(Inputs{vals: merged})
	if err != nil {
		return cty.NilVal, &ElementError{Element: e.name, Err: err}
	}
	if e.astype != cty.NilType {
		res, err = coerceTo(res, e.astype)
		if err != nil {
			return cty.NilVal, &ElementError{Element: e.name, Err: err}
		}
	}
	return res, nil
}

// checkInline enforces the element's literal limits and value sets against
// keys present in the namespace. This is a cheap fast-fail, independent of
// the model-level validator pass.
func (e *Element) checkInline(ns map[string]cty.Value) error {
	for key, lim := range e.limits {
		v, ok := ns[key]
		if !ok {
			continue
		}
		f, err := floatOf(v)
		if err != nil {
			return fmt.Errorf("argument %s is not numeric", key)
		}
		if f < lim[0] || f > lim[1] {
			return fmt.Errorf("argument %s=%v outside limits [%v, %v]",
				key, f, lim[0], lim[1])
		}
	}
	for key, set := range e.values {
		v, ok := ns[key]
		if !ok {
			continue
		}
		if !memberOf(v, set) {
			return fmt.Errorf("argument %s is not an admissible value", key)
		}
	}
	return nil
}

// missingKeys returns declared input keys absent from the namespace and not
// supplied by a reference binding.
func (e *Element) missingKeys(ns map[string]cty.Value) []string {
	supplied := make(map[string]struct{})
	for _, b := range e.bindings {
		for _, k := range b.ref.Keys() {
			supplied[k] = struct{}{}
		}
	}
	var missing []string
	for _, k := range e.uses {
		if _, ok := ns[k]; ok {
			continue
		}
		if _, ok := supplied[k]; ok {
			continue
		}
		missing = append(missing, k)
	}
	sort.Strings(missing)
	return missing
}
