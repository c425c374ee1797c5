package model

import (
	"context"
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// Layer is an ordered bucket of elements evaluated together. Elements within
// a layer may consume raw inputs and earlier layers' outputs, never each
// other's.
type Layer struct {
	order  []string
	byName map[string]*Element
	byKind map[Kind][]string
}

func newLayer() *Layer {
	return &Layer{
		byName: make(map[string]*Element),
		byKind: make(map[Kind][]string),
	}
}

func (l *Layer) add(e *Element) error {
	if _, ok := l.byName[e.name]; ok {
		return fmt.Errorf("element %q is already registered in this layer", e.name)
	}
	l.order = append(l.order, e.name)
	l.byName[e.name] = e
	l.byKind[e.kind] = append(l.byKind[e.kind], e.name)
	return nil
}

// Elements returns the layer's elements in registration order.
func (l *Layer) Elements() []*Element {
	out := make([]*Element, len(l.order))
	for i, name := range l.order {
		out[i] = l.byName[name]
	}
	return out
}

// ElementNames returns the layer's element names in registration order.
func (l *Layer) ElementNames() []string {
	return append([]string(nil), l.order...)
}

// OfKind returns the names of the layer's elements with the given role tag,
// in registration order.
func (l *Layer) OfKind(k Kind) []string {
	return append([]string(nil), l.byKind[k]...)
}

// RequiredKeys returns the layer's external input keys: the union of its
// non-hidden elements' required keys minus the names of elements within the
// layer, sorted.
func (l *Layer) RequiredKeys() []string {
	set := make(map[string]struct{})
	for _, name := range l.order {
		e := l.byName[name]
		if e.kind == KindHidden {
			continue
		}
		for _, k := range e.RequiredKeys() {
			set[k] = struct{}{}
		}
	}
	for _, name := range l.order {
		delete(set, name)
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// evaluate computes every element in the layer from the namespace and
// returns the layer's outputs. The namespace is not modified.
func (l *Layer) evaluate(ctx context.Context, ns map[string]cty.Value) (map[string]cty.Value, error) {
	out := make(map[string]cty.Value, len(l.order))
	for _, name := range l.order {
		v, err := l.byName[name].Call(ctx, ns)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}
