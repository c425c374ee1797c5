package model

import (
	"context"
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/tariqshihadah/cpm/internal/ctxlog"
)

// graph is the ordered sequence of layers forming the full model.
type graph struct {
	layers []*Layer
}

// elementNames returns every element name in layer order, then registration
// order within each layer.
func (g *graph) elementNames() []string {
	var names []string
	for _, l := range g.layers {
		names = append(names, l.order...)
	}
	return names
}

func (g *graph) element(name string) (*Element, bool) {
	for _, l := range g.layers {
		if e, ok := l.byName[name]; ok {
			return e, true
		}
	}
	return nil, false
}

// requiredKeys returns the union of all layers' required keys minus every
// element name anywhere in the graph, so later layers may consume earlier
// layers' outputs as if they were inputs.
func (g *graph) requiredKeys() []string {
	set := make(map[string]struct{})
	for _, l := range g.layers {
		for _, k := range l.RequiredKeys() {
			set[k] = struct{}{}
		}
	}
	for _, name := range g.elementNames() {
		delete(set, name)
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// evaluate runs the layers in declared order, merging each layer's outputs
// into the namespace before the next, and returns the full namespace.
func (g *graph) evaluate(ctx context.Context, inputs map[string]cty.Value) (map[string]cty.Value, error) {
	log := ctxlog.FromContext(ctx)
	ns := copyRecord(inputs)
	for i, l := range g.layers {
		out, err := l.evaluate(ctx, ns)
		if err != nil {
			return nil, err
		}
		log.Debug("layer evaluated", "layer", i, "elements", len(out))
		for k, v := range out {
			ns[k] = v
		}
	}
	return ns, nil
}
