package model

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/tariqshihadah/cpm/reference"
	"github.com/tariqshihadah/cpm/validate"
)

// RefBinding names a model reference and the query levels fixed at
// registration time. Levels left unfixed are filled from the namespace when
// the element is called.
type RefBinding struct {
	Ref   string
	Fixed map[string]cty.Value
}

// ElementSpec declares one element for registration. When Explode is set,
// one element is registered per combination of the queried level values,
// with the combination's deterministic suffix appended to Name and its
// level values merged into Comp.
type ElementSpec struct {
	Name    string
	Layer   int
	Func    Func
	Uses    []string
	Refs    []RefBinding
	Explode []reference.RefQuery
	Comp    map[string]cty.Value
	Limits  map[string][2]float64
	Values  map[string][]cty.Value
	AsType  cty.Type
}

// Builder accumulates references, validators, and elements, then produces an
// immutable Model via Build. Builders are not safe for concurrent use; the
// Model they produce is.
type Builder struct {
	name       string
	refs       *reference.Collection
	validators []validate.Validator
	layers     []*Layer
	elemNames  map[string]struct{}
	finalized  bool
}

// NewBuilder starts an empty model definition.
func NewBuilder(name string) *Builder {
	return &Builder{
		name:      name,
		refs:      reference.NewCollection(),
		elemNames: make(map[string]struct{}),
	}
}

// AddReference registers a reference table under its name.
func (b *Builder) AddReference(r *reference.Reference) error {
	if b.finalized {
		return ErrFinalized
	}
	return b.refs.Add(r)
}

// AddReferenceJSON parses and registers a reference document.
func (b *Builder) AddReferenceJSON(name string, src []byte) error {
	if b.finalized {
		return ErrFinalized
	}
	r, err := reference.FromJSON(name, src)
	if err != nil {
		return err
	}
	return b.refs.Add(r)
}

// AddValidator registers a model-level validator. Validators apply in
// registration order at validate time; several validators may target the
// same parameter.
func (b *Builder) AddValidator(v validate.Validator) error {
	if b.finalized {
		return ErrFinalized
	}
	if v == nil {
		return fmt.Errorf("model %q: cannot register a nil validator", b.name)
	}
	b.validators = append(b.validators, v)
	return nil
}

// AddLayer appends an empty layer to the graph.
func (b *Builder) AddLayer() error {
	if b.finalized {
		return ErrFinalized
	}
	b.layers = append(b.layers, newLayer())
	return nil
}

// AddSPF registers a safety performance function element.
func (b *Builder) AddSPF(spec ElementSpec) error { return b.addElement(KindSPF, spec) }

// AddAF registers an adjustment factor element.
func (b *Builder) AddAF(spec ElementSpec) error { return b.addElement(KindAF, spec) }

// AddCF registers a calibration factor element.
func (b *Builder) AddCF(spec ElementSpec) error { return b.addElement(KindCF, spec) }

// AddSub registers an intermediate helper element.
func (b *Builder) AddSub(spec ElementSpec) error { return b.addElement(KindSub, spec) }

// AddResult registers a reportable result element.
func (b *Builder) AddResult(spec ElementSpec) error { return b.addElement(KindResult, spec) }

// AddHidden registers an element excluded from required-input listings.
func (b *Builder) AddHidden(spec ElementSpec) error { return b.addElement(KindHidden, spec) }

// addElement is the single registration primitive behind the per-kind
// methods.
func (b *Builder) addElement(kind Kind, spec ElementSpec) error {
	if b.finalized {
		return ErrFinalized
	}
	if spec.Name == "" {
		return fmt.Errorf("model %q: element has no name", b.name)
	}
	if spec.Func == nil {
		return fmt.Errorf("model %q: element %q has no function", b.name, spec.Name)
	}
	if spec.Layer < 0 {
		return fmt.Errorf("model %q: element %q has negative layer %d",
			b.name, spec.Name, spec.Layer)
	}

	fixed, err := b.resolveBindings(spec.Refs)
	if err != nil {
		return fmt.Errorf("model %q: element %q: %w", b.name, spec.Name, err)
	}

	if len(spec.Explode) == 0 {
		e := b.newElement(kind, spec, spec.Name, fixed, spec.Comp)
		return b.register(spec.Layer, e)
	}

	combos, err := b.refs.Explode(spec.Explode)
	if err != nil {
		return fmt.Errorf("model %q: element %q: %w", b.name, spec.Name, err)
	}
	for _, combo := range combos {
		bindings := append([]binding(nil), fixed...)
		comp := copyRecord(spec.Comp)
		for _, refName := range b.refs.Names() {
			levels, ok := combo.Query[refName]
			if !ok {
				continue
			}
			r, err := b.refs.Get(refName)
			if err != nil {
				return err
			}
			bindings = append(bindings, binding{ref: r, fixed: copyRecord(levels)})
			for level, v := range levels {
				comp[level] = v
			}
		}
		e := b.newElement(kind, spec, spec.Name+combo.Suffix, bindings, comp)
		if err := b.register(spec.Layer, e); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) resolveBindings(refs []RefBinding) ([]binding, error) {
	bindings := make([]binding, 0, len(refs))
	for _, rb := range refs {
		r, err := b.refs.Get(rb.Ref)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, binding{ref: r, fixed: copyRecord(rb.Fixed)})
	}
	return bindings, nil
}

func (b *Builder) newElement(kind Kind, spec ElementSpec, name string, bindings []binding, comp map[string]cty.Value) *Element {
	return &Element{
		name:     name,
		kind:     kind,
		fn:       spec.Func,
		uses:     append([]string(nil), spec.Uses...),
		bindings: bindings,
		comp:     copyRecord(comp),
		limits:   spec.Limits,
		values:   spec.Values,
		astype:   spec.AsType,
	}
}

func (b *Builder) register(layer int, e *Element) error {
	if _, ok := b.elemNames[e.name]; ok {
		return fmt.Errorf("model %q: element %q is already registered", b.name, e.name)
	}
	for len(b.layers) <= layer {
		b.layers = append(b.layers, newLayer())
	}
	if err := b.layers[layer].add(e); err != nil {
		return fmt.Errorf("model %q: %w", b.name, err)
	}
	b.elemNames[e.name] = struct{}{}
	return nil
}

// Build finalizes the definition and returns the immutable Model. Every
// mutator fails with ErrFinalized afterwards. Build verifies that no
// element depends on another element registered in its own layer; such a
// dependency would silently read a stale or missing value at evaluation
// time.
func (b *Builder) Build() (*Model, error) {
	if b.finalized {
		return nil, ErrFinalized
	}
	for i, l := range b.layers {
		for _, e := range l.Elements() {
			for _, k := range e.RequiredKeys() {
				if _, ok := l.byName[k]; ok {
					return nil, fmt.Errorf(
						"model %q: element %q depends on %q in the same layer %d",
						b.name, e.name, k, i)
				}
			}
		}
	}
	b.finalized = true
	return &Model{
		name:       b.name,
		refs:       b.refs,
		validators: b.validators,
		graph:      &graph{layers: b.layers},
	}, nil
}
