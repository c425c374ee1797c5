package reference

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Reference is a named lookup table of model coefficients, nested one object
// deep per declared level. Leaves are either records keyed by the declared
// key list or, for key-less documents, bare scalars usable as conversion
// factors.
type Reference struct {
	name   string
	levels []string
	keys   []string
	root   *node
}

type node struct {
	order    []string
	children map[string]*node
	leaf     map[string]cty.Value
	scalar   cty.Value
	isScalar bool
	isLeaf   bool
}

// FromJSON parses a reference document of the form
//
//	{"levels": [...], "keys": [...], "data": {...}}
//
// validating that the data tree nests exactly one object per level and that
// every leaf record carries exactly the declared keys.
func FromJSON(name string, src []byte) (*Reference, error) {
	doc, err := decodeDocument(src)
	if err != nil {
		return nil, fmt.Errorf("reference %q: %w", name, err)
	}
	levels, err := stringList(doc, "levels")
	if err != nil {
		return nil, fmt.Errorf("reference %q: %w", name, err)
	}
	keys, err := stringList(doc, "keys")
	if err != nil {
		return nil, fmt.Errorf("reference %q: %w", name, err)
	}
	data, ok := doc.vals["data"]
	if !ok {
		return nil, fmt.Errorf("reference %q: document has no \"data\" member", name)
	}
	r := &Reference{name: name, levels: levels, keys: keys}
	root, err := r.buildNode(data, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("reference %q: %w", name, err)
	}
	r.root = root
	return r, nil
}

// Name returns the reference's name.
func (r *Reference) Name() string { return r.name }

// Levels returns the declared level names in order.
func (r *Reference) Levels() []string {
	return append([]string(nil), r.levels...)
}

// Keys returns the declared leaf keys in order.
func (r *Reference) Keys() []string {
	return append([]string(nil), r.keys...)
}

// LevelDomain pairs a level name with its value keys in document order,
// read from the first branch of the data tree.
type LevelDomain struct {
	Level  string
	Values []string
}

// Domain returns the value keys available at each level.
func (r *Reference) Domain() []LevelDomain {
	domain := make([]LevelDomain, 0, len(r.levels))
	n := r.root
	for _, level := range r.levels {
		values := append([]string(nil), n.order...)
		domain = append(domain, LevelDomain{Level: level, Values: values})
		if len(n.order) > 0 {
			n = n.children[n.order[0]]
		}
	}
	return domain
}

// Retrieve walks the data tree using the query value for each level in
// declared order and returns a copy of the leaf record.
func (r *Reference) Retrieve(query map[string]cty.Value) (map[string]cty.Value, error) {
	n, err := r.walk(query)
	if err != nil {
		return nil, err
	}
	if !n.isLeaf {
		return nil, fmt.Errorf("reference %q resolves to a scalar; use Factor", r.name)
	}
	out := make(map[string]cty.Value, len(n.leaf))
	for k, v := range n.leaf {
		out[k] = v
	}
	return out, nil
}

// Factor resolves the query to a single numeric value: the bare scalar of a
// key-less document, or the sole key of a one-key record. It is the lookup
// used for composition conversion ratios.
func (r *Reference) Factor(query map[string]cty.Value) (float64, error) {
	n, err := r.walk(query)
	if err != nil {
		return 0, err
	}
	var v cty.Value
	switch {
	case n.isScalar:
		v = n.scalar
	case len(n.leaf) == 1:
		v = n.leaf[r.keys[0]]
	default:
		return 0, fmt.Errorf(
			"reference %q leaf has %d keys; a conversion factor needs exactly one value",
			r.name, len(n.leaf))
	}
	if v.Type() != cty.Number {
		return 0, fmt.Errorf("reference %q factor is not numeric", r.name)
	}
	f, _ := v.AsBigFloat().Float64()
	return f, nil
}

func (r *Reference) walk(query map[string]cty.Value) (*node, error) {
	n := r.root
	path := make([]string, 0, len(r.levels))
	for _, level := range r.levels {
		v, ok := query[level]
		if !ok {
			provided := make([]string, 0, len(query))
			for k := range query {
				provided = append(provided, k)
			}
			return nil, &MissingLevelsError{Ref: r.name, Levels: r.Levels(), Provided: provided}
		}
		key := levelKey(v)
		path = append(path, key)
		child, ok := n.children[key]
		if !ok {
			return nil, &LookupError{Ref: r.name, Path: path}
		}
		n = child
	}
	return n, nil
}

func (r *Reference) buildNode(v any, depth int, path []string) (*node, error) {
	if depth < len(r.levels) {
		obj, ok := v.(*jsonObject)
		if !ok {
			return nil, fmt.Errorf("data at %s: expected an object for level %q",
				pathText(path), r.levels[depth])
		}
		n := &node{children: make(map[string]*node, len(obj.keys))}
		for _, key := range obj.keys {
			child, err := r.buildNode(obj.vals[key], depth+1, append(path, key))
			if err != nil {
				return nil, err
			}
			n.order = append(n.order, key)
			n.children[key] = child
		}
		return n, nil
	}

	switch leaf := v.(type) {
	case *jsonObject:
		if len(leaf.keys) != len(r.keys) {
			return nil, fmt.Errorf("leaf at %s: has keys {%s}, document declares {%s}",
				pathText(path), strings.Join(leaf.keys, ", "), strings.Join(r.keys, ", "))
		}
		rec := make(map[string]cty.Value, len(r.keys))
		for _, key := range r.keys {
			raw, ok := leaf.vals[key]
			if !ok {
				return nil, fmt.Errorf("leaf at %s: missing declared key %q", pathText(path), key)
			}
			val, err := primitive(raw)
			if err != nil {
				return nil, fmt.Errorf("leaf at %s, key %q: %w", pathText(path), key, err)
			}
			rec[key] = val
		}
		return &node{leaf: rec, isLeaf: true}, nil
	default:
		if len(r.keys) > 0 {
			return nil, fmt.Errorf("leaf at %s: expected a record with keys {%s}",
				pathText(path), strings.Join(r.keys, ", "))
		}
		val, err := primitive(v)
		if err != nil {
			return nil, fmt.Errorf("leaf at %s: %w", pathText(path), err)
		}
		return &node{scalar: val, isScalar: true}, nil
	}
}

func pathText(path []string) string {
	if len(path) == 0 {
		return "root"
	}
	return strings.Join(path, "/")
}

// levelKey renders a query value as a data-tree key, matching the document's
// string keys (numbers render without an exponent or trailing zeros).
func levelKey(v cty.Value) string {
	if v.IsNull() || !v.IsKnown() {
		return ""
	}
	switch v.Type() {
	case cty.String:
		return v.AsString()
	case cty.Number:
		return v.AsBigFloat().Text('f', -1)
	case cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	}
	return v.GoString()
}

// primitive converts a decoded JSON scalar to a cty value.
func primitive(v any) (cty.Value, error) {
	switch t := v.(type) {
	case json.Number:
		n, err := cty.ParseNumberVal(string(t))
		if err != nil {
			return cty.NilVal, fmt.Errorf("invalid number %q", string(t))
		}
		return n, nil
	case string:
		return cty.StringVal(t), nil
	case bool:
		return cty.BoolVal(t), nil
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	return cty.NilVal, fmt.Errorf("unsupported value of type %T", v)
}

// jsonObject is a JSON object with member order preserved, so level value
// ordering follows the document.
type jsonObject struct {
	keys []string
	vals map[string]any
}

func decodeDocument(src []byte) (*jsonObject, error) {
	dec := json.NewDecoder(bytes.NewReader(src))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*jsonObject)
	if !ok {
		return nil, fmt.Errorf("document root must be an object")
	}
	return obj, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		obj := &jsonObject{vals: make(map[string]any)}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("object key is not a string")
			}
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			if _, dup := obj.vals[key]; dup {
				return nil, fmt.Errorf("duplicate object key %q", key)
			}
			obj.keys = append(obj.keys, key)
			obj.vals[key] = val
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := []any{}
		for dec.More() {
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

func stringList(obj *jsonObject, field string) ([]string, error) {
	raw, ok := obj.vals[field]
	if !ok {
		return nil, fmt.Errorf("document has no %q member", field)
	}
	arr, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("document member %q must be an array of strings", field)
	}
	out := make([]string, len(arr))
	for i, v := range arr {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("document member %q must be an array of strings", field)
		}
		out[i] = s
	}
	return out, nil
}
