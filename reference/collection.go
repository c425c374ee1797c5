package reference

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Collection is an ordered set of references, keyed by name. Insertion order
// determines suffix ordering for exploded queries.
type Collection struct {
	names []string
	refs  map[string]*Reference
}

// NewCollection builds an empty collection.
func NewCollection() *Collection {
	return &Collection{refs: make(map[string]*Reference)}
}

// Add registers a reference under its name. Names must be unique.
func (c *Collection) Add(r *Reference) error {
	if _, ok := c.refs[r.Name()]; ok {
		return fmt.Errorf("reference %q is already registered", r.Name())
	}
	c.names = append(c.names, r.Name())
	c.refs[r.Name()] = r
	return nil
}

// Get returns the named reference.
func (c *Collection) Get(name string) (*Reference, error) {
	r, ok := c.refs[name]
	if !ok {
		return nil, fmt.Errorf("no reference named %q (have: %s)",
			name, strings.Join(c.names, ", "))
	}
	return r, nil
}

// Names returns the registered reference names in insertion order.
func (c *Collection) Names() []string {
	return append([]string(nil), c.names...)
}

// Len returns the number of registered references.
func (c *Collection) Len() int { return len(c.names) }

// Keys returns the union of all references' leaf keys, deduplicated in
// first-seen order across the collection.
func (c *Collection) Keys() []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, name := range c.names {
		for _, k := range c.refs[name].Keys() {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys
}

// LevelQuery fixes one level of a reference query to one or more candidate
// values. Multiple values mark the level for explosion.
type LevelQuery struct {
	Level  string
	Values []cty.Value
}

// RefQuery is an ordered per-reference query used by Explode.
type RefQuery struct {
	Ref    string
	Levels []LevelQuery
}

// Exploded is one concrete combination from an exploded query: a
// single-valued query per reference plus the deterministic name suffix that
// disambiguates elements generated from it.
type Exploded struct {
	Query  map[string]map[string]cty.Value
	Suffix string
}

// Explode computes the Cartesian product across every level of every queried
// reference, yielding one concrete query per combination. Combination order
// follows the query slices; suffix component order follows the collection's
// insertion order and each reference's declared level order.
func (c *Collection) Explode(queries []RefQuery) ([]Exploded, error) {
	for _, q := range queries {
		if _, ok := c.refs[q.Ref]; !ok {
			return nil, fmt.Errorf("cannot explode unknown reference %q", q.Ref)
		}
	}

	combos := []map[string]map[string]cty.Value{{}}
	for _, q := range queries {
		for _, lq := range q.Levels {
			if len(lq.Values) == 0 {
				return nil, fmt.Errorf(
					"explode query for reference %q level %q has no values", q.Ref, lq.Level)
			}
			next := make([]map[string]map[string]cty.Value, 0, len(combos)*len(lq.Values))
			for _, combo := range combos {
				for _, v := range lq.Values {
					next = append(next, withLevel(combo, q.Ref, lq.Level, v))
				}
			}
			combos = next
		}
	}

	out := make([]Exploded, 0, len(combos))
	for _, combo := range combos {
		out = append(out, Exploded{Query: combo, Suffix: c.suffix(combo)})
	}
	return out, nil
}

// withLevel copies combo and sets one level value.
func withLevel(combo map[string]map[string]cty.Value, ref, level string, v cty.Value) map[string]map[string]cty.Value {
	next := make(map[string]map[string]cty.Value, len(combo)+1)
	for name, levels := range combo {
		cp := make(map[string]cty.Value, len(levels)+1)
		for k, val := range levels {
			cp[k] = val
		}
		next[name] = cp
	}
	if _, ok := next[ref]; !ok {
		next[ref] = make(map[string]cty.Value, 1)
	}
	next[ref][level] = v
	return next
}

// suffix renders a combination's level values, ordered by the collection's
// reference order and each reference's declared levels.
func (c *Collection) suffix(combo map[string]map[string]cty.Value) string {
	var parts []string
	for _, name := range c.names {
		levels, ok := combo[name]
		if !ok {
			continue
		}
		for _, level := range c.refs[name].Levels() {
			v, ok := levels[level]
			if !ok {
				continue
			}
			parts = append(parts, levelKey(v))
		}
	}
	return "_" + strings.Join(parts, "_")
}
