package model

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"golang.org/x/sync/errgroup"

	"github.com/tariqshihadah/cpm/internal/ctxlog"
	"github.com/tariqshihadah/cpm/reference"
	"github.com/tariqshihadah/cpm/validate"
)

// Model is an immutable, fully built prediction model. A Model is safe for
// concurrent evaluation: each prediction works on a fresh namespace and the
// graph, references, and validators are read-only after Build.
type Model struct {
	name       string
	refs       *reference.Collection
	validators []validate.Validator
	graph      *graph
}

// Name returns the model's name.
func (m *Model) Name() string { return m.name }

// Reference returns the named reference table.
func (m *Model) Reference(name string) (*reference.Reference, error) {
	return m.refs.Get(name)
}

// Element returns the named element.
func (m *Model) Element(name string) (*Element, bool) {
	return m.graph.element(name)
}

// ElementNames returns every element name in layer order.
func (m *Model) ElementNames() []string {
	return m.graph.elementNames()
}

// Layers returns the graph's layers in order.
func (m *Model) Layers() []*Layer {
	return append([]*Layer(nil), m.graph.layers...)
}

// Validators returns the registered validators in registration order.
func (m *Model) Validators() []validate.Validator {
	return append([]validate.Validator(nil), m.validators...)
}

// RequiredKeys returns the external input keys a caller must supply: the
// graph's required keys minus every key any model reference provides.
func (m *Model) RequiredKeys() []string {
	provided := make(map[string]struct{})
	for _, k := range m.refs.Keys() {
		provided[k] = struct{}{}
	}
	var keys []string
	for _, k := range m.graph.requiredKeys() {
		if _, ok := provided[k]; ok {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Constraints returns the registered validators per required input key, in
// registration order.
func (m *Model) Constraints() map[string][]validate.Validator {
	required := make(map[string]struct{})
	for _, k := range m.RequiredKeys() {
		required[k] = struct{}{}
	}
	out := make(map[string][]validate.Validator)
	for _, v := range m.validators {
		if _, ok := required[v.Param()]; !ok {
			continue
		}
		out[v.Param()] = append(out[v.Param()], v)
	}
	return out
}

// Validate applies every registered validator in registration order, feeding
// the progressively updated record forward so later validators see earlier
// validators' coerced or snapped values. Validators whose parameter is
// absent from the record are skipped; keys without validators pass through
// unchanged.
func (m *Model) Validate(ctx context.Context, policy validate.ConditionPolicy, rec map[string]cty.Value) (map[string]cty.Value, error) {
	cur := copyRecord(rec)
	for _, v := range m.validators {
		if _, ok := cur[v.Param()]; !ok {
			continue
		}
		val, err := v.Validate(ctx, policy, cur)
		if err != nil {
			return nil, err
		}
		cur[v.Param()] = val
	}
	return cur, nil
}

// PredictOne validates the record and evaluates the graph, returning the
// full Prediction.
func (m *Model) PredictOne(ctx context.Context, rec map[string]cty.Value) (*Prediction, error) {
	validated, err := m.Validate(ctx, validate.ConditionsPass, rec)
	if err != nil {
		return nil, err
	}
	ns, err := m.graph.evaluate(ctx, validated)
	if err != nil {
		return nil, err
	}

	var results []ResultValue
	for _, l := range m.graph.layers {
		for _, name := range l.OfKind(KindResult) {
			f, err := floatOf(ns[name])
			if err != nil {
				return nil, &ElementError{Element: name,
					Err: fmt.Errorf("result is not numeric: %w", err)}
			}
			results = append(results, ResultValue{
				name:  name,
				value: f,
				comp:  l.byName[name].Comp(),
			})
		}
	}
	return &Prediction{namespace: ns, results: results}, nil
}

// Row is one record's outcome in a batch prediction. Exactly one of
// Prediction and Err is set.
type Row struct {
	Index      int
	Prediction *Prediction
	Err        error
}

// PredictTable evaluates every record concurrently with at most workers
// goroutines (0 means GOMAXPROCS). A failing record yields a Row carrying
// its error; it never aborts the rest of the batch. Rows are returned in
// input order.
func (m *Model) PredictTable(ctx context.Context, records []map[string]cty.Value, workers int) []Row {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	rows := make([]Row, len(records))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			p, err := m.PredictOne(ctx, rec)
			rows[i] = Row{Index: i, Prediction: p, Err: err}
			return nil
		})
	}
	g.Wait()
	return rows
}

// Table is a simple column-ordered batch of records.
type Table struct {
	Columns []string
	Records []map[string]cty.Value
}

// Template returns an n-row table whose columns are exactly the model's
// required input keys, with every cell unset.
func (m *Model) Template(n int) Table {
	t := Table{Columns: m.RequiredKeys(), Records: make([]map[string]cty.Value, n)}
	for i := range t.Records {
		t.Records[i] = make(map[string]cty.Value)
	}
	return t
}

// InitOne synthesizes one feasible input record. Starting from fill, it
// repeatedly draws candidates from the validators of still-missing required
// keys until all are set or the attempt budget is exhausted, in which case
// the error names the unresolved keys.
func (m *Model) InitOne(ctx context.Context, fill map[string]cty.Value, attempts int, seed int64) (map[string]cty.Value, error) {
	if attempts <= 0 {
		attempts = 10
	}
	log := ctxlog.FromContext(ctx)
	rng := rand.New(rand.NewSource(seed))
	rec := copyRecord(fill)
	required := m.RequiredKeys()

	for attempt := 0; attempt < attempts; attempt++ {
		missing := missingFrom(required, rec)
		if len(missing) == 0 {
			return rec, nil
		}
		for _, v := range m.validators {
			key := v.Param()
			if _, ok := rec[key]; ok {
				continue
			}
			if !contains(missing, key) {
				continue
			}
			val, err := v.Random(ctx, rng, validate.ConditionsRaise, rec)
			if err != nil {
				// Dependencies may still be unset; try again next pass.
				log.Debug("candidate draw failed", "key", key, "attempt", attempt, "error", err)
				continue
			}
			rec[key] = val
		}
	}

	missing := missingFrom(required, rec)
	if len(missing) == 0 {
		return rec, nil
	}
	return nil, &InitError{Missing: missing, Attempts: attempts}
}

// InitFeasible returns an n-row table populated via InitOne, one derived
// seed per row.
func (m *Model) InitFeasible(ctx context.Context, n, attempts int, seed int64) (Table, error) {
	t := Table{Columns: m.RequiredKeys(), Records: make([]map[string]cty.Value, 0, n)}
	for i := 0; i < n; i++ {
		rec, err := m.InitOne(ctx, nil, attempts, seed+int64(i))
		if err != nil {
			return Table{}, fmt.Errorf("row %d: %w", i, err)
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

// Describe returns a human-readable report of the model's layers, elements,
// required inputs, and their constraints.
func (m *Model) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "model %s\n", m.name)

	fmt.Fprintf(&b, "\nlayers:\n")
	for i, l := range m.graph.layers {
		fmt.Fprintf(&b, "  %d: %s\n", i, strings.Join(l.ElementNames(), ", "))
	}

	if names := m.refs.Names(); len(names) > 0 {
		fmt.Fprintf(&b, "\nreferences: %s\n", strings.Join(names, ", "))
	}

	constraints := m.Constraints()
	fmt.Fprintf(&b, "\nrequired inputs:\n")
	for _, k := range m.RequiredKeys() {
		vs, ok := constraints[k]
		if !ok {
			fmt.Fprintf(&b, "%s\n- unconstrained\n", k)
			continue
		}
		for _, v := range vs {
			fmt.Fprintln(&b, v.Describe())
		}
	}
	return b.String()
}

func missingFrom(keys []string, rec map[string]cty.Value) []string {
	var missing []string
	for _, k := range keys {
		if _, ok := rec[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

func contains(set []string, key string) bool {
	for _, s := range set {
		if s == key {
			return true
		}
	}
	return false
}
