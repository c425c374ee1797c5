package tabular

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// ReadHCLRecord parses a single input record written as flat HCL
// attributes, e.g.
//
//	aadt   = 5000
//	length = 1.0
//	shld_type = "paved"
//
// Attribute expressions must be literal; no variables or functions are
// available.
func ReadHCLRecord(filename string, src []byte) (map[string]cty.Value, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", filename, diags)
	}
	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("reading %s: %w", filename, diags)
	}
	rec := make(map[string]cty.Value, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(&hcl.EvalContext{})
		if diags.HasErrors() {
			return nil, fmt.Errorf("evaluating %s in %s: %w", name, filename, diags)
		}
		rec[name] = val
	}
	return rec, nil
}
