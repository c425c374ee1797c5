// Package tabular reads and writes flat record tables for batch prediction:
// CSV for tables, HCL for single records.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/zclconf/go-cty/cty"

	"github.com/tariqshihadah/cpm/model"
)

// ReadCSV parses a header-first CSV into records. Cells that parse as
// numbers become numeric values, empty cells are treated as missing, and
// everything else stays a string.
func ReadCSV(r io.Reader) ([]map[string]cty.Value, []string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading CSV header: %w", err)
	}
	var records []map[string]cty.Value
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading CSV row %d: %w", len(records)+2, err)
		}
		rec := make(map[string]cty.Value, len(header))
		for i, cell := range row {
			if i >= len(header) || cell == "" {
				continue
			}
			if f, err := strconv.ParseFloat(cell, 64); err == nil {
				rec[header[i]] = cty.NumberFloatVal(f)
				continue
			}
			rec[header[i]] = cty.StringVal(cell)
		}
		records = append(records, rec)
	}
	return records, header, nil
}

// WriteTable writes a record table as CSV, leaving missing cells empty.
func WriteTable(w io.Writer, t model.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	row := make([]string, len(t.Columns))
	for _, rec := range t.Records {
		for i, col := range t.Columns {
			v, ok := rec[col]
			if !ok {
				row[i] = ""
				continue
			}
			row[i] = cellText(v)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteResults writes one CSV line per batch row: the row index, each named
// result's value, and the row's error message if it failed.
func WriteResults(w io.Writer, resultNames []string, rows []model.Row) error {
	cw := csv.NewWriter(w)
	header := append([]string{"row"}, resultNames...)
	header = append(header, "error")
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		out := make([]string, 0, len(header))
		out = append(out, strconv.Itoa(row.Index))
		if row.Err != nil {
			for range resultNames {
				out = append(out, "")
			}
			out = append(out, row.Err.Error())
		} else {
			for _, name := range resultNames {
				rv, ok := row.Prediction.Result(name)
				if !ok {
					out = append(out, "")
					continue
				}
				out = append(out, strconv.FormatFloat(rv.Value(), 'g', -1, 64))
			}
			out = append(out, "")
		}
		if err := cw.Write(out); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func cellText(v cty.Value) string {
	if v.IsNull() || !v.IsKnown() {
		return ""
	}
	switch v.Type() {
	case cty.String:
		return v.AsString()
	case cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return strconv.FormatFloat(f, 'g', -1, 64)
	case cty.Bool:
		return strconv.FormatBool(v.True())
	}
	return v.GoString()
}
