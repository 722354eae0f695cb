// Package geotable holds the in-memory geospatial table produced by the
// beam and track pipelines and its GeoJSON encoding.
package geotable

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
)

// CRS4326 is the geographic datum every icetrack table uses.
const CRS4326 = "EPSG:4326"

// Row is one feature: a geometry plus its attribute values.
type Row struct {
	Geometry   orb.Geometry
	Properties map[string]any
}

// Table is an ordered collection of rows sharing a CRS and column set.
type Table struct {
	CRS     string
	Columns []string
	Rows    []Row
}

// New returns an empty table.
func New(crs string, columns ...string) *Table {
	return &Table{CRS: crs, Columns: append([]string(nil), columns...)}
}

// Append adds a row. Properties not listed in Columns are added as new
// columns in sorted order so the schema stays stable.
func (t *Table) Append(geom orb.Geometry, props map[string]any) {
	keys := make([]string, 0, len(props))
	cp := make(map[string]any, len(props))
	for k, v := range props {
		cp[k] = v
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.addColumn(k)
	}
	t.Rows = append(t.Rows, Row{Geometry: geom, Properties: cp})
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Column returns the values of one column in row order; missing values are nil.
func (t *Table) Column(name string) []any {
	out := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Properties[name]
	}
	return out
}

// Concat appends the rows of every table in order. Nil tables are skipped.
// All non-empty inputs must share the CRS of the first one.
func Concat(tables ...*Table) (*Table, error) {
	var out *Table
	for _, t := range tables {
		if t == nil {
			continue
		}
		if out == nil {
			out = New(t.CRS, t.Columns...)
		}
		if t.CRS != out.CRS {
			return nil, fmt.Errorf("%w: %s and %s", ErrCRSMismatch, out.CRS, t.CRS)
		}
		for _, c := range t.Columns {
			out.addColumn(c)
		}
		out.Rows = append(out.Rows, t.Rows...)
	}
	if out == nil {
		out = New(CRS4326)
	}
	return out, nil
}

func (t *Table) addColumn(name string) {
	for _, c := range t.Columns {
		if c == name {
			return
		}
	}
	t.Columns = append(t.Columns, name)
}
