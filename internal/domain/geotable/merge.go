package geotable

// LayerColumn is the property that tags each merged row with its source layer.
const LayerColumn = "layer"

// Layer names a table taking part in a merge.
type Layer struct {
	Name  string
	Table *Table
}

// Merge stacks the layers into one table, tagging every row with its layer
// name, so beam tracks and the ship drift render from a single file.
func Merge(layers ...Layer) (*Table, error) {
	tagged := make([]*Table, 0, len(layers))
	for _, l := range layers {
		if l.Table == nil {
			continue
		}
		t := New(l.Table.CRS, append([]string{LayerColumn}, l.Table.Columns...)...)
		for _, r := range l.Table.Rows {
			props := make(map[string]any, len(r.Properties)+1)
			for k, v := range r.Properties {
				props[k] = v
			}
			props[LayerColumn] = l.Name
			t.Rows = append(t.Rows, Row{Geometry: r.Geometry, Properties: props})
		}
		tagged = append(tagged, t)
	}
	return Concat(tagged...)
}
