package geotable

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paulmach/orb/geojson"
)

const (
	crsMember  = "crs"
	urnCRS84   = "urn:ogc:def:crs:OGC:1.3:CRS84"
	urnEPSGFmt = "urn:ogc:def:crs:EPSG::%s"
)

// FeatureCollection converts the table to GeoJSON, recording the CRS as a
// named "crs" member the way GDAL writers do.
func (t *Table) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range t.Rows {
		f := geojson.NewFeature(r.Geometry)
		for k, v := range r.Properties {
			f.Properties[k] = v
		}
		fc.Append(f)
	}
	if t.CRS != "" {
		fc.ExtraMembers = geojson.Properties{
			crsMember: map[string]any{
				"type":       "name",
				"properties": map[string]any{"name": crsURN(t.CRS)},
			},
		}
	}
	return fc
}

// MarshalGeoJSON encodes the table as a GeoJSON FeatureCollection.
func (t *Table) MarshalGeoJSON() ([]byte, error) {
	return json.Marshal(t.FeatureCollection())
}

// outputFileMode is the permission of written GeoJSON files.
const outputFileMode os.FileMode = 0o644

// WriteGeoJSON writes the table to path, replacing any existing file.
// The data goes to a temporary file in the same directory first so readers
// never observe a partial document.
func (t *Table) WriteGeoJSON(path string) error {
	b, err := t.MarshalGeoJSON()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := tmp.Chmod(outputFileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// ReadGeoJSON loads a FeatureCollection file written by WriteGeoJSON or any
// other GeoJSON producer.
func ReadGeoJSON(path string) (*Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return DecodeGeoJSON(b)
}

// DecodeGeoJSON parses a FeatureCollection document. Columns are the sorted
// union of all property keys. A document without a crs member is EPSG:4326
// per RFC 7946.
func DecodeGeoJSON(data []byte) (*Table, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	t := New(crsFromMembers(fc.ExtraMembers))
	keys := make(map[string]struct{})
	for _, f := range fc.Features {
		for k := range f.Properties {
			keys[k] = struct{}{}
		}
		t.Rows = append(t.Rows, Row{Geometry: f.Geometry, Properties: map[string]any(f.Properties)})
	}
	cols := make([]string, 0, len(keys))
	for k := range keys {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	t.Columns = cols
	return t, nil
}

func crsURN(crs string) string {
	if strings.EqualFold(crs, CRS4326) {
		return urnCRS84
	}
	if code, ok := strings.CutPrefix(strings.ToUpper(crs), "EPSG:"); ok {
		return fmt.Sprintf(urnEPSGFmt, code)
	}
	return crs
}

func crsFromMembers(extra geojson.Properties) string {
	m, ok := extra[crsMember].(map[string]any)
	if !ok {
		return CRS4326
	}
	props, ok := m["properties"].(map[string]any)
	if !ok {
		return CRS4326
	}
	name, _ := props["name"].(string)
	switch {
	case name == "" || name == urnCRS84:
		return CRS4326
	case strings.HasPrefix(name, "urn:ogc:def:crs:EPSG::"):
		return "EPSG:" + strings.TrimPrefix(name, "urn:ogc:def:crs:EPSG::")
	default:
		return name
	}
}
