package track

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Coordinate columns every track file must carry.
const (
	ColumnLongitude = "Longitude"
	ColumnLatitude  = "Latitude"
)

// timestampLayouts are tried in order; all are read as UTC.
var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02",
}

// Record is one row of a ship-track file.
type Record struct {
	Time      time.Time
	Longitude float64
	Latitude  float64
	// Values holds every column except the timestamp index, keyed by
	// header name. Numeric cells are float64, empty cells nil.
	Values map[string]any
}

// Data is a parsed track file.
type Data struct {
	// Index is the header of the first column.
	Index   string
	Columns []string
	Records []Record
}

// ReadFile parses the tab-separated track file at path.
func ReadFile(path string) (*Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a tab-separated track table. The first column is the
// timestamp index; Longitude and Latitude columns are required.
func Read(r io.Reader) (*Data, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty input", ErrRead)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	header = append([]string(nil), header...)
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	lonIdx, latIdx := indexOf(header, ColumnLongitude), indexOf(header, ColumnLatitude)
	if lonIdx < 1 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnLongitude)
	}
	if latIdx < 1 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnLatitude)
	}

	d := &Data{Index: header[0], Columns: header[1:]}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRead, err)
		}
		line, _ := cr.FieldPos(0)

		ts, err := ParseTimestamp(row[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec := Record{Time: ts, Values: make(map[string]any, len(header)-1)}
		for i := 1; i < len(header); i++ {
			rec.Values[header[i]] = cellValue(row[i])
		}
		if rec.Longitude, err = coordinate(row[lonIdx], ColumnLongitude); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if rec.Latitude, err = coordinate(row[latIdx], ColumnLatitude); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		d.Records = append(d.Records, rec)
	}
	return d, nil
}

// ParseTimestamp parses an index cell as a UTC time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrParseTimestamp, s)
}

func coordinate(s, column string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrParseValue, column, s)
	}
	return v, nil
}

func cellValue(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return s
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}
