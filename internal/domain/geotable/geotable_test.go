package geotable_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/icetrack/internal/domain/geotable"
)

func line(pts ...orb.Point) orb.LineString { return orb.LineString(pts) }

func TestConcat(t *testing.T) {
	convey.Convey("Given a three-row and an empty table", t, func() {
		a := geotable.New(geotable.CRS4326, "beam", "file_date")
		for _, b := range []string{"/gt1l", "/gt2l", "/gt3l"} {
			a.Append(line(orb.Point{0, 0}, orb.Point{1, 1}), map[string]any{"beam": b, "file_date": "2019-11-01"})
		}
		empty := geotable.New(geotable.CRS4326, "beam", "file_date")

		convey.Convey("When concatenated", func() {
			out, err := geotable.Concat(a, empty, nil)

			convey.Convey("Then rows keep their order and schema", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Len(), convey.ShouldEqual, 3)
				convey.So(out.Columns, convey.ShouldResemble, []string{"beam", "file_date"})
				convey.So(out.Column("beam"), convey.ShouldResemble, []any{"/gt1l", "/gt2l", "/gt3l"})
				convey.So(out.CRS, convey.ShouldEqual, geotable.CRS4326)
			})
		})

		convey.Convey("When concatenated with a table in another CRS", func() {
			_, err := geotable.Concat(a, geotable.New("EPSG:3413"))
			convey.So(errors.Is(err, geotable.ErrCRSMismatch), convey.ShouldBeTrue)
		})

		convey.Convey("When nothing is given", func() {
			out, err := geotable.Concat()
			convey.So(err, convey.ShouldBeNil)
			convey.So(out.Len(), convey.ShouldEqual, 0)
			convey.So(out.CRS, convey.ShouldEqual, geotable.CRS4326)
		})
	})
}

func TestAppendColumns(t *testing.T) {
	convey.Convey("Given a table with no declared columns", t, func() {
		tbl := geotable.New(geotable.CRS4326)
		tbl.Append(orb.Point{1, 2}, map[string]any{"zeta": 1, "alpha": 2})

		convey.Convey("Then new columns are added in sorted order", func() {
			convey.So(tbl.Columns, convey.ShouldResemble, []string{"alpha", "zeta"})
		})
	})
}

func TestGeoJSONRoundTrip(t *testing.T) {
	convey.Convey("Given a table with points", t, func() {
		tbl := geotable.New(geotable.CRS4326, "Floe")
		tbl.Append(orb.Point{-120.123456789, 85.987654321}, map[string]any{"Floe": 1})
		tbl.Append(orb.Point{10.5, 82.25}, map[string]any{"Floe": 3})
		path := filepath.Join(t.TempDir(), "out", "track.geojson")

		convey.Convey("When written and read back", func() {
			convey.So(tbl.WriteGeoJSON(path), convey.ShouldBeNil)
			back, err := geotable.ReadGeoJSON(path)

			convey.Convey("Then coordinates, properties and CRS survive", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(back.Len(), convey.ShouldEqual, 2)
				convey.So(back.CRS, convey.ShouldEqual, geotable.CRS4326)
				p := back.Rows[0].Geometry.(orb.Point)
				convey.So(p[0], convey.ShouldAlmostEqual, -120.123456789, 1e-9)
				convey.So(p[1], convey.ShouldAlmostEqual, 85.987654321, 1e-9)
				convey.So(back.Rows[1].Properties["Floe"], convey.ShouldEqual, 3.0)
			})

			convey.Convey("Then the file is readable by group and others", func() {
				info, err := os.Stat(path)
				convey.So(err, convey.ShouldBeNil)
				convey.So(info.Mode().Perm(), convey.ShouldEqual, os.FileMode(0o644))
			})

			convey.Convey("Then the document carries a CRS84 crs member", func() {
				b, err := os.ReadFile(path)
				convey.So(err, convey.ShouldBeNil)
				var doc map[string]any
				convey.So(json.Unmarshal(b, &doc), convey.ShouldBeNil)
				convey.So(string(b), convey.ShouldContainSubstring, "urn:ogc:def:crs:OGC:1.3:CRS84")
				convey.So(doc["type"], convey.ShouldEqual, "FeatureCollection")
			})
		})

		convey.Convey("When the table uses a projected CRS", func() {
			polar := geotable.New("EPSG:3413")
			polar.Append(orb.Point{1, 1}, nil)
			b, err := polar.MarshalGeoJSON()
			convey.So(err, convey.ShouldBeNil)
			back, err := geotable.DecodeGeoJSON(b)
			convey.So(err, convey.ShouldBeNil)
			convey.So(back.CRS, convey.ShouldEqual, "EPSG:3413")
		})
	})

	convey.Convey("Given invalid documents", t, func() {
		_, err := geotable.DecodeGeoJSON([]byte(`{"type":"Feature"}`))
		convey.So(errors.Is(err, geotable.ErrDecode), convey.ShouldBeTrue)

		_, err = geotable.ReadGeoJSON(filepath.Join(t.TempDir(), "nope.geojson"))
		convey.So(errors.Is(err, geotable.ErrDecode), convey.ShouldBeTrue)
	})
}

func TestMerge(t *testing.T) {
	convey.Convey("Given a beam table and a track table", t, func() {
		beams := geotable.New(geotable.CRS4326, "beam")
		beams.Append(line(orb.Point{0, 80}, orb.Point{1, 81}), map[string]any{"beam": "/gt1l"})
		track := geotable.New(geotable.CRS4326, "Floe")
		track.Append(orb.Point{5, 85}, map[string]any{"Floe": 1})
		track.Append(orb.Point{6, 86}, map[string]any{"Floe": 2})

		convey.Convey("When merged", func() {
			out, err := geotable.Merge(
				geotable.Layer{Name: "beams", Table: beams},
				geotable.Layer{Name: "track", Table: track},
				geotable.Layer{Name: "absent"},
			)

			convey.Convey("Then each row is tagged with its layer", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Len(), convey.ShouldEqual, 3)
				convey.So(out.Column(geotable.LayerColumn), convey.ShouldResemble, []any{"beams", "track", "track"})
				convey.So(out.Columns, convey.ShouldResemble, []string{"layer", "beam", "Floe"})
			})

			convey.Convey("Then the inputs are not modified", func() {
				_, tagged := beams.Rows[0].Properties[geotable.LayerColumn]
				convey.So(tagged, convey.ShouldBeFalse)
			})
		})
	})
}
