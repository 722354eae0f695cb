package track_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/icetrack/internal/domain/geotable"
	"github.com/okian/icetrack/internal/domain/track"
)

const threeRows = "Date/Time\tLatitude\tLongitude\tSpeed [kn]\n" +
	"2019-10-04T12:00:00\t85.1\t125.5\t0.3\n" +
	"2019-10-04T00:00:00\t85.0\t125.4\t0.2\n" +
	"2020-06-01T12:00:00\t79.5\t5.1\t11.0\n"

func TestAssignFloe(t *testing.T) {
	Convey("Given the default floes", t, func() {
		floes := track.DefaultFloes()
		at := func(s string) time.Time {
			ts, err := track.ParseTimestamp(s)
			So(err, ShouldBeNil)
			return ts
		}

		Convey("Then interval bounds are closed at midnight", func() {
			So(track.AssignFloe(floes, at("2019-10-04T00:00:00")), ShouldEqual, 1)
			So(track.AssignFloe(floes, at("2020-05-17T00:00:00")), ShouldEqual, 1)
			So(track.AssignFloe(floes, at("2020-05-17T12:00:00")), ShouldEqual, 0)
			So(track.AssignFloe(floes, at("2020-07-01 12:00")), ShouldEqual, 2)
			So(track.AssignFloe(floes, at("2020-09-20")), ShouldEqual, 3)
			So(track.AssignFloe(floes, at("2020-06-01T12:00:00")), ShouldEqual, 0)
		})

		Convey("Then overlapping intervals resolve to the later one", func() {
			overlap := append(floes, track.Floe{ID: 4, Start: floes[0].Start, End: floes[0].Start.Add(24 * time.Hour)})
			So(track.AssignFloe(overlap, at("2019-10-04T12:00:00")), ShouldEqual, 4)
		})
	})

	Convey("Given an inverted floe", t, func() {
		f := track.Floe{ID: 1, Start: time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
		So(errors.Is(f.Validate(), track.ErrInvalidFloe), ShouldBeTrue)
		So(errors.Is(track.Floe{ID: 0}.Validate(), track.ErrInvalidFloe), ShouldBeTrue)
	})
}

func TestRead(t *testing.T) {
	Convey("Given a tab-separated track", t, func() {
		d, err := track.Read(strings.NewReader(threeRows))

		Convey("Then every row and column is parsed", func() {
			So(err, ShouldBeNil)
			So(d.Index, ShouldEqual, "Date/Time")
			So(d.Columns, ShouldResemble, []string{"Latitude", "Longitude", "Speed [kn]"})
			So(len(d.Records), ShouldEqual, 3)
			So(d.Records[0].Longitude, ShouldEqual, 125.5)
			So(d.Records[0].Latitude, ShouldEqual, 85.1)
			So(d.Records[2].Values["Speed [kn]"], ShouldEqual, 11.0)
			So(d.Records[1].Time.Hour(), ShouldEqual, 0)
		})
	})

	Convey("Given a track without a Longitude column", t, func() {
		_, err := track.Read(strings.NewReader("Date/Time\tLatitude\n2019-10-04T12:00:00\t85\n"))
		So(errors.Is(err, track.ErrMissingColumn), ShouldBeTrue)
	})

	Convey("Given a bad timestamp", t, func() {
		_, err := track.Read(strings.NewReader("t\tLatitude\tLongitude\nyesterday\t85\t10\n"))
		So(errors.Is(err, track.ErrParseTimestamp), ShouldBeTrue)
		So(err.Error(), ShouldContainSubstring, "line 2")
	})

	Convey("Given a non-numeric coordinate", t, func() {
		_, err := track.Read(strings.NewReader("t\tLatitude\tLongitude\n2019-10-04T12:00:00\tnorth\t10\n"))
		So(errors.Is(err, track.ErrParseValue), ShouldBeTrue)
	})

	Convey("Given an empty input", t, func() {
		_, err := track.Read(strings.NewReader(""))
		So(errors.Is(err, track.ErrRead), ShouldBeTrue)
	})
}

func TestProcessor(t *testing.T) {
	Convey("Given the three-row example", t, func() {
		d, err := track.Read(strings.NewReader(threeRows))
		So(err, ShouldBeNil)

		Convey("When processed with the defaults", func() {
			table, err := track.NewProcessor().Process(context.Background(), d)

			Convey("Then only the noon row on floe 1 survives", func() {
				So(err, ShouldBeNil)
				So(table.Len(), ShouldEqual, 1)
				So(table.Rows[0].Geometry, ShouldResemble, orb.Point{125.5, 85.1})
				So(table.Rows[0].Properties[track.ColumnFloe], ShouldEqual, 1)
				So(table.Rows[0].Properties["Date/Time"], ShouldEqual, "2019-10-04T12:00:00")
				So(table.Columns, ShouldResemble, []string{"Date/Time", "Latitude", "Longitude", "Speed [kn]", track.ColumnFloe})
				So(table.CRS, ShouldEqual, geotable.CRS4326)
			})
		})

		Convey("When processed with a midnight sample time", func() {
			table, err := track.NewProcessor(track.WithSampleTime(0, 0)).Process(context.Background(), d)

			Convey("Then the midnight row is kept instead", func() {
				So(err, ShouldBeNil)
				So(table.Len(), ShouldEqual, 1)
				So(table.Rows[0].Geometry, ShouldResemble, orb.Point{125.4, 85.0})
			})
		})

		Convey("When a custom floe covers June", func() {
			june := track.Floe{ID: 7, Start: time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2020, 6, 30, 0, 0, 0, 0, time.UTC)}
			table, err := track.NewProcessor(track.WithFloes([]track.Floe{june})).Process(context.Background(), d)

			Convey("Then only the June row is kept", func() {
				So(err, ShouldBeNil)
				So(track.FloeIDs(table), ShouldResemble, []int{7})
			})
		})
	})
}

func TestProcessor_Sampled(t *testing.T) {
	Convey("Given the default noon sample time", t, func() {
		p := track.NewProcessor()
		at := func(h, m, s int) time.Time { return time.Date(2019, 10, 4, h, m, s, 0, time.UTC) }

		Convey("Then seconds past the minute still count as the noon reading", func() {
			So(p.Sampled(at(12, 0, 0)), ShouldBeTrue)
			So(p.Sampled(at(12, 0, 30)), ShouldBeTrue)
		})

		Convey("Then neighbouring minutes are not sampled", func() {
			So(p.Sampled(at(12, 1, 0)), ShouldBeFalse)
			So(p.Sampled(at(11, 59, 59)), ShouldBeFalse)
		})

		Convey("Then non-UTC times are compared in UTC", func() {
			cet := time.FixedZone("CET", 3600)
			So(p.Sampled(time.Date(2019, 10, 4, 13, 0, 30, 0, cet)), ShouldBeTrue)
		})
	})

	Convey("Given a record at 12:00:30", t, func() {
		d, err := track.Read(strings.NewReader("Date/Time\tLatitude\tLongitude\n2019-10-04T12:00:30\t85.1\t125.5\n"))
		So(err, ShouldBeNil)

		Convey("When processed with the defaults", func() {
			table, err := track.NewProcessor().Process(context.Background(), d)

			Convey("Then the row is kept", func() {
				So(err, ShouldBeNil)
				So(table.Len(), ShouldEqual, 1)
			})
		})
	})
}

func TestProcessFileRoundTrip(t *testing.T) {
	Convey("Given a track file on disk", t, func() {
		dir := t.TempDir()
		in := filepath.Join(dir, "track.txt")
		out := filepath.Join(dir, "out", "track.geojson")
		body := threeRows +
			"2020-06-19T12:00:00\t81.2\t-10.25\t0.1\n" +
			"2020-09-01T12:00:00\t79.9\t2.5\t0.4\n"
		So(os.WriteFile(in, []byte(body), 0o600), ShouldBeNil)

		Convey("When processed and reloaded", func() {
			written, err := track.NewProcessor().ProcessFile(context.Background(), in, out)
			So(err, ShouldBeNil)
			loaded, err := track.ReadGeoJSON(out)
			So(err, ShouldBeNil)

			Convey("Then coordinates and floe ids survive", func() {
				So(loaded.Len(), ShouldEqual, written.Len())
				So(track.FloeIDs(loaded), ShouldResemble, []int{1, 2, 3})
				for i := range written.Rows {
					want := written.Rows[i].Geometry.(orb.Point)
					got := loaded.Rows[i].Geometry.(orb.Point)
					So(got[0], ShouldAlmostEqual, want[0], 1e-9)
					So(got[1], ShouldAlmostEqual, want[1], 1e-9)
				}
				So(loaded.CRS, ShouldEqual, geotable.CRS4326)
			})
		})
	})

	Convey("Given a missing input file", t, func() {
		_, err := track.NewProcessor().ProcessFile(context.Background(), "does-not-exist.txt", filepath.Join(t.TempDir(), "x.geojson"))
		So(errors.Is(err, track.ErrRead), ShouldBeTrue)
	})
}
