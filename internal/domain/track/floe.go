package track

import (
	"fmt"
	"time"
)

// Floe is a closed interval [Start, End] during which the ship drifted with
// one ice floe.
type Floe struct {
	ID    int
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies in the closed interval.
func (f Floe) Contains(t time.Time) bool {
	return !t.Before(f.Start) && !t.After(f.End)
}

// Validate checks that the floe has a positive id and Start <= End.
func (f Floe) Validate() error {
	if f.ID < 1 {
		return fmt.Errorf("%w: id %d must be positive", ErrInvalidFloe, f.ID)
	}
	if f.End.Before(f.Start) {
		return fmt.Errorf("%w: floe %d ends %s before it starts %s",
			ErrInvalidFloe, f.ID, f.End.Format(time.DateOnly), f.Start.Format(time.DateOnly))
	}
	return nil
}

// DefaultFloes returns the three MOSAiC drift periods. Bounds are midnight
// UTC, so noon on an end date falls outside its floe.
func DefaultFloes() []Floe {
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	return []Floe{
		{ID: 1, Start: day(2019, time.October, 4), End: day(2020, time.May, 17)},
		{ID: 2, Start: day(2020, time.June, 19), End: day(2020, time.July, 31)},
		{ID: 3, Start: day(2020, time.August, 21), End: day(2020, time.September, 20)},
	}
}

// AssignFloe tests the floes in order and returns the id of the last one
// containing t, or 0 when none does.
func AssignFloe(floes []Floe, t time.Time) int {
	id := 0
	for _, f := range floes {
		if f.Contains(t) {
			id = f.ID
		}
	}
	return id
}
