// Package config defines icetrack configuration and how it is loaded.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and environment variables on top.
// - Errors wrap ErrLoadConfig or ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Failure policies for batch runs.
const (
	PolicyFailFast = "fail_fast"
	PolicyCollect  = "collect"
)

// Input dedupe modes.
const (
	DedupeNone = "none"
	DedupePath = "path"
	DedupeName = "name"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// WorkerCount bounds how many granules are processed at once.
	WorkerCount int `koanf:"worker_count"`

	// Stride keeps every Stride-th freeboard segment of a beam.
	Stride int `koanf:"stride"`

	// FailurePolicy is fail_fast or collect.
	FailurePolicy string `koanf:"failure_policy"`

	// DedupeInputs drops repeated granules from a batch: none, path or name.
	DedupeInputs string `koanf:"dedupe_inputs"`

	// Granules is a glob matching the input HDF5 files.
	Granules string `koanf:"granules"`

	// BeamsOutput is the GeoJSON file the beam lines are written to.
	BeamsOutput string `koanf:"beams_output"`

	// TrackInput is the tab-separated ship track. Empty skips the track.
	TrackInput string `koanf:"track_input"`

	// TrackOutput receives the processed track as GeoJSON.
	TrackOutput string `koanf:"track_output"`

	// OverlayOutput receives beams and track merged into one file.
	OverlayOutput string `koanf:"overlay_output"`

	// MetricsFile, when set, receives the Prometheus text exposition on exit.
	MetricsFile string `koanf:"metrics_file"`

	// MetricsNamespace prefixes every metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`

	// MetricsSubsystem names the granule pipeline metrics group.
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsBuckets overrides the latency histogram buckets, in seconds.
	MetricsBuckets []float64 `koanf:"metrics_buckets"`

	// TracingEnabled prints spans to stderr.
	TracingEnabled bool `koanf:"tracing_enabled"`

	// Floes overrides the on-floe intervals of the track processor.
	Floes []Floe `koanf:"floes"`
}

// Floe is one on-floe interval with dates in YYYY-MM-DD form.
type Floe struct {
	ID    int    `koanf:"id"`
	Start string `koanf:"start"`
	End   string `koanf:"end"`
}

// Bounds parses Start and End as midnight UTC.
func (f Floe) Bounds() (time.Time, time.Time, error) {
	start, err := time.Parse(time.DateOnly, strings.TrimSpace(f.Start))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: floe %d start: %w", ErrInvalidConfig, f.ID, err)
	}
	end, err := time.Parse(time.DateOnly, strings.TrimSpace(f.End))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: floe %d end: %w", ErrInvalidConfig, f.ID, err)
	}
	return start, end, nil
}

// New creates a Config with defaults. Floes is left empty so the track
// processor falls back to its built-in intervals.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		WorkerCount:      8,
		Stride:           1000,
		FailurePolicy:    PolicyFailFast,
		DedupeInputs:     DedupeNone,
		Granules:         filepath.Join("data", "ATL10", "*.h5"),
		BeamsOutput:      filepath.Join("data", "atl10_strong_beams.geojson"),
		TrackOutput:      filepath.Join("data", "polarstern_track_full_cruise_processed.geojson"),
		MetricsNamespace: "icetrack",
		MetricsSubsystem: "pipeline",
	}
}

// Validate checks value ranges and cross-field rules.
func (c *Config) Validate() error {
	if c.WorkerCount < 1 {
		return fmt.Errorf("%w: worker_count must be at least 1, got %d", ErrInvalidConfig, c.WorkerCount)
	}
	if c.Stride < 1 {
		return fmt.Errorf("%w: stride must be at least 1, got %d", ErrInvalidConfig, c.Stride)
	}
	switch c.FailurePolicy {
	case PolicyFailFast, PolicyCollect:
	default:
		return fmt.Errorf("%w: failure_policy must be %s or %s, got %q", ErrInvalidConfig, PolicyFailFast, PolicyCollect, c.FailurePolicy)
	}
	switch c.DedupeInputs {
	case "", DedupeNone, DedupePath, DedupeName:
	default:
		return fmt.Errorf("%w: dedupe_inputs must be %s, %s or %s, got %q", ErrInvalidConfig, DedupeNone, DedupePath, DedupeName, c.DedupeInputs)
	}
	for i := 1; i < len(c.MetricsBuckets); i++ {
		if c.MetricsBuckets[i] <= c.MetricsBuckets[i-1] {
			return fmt.Errorf("%w: metrics_buckets must be strictly increasing", ErrInvalidConfig)
		}
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	if c.OverlayOutput != "" && c.TrackInput == "" {
		return fmt.Errorf("%w: overlay_output requires track_input", ErrInvalidConfig)
	}
	seen := make(map[int]bool, len(c.Floes))
	for _, f := range c.Floes {
		if f.ID < 1 {
			return fmt.Errorf("%w: floe id must be positive, got %d", ErrInvalidConfig, f.ID)
		}
		if seen[f.ID] {
			return fmt.Errorf("%w: duplicate floe id %d", ErrInvalidConfig, f.ID)
		}
		seen[f.ID] = true
		start, end, err := f.Bounds()
		if err != nil {
			return err
		}
		if end.Before(start) {
			return fmt.Errorf("%w: floe %d ends before it starts", ErrInvalidConfig, f.ID)
		}
	}
	return nil
}
