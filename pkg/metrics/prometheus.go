// Package metrics provides Prometheus metrics for the icetrack pipelines.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Skip reasons recorded on beams_skipped_total.
const (
	ReasonEmptyInput      = "empty_input"
	ReasonInvalidGeometry = "invalid_geometry"
)

// Manager owns every collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer
	gatherer         prometheus.Gatherer

	// Granule pipeline
	granulesProcessed prometheus.Counter
	granulesFailed    prometheus.Counter
	granuleLatency    prometheus.Histogram
	beamsExtracted    prometheus.Counter
	beamsSkipped      *prometheus.CounterVec
	batchDuration     prometheus.Histogram
	batchRows         prometheus.Gauge

	// Queue and workers
	queueCapacity prometheus.Gauge
	queueDepth    prometheus.Gauge
	queueRejected prometheus.Counter
	workersActive prometheus.Gauge
	workersBusy   prometheus.Gauge

	// Track processor
	trackRowsRead prometheus.Counter
	trackRowsKept prometheus.Counter

	errorsByComponent *prometheus.CounterVec
}

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the Record* helpers

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager. Without WithPrometheusRegistry it
// registers on prometheus.DefaultRegisterer.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "icetrack",
		subsystem:        "pipeline",
		histogramBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		registry:         prometheus.DefaultRegisterer,
		gatherer:         prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.granulesProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "granules_processed_total",
		Help: "Granule files whose strong beams were extracted",
	})
	m.granulesFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "granules_failed_total",
		Help: "Granule files that could not be opened or read",
	})
	m.granuleLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "granule_processing_seconds",
		Help:    "Time spent opening and extracting a single granule",
		Buckets: m.histogramBuckets,
	})
	m.beamsExtracted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "beams_extracted_total",
		Help: "Strong beams converted into line geometries",
	})
	m.beamsSkipped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "beams_skipped_total",
		Help: "Strong beams skipped because their coordinates were empty or degenerate",
	}, []string{"reason"})
	m.batchDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "batch_duration_seconds",
		Help:    "Wall time of a full batch run",
		Buckets: m.histogramBuckets,
	})
	m.batchRows = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "batch_rows",
		Help: "Rows in the table produced by the last batch",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "queue",
		Name: "capacity",
		Help: "Capacity of the granule job queue",
	})
	m.queueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "queue",
		Name: "depth",
		Help: "Jobs waiting in the granule job queue",
	})
	m.queueRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "queue",
		Name: "rejected_total",
		Help: "Jobs refused because the queue was full or closed",
	})
	m.workersActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "worker",
		Name: "active",
		Help: "Workers started for the current batch",
	})
	m.workersBusy = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "worker",
		Name: "busy",
		Help: "Workers currently processing a granule",
	})

	m.trackRowsRead = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "track",
		Name: "rows_read_total",
		Help: "Ship-track rows read from the input file",
	})
	m.trackRowsKept = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "track",
		Name: "rows_kept_total",
		Help: "Ship-track rows kept after the noon and on-floe filters",
	})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "errors_total",
		Help:      "Errors by component and kind",
	}, []string{"component", "kind"})
}

// Init replaces the process-wide manager with one built from opts on a fresh
// registry. Call it at startup, before any Record helper runs.
func Init(opts ...Option) *Manager {
	registry := prometheus.NewRegistry()
	m := NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry = registry
	globalManager = m
	return m
}

// Global helpers operate on the process-wide manager.

func RecordGranuleProcessed(seconds float64) {
	globalManager.granulesProcessed.Inc()
	globalManager.granuleLatency.Observe(seconds)
}

func RecordGranuleFailed() { globalManager.granulesFailed.Inc() }

func RecordBeamExtracted() { globalManager.beamsExtracted.Inc() }

func RecordBeamSkipped(reason string) { globalManager.beamsSkipped.WithLabelValues(reason).Inc() }

func RecordBatch(seconds float64, rows int) {
	globalManager.batchDuration.Observe(seconds)
	globalManager.batchRows.Set(float64(rows))
}

func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

func UpdateQueueDepth(depth int) { globalManager.queueDepth.Set(float64(depth)) }

func RecordQueueRejected() { globalManager.queueRejected.Inc() }

func UpdateWorkersActive(count int) { globalManager.workersActive.Set(float64(count)) }

func IncWorkersBusy() { globalManager.workersBusy.Inc() }

func DecWorkersBusy() { globalManager.workersBusy.Dec() }

func RecordTrackRows(read, kept int) {
	globalManager.trackRowsRead.Add(float64(read))
	globalManager.trackRowsKept.Add(float64(kept))
}

func RecordError(component, kind string) {
	globalManager.errorsByComponent.WithLabelValues(component, kind).Inc()
}

// GetRegistry returns the process-wide registry.
func GetRegistry() *prometheus.Registry { return customRegistry }

// WriteTextfile dumps the process-wide registry in the text exposition
// format, for node_exporter's textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, globalManager.Gatherer()); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteTextfile, err)
	}
	return nil
}

// Gatherer exposes the registry the manager registered on.
func (m *Manager) Gatherer() prometheus.Gatherer { return m.gatherer }
