package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"MICDataset/internal/domain"
	"MICDataset/internal/ports"
)

// RunMetrics collects per-run pipeline metrics on a private registry and writes them
// in the textfile-collector format when the run finishes.
type RunMetrics struct {
	registry *prometheus.Registry
	path     string

	filterTotal     *prometheus.CounterVec
	classifyTotal   *prometheus.CounterVec
	classifySeconds *prometheus.HistogramVec
	rejectedTotal   *prometheus.CounterVec
	acceptedTotal   prometheus.Counter
	summary         *prometheus.GaugeVec
	lastRun         prometheus.Gauge
}

var _ ports.RunMetrics = (*RunMetrics)(nil)

// NewRunMetrics builds the collectors. An empty path keeps metrics in memory only.
func NewRunMetrics(path string) *RunMetrics {
	registry := prometheus.NewRegistry()

	filterTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mic",
			Subsystem: "filter",
			Name:      "articles_total",
			Help:      "Articles evaluated by the relevance filter, by failing stage (passed when empty).",
		},
		[]string{"stage"},
	)
	classifyTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mic",
			Subsystem: "classifier",
			Name:      "calls_total",
			Help:      "Classifier invocations by outcome.",
		},
		[]string{"outcome"},
	)
	classifySeconds := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mic",
			Subsystem: "classifier",
			Name:      "call_duration_seconds",
			Help:      "Classifier invocation duration including retries.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"outcome"},
	)
	rejectedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mic",
			Subsystem: "validator",
			Name:      "rejections_total",
			Help:      "Rejected articles and responses by error kind.",
		},
		[]string{"kind"},
	)
	acceptedTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mic",
			Subsystem: "validator",
			Name:      "accepted_total",
			Help:      "Accepted classification responses.",
		},
	)
	summary := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mic",
			Subsystem: "run",
			Name:      "articles",
			Help:      "Run summary counts.",
		},
		[]string{"count"},
	)
	lastRun := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mic",
			Subsystem: "run",
			Name:      "finished_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		},
	)

	registry.MustRegister(filterTotal, classifyTotal, classifySeconds, rejectedTotal, acceptedTotal, summary, lastRun)

	return &RunMetrics{
		registry:        registry,
		path:            path,
		filterTotal:     filterTotal,
		classifyTotal:   classifyTotal,
		classifySeconds: classifySeconds,
		rejectedTotal:   rejectedTotal,
		acceptedTotal:   acceptedTotal,
		summary:         summary,
		lastRun:         lastRun,
	}
}

// Registry exposes the underlying registry.
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *RunMetrics) ObserveFilter(stage string) {
	if stage == "" {
		stage = "passed"
	}
	m.filterTotal.WithLabelValues(stage).Inc()
}

// AddFiltered counts n articles rejected at stage in one step.
func (m *RunMetrics) AddFiltered(stage string, n int) {
	if n <= 0 {
		return
	}
	m.filterTotal.WithLabelValues(stage).Add(float64(n))
}

func (m *RunMetrics) ObserveClassification(outcome string, seconds float64) {
	m.classifyTotal.WithLabelValues(outcome).Inc()
	m.classifySeconds.WithLabelValues(outcome).Observe(seconds)
}

func (m *RunMetrics) ObserveRejection(kind domain.ErrorKind) {
	m.rejectedTotal.WithLabelValues(string(kind)).Inc()
}

func (m *RunMetrics) ObserveAccepted() {
	m.acceptedTotal.Inc()
}

// Flush records the summary gauges and writes the textfile when a path is configured.
func (m *RunMetrics) Flush(s domain.RunSummary) error {
	counts := map[string]int{
		"scanned":      s.Scanned,
		"filtered_out": s.FilteredOut,
		"passed":       s.Passed,
		"skipped":      s.Skipped,
		"already_done": s.AlreadyDone,
		"classified":   s.Classified,
		"accepted":     s.Accepted,
		"rejected":     s.TotalRejected(),
		"examples":     s.Examples,
		"sampled":      s.Sampled,
	}
	for name, n := range counts {
		m.summary.WithLabelValues(name).Set(float64(n))
	}
	if !s.FinishedAt.IsZero() {
		m.lastRun.Set(float64(s.FinishedAt.Unix()))
	}

	if m.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(m.path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
