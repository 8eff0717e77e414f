package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	// Pipeline counters
	FramesCaptured   atomic.Uint64
	FramesDropped    atomic.Uint64 // Overwritten in the hand-off slot
	FramesClassified atomic.Uint64
	EventsEmitted    atomic.Uint64

	// Error counters
	CaptureErrors    atomic.Uint64
	ClassifierErrors atomic.Uint64
	AudioFailures    atomic.Uint64
	PushFailures     atomic.Uint64
	JournalFailures  atomic.Uint64

	// Side-effect counters
	PushesSent atomic.Uint64

	// Latency tracking
	CaptureLatencyMs   atomic.Uint64 // Last capture cycle duration in ms
	InferenceLatencyMs atomic.Uint64 // Last classify+debounce cycle duration in ms

	// Debounce state
	WindowFill  atomic.Uint64 // Samples currently in the stability window
	ActiveState atomic.Uint64 // 0 = none, 1 = a category is active

	// Prometheus collectors
	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

// registerPrometheusMetrics registers all metrics with Prometheus
func (m *Metrics) registerPrometheusMetrics() {
	gauges := []struct {
		name string
		help string
		load func() uint64
	}{
		{"monitor_frames_captured_total", "Total frames captured from the camera", m.FramesCaptured.Load},
		{"monitor_frames_dropped_total", "Total frames overwritten in the hand-off slot", m.FramesDropped.Load},
		{"monitor_frames_classified_total", "Total frames run through the classifier", m.FramesClassified.Load},
		{"monitor_events_emitted_total", "Total debounced state-change events emitted", m.EventsEmitted.Load},
		{"monitor_capture_errors_total", "Total camera capture failures", m.CaptureErrors.Load},
		{"monitor_classifier_errors_total", "Total classifier invocation failures", m.ClassifierErrors.Load},
		{"monitor_audio_failures_total", "Total audio cue playback failures", m.AudioFailures.Load},
		{"monitor_push_failures_total", "Total per-recipient push failures", m.PushFailures.Load},
		{"monitor_journal_failures_total", "Total care-journal write failures", m.JournalFailures.Load},
		{"monitor_pushes_sent_total", "Total successful push notifications", m.PushesSent.Load},
		{"monitor_capture_latency_ms", "Last capture cycle duration in milliseconds", m.CaptureLatencyMs.Load},
		{"monitor_inference_latency_ms", "Last inference cycle duration in milliseconds", m.InferenceLatencyMs.Load},
		{"monitor_window_fill", "Samples currently held in the stability window", m.WindowFill.Load},
		{"monitor_active_state", "Whether a gesture category is currently active (0/1)", m.ActiveState.Load},
	}

	for _, g := range gauges {
		load := g.load
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			func() float64 { return float64(load()) },
		))
	}
}

// UpdateCaptureLatency records the duration of one capture cycle
func (m *Metrics) UpdateCaptureLatency(d time.Duration) {
	m.CaptureLatencyMs.Store(uint64(d.Milliseconds()))
}

// UpdateInferenceLatency records the duration of one inference cycle
func (m *Metrics) UpdateInferenceLatency(d time.Duration) {
	m.InferenceLatencyMs.Store(uint64(d.Milliseconds()))
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server
func (m *Metrics) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return http.ListenAndServe(addr, mux)
}
