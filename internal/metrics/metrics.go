// ABOUTME: Prometheus metrics for encode, decode and playback sessions
// ABOUTME: Session outcomes, frame counts, durations and decoder fills
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Resonate-Protocol/resonate-codec/pkg/transfer"
)

// Metrics contains all Prometheus metrics for codec sessions
type Metrics struct {
	registry *prometheus.Registry

	// Session metrics
	SessionsStarted  *prometheus.CounterVec
	SessionsFinished *prometheus.CounterVec
	ActiveSessions   *prometheus.GaugeVec
	SessionDuration  *prometheus.HistogramVec
	SessionWarnings  *prometheus.CounterVec

	// Audio metrics
	FramesTotal   *prometheus.CounterVec
	DecoderFills  prometheus.Counter
	FramesPerFill prometheus.Histogram
	Progress      *prometheus.GaugeVec
}

// New creates metrics registered on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		SessionsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "resonate_codec_sessions_started_total",
			Help: "Total number of sessions started",
		}, []string{"kind"}),
		SessionsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "resonate_codec_sessions_finished_total",
			Help: "Total number of sessions finished, by outcome",
		}, []string{"kind", "outcome"}),
		ActiveSessions: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "resonate_codec_active_sessions",
			Help: "Current number of running sessions",
		}, []string{"kind"}),
		SessionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "resonate_codec_session_duration_seconds",
			Help:    "Wall time of finished sessions",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		}, []string{"kind"}),
		SessionWarnings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "resonate_codec_session_warnings_total",
			Help: "Total number of sessions whose output failed to drain or close",
		}, []string{"kind"}),

		FramesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "resonate_codec_frames_total",
			Help: "Total number of PCM frames moved by sessions",
		}, []string{"kind"}),
		DecoderFills: factory.NewCounter(prometheus.CounterOpts{
			Name: "resonate_codec_decoder_fills_total",
			Help: "Total number of ring buffer fills that decoded audio",
		}),
		FramesPerFill: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "resonate_codec_decoder_fill_frames",
			Help:    "Frames decoded per ring buffer fill",
			Buckets: prometheus.ExponentialBuckets(64, 2, 10), // 64 to 32768
		}),
		Progress: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "resonate_codec_session_progress_percent",
			Help: "Last reported progress of the running session",
		}, []string{"kind"}),
	}
}

// Registry returns the registry the metrics live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveFill records one decoder fill; usable as decode.Options.OnFill
func (m *Metrics) ObserveFill(frames int) {
	m.DecoderFills.Inc()
	m.FramesPerFill.Observe(float64(frames))
}

// ObserveResult records a finished session
func (m *Metrics) ObserveResult(kind string, res transfer.Result) {
	m.SessionsFinished.WithLabelValues(kind, res.Outcome.String()).Inc()
	m.FramesTotal.WithLabelValues(kind).Add(float64(res.Frames))
	if d := res.Duration(); d > 0 {
		m.SessionDuration.WithLabelValues(kind).Observe(d.Seconds())
	}
	if res.Warning != nil {
		m.SessionWarnings.WithLabelValues(kind).Inc()
	}
}

// Observer returns a transfer.Observer tracking the active gauge and
// progress for kind
func (m *Metrics) Observer(kind string) transfer.Observer {
	return &observer{m: m, kind: kind}
}

type observer struct {
	m    *Metrics
	kind string
}

func (o *observer) OnStart(time.Time) {
	o.m.SessionsStarted.WithLabelValues(o.kind).Inc()
	o.m.ActiveSessions.WithLabelValues(o.kind).Inc()
	o.m.Progress.WithLabelValues(o.kind).Set(0)
}

func (o *observer) OnProgress(percent int, _ uint) {
	o.m.Progress.WithLabelValues(o.kind).Set(float64(percent))
}

func (o *observer) OnComplete(time.Time) { o.finish() }
func (o *observer) OnStopped()           { o.finish() }
func (o *observer) OnFailed(error)       { o.finish() }

func (o *observer) finish() {
	o.m.ActiveSessions.WithLabelValues(o.kind).Dec()
}
