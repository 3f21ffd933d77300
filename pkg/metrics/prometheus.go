package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	gatewayCalls   *prometheus.CounterVec
	gatewayLatency *prometheus.HistogramVec
	staleDiscards  *prometheus.CounterVec
	pollSkipped    prometheus.Counter
	pollTicks      *prometheus.CounterVec
	events         *prometheus.CounterVec
	activeSessions prometheus.Gauge
	errorsTotal    *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder registered on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		gatewayCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocktime_gateway_calls_total",
				Help: "Calls to the prediction service by operation and result",
			},
			[]string{"op", "result"},
		),
		gatewayLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stocktime_gateway_call_seconds",
				Help:    "Latency of prediction service calls",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"op"},
		),
		staleDiscards: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocktime_stale_results_discarded_total",
				Help: "Gateway results dropped because a newer request superseded them",
			},
			[]string{"view_model"},
		),
		pollSkipped: f.NewCounter(
			prometheus.CounterOpts{
				Name: "stocktime_tracking_poll_skipped_total",
				Help: "Tracking ticks skipped because the previous fetch was still in flight",
			},
		),
		pollTicks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocktime_tracking_poll_ticks_total",
				Help: "Tracking poll ticks by timeframe",
			},
			[]string{"timeframe"},
		),
		events: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocktime_events_total",
				Help: "Dashboard events by kind and publish result",
			},
			[]string{"kind", "result"},
		),
		activeSessions: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "stocktime_active_sessions",
				Help: "Dashboard sessions currently held in memory",
			},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocktime_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordGatewayCall records one gateway round trip.
func (r *Recorder) RecordGatewayCall(op string, err error, d time.Duration) {
	r.gatewayCalls.WithLabelValues(op, result(err)).Inc()
	r.gatewayLatency.WithLabelValues(op).Observe(d.Seconds())
}

// RecordStaleDiscard records a result dropped for a superseded generation.
func (r *Recorder) RecordStaleDiscard(vm string) {
	r.staleDiscards.WithLabelValues(vm).Inc()
}

// RecordPollSkipped records a tracking tick that overlapped an in-flight fetch.
func (r *Recorder) RecordPollSkipped() { r.pollSkipped.Inc() }

// RecordPollTick records a tracking tick.
func (r *Recorder) RecordPollTick(timeframe string) {
	r.pollTicks.WithLabelValues(timeframe).Inc()
}

// RecordEvent records an emitted dashboard event.
func (r *Recorder) RecordEvent(kind string, err error) {
	r.events.WithLabelValues(kind, result(err)).Inc()
}

// RecordActiveSessions sets the session gauge.
func (r *Recorder) RecordActiveSessions(n int) { r.activeSessions.Set(float64(n)) }

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Nop discards all measurements.
type Nop struct{}

func (Nop) RecordGatewayCall(string, error, time.Duration) {}
func (Nop) RecordStaleDiscard(string)                      {}
func (Nop) RecordPollSkipped()                             {}
func (Nop) RecordPollTick(string)                          {}
func (Nop) RecordEvent(string, error)                      {}
func (Nop) RecordActiveSessions(int)                       {}
func (Nop) RecordError(string)                             {}
