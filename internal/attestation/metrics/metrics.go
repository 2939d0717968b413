package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the attestation module.
// All methods are nil-safe so components can run without metrics in tests.
type Metrics struct {
	Compilations     prometheus.Counter
	CompileDuration  prometheus.Histogram
	ProveDuration    prometheus.Histogram
	VerifyDuration   prometheus.Histogram
	VerifyOutcomes   *prometheus.CounterVec
	StageErrors      *prometheus.CounterVec
	OffloadQueued    prometheus.Gauge
	OffloadInFlight  prometheus.Gauge
	OffloadAbandoned prometheus.Counter
}

var cryptoBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// New registers all attestation metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Compilations: f.NewCounter(prometheus.CounterOpts{
			Name: "zkattest_circuit_compilations_total",
			Help: "Number of circuit compilations (expected to be one per process)",
		}),
		CompileDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "zkattest_circuit_compile_duration_seconds",
			Help:    "Duration of circuit compilation and key setup",
			Buckets: cryptoBuckets,
		}),
		ProveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "zkattest_prove_duration_seconds",
			Help:    "Duration of proof generation",
			Buckets: cryptoBuckets,
		}),
		VerifyDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "zkattest_verify_duration_seconds",
			Help:    "Duration of proof verification",
			Buckets: cryptoBuckets,
		}),
		VerifyOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zkattest_verify_outcomes_total",
			Help: "Verification results by outcome",
		}, []string{"outcome"}),
		StageErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zkattest_stage_errors_total",
			Help: "Stage failures by stage and error code",
		}, []string{"stage", "code"}),
		OffloadQueued: f.NewGauge(prometheus.GaugeOpts{
			Name: "zkattest_offload_queued_requests",
			Help: "Requests waiting for an offload worker",
		}),
		OffloadInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "zkattest_offload_inflight_requests",
			Help: "Requests currently executing on offload workers",
		}),
		OffloadAbandoned: f.NewCounter(prometheus.CounterOpts{
			Name: "zkattest_offload_abandoned_total",
			Help: "Calls whose caller stopped waiting before completion",
		}),
	}
}

// ObserveCompile records one compilation.
func (m *Metrics) ObserveCompile(start time.Time) {
	if m == nil {
		return
	}
	m.Compilations.Inc()
	m.CompileDuration.Observe(time.Since(start).Seconds())
}

// ObserveProve records the duration of a prove call.
func (m *Metrics) ObserveProve(start time.Time) {
	if m == nil {
		return
	}
	m.ProveDuration.Observe(time.Since(start).Seconds())
}

// ObserveVerify records the duration and outcome of a verify call.
func (m *Metrics) ObserveVerify(start time.Time, verified bool) {
	if m == nil {
		return
	}
	m.VerifyDuration.Observe(time.Since(start).Seconds())
	outcome := "rejected"
	if verified {
		outcome = "verified"
	}
	m.VerifyOutcomes.WithLabelValues(outcome).Inc()
}

// IncrementStageError counts a failed stage call.
func (m *Metrics) IncrementStageError(stage, code string) {
	if m == nil {
		return
	}
	m.StageErrors.WithLabelValues(stage, code).Inc()
}

func (m *Metrics) RequestQueued() {
	if m == nil {
		return
	}
	m.OffloadQueued.Inc()
}

// RequestDequeued removes a request that never reached a worker.
func (m *Metrics) RequestDequeued() {
	if m == nil {
		return
	}
	m.OffloadQueued.Dec()
}

// RequestStarted moves a request from queued to in flight.
func (m *Metrics) RequestStarted() {
	if m == nil {
		return
	}
	m.OffloadQueued.Dec()
	m.OffloadInFlight.Inc()
}

func (m *Metrics) RequestFinished() {
	if m == nil {
		return
	}
	m.OffloadInFlight.Dec()
}

func (m *Metrics) IncrementAbandoned() {
	if m == nil {
		return
	}
	m.OffloadAbandoned.Inc()
}
