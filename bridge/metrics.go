package bridge

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the bridge's Prometheus instruments. Metrics are optional;
// pass one to WithMetrics to enable collection.
type Metrics struct {
	Requests          prometheus.Counter
	Timeouts          prometheus.Counter
	DecodeFailures    prometheus.Counter
	Restarts          prometheus.Counter
	UnsolicitedFrames prometheus.Counter
	InFlight          prometheus.Gauge
}

// NewMetrics builds the bridge instruments and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "procbridge_requests_total",
			Help: "Requests written to the worker.",
		}),
		Timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "procbridge_request_timeouts_total",
			Help: "Requests that timed out before a response arrived.",
		}),
		DecodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "procbridge_decode_failures_total",
			Help: "Response frames that matched no supported encoding.",
		}),
		Restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "procbridge_worker_restarts_total",
			Help: "Worker restarts after unplanned exits.",
		}),
		UnsolicitedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "procbridge_unsolicited_frames_total",
			Help: "Response frames that arrived with no request pending.",
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "procbridge_requests_in_flight",
			Help: "Requests currently awaiting a response.",
		}),
	}
	reg.MustRegister(m.Requests, m.Timeouts, m.DecodeFailures, m.Restarts, m.UnsolicitedFrames, m.InFlight)
	return m
}
