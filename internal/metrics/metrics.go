package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// Outbound HTTP metrics
	providerRequestsTotal    *prometheus.CounterVec
	providerRequestDuration  *prometheus.HistogramVec
	providerRequestsInFlight prometheus.Gauge

	// Allocation metrics
	solvesTotal       *prometheus.CounterVec
	solveDuration     *prometheus.HistogramVec
	frontierRequested prometheus.Gauge
	frontierSolved    prometheus.Gauge
	runsTotal         *prometheus.CounterVec
	runDuration       prometheus.Histogram
	universeAssets    prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		providerRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "allocate_provider_requests_total",
				Help: "Total number of market data requests",
			},
			[]string{"host", "status"},
		),

		providerRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "allocate_provider_request_duration_seconds",
				Help:    "Market data request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"host"},
		),

		providerRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "allocate_provider_requests_in_flight",
				Help: "Number of market data requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.providerRequestsTotal)
	reg.MustRegister(r.providerRequestDuration)
	reg.MustRegister(r.providerRequestsInFlight)

	// Allocation metrics
	r.solvesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocate_solves_total",
			Help: "Total number of optimizer solves by kind and final status",
		},
		[]string{"kind", "status"},
	)
	r.solveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "allocate_solve_duration_seconds",
			Help:    "Optimizer solve duration in seconds",
			Buckets: []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"kind"},
	)
	r.frontierRequested = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "allocate_frontier_points_requested",
			Help: "Number of target returns requested for the last frontier",
		},
	)
	r.frontierSolved = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "allocate_frontier_points_solved",
			Help: "Number of frontier points solved in the last frontier",
		},
	)
	r.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocate_runs_total",
			Help: "Total number of allocation runs",
		},
		[]string{"model", "status"},
	)
	r.runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "allocate_run_duration_seconds",
			Help:    "Allocation run duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
	)
	r.universeAssets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "allocate_universe_assets",
			Help: "Number of assets with usable price data in the last run",
		},
	)

	reg.MustRegister(r.solvesTotal)
	reg.MustRegister(r.solveDuration)
	reg.MustRegister(r.frontierRequested)
	reg.MustRegister(r.frontierSolved)
	reg.MustRegister(r.runsTotal)
	reg.MustRegister(r.runDuration)
	reg.MustRegister(r.universeAssets)

	return r
}

// RecordProviderRequest records metrics for an outbound data request.
func (r *Registry) RecordProviderRequest(host string, status int, duration float64) {
	r.providerRequestsTotal.WithLabelValues(host, statusToString(status)).Inc()
	r.providerRequestDuration.WithLabelValues(host).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.providerRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.providerRequestsInFlight.Dec()
}

// ObserveSolve records one optimizer solve.
func (r *Registry) ObserveSolve(kind, status string, seconds float64) {
	r.solvesTotal.WithLabelValues(kind, status).Inc()
	r.solveDuration.WithLabelValues(kind).Observe(seconds)
}

// ObserveFrontier records how many frontier targets produced a point.
func (r *Registry) ObserveFrontier(requested, solved int) {
	r.frontierRequested.Set(float64(requested))
	r.frontierSolved.Set(float64(solved))
}

// RecordRun records a pipeline run completion.
func (r *Registry) RecordRun(model, status string, duration float64) {
	r.runsTotal.WithLabelValues(model, status).Inc()
	r.runDuration.Observe(duration)
}

// SetUniverseSize sets the number of assets that made it into the run.
func (r *Registry) SetUniverseSize(size int) {
	r.universeAssets.Set(float64(size))
}

// WriteTextfile writes every metric in text exposition format to path,
// atomically, for the node exporter textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.Registry)
}

func statusToString(status int) string {
	switch {
	case status == 0:
		return "error"
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
