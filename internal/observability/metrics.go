package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// Completed poll cycles by result ("success"/"failure"). Watch for: the
	// failure rate climbing toward the retry budget.
	CyclesTotal *prometheus.CounterVec

	// Classified cycle failures by stage ("fetch"/"write"). Watch for: which
	// leg of the cycle is unhealthy and why.
	CycleFailuresTotal *prometheus.CounterVec

	// Current run of consecutive failed cycles. Reaching max retry kills the
	// process, so alert well below it.
	FailureStreak prometheus.Gauge

	// Unix time of the last fully successful cycle.
	LastSuccessTimestamp prometheus.Gauge

	// Provider fetch latency per successful request.
	FetchDuration prometheus.Histogram

	// Storage write latency per successful request.
	WriteDuration prometheus.Histogram
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pollution_cycles_total",
			Help: "Completed poll cycles by result",
		},
		[]string{"result"},
	)
	CycleFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pollution_cycle_failures_total",
			Help: "Classified cycle failures by stage",
		},
		[]string{"stage", "class"},
	)
	FailureStreak = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pollution_failure_streak",
			Help: "Current run of consecutive failed cycles",
		},
	)
	LastSuccessTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pollution_last_success_timestamp_seconds",
			Help: "Unix time of the last fully successful cycle",
		},
	)
	FetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pollution_fetch_duration_seconds",
			Help:    "Provider fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	WriteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pollution_write_duration_seconds",
			Help:    "Storage write latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	registry.MustRegister(
		CyclesTotal,
		CycleFailuresTotal,
		FailureStreak,
		LastSuccessTimestamp,
		FetchDuration,
		WriteDuration,
	)
}

// MetricsHandler serves the process metrics; mounted on the health server.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
