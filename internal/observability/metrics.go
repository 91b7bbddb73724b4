package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	phaseTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "igniter",
			Subsystem: "activation",
			Name:      "phase_transitions_total",
			Help:      "Applied phase transitions.",
		},
		[]string{"command", "from", "to"},
	)
	droppedDispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "igniter",
			Subsystem: "activation",
			Name:      "dropped_dispatches_total",
			Help:      "Events dropped by the single-flight dispatch guard.",
		},
		[]string{"event"},
	)
	consolidations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "igniter",
			Subsystem: "attribution",
			Name:      "consolidations_total",
			Help:      "Merged attribution broadcasts.",
		},
	)
	resolutionRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "igniter",
			Subsystem: "resolver",
			Name:      "requests_total",
			Help:      "Endpoint resolution attempts.",
		},
		[]string{"success"},
	)
	resolutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "igniter",
			Subsystem: "resolver",
			Name:      "request_duration_seconds",
			Help:      "Endpoint resolution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"success"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "igniter",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "igniter",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			phaseTransitions,
			droppedDispatches,
			consolidations,
			resolutionRequests,
			resolutionDuration,
			httpRequests,
			httpDuration,
		)
	})
}

func RecordTransition(command, from, to string) {
	RegisterMetrics()
	phaseTransitions.WithLabelValues(command, from, to).Inc()
}

func RecordDroppedDispatch(event string) {
	RegisterMetrics()
	droppedDispatches.WithLabelValues(event).Inc()
}

func RecordConsolidation() {
	RegisterMetrics()
	consolidations.Inc()
}

func RecordResolution(success bool, duration time.Duration) {
	RegisterMetrics()
	label := strconv.FormatBool(success)
	resolutionRequests.WithLabelValues(label).Inc()
	resolutionDuration.WithLabelValues(label).Observe(duration.Seconds())
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
