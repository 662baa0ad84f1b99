package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Controller-level counters, exposed at /metrics.
var (
	PollCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservoir_poll_cycles_total",
		Help: "Control loop cycles evaluated, per reservoir.",
	}, []string{"reservoir"})

	DosesDispensed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservoir_doses_dispensed_total",
		Help: "Timed pump runs dispatched, per pump.",
	}, []string{"pump"})

	DosesSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservoir_doses_suppressed_total",
		Help: "Dose requests withheld by a guard, per reason.",
	}, []string{"reason"})

	FeedingTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservoir_feeding_timeouts_total",
		Help: "Feeding sessions force-cleared by the ceiling, per reservoir.",
	}, []string{"reservoir"})

	ActuationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservoir_actuation_errors_total",
		Help: "Failed actuation commands, per kind (pump, valve).",
	}, []string{"kind"})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
