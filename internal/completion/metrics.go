package completion

import "github.com/prometheus/client_golang/prometheus"

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llamachat",
			Subsystem: "completion",
			Name:      "requests_total",
			Help:      "Completion calls by delivery mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "llamachat",
			Subsystem: "completion",
			Name:      "duration_seconds",
			Help:      "Duration of completion calls in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"mode"},
	)

	fragmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llamachat",
			Subsystem: "completion",
			Name:      "fragments_total",
			Help:      "Fragments received from the engine",
		},
		[]string{"mode"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration, fragmentsTotal)
}
