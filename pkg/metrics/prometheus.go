package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	RunsTotal       *prometheus.CounterVec
	SourceRequests  *prometheus.CounterVec
	FlightsFetched  prometheus.Counter
	FlightsAccepted prometheus.Counter
	FlightsRejected prometheus.Counter
	RunDuration     prometheus.Histogram
	ErrorsCount     *prometheus.CounterVec
}

// NewMetrics creates new prometheus metrics registered on reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregation_runs_total",
			Help:      "The total number of aggregation runs by outcome",
		}, []string{"outcome"}),
		SourceRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "The total number of flight source requests by outcome",
		}, []string{"outcome"}),
		FlightsFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flights_fetched_total",
			Help:      "The total number of raw flight records returned by the source",
		}),
		FlightsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flights_accepted_total",
			Help:      "The total number of flight records that passed the timezone filter",
		}),
		FlightsRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flights_rejected_total",
			Help:      "The total number of flight records rejected by the timezone filter",
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_run_duration_seconds",
			Help:      "Time taken by one aggregation run",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		ErrorsCount: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors",
		}, []string{"operation"}),
	}
}
