// Package observability exposes the run driver's outcomes as Prometheus
// metrics using the standard promauto/promhttp pairing, generalized from
// service-request counters to dispatch assignment outcomes.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fieldforce/dispatchopt/internal/rundriver"
)

// Recorder holds the process's metric vectors. Construct one per process
// and call Observe after every RunForDate call.
type Recorder struct {
	runsTotal          prometheus.Counter
	runsPartialTotal   prometheus.Counter
	assignmentRate     prometheus.Gauge
	meanSuccess        prometheus.Gauge
	meanDistanceKM     prometheus.Gauge
	distanceSavedKM    prometheus.Gauge
	fallbackLevelTotal *prometheus.CounterVec
	policyMode         *prometheus.GaugeVec
}

// New registers the recorder's metrics against reg. Pass
// prometheus.DefaultRegisterer for the global registry.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		runsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "dispatchopt_runs_total",
			Help: "Total number of RunForDate calls completed.",
		}),
		runsPartialTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "dispatchopt_runs_partial_total",
			Help: "Total number of runs that ended partial (aborted mid-run).",
		}),
		assignmentRate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dispatchopt_assignment_rate",
			Help: "Fraction of dispatches assigned in the most recent run.",
		}),
		meanSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dispatchopt_mean_predicted_success",
			Help: "Mean predicted success probability across assigned dispatches, most recent run.",
		}),
		meanDistanceKM: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dispatchopt_mean_distance_km",
			Help: "Mean technician travel distance across assigned dispatches, most recent run.",
		}),
		distanceSavedKM: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dispatchopt_distance_saved_km",
			Help: "Mean distance improvement of optimized over baseline assignments, most recent run.",
		}),
		fallbackLevelTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatchopt_fallback_level_total",
			Help: "Count of assignments made at each fallback ladder level (level=-1 means unassigned).",
		}, []string{"level"}),
		policyMode: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dispatchopt_policy_mode",
			Help: "1 for the adaptive policy mode chosen in the most recent run, 0 otherwise.",
		}, []string{"mode"}),
	}
}

// Observe records one RunForDate result's diagnostics.
func (r *Recorder) Observe(result rundriver.Result) {
	r.runsTotal.Inc()
	if result.Partial {
		r.runsPartialTotal.Inc()
	}
	r.assignmentRate.Set(result.Diagnostics.Optimized.AssignmentRate)
	r.meanSuccess.Set(result.Diagnostics.Optimized.MeanSuccess)
	r.meanDistanceKM.Set(result.Diagnostics.Optimized.MeanDistanceKM)
	r.distanceSavedKM.Set(result.Diagnostics.DistanceSavedKM)

	for level, count := range result.Diagnostics.FallbackLevelHistogram {
		r.fallbackLevelTotal.WithLabelValues(levelLabel(level)).Add(float64(count))
	}
	r.policyMode.Reset()
	if result.Diagnostics.PolicyMode != "" {
		r.policyMode.WithLabelValues(result.Diagnostics.PolicyMode).Set(1)
	}
}

func levelLabel(level int) string {
	if level == -1 {
		return "unassigned"
	}
	switch level {
	case 0:
		return "0"
	case 1:
		return "1"
	case 2:
		return "2"
	case 3:
		return "3"
	case 4:
		return "4"
	case 5:
		return "5"
	case 6:
		return "6"
	default:
		return "unknown"
	}
}
