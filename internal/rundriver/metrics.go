package rundriver

import (
	"github.com/fieldforce/dispatchopt/internal/domain"
	"github.com/fieldforce/dispatchopt/internal/scoring"
)

// Metrics summarizes one assignment table's aggregate quality, computed
// over both the pre-existing baseline and the engine's output so
// RunForDate can report spec.md §4.10's before/after comparison.
type Metrics struct {
	Total               int
	Assigned            int
	AssignmentRate       float64
	MeanSuccess          float64
	MeanDistanceKM       float64
	MeanWorkloadRatio    float64
	MeanOverrunMin       float64
	MeanDispatchGrade    float64
}

// Diagnostics bundles the initial-vs-optimized comparison and run-level
// aggregates spec.md §6's diagnostic report needs.
type Diagnostics struct {
	Initial                Metrics
	Optimized              Metrics
	DistanceSavedKM        float64 // Initial.MeanDistanceKM - Optimized.MeanDistanceKM, assigned rows only
	FallbackLevelHistogram map[int]int // key -1 counts unassigned dispatches
	WorkloadDistribution   map[string]float64 // technician_id -> final workload_ratio
	PolicyMode             string
	Warnings               []string
}

func computeMetrics(assignments []domain.Assignment, dispatchByID map[string]domain.Dispatch) Metrics {
	m := Metrics{Total: len(assignments)}
	for _, a := range assignments {
		if a.Unassigned() {
			continue
		}
		m.Assigned++
		m.MeanSuccess += a.PredictedSuccess
		m.MeanDistanceKM += a.DistanceKM
		m.MeanWorkloadRatio += a.WorkloadRatioAfter
		overrun := a.PredictedDuration - a.End.Sub(a.Start).Minutes()
		m.MeanOverrunMin += overrun
		firstTimeFix := dispatchByID[a.DispatchID].FirstTimeFix
		m.MeanDispatchGrade += scoring.DispatchGrade(a.DistanceKM, overrun, a.PredictedSuccess, firstTimeFix)
	}
	if m.Total > 0 {
		m.AssignmentRate = float64(m.Assigned) / float64(m.Total)
	}
	if m.Assigned > 0 {
		n := float64(m.Assigned)
		m.MeanSuccess /= n
		m.MeanDistanceKM /= n
		m.MeanWorkloadRatio /= n
		m.MeanOverrunMin /= n
		m.MeanDispatchGrade /= n
	}
	return m
}

func fallbackHistogram(assignments []domain.Assignment) map[int]int {
	hist := make(map[int]int)
	for _, a := range assignments {
		if a.Unassigned() {
			hist[-1]++
			continue
		}
		hist[a.FallbackLevel]++
	}
	return hist
}

func workloadDistribution(technicians []domain.Technician) map[string]float64 {
	out := make(map[string]float64, len(technicians))
	for _, t := range technicians {
		out[t.TechnicianID] = t.WorkloadRatio()
	}
	return out
}
