// Package scoring implements C6: turning a scored candidate's predicted
// success, distance, workload, and overrun into the single number the
// greedy loop and post-optimizer rank candidates by.
package scoring

import (
	"math"

	"github.com/fieldforce/dispatchopt/internal/domain"
)

// Inputs bundles the per-candidate figures scoring needs. Callers pass the
// raw distance in km and the raw workload ratio; the weighted-composite
// mode normalizes distance against MaxDistanceKM (the run's ceiling, not
// the candidate set's range) and uses the workload ratio as is.
// Pure-success mode ignores them entirely.
type Inputs struct {
	Success          float64 // C3 output, already skill/confidence adjusted
	DistanceKM       float64
	MaxDistanceKM    float64 // the run's configured ceiling, for normalization
	WorkloadRatioAfter float64
	PredictedDuration  float64
	AppointmentMinutes float64 // appointment_end - appointment_start, in minutes
	MaxOvernMin        float64 // normalization ceiling for overrun
}

// Score computes the candidate's scalar score under the run's configured
// mode.
func Score(mode domain.ScoringMode, in Inputs) float64 {
	switch mode {
	case domain.ScoringWeightedComposite:
		return weightedComposite(in)
	default: // domain.ScoringPureSuccess and any unset value
		return in.Success
	}
}

// weightedComposite implements spec.md §4.6's weighted-composite formula:
//
//	score = 0.50*success + 0.35*workload_component + 0.10*distance_component + 0.05*overrun_component
func weightedComposite(in Inputs) float64 {
	return 0.50*in.Success +
		0.35*workloadComponent(in.WorkloadRatioAfter) +
		0.10*distanceComponent(in.DistanceKM, in.MaxDistanceKM) +
		0.05*overrunComponent(overrunMinutes(in), in.MaxOvernMin)
}

// workloadComponent is 1 at or below 80% load, decays linearly to 0 at
// 100%, and drops to a strong reject signal above 100%.
func workloadComponent(ratio float64) float64 {
	switch {
	case ratio <= 0.80:
		return 1.0
	case ratio <= 1.00:
		// 5 - 5*ratio is (1.00-ratio)/0.20; the float64 conversion rounds
		// the product first, so 0.90 and 1.00 land exactly on 0.5 and 0.
		return 5 - float64(5*ratio)
	default:
		return -50
	}
}

// distanceComponent rewards shorter trips relative to the run's distance
// ceiling.
func distanceComponent(distanceKM, maxDistanceKM float64) float64 {
	if maxDistanceKM <= 0 {
		return 0
	}
	return 1 - distanceKM/maxDistanceKM
}

// overrunMinutes is how far the predicted duration exceeds the
// appointment's scheduled window.
func overrunMinutes(in Inputs) float64 {
	return in.PredictedDuration - in.AppointmentMinutes
}

// overrunComponent is 1 when the job is not predicted to run over, and
// decays toward 0 as overrun approaches the configured ceiling.
func overrunComponent(overrunMin, maxOverrunMin float64) float64 {
	if overrunMin <= 0 {
		return 1.0
	}
	if maxOverrunMin <= 0 {
		return 0
	}
	return math.Max(0, 1-overrunMin/maxOverrunMin)
}

// DispatchGrade computes the 0-100 diagnostic grade of spec.md §4.6.
// Emitted for reporting only — never used in candidate selection.
func DispatchGrade(distanceKM float64, overrunMin float64, success float64, firstTimeFix bool) float64 {
	distanceScore := 30 * math.Exp(-0.02*distanceKM)
	durationScore := durationGradeComponent(overrunMin)
	productiveScore := 25 * success

	firstTimeFixScore := 0.0
	if firstTimeFix {
		firstTimeFixScore = 15 * success
	}

	grade := distanceScore + durationScore + productiveScore + firstTimeFixScore
	return domain.Clip(grade, 0, 100)
}

// durationGradeComponent rewards early completion (capped bonus of +6) and
// penalizes lateness by one point per minute for the first 30 minutes,
// then by three points per minute beyond that.
func durationGradeComponent(overrunMin float64) float64 {
	const base = 30.0
	switch {
	case overrunMin <= 0:
		early := -overrunMin // positive when the job finishes early
		bonus := early * 0.2
		if bonus > 6 {
			bonus = 6
		}
		return base + bonus
	case overrunMin <= 30:
		return base - overrunMin
	default:
		penalty := 30.0 + (overrunMin-30)*(90.0/30.0)
		return base - penalty
	}
}
