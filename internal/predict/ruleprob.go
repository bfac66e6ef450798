// Package predict implements C3 (success prediction) and C4 (duration
// prediction): the engine's two scoring regressions plus the rule-based
// fallback they blend with.
package predict

import "github.com/fieldforce/dispatchopt/internal/domain"

// RuleWeights are the tunable multiplicative factors behind
// RuleProbability. Defaults mirror the original business-rules constants.
type RuleWeights struct {
	MaxDistanceKM        float64
	IdealDistanceKM       float64
	MaxWorkloadRatio      float64
	IdealWorkloadRatio    float64
	SkillMatchBonus       float64
	SkillMismatchPenalty  float64
}

// DefaultRuleWeights returns the out-of-the-box business-rule constants.
func DefaultRuleWeights() RuleWeights {
	return RuleWeights{
		MaxDistanceKM:        250,
		IdealDistanceKM:      50,
		MaxWorkloadRatio:     1.2,
		IdealWorkloadRatio:   0.8,
		SkillMatchBonus:      0.15,
		SkillMismatchPenalty: 0.25,
	}
}

// RuleProbability computes a non-learned, explainable success estimate by
// multiplying a base probability against independent distance, skill,
// workload, and priority factors. It stands in for the trained model when
// success-model training fails (the run driver then forces hybrid scoring
// with rule weight 1.0), and is the blend partner for the hybrid scoring
// mode (spec §4). No confidence check on the model's output brings it in.
func RuleProbability(w RuleWeights, f domain.Features) float64 {
	const base = 0.70
	p := base *
		distanceFactor(w, f.DistanceKM) *
		skillFactor(w, f.SkillMatchScore) *
		workloadFactor(w, f.WorkloadRatio) *
		priorityFactor(f.Priority)
	return domain.Clip(p, 0, 1)
}

// distanceFactor rewards short trips and penalizes long ones, capping out
// at a flat 0.5 multiplier once distance clears the maximum.
func distanceFactor(w RuleWeights, distanceKM float64) float64 {
	switch {
	case distanceKM <= w.IdealDistanceKM:
		if w.IdealDistanceKM <= 0 {
			return 1.0
		}
		return 1.0 + 0.2*(1-distanceKM/w.IdealDistanceKM)
	case distanceKM <= w.MaxDistanceKM:
		maxExcess := w.MaxDistanceKM - w.IdealDistanceKM
		if maxExcess <= 0 {
			return 0.6
		}
		excess := distanceKM - w.IdealDistanceKM
		penalty := 0.4 * (excess / maxExcess)
		return 1.0 - penalty
	default:
		return 0.5
	}
}

// skillFactor treats skillMatch as graded rather than boolean: a score of
// 1.0 gets the full bonus, a score of 0 gets the full mismatch penalty, and
// intermediate skillcompat scores interpolate between the two.
func skillFactor(w RuleWeights, skillMatchScore float64) float64 {
	skillMatchScore = domain.Clip(skillMatchScore, 0, 1)
	bonus := w.SkillMatchBonus * skillMatchScore
	penalty := w.SkillMismatchPenalty * (1 - skillMatchScore)
	return 1.0 + bonus - penalty
}

// workloadFactor penalizes pushing a technician past their ideal load, with
// a steep floor once they cross the maximum.
func workloadFactor(w RuleWeights, workloadRatio float64) float64 {
	switch {
	case workloadRatio <= w.IdealWorkloadRatio:
		return 1.0
	case workloadRatio <= w.MaxWorkloadRatio:
		maxExcess := w.MaxWorkloadRatio - w.IdealWorkloadRatio
		if maxExcess <= 0 {
			return 0.85
		}
		excess := workloadRatio - w.IdealWorkloadRatio
		penalty := 0.15 * (excess / maxExcess)
		return 1.0 - penalty
	default:
		return 0.7
	}
}

func priorityFactor(p domain.Priority) float64 {
	switch p {
	case domain.Critical:
		return 1.1
	case domain.High:
		return 1.05
	case domain.Low:
		return 0.95
	default:
		return 1.0
	}
}

// BlendProbabilities combines a trained model's estimate with the
// rule-based estimate. ruleWeight is the share given to the rule-based
// estimate; the model gets the remainder.
func BlendProbabilities(modelProb, ruleProb, ruleWeight float64) float64 {
	ruleWeight = domain.Clip(ruleWeight, 0, 1)
	modelWeight := 1.0 - ruleWeight
	return domain.Clip(ruleProb*ruleWeight+modelProb*modelWeight, 0, 1)
}
