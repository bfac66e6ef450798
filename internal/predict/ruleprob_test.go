package predict

import (
	"testing"

	"github.com/fieldforce/dispatchopt/internal/domain"
)

func TestRuleProbability_IdealConditions(t *testing.T) {
	w := DefaultRuleWeights()
	f := domain.Features{DistanceKM: 30, SkillMatchScore: 1, WorkloadRatio: 0.6, Priority: domain.Normal}
	p := RuleProbability(w, f)
	if p <= 0.6 || p > 1.0 {
		t.Errorf("ideal-conditions probability = %v, want in (0.6, 1.0]", p)
	}
}

func TestRuleProbability_ChallengingConditionsLowerThanIdeal(t *testing.T) {
	w := DefaultRuleWeights()
	ideal := RuleProbability(w, domain.Features{DistanceKM: 30, SkillMatchScore: 1, WorkloadRatio: 0.6, Priority: domain.Normal})
	challenging := RuleProbability(w, domain.Features{DistanceKM: 150, SkillMatchScore: 0, WorkloadRatio: 0.9, Priority: domain.Critical})
	if challenging >= ideal {
		t.Errorf("challenging probability %v should be lower than ideal %v", challenging, ideal)
	}
}

func TestRuleProbability_ClampedToUnitRange(t *testing.T) {
	w := DefaultRuleWeights()
	p := RuleProbability(w, domain.Features{DistanceKM: 1000, SkillMatchScore: 0, WorkloadRatio: 5, Priority: domain.Low})
	if p < 0 || p > 1 {
		t.Errorf("probability out of range: %v", p)
	}
}

func TestDistanceFactor_MonotoneDecreasing(t *testing.T) {
	w := DefaultRuleWeights()
	near := distanceFactor(w, 10)
	mid := distanceFactor(w, 100)
	far := distanceFactor(w, 300)
	if !(near > mid && mid > far) {
		t.Errorf("distance factor not monotone decreasing: near=%v mid=%v far=%v", near, mid, far)
	}
}

func TestPriorityFactor_CriticalAboveNormalAboveLow(t *testing.T) {
	critical := priorityFactor(domain.Critical)
	normal := priorityFactor(domain.Normal)
	low := priorityFactor(domain.Low)
	if !(critical > normal && normal > low) {
		t.Errorf("priority ordering violated: critical=%v normal=%v low=%v", critical, normal, low)
	}
}

func TestBlendProbabilities_WeightExtremesMatchInputs(t *testing.T) {
	if got := BlendProbabilities(0.9, 0.3, 1.0); got != 0.3 {
		t.Errorf("ruleWeight=1.0 should return rule probability, got %v", got)
	}
	if got := BlendProbabilities(0.9, 0.3, 0.0); got != 0.9 {
		t.Errorf("ruleWeight=0.0 should return model probability, got %v", got)
	}
}

func TestBlendProbabilities_MatchesWorkedExample(t *testing.T) {
	got := BlendProbabilities(0.85, 0.70, 0.7)
	want := 0.70*0.7 + 0.85*0.3
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("blend = %v, want %v", got, want)
	}
}
