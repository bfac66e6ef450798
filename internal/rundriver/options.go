// Package rundriver implements C10: it wires the trained predictors and
// the policy/candidate/scoring/assign stack together, runs one calendar
// day's greedy assignment and post-optimization, and produces the
// before/after diagnostics spec.md §4.10 and §6 describe.
package rundriver

import (
	"time"

	"github.com/fieldforce/dispatchopt/internal/domain"
	"github.com/fieldforce/dispatchopt/internal/policy"
)

// Options is the full configuration surface of spec.md §6, plus the
// fixed-clock injection point tests need for determinism.
type Options struct {
	Now func() time.Time // nil means time.Now

	Seed                    int64
	MaxAcceptableDistanceKM float64
	OverlapBufferMin        int
	EnableHybridScoring     bool
	RuleWeight              float64
	UseSkillCascade         bool
	PostOptPasses           int
	ScoringMode             domain.ScoringMode
	SeasonalStrategy        domain.SeasonalStrategy
	ManualThresholds        domain.PolicyThresholds // used only when SeasonalStrategy == StrategyManual
	PolicyConfig            policy.Config
}

// DefaultOptions returns the reference configuration of spec.md §6/§4.7.
func DefaultOptions() Options {
	return Options{
		Seed:                    1,
		MaxAcceptableDistanceKM: 200,
		OverlapBufferMin:        30,
		EnableHybridScoring:     false,
		RuleWeight:              0.7,
		UseSkillCascade:         false,
		PostOptPasses:           3,
		ScoringMode:             domain.ScoringPureSuccess,
		SeasonalStrategy:        domain.StrategyIntelligentAuto,
		PolicyConfig:            policy.DefaultConfig(),
	}
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}
