// Package policy implements C7: the adaptive policy that picks a run's
// acceptance thresholds (MinSuccessThreshold, MaxCapacityRatio) before
// assignment begins.
//
// Three independent signals are scored (demand pressure, technician
// availability, time of day); under intelligent_auto the highest-scoring
// signal above a "worth reacting to" bar wins and its preset thresholds are
// applied: read a signal, pick a mode, apply a preset. The single-factor
// strategies apply their one factor's preset directly. The scoring-and-preset-table
// mechanism itself is this domain's own decision procedure, not a generic
// forecaster.
package policy

import (
	"sort"
	"time"

	"github.com/fieldforce/dispatchopt/internal/domain"
)

// Config tunes the factor thresholds and the peak hours. The "peak" hours
// carry business meaning specific to the operation deploying this engine,
// so they are configuration, not constants. The morning/afternoon/evening
// hour ranges are fixed in timeFactor, and there is no month table.
type Config struct {
	DemandBaseline float64 // expected dispatch count this signal is compared against

	HighAvailabilityCount int // tech count above which availability is abundant
	LowAvailabilityCount  int // tech count below which availability is scarce (emergency)

	PeakHours []int // hour-of-day values treated as "peak" for the time factor

	// PriorityOrder breaks ties when multiple factors score equally; default
	// demand > availability > time per spec.
	PriorityOrder []string
}

// DefaultConfig returns the reference factor bars, peak hours and
// tie-break order. The preset thresholds themselves are fixed in presets.
func DefaultConfig() Config {
	return Config{
		DemandBaseline:        10,
		HighAvailabilityCount: 50,
		LowAvailabilityCount:  20,
		PeakHours:             []int{8, 9, 16, 17, 18},
		PriorityOrder:         []string{"demand", "availability", "time"},
	}
}

// Inputs bundles the signals the policy reads at decision time.
type Inputs struct {
	Now                   time.Time
	PendingDispatchCount   int
	AvailableTechnicianCount int // technicians with an available=1 calendar entry today
}

// Policy selects run thresholds under the configured strategy.
type Policy struct {
	cfg      Config
	strategy domain.SeasonalStrategy
	manual   domain.PolicyThresholds
}

// New returns a policy for the given strategy.
func New(strategy domain.SeasonalStrategy, cfg Config) *Policy {
	return &Policy{cfg: cfg, strategy: strategy}
}

// SetManualThresholds fixes the thresholds returned under
// domain.StrategyManual.
func (p *Policy) SetManualThresholds(t domain.PolicyThresholds) {
	p.manual = t
}

var presets = map[string]domain.PolicyThresholds{
	"high_availability": {MinSuccessThreshold: 0.35, MaxCapacityRatio: 1.00, Mode: "high_availability"},
	"low_availability":  {MinSuccessThreshold: 0.20, MaxCapacityRatio: 1.20, Mode: "low_availability"},
	"high_demand":       {MinSuccessThreshold: 0.25, MaxCapacityRatio: 1.20, Mode: "high_demand"},
	"normal_demand":     {MinSuccessThreshold: 0.27, MaxCapacityRatio: 1.12, Mode: "normal_demand"},
	"low_demand":        {MinSuccessThreshold: 0.30, MaxCapacityRatio: 1.10, Mode: "low_demand"},
	"peak":              {MinSuccessThreshold: 0.25, MaxCapacityRatio: 1.15, Mode: "peak"},
	"morning":           {MinSuccessThreshold: 0.30, MaxCapacityRatio: 1.10, Mode: "morning"},
	"afternoon":         {MinSuccessThreshold: 0.27, MaxCapacityRatio: 1.12, Mode: "afternoon"},
	"evening":           {MinSuccessThreshold: 0.25, MaxCapacityRatio: 1.15, Mode: "evening"},
}

// factorScore is one signal's vote: how strongly it thinks the run should
// deviate from normal, and which preset it would apply if it wins.
type factorScore struct {
	name  string
	score float64
	mode  string
}

// demandFactor scores the size of the pending queue against the
// configured baseline.
func (p *Policy) demandFactor(in Inputs) factorScore {
	baseline := p.cfg.DemandBaseline
	if baseline <= 0 {
		baseline = 10
	}
	ratio := float64(in.PendingDispatchCount) / baseline
	switch {
	case ratio > 1.5:
		return factorScore{"demand", 10, "high_demand"}
	case ratio < 0.8:
		return factorScore{"demand", 8, "low_demand"}
	default:
		return factorScore{"demand", 2, "normal_demand"}
	}
}

// availabilityFactor scores staffing levels: plenty of technicians means we
// can afford to be selective; very few means we relax thresholds so more
// dispatches get served at all (an emergency override).
func (p *Policy) availabilityFactor(in Inputs) factorScore {
	count := in.AvailableTechnicianCount
	switch {
	case count > p.cfg.HighAvailabilityCount:
		return factorScore{"availability", 9, "high_availability"}
	case count < p.cfg.LowAvailabilityCount:
		return factorScore{"availability", 10, "low_availability"}
	default:
		return factorScore{"availability", 2, "normal_demand"}
	}
}

// timeFactor scores the hour-of-day bucket the run is starting in.
func (p *Policy) timeFactor(in Inputs) factorScore {
	if in.Now.IsZero() {
		return factorScore{"time", 0, "normal_demand"}
	}
	hour := in.Now.Hour()
	for _, peak := range p.cfg.PeakHours {
		if hour == peak {
			return factorScore{"time", 5, "peak"}
		}
	}
	switch {
	case hour >= 6 && hour <= 11:
		return factorScore{"time", 4, "morning"}
	case hour >= 12 && hour <= 17:
		return factorScore{"time", 4, "afternoon"}
	case hour >= 18 && hour <= 21:
		return factorScore{"time", 4, "evening"}
	default:
		return factorScore{"time", 0, "normal_demand"}
	}
}

// priorityRank returns the tie-break order for a factor name; lower wins.
func (p *Policy) priorityRank(name string) int {
	order := p.cfg.PriorityOrder
	if len(order) == 0 {
		order = DefaultConfig().PriorityOrder
	}
	for i, n := range order {
		if n == name {
			return i
		}
	}
	return len(order)
}

// Thresholds computes this run's acceptance thresholds under the
// configured strategy.
func (p *Policy) Thresholds(in Inputs) domain.PolicyThresholds {
	if p.strategy == domain.StrategyManual {
		if p.manual.Mode == "" {
			p.manual.Mode = "manual"
		}
		return p.manual
	}

	var candidates []factorScore
	switch p.strategy {
	case domain.StrategyDemandBased:
		candidates = []factorScore{p.demandFactor(in)}
	case domain.StrategyAvailabilityBased:
		candidates = []factorScore{p.availabilityFactor(in)}
	case domain.StrategyTimeBased:
		candidates = []factorScore{p.timeFactor(in)}
	default: // StrategyIntelligentAuto and unset
		candidates = []factorScore{p.demandFactor(in), p.availabilityFactor(in), p.timeFactor(in)}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return p.priorityRank(candidates[i].name) < p.priorityRank(candidates[j].name)
	})

	winner := candidates[0]
	if len(candidates) == 1 {
		// Single-factor strategy: its factor's preset applies directly.
		if preset, ok := presets[winner.mode]; ok {
			return preset
		}
		return presets["normal_demand"]
	}
	if winner.score <= 5 {
		return presets["normal_demand"]
	}
	preset, ok := presets[winner.mode]
	if !ok {
		return presets["normal_demand"]
	}
	return preset
}
