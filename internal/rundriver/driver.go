package rundriver

import (
	"log"
	"sort"

	"github.com/fieldforce/dispatchopt/internal/domain"
	"github.com/fieldforce/dispatchopt/internal/geo"
	"github.com/fieldforce/dispatchopt/internal/infra/reliability"
	"github.com/fieldforce/dispatchopt/internal/policy"
	"github.com/fieldforce/dispatchopt/internal/predict"
	"github.com/fieldforce/dispatchopt/internal/skillcompat"
)

// Driver holds one process's trained predictors and policy, shared across
// every date RunForDate is called for (spec.md §4.10: "predictors are
// trained once per run").
type Driver struct {
	Options Options

	Table       *skillcompat.Table
	Success     *predict.Predictor
	Duration    *predict.DurationPredictor
	Features    *predict.FeatureBuilder
	Reliability *reliability.Tracker
	Policy      *policy.Policy

	// Warnings accumulates non-fatal degradation notices from training
	// (insufficient data, non-monotone history) for inclusion in
	// Diagnostics.
	Warnings []string

	technicianIndex map[string]domain.Technician
}

// New constructs a driver from options, before training.
func New(opts Options) *Driver {
	p := policy.New(opts.SeasonalStrategy, opts.PolicyConfig)
	if opts.SeasonalStrategy == domain.StrategyManual {
		p.SetManualThresholds(opts.ManualThresholds)
	}
	return &Driver{
		Options:     opts,
		Table:       skillcompat.New(),
		Reliability: reliability.New(),
		Policy:      p,
	}
}

// Train fits the skill-compatibility table, the success and duration
// predictors, and the reliability tracker from historical outcomes.
// technicians supplies current coordinates/capacity, used as a stand-in
// for at-the-time values the history rows don't carry. Training failures
// degrade gracefully (spec.md §7): an insufficient-data failure on either
// predictor falls back to the rule-based formula / untrained model
// respectively, logged as a warning, never fatal.
func (d *Driver) Train(history []domain.HistoricalDispatch, technicians []domain.Technician) error {
	d.technicianIndex = make(map[string]domain.Technician, len(technicians))
	for _, t := range technicians {
		d.technicianIndex[t.TechnicianID] = t
	}

	sorted, monotone := sortChronological(history)
	if !monotone {
		d.warn("training history is not strictly chronological per technician; expanding-mean features may be biased")
	}

	d.Table.Learn(sorted)
	d.Features = predict.NewFeatureBuilder(d.Table)
	d.Features.Learn(sorted)
	d.Reliability.Learn(reliabilityOutcomes(sorted))

	successModel := predict.NewLogisticModel()
	successExamples := d.buildSuccessExamples(sorted)
	var hybridForced bool
	if err := successModel.Fit(successExamples, predict.DefaultLogisticTrainConfig()); err != nil {
		d.warn("success model training degraded: " + err.Error() + "; falling back to rule-based probability")
		hybridForced = true
	}
	d.Success = predict.NewPredictor(successModel, d.Reliability)
	d.Success.HybridEnabled = d.Options.EnableHybridScoring || hybridForced
	d.Success.RuleWeight = d.Options.RuleWeight
	if hybridForced {
		d.Success.RuleWeight = 1.0 // no trained signal to blend with; rule formula carries the estimate alone
	}

	durationModel := predict.NewLinearModel()
	durationExamples := d.buildDurationExamples(sorted)
	if _, err := durationModel.FitWithGridSearch(durationExamples); err != nil {
		d.warn("duration model training degraded: " + err.Error() + "; predictions fall back to the floor minimum")
	}
	d.Duration = predict.NewDurationPredictor(durationModel)

	return nil
}

func (d *Driver) warn(msg string) {
	d.Warnings = append(d.Warnings, msg)
	log.Printf("[rundriver] %s", msg)
}

// sortChronological returns history sorted by appointment_start and
// reports whether the input was already in that order per technician
// (spec.md §9's chronological-ordering open question).
func sortChronological(history []domain.HistoricalDispatch) ([]domain.HistoricalDispatch, bool) {
	sorted := append([]domain.HistoricalDispatch(nil), history...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AppointmentStart.Before(sorted[j].AppointmentStart)
	})

	monotone := true
	lastByTech := make(map[string]domain.HistoricalDispatch)
	for _, h := range history {
		if h.AssignedTechnicianID == nil {
			continue
		}
		techID := *h.AssignedTechnicianID
		if prev, ok := lastByTech[techID]; ok && h.AppointmentStart.Before(prev.AppointmentStart) {
			monotone = false
		}
		lastByTech[techID] = h
	}
	return sorted, monotone
}

func reliabilityOutcomes(history []domain.HistoricalDispatch) []reliability.Outcome {
	out := make([]reliability.Outcome, 0, len(history))
	for _, h := range history {
		if h.AssignedTechnicianID == nil {
			continue
		}
		out = append(out, reliability.Outcome{TechnicianID: *h.AssignedTechnicianID, Productive: h.Productive})
	}
	return out
}

// historicalFeatures reconstructs the feature vector for a training row,
// using the technician's primary skill AT THE TIME of the dispatch
// (h.TechnicianPrimarySkillAtTime) rather than its current value — the
// technician's current coordinates and capacity stand in for the
// at-the-time values the retrieval pack has no record of.
func (d *Driver) historicalFeatures(h domain.HistoricalDispatch, techIndex map[string]domain.Technician) (domain.Features, bool) {
	if h.AssignedTechnicianID == nil {
		return domain.Features{}, false
	}
	current, ok := techIndex[*h.AssignedTechnicianID]
	if !ok {
		return domain.Features{}, false
	}

	atTime := domain.Technician{
		TechnicianID:     current.TechnicianID,
		PrimarySkill:     h.TechnicianPrimarySkillAtTime,
		TechLat:          current.TechLat,
		TechLon:          current.TechLon,
		City:             current.City,
		State:            current.State,
		WorkloadCapacity: current.WorkloadCapacity,
	}
	distance := geo.Distance(h.CustomerLat, h.CustomerLon, atTime.TechLat, atTime.TechLon)
	return d.Features.Build(h.Dispatch, atTime, distance, atTime.WorkloadRatioAfter()), true
}

func (d *Driver) buildSuccessExamples(history []domain.HistoricalDispatch) []predict.TrainingExample {
	techIndex := d.technicianIndex
	out := make([]predict.TrainingExample, 0, len(history))
	for _, h := range history {
		f, ok := d.historicalFeatures(h, techIndex)
		if !ok {
			continue
		}
		out = append(out, predict.TrainingExample{Features: f, Outcome: h.Productive})
	}
	return out
}

func (d *Driver) buildDurationExamples(history []domain.HistoricalDispatch) []predict.DurationTrainingExample {
	techIndex := d.technicianIndex
	out := make([]predict.DurationTrainingExample, 0, len(history))
	for _, h := range history {
		if h.ActualDurationMin <= 0 {
			continue
		}
		f, ok := d.historicalFeatures(h, techIndex)
		if !ok {
			continue
		}
		out = append(out, predict.DurationTrainingExample{Features: f, ActualDurationMin: h.ActualDurationMin})
	}
	return out
}
