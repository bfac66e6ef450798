package domain

import "context"

// ─── Prediction capability ──────────────────────────────────────────────────
// The engine depends on these capabilities, never on a concrete model type.
// Implementations may be a trained regressor/classifier, a rule-based
// fallback, or (in tests) a canned stub.

// Features bundles the numeric + categorical inputs for one (dispatch,
// technician) candidate pair.
type Features struct {
	TechnicianID    string
	DistanceKM      float64
	SkillMatchScore float64
	WorkloadRatio   float64
	HourOfDay       int
	DayOfWeek       int
	IsWeekend       bool
	FirstTimeFix    bool
	ServiceTier     string
	EquipmentInstalled bool
	Priority        Priority

	// Derived/interaction features consumed by the duration predictor.
	DistanceTimesEquipment    float64
	DistanceTimesFirstTimeFix float64
	TechExpandingMeanDuration float64
	CityJobFrequency          float64
}

// SuccessPredictor estimates P(productive) for a candidate pair.
type SuccessPredictor interface {
	PredictSuccess(f Features) (probability float64)
}

// DurationPredictor estimates job duration in minutes for a candidate pair.
type DurationPredictor interface {
	PredictDuration(f Features) (minutes float64)
}

// SkillScorer estimates skill-compatibility for a (required, tech) pair.
type SkillScorer interface {
	Score(requiredSkill, techSkill string) float64
}

// ─── Ingest capability (external collaborators — interfaced only) ──────────

// DispatchSource supplies pending dispatches for a run. CSV/DB ingestion is
// explicitly out of scope; this is the boundary the engine consumes.
type DispatchSource interface {
	Dispatches(ctx context.Context) ([]Dispatch, error)
}

// TechnicianSource supplies the technician pool.
type TechnicianSource interface {
	Technicians(ctx context.Context) ([]Technician, error)
}

// CalendarSource supplies technician availability.
type CalendarSource interface {
	CalendarEntries(ctx context.Context) ([]CalendarEntry, error)
}

// HistorySource supplies historical outcomes for training.
type HistorySource interface {
	History(ctx context.Context) ([]HistoricalDispatch, error)
}

// ─── Export capability (external collaborators — interfaced only) ──────────

// AssignmentExporter hands the finished assignment table to an external
// sink (CSV writer, DB writer, dashboard feed — none implemented here).
type AssignmentExporter interface {
	ExportAssignments(ctx context.Context, assignments []Assignment) error
	ExportWarnings(ctx context.Context, assignments []Assignment) error
}
