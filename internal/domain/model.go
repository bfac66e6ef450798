// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import (
	"fmt"
	"time"
)

// ─── Priority ───────────────────────────────────────────────────────────────

// Priority classifies how urgently a dispatch needs a technician.
type Priority int

const (
	Critical Priority = iota
	High
	Normal
	Low
)

// String returns the canonical label used in CSV/DB round-trips.
func (p Priority) String() string {
	switch p {
	case Critical:
		return "Critical"
	case High:
		return "High"
	case Normal:
		return "Normal"
	case Low:
		return "Low"
	default:
		return "Unknown"
	}
}

// ParsePriority maps the external string to a Priority, defaulting to Normal
// for anything unrecognized (ingest is an external collaborator; we never
// fail a run over a bad priority string).
func ParsePriority(s string) Priority {
	switch s {
	case "Critical":
		return Critical
	case "High":
		return High
	case "Low":
		return Low
	default:
		return Normal
	}
}

// ─── Dispatch ───────────────────────────────────────────────────────────────

// Dispatch is an immutable input row: one pending customer appointment.
type Dispatch struct {
	DispatchID           string
	Priority             Priority
	RequiredSkill        string
	ServiceTier          string
	EquipmentInstalled   bool
	FirstTimeFix         bool
	AppointmentStart     time.Time
	AppointmentEnd       time.Time
	CustomerLat          float64
	CustomerLon          float64
	City                 string
	State                string
	ExpectedDurationMin  float64
	AssignedTechnicianID *string // nil when the source has no "initial" assignment
}

// Date returns the scheduling date: date(AppointmentStart).
func (d Dispatch) Date() time.Time {
	y, m, day := d.AppointmentStart.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, d.AppointmentStart.Location())
}

// Validate checks the invariants spec.md §3 requires of a Dispatch.
func (d Dispatch) Validate() error {
	if d.DispatchID == "" {
		return fmt.Errorf("%w: empty dispatch_id", ErrIngestInvalidRow)
	}
	if d.AppointmentStart.After(d.AppointmentEnd) {
		return fmt.Errorf("%w: dispatch %s start %s is after end %s",
			ErrIngestInvalidRow, d.DispatchID, d.AppointmentStart, d.AppointmentEnd)
	}
	return nil
}

// ─── Technician ─────────────────────────────────────────────────────────────

// Technician is a field worker with a primary skill, location, and capacity.
// CurrentAssignments is the only mutable field and is owned exclusively by
// the assign.Store during a run.
type Technician struct {
	TechnicianID       string
	PrimarySkill       string
	TechLat            float64
	TechLon            float64
	City               string
	State              string
	WorkloadCapacity   int
	CurrentAssignments int
}

// WorkloadRatio returns CurrentAssignments / WorkloadCapacity, or 0 if the
// technician somehow has non-positive capacity (never produced by a valid
// ingest, but filtering must not divide by zero).
func (t Technician) WorkloadRatio() float64 {
	if t.WorkloadCapacity <= 0 {
		return 0
	}
	return float64(t.CurrentAssignments) / float64(t.WorkloadCapacity)
}

// WorkloadRatioAfter returns the ratio if one more assignment were added.
func (t Technician) WorkloadRatioAfter() float64 {
	if t.WorkloadCapacity <= 0 {
		return 0
	}
	return float64(t.CurrentAssignments+1) / float64(t.WorkloadCapacity)
}

// ─── Calendar ───────────────────────────────────────────────────────────────

// CalendarEntry describes a technician's availability on one date.
type CalendarEntry struct {
	TechnicianID   string
	Date           time.Time // truncated to day
	Available      bool
	ShiftStart     time.Time
	ShiftEnd       time.Time
	MaxAssignments int
}

// Validate enforces ShiftStart < ShiftEnd (§3 invariant).
func (c CalendarEntry) Validate() error {
	if c.Available && !c.ShiftStart.Before(c.ShiftEnd) {
		return fmt.Errorf("%w: technician %s shift_start %s not before shift_end %s",
			ErrIngestInvalidRow, c.TechnicianID, c.ShiftStart, c.ShiftEnd)
	}
	return nil
}

// ─── Historical dispatch ────────────────────────────────────────────────────

// HistoricalDispatch is a past dispatch with a realized outcome. Used only
// during training; immutable within a run.
type HistoricalDispatch struct {
	Dispatch
	TechnicianPrimarySkillAtTime string
	Productive                   bool
	ActualDurationMin            float64
}

// ─── Assignment ─────────────────────────────────────────────────────────────

// Assignment is the engine's output for one dispatch.
type Assignment struct {
	DispatchID         string
	TechnicianID       string // empty when unassigned
	Start              time.Time
	End                time.Time
	PredictedSuccess   float64
	PredictedDuration  float64
	DistanceKM         float64
	SkillMatchScore    float64
	WorkloadRatioAfter float64
	Score              float64
	Warnings           []string
	FallbackLevel      int
	UnassignedReason   string // set only when TechnicianID == ""
}

// Unassigned reports whether this row represents a no-match.
func (a Assignment) Unassigned() bool { return a.TechnicianID == "" }

// Unassigned-reason vocabulary (spec.md §7).
const (
	ReasonNoCalendar     = "no_calendar"
	ReasonNoCityTech     = "no_city_tech"
	ReasonBelowThreshold = "below_threshold"
	ReasonAllOvercap     = "all_overcap"
	ReasonDistanceFilter = "distance_filter"
)

// ─── Skill compatibility ────────────────────────────────────────────────────

// SkillCompatEntry is one learned (required_skill, tech_skill) pair.
type SkillCompatEntry struct {
	RequiredSkill string
	TechSkill     string
	Score         float64
	SuccessRate   float64
	SampleCount   int
}

// ─── Run context ────────────────────────────────────────────────────────────

// SeasonalStrategy selects how the adaptive policy picks thresholds.
type SeasonalStrategy string

const (
	StrategyIntelligentAuto   SeasonalStrategy = "intelligent_auto"
	StrategyManual            SeasonalStrategy = "manual"
	StrategyTimeBased         SeasonalStrategy = "time_based"
	StrategyDemandBased       SeasonalStrategy = "demand_based"
	StrategyAvailabilityBased SeasonalStrategy = "availability_based"
)

// ScoringMode selects the C6 scoring strategy.
type ScoringMode string

const (
	ScoringPureSuccess       ScoringMode = "pure_success"
	ScoringWeightedComposite ScoringMode = "weighted_composite"
)

// PolicyThresholds are the values the adaptive policy (C7) selects at run
// start and which flow, by value, into every scoring/filtering call.
type PolicyThresholds struct {
	MinSuccessThreshold float64
	MaxCapacityRatio    float64
	Mode                string // human-readable label, e.g. "low_availability"
}

// RunContext is the process-wide immutable bundle for one run.
type RunContext struct {
	RunID                   string
	Now                     time.Time
	Seed                    int64
	Thresholds              PolicyThresholds
	MaxAcceptableDistanceKM float64
	OverlapBufferMin        int
	EnableHybridScoring     bool
	RuleWeight              float64
	UseSkillCascade         bool
	ScoringMode             ScoringMode
	PostOptPasses           int
}

// ─── Utilities ──────────────────────────────────────────────────────────────

// Clip bounds v to [lo, hi].
func Clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
