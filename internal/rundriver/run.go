package rundriver

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fieldforce/dispatchopt/internal/app/fanout"
	"github.com/fieldforce/dispatchopt/internal/assign"
	"github.com/fieldforce/dispatchopt/internal/domain"
	"github.com/fieldforce/dispatchopt/internal/geo"
	"github.com/fieldforce/dispatchopt/internal/infra/cityshard"
	"github.com/fieldforce/dispatchopt/internal/policy"
	"github.com/fieldforce/dispatchopt/internal/scoring"
)

// Result is one date's full run output.
type Result struct {
	RunID       string
	Date        time.Time
	Assignments []domain.Assignment
	Diagnostics Diagnostics
	Partial     bool
}

// RunForDate assigns one calendar day's dispatches, using a Driver already
// trained by Train. Each day's calendar is independent (spec.md's
// cross-day-optimization non-goal) — callers partition dispatches by
// domain.Dispatch.Date() and call this once per date.
func (d *Driver) RunForDate(date time.Time, dispatches []domain.Dispatch, technicians []domain.Technician, calendar map[string]domain.CalendarEntry, abort <-chan struct{}) Result {
	now := d.Options.now()

	available := 0
	for _, c := range calendar {
		if c.Available {
			available++
		}
	}
	thresholds := d.Policy.Thresholds(policy.Inputs{
		Now:                      now,
		PendingDispatchCount:     len(dispatches),
		AvailableTechnicianCount: available,
	})

	runCtx := domain.RunContext{
		RunID:                   uuid.NewString(),
		Now:                     now,
		Seed:                    d.Options.Seed,
		Thresholds:              thresholds,
		MaxAcceptableDistanceKM: d.Options.MaxAcceptableDistanceKM,
		OverlapBufferMin:        d.Options.OverlapBufferMin,
		EnableHybridScoring:     d.Options.EnableHybridScoring,
		RuleWeight:              d.Options.RuleWeight,
		UseSkillCascade:         d.Options.UseSkillCascade,
		ScoringMode:             d.Options.ScoringMode,
		PostOptPasses:           d.Options.PostOptPasses,
	}

	dispatchByID := make(map[string]domain.Dispatch, len(dispatches))
	for _, dp := range dispatches {
		dispatchByID[dp.DispatchID] = dp
	}
	technicianByID := make(map[string]domain.Technician, len(technicians))
	for _, t := range technicians {
		technicianByID[t.TechnicianID] = t
	}

	initial := d.computeInitialMetrics(dispatches, technicianByID, runCtx)

	calendarByDate := map[time.Time]map[string]domain.CalendarEntry{date: calendar}
	engine := assign.NewEngine(technicians, d.Features, d.Success, d.Duration, runCtx, calendarByDate)

	ordered := assign.OrderDispatches(dispatches)
	assignments, partial := engine.Run(ordered, abort)
	if !partial && runCtx.PostOptPasses > 0 {
		assignments = engine.PostOptimize(ordered, assignments, runCtx.PostOptPasses, abort)
	}

	optimized := computeMetrics(assignments, dispatchByID)

	return Result{
		RunID:       runCtx.RunID,
		Date:        date,
		Assignments: assignments,
		Partial:     partial,
		Diagnostics: Diagnostics{
			Initial:                initial,
			Optimized:              optimized,
			DistanceSavedKM:        initial.MeanDistanceKM - optimized.MeanDistanceKM,
			FallbackLevelHistogram: fallbackHistogram(assignments),
			WorkloadDistribution:   workloadDistribution(engine.Store.Technicians()),
			PolicyMode:             thresholds.Mode,
			Warnings:               append([]string(nil), d.Warnings...),
		},
	}
}

// computeInitialMetrics scores each dispatch's pre-existing
// assigned_technician_id (if any) through the same predictor/scoring
// stack as the optimized run, giving a baseline to compare against
// (spec.md §4.10). It never mutates engine state — it's a read-only
// snapshot over the technician pool's state at run start.
//
// This is spec.md §5 concurrency point #3 ("initial-metric computation ...
// read-only and fully parallelizable"): dispatches are routed onto a small
// set of worker shards by a consistent-hash ring keyed on city, so every
// dispatch in one city scores on the same goroutine (no cross-goroutine
// contention over a shared per-city view) while unrelated cities score
// fully in parallel on the bounded pool.
func (d *Driver) computeInitialMetrics(dispatches []domain.Dispatch, technicianByID map[string]domain.Technician, runCtx domain.RunContext) Metrics {
	pool := fanout.New(fanout.DefaultConfig())

	ring := cityshard.New(cityshard.DefaultConfig())
	for i := 0; i < 4; i++ {
		ring.AddShard(fmt.Sprintf("shard-%d", i))
	}

	byShard := make(map[string][]domain.Dispatch)
	for _, dp := range dispatches {
		shard := ring.ShardFor(dp.City)
		byShard[shard] = append(byShard[shard], dp)
	}

	shardResults := fanout.Map(context.Background(), pool, ring.Shards(), func(_ context.Context, shardID string) ([]domain.Assignment, error) {
		out := make([]domain.Assignment, 0, len(byShard[shardID]))
		for _, dp := range byShard[shardID] {
			out = append(out, d.scoreBaseline(dp, technicianByID, runCtx))
		}
		return out, nil
	})

	var assignments []domain.Assignment
	for _, rows := range shardResults {
		assignments = append(assignments, rows...)
	}

	dispatchByID := make(map[string]domain.Dispatch, len(dispatches))
	for _, dp := range dispatches {
		dispatchByID[dp.DispatchID] = dp
	}
	return computeMetrics(assignments, dispatchByID)
}

// scoreBaseline scores one dispatch's pre-existing assignment (if any)
// through the trained predictor/scoring stack, without touching the
// engine's mutable technician counters.
func (d *Driver) scoreBaseline(dp domain.Dispatch, technicianByID map[string]domain.Technician, runCtx domain.RunContext) domain.Assignment {
	if dp.AssignedTechnicianID == nil || *dp.AssignedTechnicianID == "" {
		return domain.Assignment{DispatchID: dp.DispatchID}
	}
	t, ok := technicianByID[*dp.AssignedTechnicianID]
	if !ok {
		return domain.Assignment{DispatchID: dp.DispatchID}
	}

	distance := geo.Distance(dp.CustomerLat, dp.CustomerLon, t.TechLat, t.TechLon)
	workloadRatioAfter := t.WorkloadRatioAfter()
	f := d.Features.Build(dp, t, distance, workloadRatioAfter)
	success := domain.Clip(d.Success.PredictSuccess(f), 0, 1)
	duration := d.Duration.PredictDuration(f)
	appointmentMinutes := dp.AppointmentEnd.Sub(dp.AppointmentStart).Minutes()
	score := scoring.Score(runCtx.ScoringMode, scoring.Inputs{
		Success:            success,
		DistanceKM:         distance.KM,
		MaxDistanceKM:      runCtx.MaxAcceptableDistanceKM,
		WorkloadRatioAfter: workloadRatioAfter,
		PredictedDuration:  duration,
		AppointmentMinutes: appointmentMinutes,
		MaxOvernMin:        60,
	})

	return domain.Assignment{
		DispatchID:         dp.DispatchID,
		TechnicianID:       t.TechnicianID,
		Start:              dp.AppointmentStart,
		End:                dp.AppointmentEnd,
		PredictedSuccess:   success,
		PredictedDuration:  duration,
		DistanceKM:         distance.KM,
		SkillMatchScore:    f.SkillMatchScore,
		WorkloadRatioAfter: workloadRatioAfter,
		Score:              score,
	}
}

// GroupByDate partitions dispatches by domain.Dispatch.Date(), the
// partitioning RunForDate's caller must apply before invoking it (spec.md
// §4 "each day's calendar is independent").
func GroupByDate(dispatches []domain.Dispatch) map[time.Time][]domain.Dispatch {
	out := make(map[time.Time][]domain.Dispatch)
	for _, d := range dispatches {
		date := d.Date()
		out[date] = append(out[date], d)
	}
	return out
}
