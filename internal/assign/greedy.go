// greedy.go implements C8: priority-ordered greedy assignment with the
// multi-level fallback relaxation ladder.
package assign

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/fieldforce/dispatchopt/internal/app/fanout"
	"github.com/fieldforce/dispatchopt/internal/candidate"
	"github.com/fieldforce/dispatchopt/internal/domain"
	"github.com/fieldforce/dispatchopt/internal/geo"
	"github.com/fieldforce/dispatchopt/internal/infra/dedup"
	"github.com/fieldforce/dispatchopt/internal/infra/priorityqueue"
	"github.com/fieldforce/dispatchopt/internal/predict"
	"github.com/fieldforce/dispatchopt/internal/scoring"
)

// priorityOverlapDelta is the success-margin a Critical/High dispatch must
// clear over the best non-overlapping candidate to justify bumping into
// an otherwise-overlapping slot (spec.md §4.8's priority exception).
func priorityOverlapDelta(p domain.Priority) (float64, bool) {
	switch p {
	case domain.Critical:
		return 0.20, true
	case domain.High:
		return 0.25, true
	default:
		return 0, false
	}
}

// Engine wires the trained predictors, the compatibility-aware feature
// builder, and the assignment store together for one run.
type Engine struct {
	Store    *Store
	Features *predict.FeatureBuilder
	Success  domain.SuccessPredictor
	Duration domain.DurationPredictor
	RunCtx   domain.RunContext

	// CalendarByDate maps a truncated day to each technician's entry for
	// that day. Built once at ingest; read-only during the run.
	CalendarByDate map[time.Time]map[string]domain.CalendarEntry

	MaxAcceptableDistanceKM float64
	CityStrict              bool
	UseSkillCascade         bool
	OverlapBufferMin        int

	rng *rand.Rand

	// scorePool bounds the fan-out that computes
	// (distance, skill_score, success, duration) across one dispatch's
	// candidate technicians (spec.md §5 concurrency point #1).
	scorePool *fanout.Pool

	// staticReject remembers (dispatch, technician) pairs the post-optimizer
	// has already found ineligible for a reason that can never change
	// within a run (calendar availability, distance, city match), so
	// repeated swap/reassignment attempts over the same pair skip
	// re-filtering it.
	staticReject *dedup.Filter
}

// NewEngine constructs an engine from a run's inputs. technicians seeds
// the store.
func NewEngine(technicians []domain.Technician, features *predict.FeatureBuilder, success domain.SuccessPredictor, duration domain.DurationPredictor, runCtx domain.RunContext, calendarByDate map[time.Time]map[string]domain.CalendarEntry) *Engine {
	return &Engine{
		Store:                   NewStore(technicians),
		Features:                features,
		Success:                 success,
		Duration:                duration,
		RunCtx:                  runCtx,
		CalendarByDate:          calendarByDate,
		MaxAcceptableDistanceKM: runCtx.MaxAcceptableDistanceKM,
		CityStrict:              true,
		UseSkillCascade:         runCtx.UseSkillCascade,
		OverlapBufferMin:        runCtx.OverlapBufferMin,
		rng:                     rand.New(rand.NewSource(runCtx.Seed)),
		scorePool:               fanout.New(fanout.DefaultConfig()),
		staticReject:            dedup.New(dedup.DefaultConfig()),
	}
}

// scored is one fully-evaluated candidate: the inputs needed to pick a
// winner and to materialize a domain.Assignment.
type scored struct {
	candidate       candidate.Candidate
	success         float64
	duration        float64
	score           float64
	skillMatchScore float64
}

// priorityRank orders dispatches Critical < High < Normal < Low.
func priorityRank(p domain.Priority) int {
	switch p {
	case domain.Critical:
		return 0
	case domain.High:
		return 1
	case domain.Normal:
		return 2
	default:
		return 3
	}
}

// OrderDispatches sorts dispatches by (priority_rank, appointment_start),
// the order the greedy loop processes them in. Backed by
// infra/priorityqueue's min-heap rather than a plain sort: every dispatch
// is pushed, then the queue is drained in priority order. rundriver calls
// it once per date on that date's whole batch.
func OrderDispatches(dispatches []domain.Dispatch) []domain.Dispatch {
	q := priorityqueue.New()
	for _, d := range dispatches {
		q.Push(priorityqueue.Item{
			DispatchID:       d.DispatchID,
			PriorityRank:     priorityRank(d.Priority),
			AppointmentStart: d.AppointmentStart,
			Value:            d,
		})
	}
	items := q.DrainOrdered()
	out := make([]domain.Dispatch, 0, len(items))
	for _, it := range items {
		out = append(out, it.Value.(domain.Dispatch))
	}
	return out
}

// Run performs the full greedy pass over dispatches, already assumed
// ordered by OrderDispatches, checking abort between dispatches (spec §5).
// Returns one Assignment per dispatch (assigned or not).
func (e *Engine) Run(dispatches []domain.Dispatch, abort <-chan struct{}) ([]domain.Assignment, bool) {
	results := make([]domain.Assignment, 0, len(dispatches))
	partial := false
	for _, d := range dispatches {
		select {
		case <-abort:
			partial = true
		default:
		}
		if partial {
			break
		}
		results = append(results, e.assignOne(d))
	}
	return results, partial
}

// assignOne runs the full fallback ladder for a single dispatch and
// returns its resulting Assignment (possibly unassigned).
func (e *Engine) assignOne(d domain.Dispatch) domain.Assignment {
	return e.assignOneWithLadder(d, candidate.BuildLadder(e.RunCtx.Thresholds.MaxCapacityRatio, e.OverlapBufferMin))
}

// assignOneWithLadder runs only the given ladder slice — the
// post-optimizer's reassignment move reruns at L0 alone (spec.md §4.9),
// which is ladder[:1].
func (e *Engine) assignOneWithLadder(d domain.Dispatch, ladder []candidate.LevelParams) domain.Assignment {
	calendar := e.CalendarByDate[d.Date()]

	var lastReason string
	for _, level := range ladder {
		params := candidate.Params{
			MaxAcceptableDistanceKM: e.MaxAcceptableDistanceKM,
			CityStrict:              e.CityStrict,
			UseSkillCascade:         e.UseSkillCascade,
			Level:                   level,
		}
		cands, reason := candidate.Filter(d, e.Store.Technicians(), calendar, e.Store, params)
		if reason != "" {
			lastReason = reason
			continue
		}

		evaluated := e.scoreAll(d, cands)
		if !e.UseSkillCascade {
			evaluated = dropBelowThreshold(evaluated, e.RunCtx.Thresholds.MinSuccessThreshold)
		}

		if delta, ok := priorityOverlapDelta(d.Priority); ok && level.Level <= 2 {
			evaluated = e.applyOverlapException(d, level, params, evaluated, delta)
		}

		if len(evaluated) == 0 {
			lastReason = domain.ReasonBelowThreshold
			continue
		}

		winner := pickWinner(evaluated)
		a := e.materialize(d, winner, level.Level)
		e.Store.TryAssign(a)
		return a
	}

	return domain.Assignment{DispatchID: d.DispatchID, UnassignedReason: lastReason}
}

// scoreAll evaluates success/duration/score for a candidate set. Per-
// candidate work is pure and independent, so it runs on the engine's
// bounded worker pool (spec.md §5 concurrency point #1); the caller
// (assignOneWithLadder / evaluateOn) is the serial reducer that picks the
// best result.
func (e *Engine) scoreAll(d domain.Dispatch, cands []candidate.Candidate) []scored {
	appointmentMinutes := d.AppointmentEnd.Sub(d.AppointmentStart).Minutes()
	return fanout.Map(context.Background(), e.scorePool, cands, func(_ context.Context, c candidate.Candidate) (scored, error) {
		f := e.Features.Build(d, c.Technician, geo.Result{KM: c.DistanceKM, Known: true}, c.WorkloadRatioAfter)
		success := e.Success.PredictSuccess(f) * c.SkillConfidenceMultiplier
		success = domain.Clip(success, 0, 1)
		duration := e.Duration.PredictDuration(f)

		s := scoring.Score(e.RunCtx.ScoringMode, scoring.Inputs{
			Success:            success,
			DistanceKM:         c.DistanceKM,
			MaxDistanceKM:      e.MaxAcceptableDistanceKM,
			WorkloadRatioAfter: c.WorkloadRatioAfter,
			PredictedDuration:  duration,
			AppointmentMinutes: appointmentMinutes,
			MaxOvernMin:        60,
		})
		return scored{candidate: c, success: success, duration: duration, score: s, skillMatchScore: f.SkillMatchScore}, nil
	})
}

func dropBelowThreshold(in []scored, threshold float64) []scored {
	out := in[:0:0]
	for _, s := range in {
		if s.success >= threshold {
			out = append(out, s)
		}
	}
	return out
}

// applyOverlapException admits overlap-blocked technicians for a
// Critical/High dispatch when their success clears the best accepted
// candidate's success by delta.
func (e *Engine) applyOverlapException(d domain.Dispatch, level candidate.LevelParams, params candidate.Params, accepted []scored, delta float64) []scored {
	bestNonOverlap := 0.0
	accIDs := make(map[string]bool, len(accepted))
	for _, s := range accepted {
		accIDs[s.candidate.Technician.TechnicianID] = true
		if s.success > bestNonOverlap {
			bestNonOverlap = s.success
		}
	}

	overrideLevel := level
	overrideLevel.MaxConcurrentSameTime = 1 << 30
	overrideParams := params
	overrideParams.Level = overrideLevel
	calendar := e.CalendarByDate[d.Date()]
	overrideCands, _ := candidate.Filter(d, e.Store.Technicians(), calendar, e.Store, overrideParams)

	var extra []candidate.Candidate
	for _, c := range overrideCands {
		if !accIDs[c.Technician.TechnicianID] {
			extra = append(extra, c)
		}
	}
	if len(extra) == 0 {
		return accepted
	}

	for _, s := range e.scoreAll(d, extra) {
		if s.success-bestNonOverlap >= delta {
			s.candidate.Warnings = append(s.candidate.Warnings, "priority exception: accepted into an overlapping slot")
			accepted = append(accepted, s)
		}
	}
	return accepted
}

// pickWinner sorts by (is_clean desc, score desc, distance asc) and
// returns the top candidate, per spec.md §4.8 step 4.
func pickWinner(evaluated []scored) scored {
	sort.SliceStable(evaluated, func(i, j int) bool {
		ci, cj := len(evaluated[i].candidate.Warnings) == 0, len(evaluated[j].candidate.Warnings) == 0
		if ci != cj {
			return ci // clean (no warnings) sorts first
		}
		if evaluated[i].score != evaluated[j].score {
			return evaluated[i].score > evaluated[j].score
		}
		return evaluated[i].candidate.DistanceKM < evaluated[j].candidate.DistanceKM
	})
	return evaluated[0]
}

// materialize builds the Assignment row for a winning candidate.
func (e *Engine) materialize(d domain.Dispatch, w scored, fallbackLevel int) domain.Assignment {
	return domain.Assignment{
		DispatchID:         d.DispatchID,
		TechnicianID:       w.candidate.Technician.TechnicianID,
		Start:              d.AppointmentStart,
		End:                d.AppointmentEnd,
		PredictedSuccess:   w.success,
		PredictedDuration:  w.duration,
		DistanceKM:         w.candidate.DistanceKM,
		SkillMatchScore:    w.skillMatchScore,
		WorkloadRatioAfter: w.candidate.WorkloadRatioAfter,
		Score:              w.score,
		Warnings:           w.candidate.Warnings,
		FallbackLevel:      fallbackLevel,
	}
}
