// postopt.go implements C9: a bounded local-search pass that tries to
// improve an already-greedy-assigned table in place.
package assign

import (
	"github.com/fieldforce/dispatchopt/internal/candidate"
	"github.com/fieldforce/dispatchopt/internal/domain"
)

// lowScoreThreshold and reassignMinGain are spec.md §4.9's "70" and "+5",
// rescaled from percentage points to C6's native [0,1]-ish score unit (both
// pure-success and weighted-composite scores operate on that scale, never
// on 0-100).
const (
	reassignSampleSize = 100
	reassignMinGain    = 0.05
	swapSampleSize     = 100
	swapMinGain        = 1e-6
	lowScoreThreshold  = 0.70
)

// PostOptimize runs up to maxPasses rounds of reassignment and pairwise-swap
// moves over a completed greedy assignment, stopping at the first pass that
// improves nothing (spec.md §4.9). assignments must carry one row per
// dispatch, as produced by Engine.Run.
func (e *Engine) PostOptimize(dispatches []domain.Dispatch, assignments []domain.Assignment, maxPasses int, abort <-chan struct{}) []domain.Assignment {
	dispatchByID := make(map[string]domain.Dispatch, len(dispatches))
	for _, d := range dispatches {
		dispatchByID[d.DispatchID] = d
	}

	current := make(map[string]domain.Assignment, len(assignments))
	order := make([]string, 0, len(assignments))
	for _, a := range assignments {
		current[a.DispatchID] = a
		order = append(order, a.DispatchID)
	}

	for pass := 0; pass < maxPasses; pass++ {
		if aborted(abort) {
			break
		}
		improved := e.reassignmentMove(dispatchByID, current, order)
		if aborted(abort) {
			break
		}
		if e.swapMove(dispatchByID, current, order) {
			improved = true
		}
		if !improved {
			break
		}
	}

	return flatten(order, current)
}

func aborted(abort <-chan struct{}) bool {
	select {
	case <-abort:
		return true
	default:
		return false
	}
}

func flatten(order []string, current map[string]domain.Assignment) []domain.Assignment {
	out := make([]domain.Assignment, 0, len(order))
	for _, id := range order {
		out = append(out, current[id])
	}
	return out
}

// reassignmentMove retries assignment from scratch, at L0 only, for every
// dispatch carrying a warning, an unassigned row, or a score below
// lowScoreThreshold, plus a deterministic sample of otherwise-clean rows.
// A retried placement is kept only if it turns an unassigned dispatch into
// an assigned one, or beats the prior score by reassignMinGain; otherwise
// the prior assignment is restored exactly.
func (e *Engine) reassignmentMove(dispatchByID map[string]domain.Dispatch, current map[string]domain.Assignment, order []string) bool {
	ids := e.reassignCandidates(order, current)
	ladder := candidate.BuildLadder(e.RunCtx.Thresholds.MaxCapacityRatio, e.OverlapBufferMin)[:1]
	improved := false

	for _, id := range ids {
		old := current[id]
		d := dispatchByID[id]

		if !old.Unassigned() {
			e.Store.Unassign(old.DispatchID)
		}

		next := e.assignOneWithLadder(d, ladder)

		switch {
		case old.Unassigned() && !next.Unassigned():
			current[id] = next
			improved = true
		case !old.Unassigned() && !next.Unassigned() && next.Score >= old.Score+reassignMinGain:
			current[id] = next
			improved = true
		default:
			if !next.Unassigned() {
				e.Store.Unassign(next.DispatchID)
			}
			if !old.Unassigned() {
				e.Store.TryAssign(old)
			}
		}
	}
	return improved
}

// reassignCandidates picks the dispatches eligible for a reassignment
// attempt this pass.
func (e *Engine) reassignCandidates(order []string, current map[string]domain.Assignment) []string {
	var flagged, clean []string
	for _, id := range order {
		a := current[id]
		if a.Unassigned() || len(a.Warnings) > 0 || a.Score < lowScoreThreshold {
			flagged = append(flagged, id)
		} else {
			clean = append(clean, id)
		}
	}
	if len(clean) > reassignSampleSize {
		e.rng.Shuffle(len(clean), func(i, j int) { clean[i], clean[j] = clean[j], clean[i] })
		clean = clean[:reassignSampleSize]
	}
	return append(flagged, clean...)
}

// swapMove samples disjoint pairs of currently-assigned dispatches and
// swaps their technicians when the swap both satisfies every hard
// constraint and raises the pair's combined score.
func (e *Engine) swapMove(dispatchByID map[string]domain.Dispatch, current map[string]domain.Assignment, order []string) bool {
	var assigned []string
	for _, id := range order {
		if !current[id].Unassigned() {
			assigned = append(assigned, id)
		}
	}
	if len(assigned) < 2 {
		return false
	}

	improved := false
	for _, pr := range e.samplePairs(assigned, swapSampleSize) {
		id1, id2 := pr[0], pr[1]
		a1, a2 := current[id1], current[id2]
		if a1.TechnicianID == a2.TechnicianID {
			continue
		}
		d1, d2 := dispatchByID[id1], dispatchByID[id2]

		e.Store.Unassign(id1)
		e.Store.Unassign(id2)

		new1, ok1 := e.evaluateOn(d1, a2.TechnicianID)
		new2, ok2 := e.evaluateOn(d2, a1.TechnicianID)

		if ok1 && ok2 && new1.score+new2.score > a1.Score+a2.Score+swapMinGain {
			na1 := e.materialize(d1, new1, a1.FallbackLevel)
			na2 := e.materialize(d2, new2, a2.FallbackLevel)
			e.Store.TryAssign(na1)
			e.Store.TryAssign(na2)
			current[id1] = na1
			current[id2] = na2
			improved = true
		} else {
			e.Store.TryAssign(a1)
			e.Store.TryAssign(a2)
		}
	}
	return improved
}

// samplePairs deterministically shuffles ids (using the engine's seeded
// rng) and pairs them off consecutively, up to maxPairs pairs.
func (e *Engine) samplePairs(ids []string, maxPairs int) [][2]string {
	shuffled := append([]string(nil), ids...)
	e.rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	n := len(shuffled) / 2
	if n > maxPairs {
		n = maxPairs
	}
	pairs := make([][2]string, 0, n)
	for i := 0; i < n; i++ {
		pairs = append(pairs, [2]string{shuffled[2*i], shuffled[2*i+1]})
	}
	return pairs
}

// evaluateOn scores dispatch d against one specific technician, checking
// every hard constraint and the L0 (strictest ladder level) soft
// constraints via the same
// candidate.Filter path the greedy pass uses, restricted to that single
// technician. Pairs already known ineligible for a run-invariant reason
// (calendar, distance, city) are rejected without re-filtering.
func (e *Engine) evaluateOn(d domain.Dispatch, technicianID string) (scored, bool) {
	if e.staticReject.Seen(d.DispatchID, technicianID) {
		return scored{}, false
	}

	tech, err := e.Store.Technician(technicianID)
	if err != nil {
		return scored{}, false
	}
	calendar := e.CalendarByDate[d.Date()]
	params := candidate.Params{
		MaxAcceptableDistanceKM: e.MaxAcceptableDistanceKM,
		CityStrict:              e.CityStrict,
		UseSkillCascade:         e.UseSkillCascade,
		Level:                   candidate.BuildLadder(e.RunCtx.Thresholds.MaxCapacityRatio, e.OverlapBufferMin)[0],
	}
	cands, reason := candidate.Filter(d, []domain.Technician{tech}, calendar, e.Store, params)
	if reason != "" || len(cands) == 0 {
		if isStaticRejectReason(reason) {
			e.staticReject.Mark(d.DispatchID, technicianID)
		}
		return scored{}, false
	}
	evaluated := e.scoreAll(d, cands)
	return evaluated[0], true
}

// isStaticRejectReason reports whether a Filter rejection reason reflects a
// fact that cannot change during a run — a technician's calendar
// availability, distance from a dispatch, and city never change once a run
// starts — so it is always safe to remember and skip.
func isStaticRejectReason(reason string) bool {
	switch reason {
	case domain.ReasonNoCalendar, domain.ReasonDistanceFilter, domain.ReasonNoCityTech:
		return true
	default:
		return false
	}
}
