// Package candidate implements C5: given a dispatch, return the eligible
// technicians under the hard and soft constraints active at the current
// fallback level.
package candidate

import (
	"strings"
	"time"

	"github.com/fieldforce/dispatchopt/internal/assign"
	"github.com/fieldforce/dispatchopt/internal/domain"
	"github.com/fieldforce/dispatchopt/internal/geo"
)

// LevelParams bundles the soft-constraint relaxations active at one
// fallback-ladder step (spec §4.8). Ladders are built cumulatively by
// BuildLadder: level N carries every relaxation from level N-1.
type LevelParams struct {
	Level                 int
	OverlapBufferMin       int
	MaxConcurrentSameTime  int
	AllowOvertime          bool
	MaxWorkloadRatioAfter  float64
	Forced                 bool // L6: relax overlap/concurrency entirely; workload cap still enforced (invariant #4)
}

// MaxForcedWorkloadRatio is the hard ceiling invariant #4 requires even at
// the most permissive fallback level: no technician may ever exceed 120%
// of nominal capacity, forced assignment included.
const MaxForcedWorkloadRatio = 1.20

// BuildLadder constructs the seven fallback levels (L0..L6) described in
// spec.md §4.8, seeded from the policy-chosen capacity ratio and the
// configured L0 overlap buffer (OVERLAP_BUFFER_MIN, default 30 — see
// spec.md §6). L1 relaxes to half that buffer, L2 to zero, matching the
// spec's literal 30/15/0 ladder under the default configuration.
func BuildLadder(policyMaxCapacityRatio float64, baseOverlapBufferMin int) []LevelParams {
	if baseOverlapBufferMin <= 0 {
		baseOverlapBufferMin = 30
	}
	base := LevelParams{
		Level:                 0,
		OverlapBufferMin:      baseOverlapBufferMin,
		MaxConcurrentSameTime: 2,
		AllowOvertime:         false,
		MaxWorkloadRatioAfter: policyMaxCapacityRatio,
	}
	l1 := base
	l1.Level, l1.OverlapBufferMin = 1, baseOverlapBufferMin/2

	l2 := l1
	l2.Level, l2.OverlapBufferMin = 2, 0

	l3 := l2
	l3.Level, l3.MaxConcurrentSameTime = 3, 3

	l4 := l3
	l4.Level, l4.AllowOvertime = 4, true

	l5 := l4
	l5.Level = 5
	if l5.MaxWorkloadRatioAfter < 1.10 {
		l5.MaxWorkloadRatioAfter = 1.10
	}

	l6 := l5
	l6.Level = 6
	l6.Forced = true
	l6.MaxWorkloadRatioAfter = MaxForcedWorkloadRatio
	l6.MaxConcurrentSameTime = 1 << 30 // effectively unbounded; overlap ignored under Forced

	return []LevelParams{base, l1, l2, l3, l4, l5, l6}
}

// Candidate is one technician eligible to serve a dispatch, with the
// per-candidate figures C6 scoring and C8's warning bookkeeping need.
type Candidate struct {
	Technician                domain.Technician
	DistanceKM                float64
	WorkloadRatioAfter        float64
	SkillConfidenceMultiplier float64 // cascading-skill mode only; 1.0 in ML mode
	Warnings                  []string
}

// Params configures one Filter call.
type Params struct {
	MaxAcceptableDistanceKM float64
	CityStrict              bool // true: tech.city must match; false: tech.state must match
	UseSkillCascade         bool
	Level                   LevelParams
}

// Filter returns the technicians eligible to serve dispatch d under
// params, along with a reason string set only when the result is empty
// (one of domain.Reason*).
func Filter(
	d domain.Dispatch,
	technicians []domain.Technician,
	calendar map[string]domain.CalendarEntry, // technicianID -> that day's entry
	store *assign.Store,
	params Params,
) ([]Candidate, string) {
	var (
		out           []Candidate
		sawCalendar   bool
		sawCity       bool
		sawDistance   bool
		sawBelowCap   bool
	)

	for _, t := range technicians {
		entry, ok := calendar[t.TechnicianID]
		if !ok || !entry.Available {
			continue // hard filter #1: never relaxed, even at L6
		}
		sawCalendar = true

		dist := geo.Distance(d.CustomerLat, d.CustomerLon, t.TechLat, t.TechLon)
		if !dist.Known || dist.KM > params.MaxAcceptableDistanceKM {
			continue // hard filter #2: never relaxed
		}
		sawDistance = true

		if !locationMatches(d, t, params.CityStrict) {
			continue
		}
		sawCity = true

		workloadRatioAfter := t.WorkloadRatioAfter()
		if workloadRatioAfter > params.Level.MaxWorkloadRatioAfter {
			continue
		}
		sawBelowCap = true

		var warnings []string
		if workloadRatioAfter > 1.0 {
			warnings = append(warnings, "allowing over-capacity workload")
		}

		if !params.Level.Forced {
			overlapping := countOverlapping(store.ActiveAssignmentsFor(t.TechnicianID), d.AppointmentStart, d.AppointmentEnd, params.Level.OverlapBufferMin)
			if overlapping >= params.Level.MaxConcurrentSameTime {
				continue
			}
			if overlapping > 0 {
				warnings = append(warnings, "forced concurrent appointment")
			}

			if !params.Level.AllowOvertime && d.AppointmentEnd.After(entry.ShiftEnd) {
				continue
			}
			if params.Level.AllowOvertime && d.AppointmentEnd.After(entry.ShiftEnd) {
				warnings = append(warnings, "end-of-shift overtime")
			}
		}

		confidence := 1.0
		if params.UseSkillCascade && !strings.EqualFold(d.RequiredSkill, t.PrimarySkill) {
			confidence = 0.50 // no skill-category dictionary in scope; cascade collapses to exact-or-any
			warnings = append(warnings, "skill cascade: no exact match, using any-skill fallback")
		}

		out = append(out, Candidate{
			Technician:                t,
			DistanceKM:                dist.KM,
			WorkloadRatioAfter:        workloadRatioAfter,
			SkillConfidenceMultiplier: confidence,
			Warnings:                  warnings,
		})
	}

	if len(out) > 0 {
		return out, ""
	}
	switch {
	case !sawCalendar:
		return nil, domain.ReasonNoCalendar
	case !sawDistance:
		return nil, domain.ReasonDistanceFilter
	case !sawCity:
		return nil, domain.ReasonNoCityTech
	case !sawBelowCap:
		return nil, domain.ReasonAllOvercap
	default:
		return nil, domain.ReasonBelowThreshold
	}
}

func locationMatches(d domain.Dispatch, t domain.Technician, cityStrict bool) bool {
	if cityStrict {
		return strings.EqualFold(d.City, t.City)
	}
	return strings.EqualFold(d.State, t.State)
}

// countOverlapping counts active assignments for a technician whose
// [start,end) window overlaps [start,end) of the candidate dispatch under
// the given buffer, per spec.md §4.8's overlap test:
// a.start < b.end+buffer && a.end+buffer > b.start.
func countOverlapping(active []domain.Assignment, start, end time.Time, bufferMin int) int {
	buffer := time.Duration(bufferMin) * time.Minute
	count := 0
	for _, a := range active {
		if a.Start.Before(end.Add(buffer)) && a.End.Add(buffer).After(start) {
			count++
		}
	}
	return count
}
