package candidate

import (
	"testing"
	"time"

	"github.com/fieldforce/dispatchopt/internal/assign"
	"github.com/fieldforce/dispatchopt/internal/domain"
)

func mkDispatch() domain.Dispatch {
	return domain.Dispatch{
		DispatchID:       "d1",
		RequiredSkill:    "Fiber ONT installation",
		City:             "Springfield",
		State:            "IL",
		CustomerLat:      40.00,
		CustomerLon:      -74.00,
		AppointmentStart: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		AppointmentEnd:   time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}
}

func mkTech() domain.Technician {
	return domain.Technician{
		TechnicianID:     "t1",
		PrimarySkill:     "Fiber ONT installation",
		City:             "Springfield",
		State:            "IL",
		TechLat:          40.01,
		TechLon:          -74.01,
		WorkloadCapacity: 8,
	}
}

func mkCalendar(techID string, available bool) map[string]domain.CalendarEntry {
	return map[string]domain.CalendarEntry{
		techID: {
			TechnicianID: techID,
			Available:    available,
			ShiftStart:   time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
			ShiftEnd:     time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC),
		},
	}
}

func l0Params() Params {
	return Params{
		MaxAcceptableDistanceKM: 200,
		CityStrict:              true,
		Level:                   BuildLadder(1.0, 30)[0],
	}
}

func TestFilter_S1_ExactSkillCloseLightLoad(t *testing.T) {
	store := assign.NewStore([]domain.Technician{mkTech()})
	candidates, reason := Filter(mkDispatch(), []domain.Technician{mkTech()}, mkCalendar("t1", true), store, l0Params())
	if reason != "" {
		t.Fatalf("expected a candidate, got empty reason=%q", reason)
	}
	if len(candidates) != 1 {
		t.Fatalf("len(candidates) = %d, want 1", len(candidates))
	}
	c := candidates[0]
	if c.DistanceKM < 1.0 || c.DistanceKM > 2.0 {
		t.Errorf("distance = %v, want ~1.4km", c.DistanceKM)
	}
	if c.WorkloadRatioAfter != 0.125 {
		t.Errorf("workloadRatioAfter = %v, want 0.125", c.WorkloadRatioAfter)
	}
}

func TestFilter_S2_NoCalendarEntry(t *testing.T) {
	store := assign.NewStore([]domain.Technician{mkTech()})
	candidates, reason := Filter(mkDispatch(), []domain.Technician{mkTech()}, mkCalendar("t1", false), store, l0Params())
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates, got %d", len(candidates))
	}
	if reason != domain.ReasonNoCalendar {
		t.Errorf("reason = %q, want %q", reason, domain.ReasonNoCalendar)
	}
}

func TestFilter_DistanceFilterExcludesFarTechnician(t *testing.T) {
	far := mkTech()
	far.TechLat, far.TechLon = 10.0, 10.0 // far outside 200km
	store := assign.NewStore([]domain.Technician{far})
	params := l0Params()
	candidates, reason := Filter(mkDispatch(), []domain.Technician{far}, mkCalendar("t1", true), store, params)
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates, got %d", len(candidates))
	}
	if reason != domain.ReasonDistanceFilter {
		t.Errorf("reason = %q, want %q", reason, domain.ReasonDistanceFilter)
	}
}

func TestFilter_CityMismatchExcludesUnderStrictMode(t *testing.T) {
	otherCity := mkTech()
	otherCity.City = "Capital City"
	store := assign.NewStore([]domain.Technician{otherCity})
	candidates, reason := Filter(mkDispatch(), []domain.Technician{otherCity}, mkCalendar("t1", true), store, l0Params())
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates, got %d", len(candidates))
	}
	if reason != domain.ReasonNoCityTech {
		t.Errorf("reason = %q, want %q", reason, domain.ReasonNoCityTech)
	}
}

func TestFilter_S3_TwoDisjointDispatchesBothFit(t *testing.T) {
	store := assign.NewStore([]domain.Technician{mkTech()})
	d1 := mkDispatch()
	store.TryAssign(domain.Assignment{DispatchID: "prior", TechnicianID: "t1", Start: time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC), End: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)})

	candidates, reason := Filter(d1, []domain.Technician{mkTech()}, mkCalendar("t1", true), store, l0Params())
	if reason != "" || len(candidates) != 1 {
		t.Fatalf("expected disjoint dispatch to pass filter, reason=%q candidates=%d", reason, len(candidates))
	}
	if len(candidates[0].Warnings) != 0 {
		t.Errorf("expected no warnings for disjoint appointments, got %v", candidates[0].Warnings)
	}
}

func TestFilter_OverlapExcludedAtL0ButAllowedAtL3(t *testing.T) {
	store := assign.NewStore([]domain.Technician{mkTech()})
	d := mkDispatch() // 09:00-10:00
	store.TryAssign(domain.Assignment{DispatchID: "prior1", TechnicianID: "t1", Start: d.AppointmentStart, End: d.AppointmentEnd})
	store.TryAssign(domain.Assignment{DispatchID: "prior2", TechnicianID: "t1", Start: d.AppointmentStart, End: d.AppointmentEnd})

	l0 := l0Params()
	_, reason := Filter(d, []domain.Technician{mkTech()}, mkCalendar("t1", true), store, l0)
	if reason == "" {
		t.Fatal("expected L0 to reject a technician already double-booked at the same time")
	}

	l3Params := l0
	l3Params.Level = BuildLadder(1.0, 30)[3]
	candidates, reason := Filter(d, []domain.Technician{mkTech()}, mkCalendar("t1", true), store, l3Params)
	if reason != "" {
		t.Fatalf("expected L3 to allow a third concurrent appointment, got reason=%q", reason)
	}
	if len(candidates) != 1 {
		t.Fatalf("len(candidates) = %d, want 1", len(candidates))
	}
	found := false
	for _, w := range candidates[0].Warnings {
		if w == "forced concurrent appointment" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a forced-concurrent warning, got %v", candidates[0].Warnings)
	}
}

func TestFilter_OvertimeExcludedUnlessL4(t *testing.T) {
	tech := mkTech()
	store := assign.NewStore([]domain.Technician{tech})
	d := mkDispatch()
	d.AppointmentEnd = time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC) // past shift end 17:00

	l0 := l0Params()
	_, reason := Filter(d, []domain.Technician{tech}, mkCalendar("t1", true), store, l0)
	if reason == "" {
		t.Fatal("expected L0 to reject overtime appointment")
	}

	l4 := l0
	l4.Level = BuildLadder(1.0, 30)[4]
	candidates, reason := Filter(d, []domain.Technician{tech}, mkCalendar("t1", true), store, l4)
	if reason != "" || len(candidates) != 1 {
		t.Fatalf("expected L4 to allow overtime, reason=%q candidates=%d", reason, len(candidates))
	}
}

func TestFilter_S6_ForcedAssignmentRespectsHardCapacityCeiling(t *testing.T) {
	tech := mkTech()
	tech.WorkloadCapacity = 10
	tech.CurrentAssignments = 10 // already at 100%
	store := assign.NewStore([]domain.Technician{tech})

	l5 := Params{MaxAcceptableDistanceKM: 200, CityStrict: true, Level: BuildLadder(1.0, 30)[5]}
	candidates, reason := Filter(mkDispatch(), []domain.Technician{tech}, mkCalendar("t1", true), store, l5)
	if reason != "" {
		t.Fatalf("expected L5 to permit 110%% workload, got reason=%q", reason)
	}
	if len(candidates) != 1 {
		t.Fatalf("len(candidates) = %d, want 1", len(candidates))
	}
	if candidates[0].WorkloadRatioAfter != 1.1 {
		t.Errorf("workloadRatioAfter = %v, want 1.1", candidates[0].WorkloadRatioAfter)
	}

	// Even at forced L6, 130% would still be rejected (invariant #4 ceiling).
	overloaded := tech
	overloaded.CurrentAssignments = 12 // -> 130% after
	store2 := assign.NewStore([]domain.Technician{overloaded})
	l6 := Params{MaxAcceptableDistanceKM: 200, CityStrict: true, Level: BuildLadder(1.0, 30)[6]}
	_, reason = Filter(mkDispatch(), []domain.Technician{overloaded}, mkCalendar("t1", true), store2, l6)
	if reason == "" {
		t.Fatal("expected even forced L6 to reject a workload ratio above 1.20")
	}
}

func TestFilter_SkillCascadeAttachesConfidenceMultiplier(t *testing.T) {
	mismatched := mkTech()
	mismatched.PrimarySkill = "HVAC repair"
	store := assign.NewStore([]domain.Technician{mismatched})
	params := l0Params()
	params.UseSkillCascade = true

	candidates, reason := Filter(mkDispatch(), []domain.Technician{mismatched}, mkCalendar("t1", true), store, params)
	if reason != "" || len(candidates) != 1 {
		t.Fatalf("expected cascade mode to admit a skill mismatch, reason=%q", reason)
	}
	if candidates[0].SkillConfidenceMultiplier != 0.50 {
		t.Errorf("confidence = %v, want 0.50", candidates[0].SkillConfidenceMultiplier)
	}
}
