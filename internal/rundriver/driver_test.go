package rundriver

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/fieldforce/dispatchopt/internal/domain"
)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func histRow(id, skill, techID string, start time.Time, productive bool, durationMin float64) domain.HistoricalDispatch {
	tid := techID
	return domain.HistoricalDispatch{
		Dispatch: domain.Dispatch{
			DispatchID:           id,
			Priority:             domain.Normal,
			RequiredSkill:        skill,
			City:                 "Springfield",
			State:                "IL",
			CustomerLat:          40.00,
			CustomerLon:          -74.00,
			AppointmentStart:     start,
			AppointmentEnd:       start.Add(time.Hour),
			AssignedTechnicianID: &tid,
		},
		TechnicianPrimarySkillAtTime: skill,
		Productive:                   productive,
		ActualDurationMin:            durationMin,
	}
}

func baseTime() time.Time {
	return time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
}

// TestDriver_Train_DegradesGracefullyOnSparseHistory checks that an
// insufficient-data history still produces usable predictors: the success
// model falls back to the rule-based formula (hybrid forced, rule weight
// 1.0) and the duration model falls back to its floor, both recorded as
// warnings rather than returned as an error.
func TestDriver_Train_DegradesGracefullyOnSparseHistory(t *testing.T) {
	d := New(DefaultOptions())
	technicians := []domain.Technician{
		{TechnicianID: "T1", PrimarySkill: "Fiber ONT installation", City: "Springfield", State: "IL", TechLat: 40.00, TechLon: -74.00, WorkloadCapacity: 8},
	}
	history := []domain.HistoricalDispatch{
		histRow("H1", "Fiber ONT installation", "T1", baseTime().AddDate(0, 0, -1), true, 45),
	}

	if err := d.Train(history, technicians); err != nil {
		t.Fatalf("Train returned an error: %v", err)
	}
	if len(d.Warnings) == 0 {
		t.Fatal("expected at least one degradation warning from sparse training data")
	}
	if !d.Success.HybridEnabled || d.Success.RuleWeight != 1.0 {
		t.Fatalf("expected forced hybrid fallback with RuleWeight 1.0, got HybridEnabled=%v RuleWeight=%v", d.Success.HybridEnabled, d.Success.RuleWeight)
	}
}

// TestDriver_Train_FitsOnSufficientHistory exercises the non-degraded path:
// enough rows that both predictors fit without forcing a fallback.
func TestDriver_Train_FitsOnSufficientHistory(t *testing.T) {
	d := New(DefaultOptions())
	technicians := []domain.Technician{
		{TechnicianID: "T1", PrimarySkill: "Fiber ONT installation", City: "Springfield", State: "IL", TechLat: 40.00, TechLon: -74.00, WorkloadCapacity: 8},
		{TechnicianID: "T2", PrimarySkill: "Fiber ONT installation", City: "Springfield", State: "IL", TechLat: 40.05, TechLon: -74.05, WorkloadCapacity: 8},
	}

	var history []domain.HistoricalDispatch
	start := baseTime().AddDate(0, 0, -30)
	for i := 0; i < 60; i++ {
		techID := "T1"
		productive := true
		if i%3 == 0 {
			techID = "T2"
			productive = false
		}
		history = append(history, histRow("H"+strconv.Itoa(i), "Fiber ONT installation", techID, start.Add(time.Duration(i)*time.Hour), productive, 40+float64(i%10)))
	}

	if err := d.Train(history, technicians); err != nil {
		t.Fatalf("Train returned an error: %v", err)
	}
	if d.Success.RuleWeight == 1.0 && d.Success.HybridEnabled {
		t.Error("expected the classifier to fit on 60 rows, not force a pure rule-based fallback")
	}
}

// TestDriver_Train_DetectsNonChronologicalHistory checks the monotonicity
// warning fires when a technician's rows arrive out of order.
func TestDriver_Train_DetectsNonChronologicalHistory(t *testing.T) {
	d := New(DefaultOptions())
	technicians := []domain.Technician{
		{TechnicianID: "T1", PrimarySkill: "Fiber ONT installation", City: "Springfield", State: "IL", TechLat: 40.00, TechLon: -74.00, WorkloadCapacity: 8},
	}
	later := baseTime()
	earlier := baseTime().AddDate(0, 0, -5)
	history := []domain.HistoricalDispatch{
		histRow("H1", "Fiber ONT installation", "T1", later, true, 40),
		histRow("H2", "Fiber ONT installation", "T1", earlier, true, 40),
	}

	if err := d.Train(history, technicians); err != nil {
		t.Fatalf("Train returned an error: %v", err)
	}
	found := false
	for _, w := range d.Warnings {
		if strings.Contains(w, "not strictly chronological") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a non-chronological warning, got %v", d.Warnings)
	}
}
