package predict

import (
	"testing"
	"time"

	"github.com/fieldforce/dispatchopt/internal/domain"
	"github.com/fieldforce/dispatchopt/internal/geo"
	"github.com/fieldforce/dispatchopt/internal/skillcompat"
)

func strPtr(s string) *string { return &s }

func TestFeatureBuilder_BuildWithoutLearnUsesFallback(t *testing.T) {
	b := NewFeatureBuilder(skillcompat.New())
	d := domain.Dispatch{
		RequiredSkill:    "fiber",
		AppointmentStart: time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC), // Monday
		City:             "Springfield",
	}
	tech := domain.Technician{TechnicianID: "tech-1", PrimarySkill: "fiber"}
	f := b.Build(d, tech, geo.Result{KM: 12, Known: true}, 0.5)

	if f.TechExpandingMeanDuration <= 0 {
		t.Errorf("expected a positive fallback duration, got %v", f.TechExpandingMeanDuration)
	}
	if f.CityJobFrequency != 0 {
		t.Errorf("untrained builder should report zero city frequency, got %v", f.CityJobFrequency)
	}
	if f.IsWeekend {
		t.Error("Monday should not be flagged as weekend")
	}
	if f.SkillMatchScore != 1.0 {
		t.Errorf("exact skill match should score 1.0, got %v", f.SkillMatchScore)
	}
}

func TestFeatureBuilder_LearnPopulatesAggregates(t *testing.T) {
	b := NewFeatureBuilder(skillcompat.New())
	history := []domain.HistoricalDispatch{
		{Dispatch: domain.Dispatch{AssignedTechnicianID: strPtr("tech-1"), City: "Springfield"}, ActualDurationMin: 60},
		{Dispatch: domain.Dispatch{AssignedTechnicianID: strPtr("tech-1"), City: "Springfield"}, ActualDurationMin: 80},
		{Dispatch: domain.Dispatch{AssignedTechnicianID: strPtr("tech-2"), City: "Capital City"}, ActualDurationMin: 40},
	}
	b.Learn(history)

	d := domain.Dispatch{RequiredSkill: "fiber", City: "Springfield", AppointmentStart: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	tech := domain.Technician{TechnicianID: "tech-1", PrimarySkill: "fiber"}
	f := b.Build(d, tech, geo.Unknown, 0.2)

	if f.TechExpandingMeanDuration != 70 {
		t.Errorf("tech-1 mean duration = %v, want 70", f.TechExpandingMeanDuration)
	}
	if f.CityJobFrequency <= 0 {
		t.Errorf("expected nonzero city frequency for Springfield, got %v", f.CityJobFrequency)
	}
	if f.DistanceKM != 0 {
		t.Errorf("unknown distance should yield 0, got %v", f.DistanceKM)
	}
}

func TestFeatureBuilder_WeekendFlag(t *testing.T) {
	b := NewFeatureBuilder(skillcompat.New())
	d := domain.Dispatch{AppointmentStart: time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)} // Saturday
	tech := domain.Technician{TechnicianID: "tech-1"}
	f := b.Build(d, tech, geo.Unknown, 0)
	if !f.IsWeekend {
		t.Error("Saturday should be flagged as weekend")
	}
}
