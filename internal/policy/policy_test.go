package policy

import (
	"testing"
	"time"

	"github.com/fieldforce/dispatchopt/internal/domain"
)

func TestThresholds_Manual_ReturnsFixedValue(t *testing.T) {
	p := New(domain.StrategyManual, DefaultConfig())
	want := domain.PolicyThresholds{MinSuccessThreshold: 0.6, MaxCapacityRatio: 1.1, Mode: "custom"}
	p.SetManualThresholds(want)
	got := p.Thresholds(Inputs{})
	if got != want {
		t.Errorf("Thresholds() = %+v, want %+v", got, want)
	}
}

func TestThresholds_DemandBased_HighDemandPreset(t *testing.T) {
	p := New(domain.StrategyDemandBased, DefaultConfig())
	got := p.Thresholds(Inputs{PendingDispatchCount: 20}) // ratio 2.0 > 1.5
	want := presets["high_demand"]
	if got != want {
		t.Errorf("Thresholds() = %+v, want %+v", got, want)
	}
}

func TestThresholds_DemandBased_LowDemandPreset(t *testing.T) {
	p := New(domain.StrategyDemandBased, DefaultConfig())
	got := p.Thresholds(Inputs{PendingDispatchCount: 1}) // ratio 0.1 < 0.8
	want := presets["low_demand"]
	if got != want {
		t.Errorf("Thresholds() = %+v, want %+v", got, want)
	}
}

func TestThresholds_AvailabilityBased_LowAvailabilityIsPermissive(t *testing.T) {
	p := New(domain.StrategyAvailabilityBased, DefaultConfig())
	got := p.Thresholds(Inputs{AvailableTechnicianCount: 10})
	want := presets["low_availability"]
	if got != want {
		t.Errorf("Thresholds() = %+v, want %+v", got, want)
	}
	if got.MinSuccessThreshold != 0.20 || got.MaxCapacityRatio != 1.20 {
		t.Errorf("low-availability preset mismatch: %+v", got)
	}
}

func TestThresholds_AvailabilityBased_HighAvailabilityIsSelective(t *testing.T) {
	p := New(domain.StrategyAvailabilityBased, DefaultConfig())
	got := p.Thresholds(Inputs{AvailableTechnicianCount: 200})
	want := presets["high_availability"]
	if got != want {
		t.Errorf("Thresholds() = %+v, want %+v", got, want)
	}
}

func TestThresholds_TimeBased_PeakHour(t *testing.T) {
	p := New(domain.StrategyTimeBased, DefaultConfig())
	peakHour := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	got := p.Thresholds(Inputs{Now: peakHour})
	if got.Mode != "peak" {
		t.Errorf("Mode = %q, want peak", got.Mode)
	}
}

func TestThresholds_IntelligentAuto_EmergencyOverridesSelectivity(t *testing.T) {
	// S5 scenario shape: scarce staffing (count below the low-availability
	// floor) with demand sitting in its normal range should select the
	// permissive low_availability emergency preset.
	p := New(domain.StrategyIntelligentAuto, DefaultConfig())
	got := p.Thresholds(Inputs{PendingDispatchCount: 10, AvailableTechnicianCount: 10})
	want := presets["low_availability"]
	if got != want {
		t.Errorf("Thresholds() = %+v, want %+v", got, want)
	}
}

func TestThresholds_IntelligentAuto_TieBreaksByPriorityOrder(t *testing.T) {
	// Both demand (ratio 2.0 -> score 10) and availability (count 10 ->
	// score 10) fire at once; default priority order prefers demand.
	p := New(domain.StrategyIntelligentAuto, DefaultConfig())
	got := p.Thresholds(Inputs{PendingDispatchCount: 20, AvailableTechnicianCount: 10})
	want := presets["high_demand"]
	if got != want {
		t.Errorf("Thresholds() = %+v, want %+v (demand should win the tie)", got, want)
	}
}

func TestThresholds_IntelligentAuto_AllNormalFallsBackToNormalDemand(t *testing.T) {
	p := New(domain.StrategyIntelligentAuto, DefaultConfig())
	got := p.Thresholds(Inputs{PendingDispatchCount: 10, AvailableTechnicianCount: 30, Now: time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC)})
	want := presets["normal_demand"]
	if got != want {
		t.Errorf("Thresholds() = %+v, want %+v", got, want)
	}
}
