package skillcompat

import (
	"testing"

	"github.com/fieldforce/dispatchopt/internal/domain"
)

func mkHist(required, tech string, productive bool) domain.HistoricalDispatch {
	h := domain.HistoricalDispatch{}
	h.RequiredSkill = required
	h.TechnicianPrimarySkillAtTime = tech
	h.Productive = productive
	return h
}

func TestScore_ExactMatchAlwaysOne(t *testing.T) {
	table := New()
	skills := []string{"Fiber ONT installation", "HVAC repair", ""}
	for _, s := range skills {
		if s == "" {
			continue
		}
		if got := table.Score(s, s); got != 1.0 {
			t.Errorf("Score(%q,%q) = %v, want 1.0", s, s, got)
		}
	}
}

func TestScore_UntrainedFallback(t *testing.T) {
	table := New()
	if got := table.Score("fiber", "hvac"); got != 0.3 {
		t.Errorf("untrained non-exact score = %v, want 0.3", got)
	}
}

func TestScore_LowSampleCountIsConservative(t *testing.T) {
	table := New()
	hist := []domain.HistoricalDispatch{
		mkHist("fiber", "hvac", true),
		mkHist("fiber", "hvac", true),
	}
	table.Learn(hist)
	if got := table.Score("fiber", "hvac"); got != 0.3 {
		t.Errorf("n<3 score = %v, want 0.3", got)
	}
}

func TestScore_MonotoneInSuccessRate(t *testing.T) {
	table := New()
	var hist []domain.HistoricalDispatch
	// pair A: 4/5 productive (high success rate), n>=3
	for i := 0; i < 4; i++ {
		hist = append(hist, mkHist("fiber", "electrician", true))
	}
	hist = append(hist, mkHist("fiber", "electrician", false))
	// pair B: 1/5 productive (low success rate), n>=3
	for i := 0; i < 4; i++ {
		hist = append(hist, mkHist("fiber", "plumber", false))
	}
	hist = append(hist, mkHist("fiber", "plumber", true))
	// exact matches to establish a non-trivial baseline
	for i := 0; i < 5; i++ {
		hist = append(hist, mkHist("fiber", "fiber", true))
	}
	table.Learn(hist)

	scoreA := table.Score("fiber", "electrician")
	scoreB := table.Score("fiber", "plumber")
	if scoreA < scoreB {
		t.Errorf("higher success rate pair scored lower: A=%v B=%v", scoreA, scoreB)
	}
}

func TestScore_ReverseOrderLookup(t *testing.T) {
	table := New()
	var hist []domain.HistoricalDispatch
	for i := 0; i < 5; i++ {
		hist = append(hist, mkHist("electrician", "fiber", true))
	}
	table.Learn(hist)

	// Score should find the (tech, req) recording even when queried (req, tech).
	got := table.Score("fiber", "electrician")
	if got <= 0.3 {
		t.Errorf("expected reverse-order lookup to find learned pair, got %v", got)
	}
}

func TestEntries_NewTableIsEmpty(t *testing.T) {
	table := New()
	entries := table.Entries()
	if len(entries) != 0 {
		t.Fatalf("new table should have no entries, got %d", len(entries))
	}
}

func TestLoadEntries_RoundTrips(t *testing.T) {
	table := New()
	var hist []domain.HistoricalDispatch
	for i := 0; i < 5; i++ {
		hist = append(hist, mkHist("fiber", "electrician", true))
	}
	table.Learn(hist)
	entries := table.Entries()

	restored := LoadEntries(entries, table.baseline)
	want := table.Score("fiber", "electrician")
	got := restored.Score("fiber", "electrician")
	if want != got {
		t.Errorf("round-tripped score = %v, want %v", got, want)
	}
}
