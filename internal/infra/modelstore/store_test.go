package modelstore

import "testing"

func TestStore_SaveThenLoadRoundTrips(t *testing.T) {
	s := New(t.TempDir())
	ref := Ref{Name: "default", Tag: "2026-07-31"}
	want := Snapshot{
		SkillCompat:     nil,
		SkillBaseline:   0.62,
		SuccessWeights:  []float64{0.1, -0.2, 0.3},
		SuccessBias:     0.05,
		DurationWeights: []float64{1.0, 2.0},
		DurationBias:    15.0,
	}

	if err := s.Save(ref, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !s.HasLocal(ref) {
		t.Fatal("HasLocal() = false after Save")
	}

	got, err := s.Load(ref)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.SkillBaseline != want.SkillBaseline || got.SuccessBias != want.SuccessBias || got.DurationBias != want.DurationBias {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
	if len(got.SuccessWeights) != len(want.SuccessWeights) {
		t.Errorf("SuccessWeights len = %d, want %d", len(got.SuccessWeights), len(want.SuccessWeights))
	}
}

func TestStore_LoadMissingRefReturnsNotFound(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Load(Ref{Name: "nope"})
	if err == nil {
		t.Fatal("Load() on missing ref: want error, got nil")
	}
}

func TestStore_RemoveThenHasLocalIsFalse(t *testing.T) {
	s := New(t.TempDir())
	ref := Ref{Name: "default"}
	if err := s.Save(ref, Snapshot{SuccessBias: 1}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Remove(ref); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if s.HasLocal(ref) {
		t.Error("HasLocal() = true after Remove")
	}
}

func TestStore_ListReturnsEverySavedRef(t *testing.T) {
	s := New(t.TempDir())
	refs := []Ref{{Name: "a", Tag: "1"}, {Name: "a", Tag: "2"}, {Name: "b"}}
	for _, r := range refs {
		if err := s.Save(r, Snapshot{SuccessBias: 1}); err != nil {
			t.Fatalf("Save(%v) error = %v", r, err)
		}
	}

	got, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != len(refs) {
		t.Fatalf("List() returned %d refs, want %d: %v", len(got), len(refs), got)
	}
}

func TestParseRef_DefaultsTagToLatest(t *testing.T) {
	r := ParseRef("default")
	if r.Tag != "" || r.String() != "default:latest" {
		t.Errorf("ParseRef(%q) = %+v, String() = %q", "default", r, r.String())
	}
	r2 := ParseRef("default:v2")
	if r2.Tag != "v2" {
		t.Errorf("ParseRef(%q).Tag = %q, want v2", "default:v2", r2.Tag)
	}
}
