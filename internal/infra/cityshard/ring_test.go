package cityshard

import "testing"

func TestRing_EmptyRingReturnsNoShard(t *testing.T) {
	r := New(DefaultConfig())
	if got := r.ShardFor("Springfield"); got != "" {
		t.Errorf("ShardFor() on empty ring = %q, want empty", got)
	}
}

func TestRing_SameCityAlwaysMapsToSameShard(t *testing.T) {
	r := New(DefaultConfig())
	r.AddShard("w0")
	r.AddShard("w1")
	r.AddShard("w2")

	first := r.ShardFor("Springfield")
	for i := 0; i < 20; i++ {
		if got := r.ShardFor("Springfield"); got != first {
			t.Fatalf("ShardFor(\"Springfield\") changed across calls: %q then %q", first, got)
		}
	}
}

func TestRing_DistributesAcrossManyShards(t *testing.T) {
	r := New(DefaultConfig())
	for i := 0; i < 8; i++ {
		r.AddShard(string(rune('a' + i)))
	}
	seen := make(map[string]bool)
	cities := []string{"Springfield", "Capital City", "Shelbyville", "Ogdenville", "North Haverbrook", "Brockway"}
	for _, c := range cities {
		seen[r.ShardFor(c)] = true
	}
	if len(seen) < 2 {
		t.Errorf("expected cities to spread across more than one shard, got %v", seen)
	}
}

func TestRing_RemoveShardStopsRoutingToIt(t *testing.T) {
	r := New(DefaultConfig())
	r.AddShard("solo")
	if got := r.ShardFor("Springfield"); got != "solo" {
		t.Fatalf("ShardFor() = %q, want solo", got)
	}
	r.RemoveShard("solo")
	if got := r.ShardFor("Springfield"); got != "" {
		t.Errorf("ShardFor() after removing the only shard = %q, want empty", got)
	}
}

func TestRing_ShardsReturnsSortedRegisteredIDs(t *testing.T) {
	r := New(DefaultConfig())
	r.AddShard("w2")
	r.AddShard("w0")
	r.AddShard("w1")
	got := r.Shards()
	want := []string{"w0", "w1", "w2"}
	if len(got) != len(want) {
		t.Fatalf("len(Shards()) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Shards()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if r.Size() != 3 {
		t.Errorf("Size() = %d, want 3", r.Size())
	}
}
