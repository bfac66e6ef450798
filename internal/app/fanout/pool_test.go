package fanout

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestMap_PreservesOrderOfResults(t *testing.T) {
	p := New(Config{MaxConcurrent: 3})
	items := []int{1, 2, 3, 4, 5}
	results := Map(context.Background(), p, items, func(_ context.Context, n int) (int, error) {
		return n * n, nil
	})
	want := []int{1, 4, 9, 16, 25}
	for i, v := range want {
		if results[i] != v {
			t.Errorf("results[%d] = %d, want %d", i, results[i], v)
		}
	}
}

func TestMap_NeverExceedsMaxConcurrent(t *testing.T) {
	p := New(Config{MaxConcurrent: 2})
	var inFlight, maxSeen int64

	items := make([]int, 20)
	Map(context.Background(), p, items, func(_ context.Context, _ int) (int, error) {
		n := atomic.AddInt64(&inFlight, 1)
		for {
			m := atomic.LoadInt64(&maxSeen)
			if n <= m || atomic.CompareAndSwapInt64(&maxSeen, m, n) {
				break
			}
		}
		atomic.AddInt64(&inFlight, -1)
		return 0, nil
	})

	if maxSeen > 2 {
		t.Errorf("observed %d concurrent workers, want at most 2", maxSeen)
	}
}

func TestMap_OneFailureDoesNotAbortOthers(t *testing.T) {
	p := New(DefaultConfig())
	items := []int{1, 2, 3}
	results := Map(context.Background(), p, items, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, errors.New("boom")
		}
		return n, nil
	})
	if results[0] != 1 || results[2] != 3 {
		t.Errorf("results = %v, want successful items untouched", results)
	}
	if results[1] != 0 {
		t.Errorf("results[1] = %d, want zero value for the failed item", results[1])
	}
	stats := p.Stats()
	if stats.Failed != 1 || stats.Completed != 2 {
		t.Errorf("stats = %+v, want 1 failed and 2 completed", stats)
	}
}

func TestNew_NonPositiveConcurrencyFallsBackToDefault(t *testing.T) {
	p := New(Config{MaxConcurrent: 0})
	if p.Stats().MaxSlots != DefaultConfig().MaxConcurrent {
		t.Errorf("MaxSlots = %d, want default %d", p.Stats().MaxSlots, DefaultConfig().MaxConcurrent)
	}
}
