package routing

import (
	"sync"
	"testing"
	"time"
)

func TestHealthTracker_LazyBreakerPerVendor(t *testing.T) {
	ht := NewHealthTracker(3, time.Minute)

	a := ht.Breaker("openai")
	b := ht.Breaker("anthropic")
	if a == b {
		t.Error("expected distinct breakers per vendor")
	}
	if ht.Breaker("openai") != a {
		t.Error("expected the same breaker on repeat lookup")
	}
}

func TestHealthTracker_FailuresIsolatedByVendor(t *testing.T) {
	ht := NewHealthTracker(2, time.Minute)

	ht.RecordFailure("openai")
	ht.RecordFailure("openai")

	if ht.IsAvailable("openai") {
		t.Error("expected openai unavailable after threshold")
	}
	if !ht.IsAvailable("anthropic") {
		t.Error("anthropic must be unaffected by openai failures")
	}
}

func TestHealthTracker_SuccessRecovers(t *testing.T) {
	ht := NewHealthTracker(2, 10*time.Millisecond)

	ht.RecordFailure("openai")
	ht.RecordFailure("openai")
	time.Sleep(15 * time.Millisecond)

	if !ht.IsAvailable("openai") {
		t.Fatal("expected half-open probe to be allowed")
	}
	ht.RecordSuccess("openai")

	if ht.Breaker("openai").State() != StateClosed {
		t.Error("expected closed after successful probe")
	}
}

func TestHealthTracker_ConcurrentAccess(t *testing.T) {
	ht := NewHealthTracker(100, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				ht.RecordFailure("shared")
				ht.IsAvailable("shared")
				ht.RecordSuccess("shared")
			}
		}()
	}
	wg.Wait()

	if !ht.IsAvailable("shared") {
		// 100-failure threshold with interleaved successes never trips.
		t.Error("expected vendor available after balanced traffic")
	}
}
