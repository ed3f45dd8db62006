package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDedupeTrackerOwnership(t *testing.T) {
	tracker := newDedupeTracker()

	entry, owner := tracker.getOrCreate("k")
	if !owner {
		t.Fatal("First caller must own the entry")
	}
	if _, second := tracker.getOrCreate("k"); second {
		t.Fatal("Second caller must not own the entry")
	}
	if tracker.inflight() != 1 {
		t.Errorf("Expected 1 in-flight entry, got %d", tracker.inflight())
	}

	env := testEnvelope(`1`)
	tracker.complete("k", env)

	got, ok := entry.wait(context.Background())
	if !ok || got != env {
		t.Error("Waiter must observe the owner's envelope")
	}
	if tracker.inflight() != 0 {
		t.Errorf("Completed entry must be removed, got %d in flight", tracker.inflight())
	}

	// A later identical read starts fresh.
	if _, owner := tracker.getOrCreate("k"); !owner {
		t.Error("A read after completion must own a new entry")
	}
}

func TestDedupeWaiterCancellation(t *testing.T) {
	tracker := newDedupeTracker()
	tracker.getOrCreate("k")
	entry, _ := tracker.getOrCreate("k")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok := entry.wait(ctx); ok {
		t.Error("A cancelled waiter must not report a result")
	}
}

// With deduplication enabled, concurrent identical reads share one network
// attempt.
func TestDeduplicationCoalescesConcurrentReads(t *testing.T) {
	var calls int64
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		<-release
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(envelopeBody))
	}))
	defer server.Close()

	client := newTestClient(server, WithDeduplication())
	ctx := context.Background()

	const waiters = 5
	var wg sync.WaitGroup
	results := make([]*Envelope, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = client.ListCategories(ctx)
		}(i)
	}

	// Let every goroutine reach the tracker before the owner's attempt
	// completes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Errorf("Expected 1 coalesced network call for %d readers, got %d", waiters, got)
	}
	for i, env := range results {
		if env == nil || !env.Success {
			t.Errorf("Reader %d did not get a success envelope", i)
		}
	}
}

// Without deduplication each concurrent reader performs its own attempt and
// the last successful write wins the cache slot.
func TestNoDeduplicationByDefault(t *testing.T) {
	var calls int64
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		<-release
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(envelopeBody))
	}))
	defer server.Close()

	client := newTestClient(server)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client.ListCategories(ctx)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt64(&calls); got != 3 {
		t.Errorf("Expected 3 independent network calls, got %d", got)
	}
}
