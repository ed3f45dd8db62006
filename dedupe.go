package apiclient

import (
	"context"
	"sync"
)

// dedupeEntry is one in-flight read shared between an owner and its waiters.
type dedupeEntry struct {
	mu       sync.Mutex
	envelope *Envelope
	done     chan struct{}
	waiters  int
}

// dedupeTracker coalesces concurrent identical reads into a single network
// attempt. Opt-in: by default every concurrent caller performs its own fetch
// and the last successful write wins the cache slot.
type dedupeTracker struct {
	mu      sync.Mutex
	entries map[string]*dedupeEntry
}

func newDedupeTracker() *dedupeTracker {
	return &dedupeTracker{
		entries: make(map[string]*dedupeEntry),
	}
}

// getOrCreate returns the entry for key and whether the caller owns it. The
// owner performs the fetch and must call complete; everyone else waits.
func (dt *dedupeTracker) getOrCreate(key string) (*dedupeEntry, bool) {
	dt.mu.Lock()
	defer dt.mu.Unlock()

	if entry, ok := dt.entries[key]; ok {
		entry.mu.Lock()
		entry.waiters++
		entry.mu.Unlock()
		return entry, false
	}

	entry := &dedupeEntry{
		done:    make(chan struct{}),
		waiters: 1,
	}
	dt.entries[key] = entry
	return entry, true
}

// complete publishes the owner's result and releases every waiter. The entry
// is removed immediately; a later identical read starts a fresh fetch.
func (dt *dedupeTracker) complete(key string, env *Envelope) {
	dt.mu.Lock()
	entry, ok := dt.entries[key]
	if ok {
		delete(dt.entries, key)
	}
	dt.mu.Unlock()

	if !ok {
		return
	}

	entry.mu.Lock()
	entry.envelope = env
	entry.mu.Unlock()
	close(entry.done)
}

// inflight reports how many distinct reads are currently being coalesced.
func (dt *dedupeTracker) inflight() int {
	dt.mu.Lock()
	defer dt.mu.Unlock()
	return len(dt.entries)
}

// wait blocks until the owner publishes or the waiter's context ends. On
// cancellation the waiter gets nil and synthesizes its own failure envelope;
// the owner's fetch is unaffected.
func (entry *dedupeEntry) wait(ctx context.Context) (*Envelope, bool) {
	select {
	case <-entry.done:
		entry.mu.Lock()
		env := entry.envelope
		entry.mu.Unlock()
		return env, true
	case <-ctx.Done():
		return nil, false
	}
}
