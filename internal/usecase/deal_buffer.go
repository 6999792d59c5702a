package usecase

import (
	"sync"

	"github.com/vitos/signal_tracker/internal/domain"
)

const (
	// DealBufferCap bounds how many unmatched deal events are retained.
	// Insertion beyond capacity evicts the oldest entry regardless of match
	// status; a later correlation attempt for it falls back to estimation.
	DealBufferCap = 20

	// dedupKeyRetention bounds the set of remembered dedup keys.
	dedupKeyRetention = 256
)

// DealBuffer retains recent deal-closed events for matching against snapshot
// diffs. Safe for concurrent append (event stream) and removal (matcher).
type DealBuffer struct {
	mu       sync.Mutex
	deals    []*domain.DealEvent
	seen     map[string]struct{}
	seenKeys []string
}

func NewDealBuffer() *DealBuffer {
	return &DealBuffer{
		seen: make(map[string]struct{}),
	}
}

// Ingest appends a deal event. Repeated delivery of the same underlying deal
// (same dedup key) is a no-op; returns false in that case.
func (b *DealBuffer) Ingest(event *domain.DealEvent) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := event.DedupKey()
	if _, ok := b.seen[key]; ok {
		return false
	}
	b.seen[key] = struct{}{}
	b.seenKeys = append(b.seenKeys, key)
	if len(b.seenKeys) > dedupKeyRetention {
		delete(b.seen, b.seenKeys[0])
		b.seenKeys = b.seenKeys[1:]
	}

	b.deals = append(b.deals, event)
	if len(b.deals) > DealBufferCap {
		b.deals = b.deals[len(b.deals)-DealBufferCap:]
	}
	return true
}

// Take atomically removes and returns the first buffered event satisfying the
// predicate, or nil. Buffered order is arrival order, so with several
// candidates the earliest-buffered one wins.
func (b *DealBuffer) Take(pred func(*domain.DealEvent) bool) *domain.DealEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, d := range b.deals {
		if pred(d) {
			b.deals = append(b.deals[:i], b.deals[i+1:]...)
			return d
		}
	}
	return nil
}

// Len returns the number of buffered events.
func (b *DealBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.deals)
}
