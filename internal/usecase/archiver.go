package usecase

import (
	"context"
	"sync"

	"github.com/vitos/signal_tracker/internal/domain"
	"go.uber.org/zap"
)

// DefaultHistoryCap bounds the closed-signal archive.
const DefaultHistoryCap = 100

// HistoryArchiver owns the bounded, most-recent-first archive of closed
// signals. Archive is idempotent on (code, closeTime): both the full-close
// path and a defensive re-sync may hand over the same record.
type HistoryArchiver struct {
	repo     domain.HistoryRepository
	logger   *zap.Logger
	capacity int

	mu      sync.RWMutex
	entries []*domain.SignalRecord
}

func NewHistoryArchiver(capacity int, repo domain.HistoryRepository, logger *zap.Logger) *HistoryArchiver {
	if capacity <= 0 {
		capacity = DefaultHistoryCap
	}
	return &HistoryArchiver{
		repo:     repo,
		logger:   logger,
		capacity: capacity,
	}
}

// Warm seeds the archive from durable state at startup. Entries are expected
// most-recent-first, as ListHistory returns them.
func (a *HistoryArchiver) Warm(entries []*domain.SignalRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(entries) > a.capacity {
		entries = entries[:a.capacity]
	}
	a.entries = entries
}

// Archive prepends a closed signal unless an entry with the same code and
// close time already exists. Oldest entries are dropped past capacity.
// Returns true when the record was added.
func (a *HistoryArchiver) Archive(ctx context.Context, record *domain.SignalRecord) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, e := range a.entries {
		if e.Code == record.Code && e.CloseTime.Equal(record.CloseTime) {
			return false
		}
	}

	a.entries = append([]*domain.SignalRecord{record}, a.entries...)
	if len(a.entries) > a.capacity {
		a.entries = a.entries[:a.capacity]
	}

	if err := a.repo.SaveHistory(ctx, record); err != nil {
		a.logger.Error("Failed to persist history entry",
			zap.String("code", record.Code), zap.Error(err))
	}
	return true
}

// Entries returns a copy of the archive, most recent first.
func (a *HistoryArchiver) Entries() []*domain.SignalRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*domain.SignalRecord, len(a.entries))
	copy(out, a.entries)
	return out
}

// TotalProfit sums realized profit across the archive.
func (a *HistoryArchiver) TotalProfit() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var sum float64
	for _, e := range a.entries {
		sum += e.CloseProfit
	}
	return sum
}

// Clear empties the archive in memory and in the durable store.
func (a *HistoryArchiver) Clear(ctx context.Context) error {
	a.mu.Lock()
	a.entries = nil
	a.mu.Unlock()
	return a.repo.ClearHistory(ctx)
}
