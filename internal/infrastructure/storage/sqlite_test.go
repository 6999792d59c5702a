package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/signal_tracker/internal/domain"
	"github.com/vitos/signal_tracker/internal/infrastructure/storage"
)

func newTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "tracker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleSignal(code string) *domain.SignalRecord {
	return &domain.SignalRecord{
		Code:       code,
		Symbol:     "XAUUSD.ec",
		Direction:  domain.DirectionBuy,
		OpenPrice:  2400,
		OpenVolume: 1.0,
		OpenTime:   time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Status:     domain.StatusActive,
		Actions: []domain.ActionRecord{
			{Kind: domain.ActionPartialClose, ClosedVolume: 0.5, RemainingVolume: 0.5, Profit: 6, Estimated: true},
		},
		LiveVolume: 0.5,
		LivePrice:  2410,
		LiveProfit: 7,
	}
}

func TestSQLiteStore_SignalRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	signal := sampleSignal("A1")
	require.NoError(t, store.SaveSignal(ctx, signal))

	// Saving again upserts rather than duplicating.
	signal.LiveProfit = 9
	require.NoError(t, store.SaveSignal(ctx, signal))

	signals, err := store.ListSignals(ctx)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	got := signals[0]
	assert.Equal(t, "A1", got.Code)
	assert.InDelta(t, 9.0, got.LiveProfit, 1e-9)
	require.Len(t, got.Actions, 1)
	assert.Equal(t, domain.ActionPartialClose, got.Actions[0].Kind)
	assert.True(t, got.Actions[0].Estimated)

	require.NoError(t, store.DeleteSignal(ctx, "A1"))
	signals, err = store.ListSignals(ctx)
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestSQLiteStore_HistoryDedupAndOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := sampleSignal("A1")
	older.Status = domain.StatusClosed
	older.CloseProfit = 14
	older.CloseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	newer := sampleSignal("B2")
	newer.Status = domain.StatusClosed
	newer.CloseProfit = -3
	newer.CloseTime = older.CloseTime.Add(time.Hour)

	require.NoError(t, store.SaveHistory(ctx, older))
	require.NoError(t, store.SaveHistory(ctx, older)) // same (code, closeTime): no-op
	require.NoError(t, store.SaveHistory(ctx, newer))

	entries, err := store.ListHistory(ctx, 100)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "B2", entries[0].Code)
	assert.Equal(t, "A1", entries[1].Code)
	assert.InDelta(t, 14.0, entries[1].CloseProfit, 1e-9)

	require.NoError(t, store.ClearHistory(ctx))
	entries, err = store.ListHistory(ctx, 100)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
