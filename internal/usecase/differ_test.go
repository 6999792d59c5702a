package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/signal_tracker/internal/domain"
	"github.com/vitos/signal_tracker/internal/usecase"
)

func TestSnapshotDiffer_NewCodeIsOpened(t *testing.T) {
	differ := usecase.NewSnapshotDiffer()

	events := differ.Diff(
		map[string]*domain.PositionSnapshot{},
		[]*domain.PositionSnapshot{snapshotEntry("A1", 1.0, 0, 2400)},
	)

	require.Len(t, events, 1)
	assert.Equal(t, usecase.DiffOpened, events[0].Kind)
	assert.Equal(t, "A1", events[0].Code)
}

func TestSnapshotDiffer_VolumeNoiseIsNotPartialClose(t *testing.T) {
	differ := usecase.NewSnapshotDiffer()
	prev := map[string]*domain.PositionSnapshot{"A1": snapshotEntry("A1", 1.0, 10, 2400)}

	// A 0.0005 lot delta is floating-point noise, not a close.
	events := differ.Diff(prev, []*domain.PositionSnapshot{snapshotEntry("A1", 0.9995, 10, 2400)})
	require.Len(t, events, 1)
	assert.Equal(t, usecase.DiffUpdated, events[0].Kind)

	// A 0.01 lot delta is a real partial close.
	events = differ.Diff(prev, []*domain.PositionSnapshot{snapshotEntry("A1", 0.99, 10, 2400)})
	require.Len(t, events, 1)
	assert.Equal(t, usecase.DiffPartialClose, events[0].Kind)
	assert.InDelta(t, 0.01, events[0].ClosedVolume, 1e-9)
	assert.InDelta(t, 0.99, events[0].RemainingVolume, 1e-9)
}

func TestSnapshotDiffer_PartialCloseCarriesPreviousFigures(t *testing.T) {
	differ := usecase.NewSnapshotDiffer()
	before := snapshotEntry("A1", 1.0, 12, 2400)
	after := snapshotEntry("A1", 0.5, 7, 2410)

	events := differ.Diff(map[string]*domain.PositionSnapshot{"A1": before}, []*domain.PositionSnapshot{after})

	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, usecase.DiffPartialClose, ev.Kind)
	assert.InDelta(t, 0.5, ev.ClosedVolume, 1e-9)
	assert.InDelta(t, 1.0, ev.PrevVolume, 1e-9)
	assert.InDelta(t, 12.0, ev.PrevProfit, 1e-9)
	assert.Same(t, after, ev.Entry)
}

func TestSnapshotDiffer_DisappearedCodeIsFullClose(t *testing.T) {
	differ := usecase.NewSnapshotDiffer()
	prev := map[string]*domain.PositionSnapshot{
		"A1": snapshotEntry("A1", 1.0, 12, 2400),
		"B2": snapshotEntry("B2", 0.3, -4, 1.08),
	}

	events := differ.Diff(prev, []*domain.PositionSnapshot{snapshotEntry("B2", 0.3, -4, 1.08)})

	require.Len(t, events, 2)
	assert.Equal(t, usecase.DiffUpdated, events[0].Kind)
	assert.Equal(t, usecase.DiffFullClose, events[1].Kind)
	assert.Equal(t, "A1", events[1].Code)
	assert.InDelta(t, 12.0, events[1].PrevProfit, 1e-9)
	assert.InDelta(t, 1.0, events[1].PrevVolume, 1e-9)
}

func TestSnapshotDiffer_EmptySnapshotClosesEverything(t *testing.T) {
	differ := usecase.NewSnapshotDiffer()
	prev := map[string]*domain.PositionSnapshot{
		"B2": snapshotEntry("B2", 0.3, 1, 1.08),
		"A1": snapshotEntry("A1", 1.0, 2, 2400),
	}

	events := differ.Diff(prev, nil)

	require.Len(t, events, 2)
	// Disappearances come out in sorted order for deterministic cycles.
	assert.Equal(t, "A1", events[0].Code)
	assert.Equal(t, "B2", events[1].Code)
}

func TestSnapshotDiffer_SkipsEntriesWithoutCode(t *testing.T) {
	differ := usecase.NewSnapshotDiffer()

	entry := snapshotEntry("", 1.0, 0, 2400)
	events := differ.Diff(map[string]*domain.PositionSnapshot{}, []*domain.PositionSnapshot{entry})

	assert.Empty(t, events)
}
