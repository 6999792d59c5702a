package usecase

import (
	"sort"

	"github.com/vitos/signal_tracker/internal/domain"
)

// VolumeEpsilon absorbs floating-point noise in broker-reported lot volumes;
// deltas at or below it are not partial closes.
const VolumeEpsilon = 0.001

type DiffKind string

const (
	DiffOpened       DiffKind = "opened"
	DiffUpdated      DiffKind = "updated"
	DiffPartialClose DiffKind = "partial_close"
	DiffFullClose    DiffKind = "full_close"
)

// DiffEvent describes one change between two consecutive snapshots.
// Entry is the current snapshot entry for Opened/Updated/PartialClose and the
// last seen entry for FullClose. Prev* fields carry the pre-change figures a
// close needs for estimation.
type DiffEvent struct {
	Kind            DiffKind
	Code            string
	Entry           *domain.PositionSnapshot
	ClosedVolume    float64
	RemainingVolume float64
	PrevVolume      float64
	PrevProfit      float64
	PrevPrice       float64
}

// SnapshotDiffer classifies each position code across two consecutive polls.
// It is pure: it never mutates tracker state.
type SnapshotDiffer struct{}

func NewSnapshotDiffer() *SnapshotDiffer {
	return &SnapshotDiffer{}
}

// Diff compares the previous snapshot map against the current poll result.
// Current entries are processed in poll order; disappeared codes are emitted
// last, in sorted order so a cycle is deterministic.
func (d *SnapshotDiffer) Diff(prev map[string]*domain.PositionSnapshot, current []*domain.PositionSnapshot) []DiffEvent {
	var events []DiffEvent
	seen := make(map[string]bool, len(current))

	for _, entry := range current {
		if entry.Code == "" {
			continue
		}
		seen[entry.Code] = true

		before, ok := prev[entry.Code]
		if !ok {
			events = append(events, DiffEvent{
				Kind:  DiffOpened,
				Code:  entry.Code,
				Entry: entry,
			})
			continue
		}

		if before.Volume > entry.Volume+VolumeEpsilon {
			events = append(events, DiffEvent{
				Kind:            DiffPartialClose,
				Code:            entry.Code,
				Entry:           entry,
				ClosedVolume:    before.Volume - entry.Volume,
				RemainingVolume: entry.Volume,
				PrevVolume:      before.Volume,
				PrevProfit:      before.Profit,
				PrevPrice:       before.CurrentPrice,
			})
			continue
		}

		events = append(events, DiffEvent{
			Kind:  DiffUpdated,
			Code:  entry.Code,
			Entry: entry,
		})
	}

	var gone []string
	for code := range prev {
		if !seen[code] {
			gone = append(gone, code)
		}
	}
	sort.Strings(gone)

	for _, code := range gone {
		before := prev[code]
		events = append(events, DiffEvent{
			Kind:       DiffFullClose,
			Code:       code,
			Entry:      before,
			PrevVolume: before.Volume,
			PrevProfit: before.Profit,
			PrevPrice:  before.CurrentPrice,
		})
	}

	return events
}
