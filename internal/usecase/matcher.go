package usecase

import (
	"math"
	"time"

	"github.com/vitos/signal_tracker/internal/domain"
)

const (
	// MatchVolumeTolerance is the max lot difference between a buffered deal
	// and the snapshot-observed closed volume for a partial-close match.
	MatchVolumeTolerance = 0.005

	// MatchRecency is how long after arrival a buffered deal stays eligible.
	MatchRecency = 15 * time.Second
)

// Resolution is the realized profit/price for one close step, either taken
// from a matched deal event or estimated from the last snapshot figures.
type Resolution struct {
	Profit    float64
	Price     float64
	Estimated bool
}

// DealMatcher correlates snapshot-detected closes with buffered deal events.
// First satisfying event wins; buffered events are few and short-lived, so
// first-match is deterministic given the recency bound. A matched event is
// consumed from the buffer.
type DealMatcher struct {
	buffer *DealBuffer
	now    func() time.Time
}

func NewDealMatcher(buffer *DealBuffer) *DealMatcher {
	return &DealMatcher{
		buffer: buffer,
		now:    time.Now,
	}
}

// ResolvePartial resolves profit and price for a partial close. Matching
// requires id correlation, closed-volume agreement within tolerance, and
// recency. Without a match, profit is allocated proportionally from the last
// snapshot profit and price falls back to the current snapshot price.
func (m *DealMatcher) ResolvePartial(ev DiffEvent) Resolution {
	now := m.now()
	deal := m.buffer.Take(func(d *domain.DealEvent) bool {
		if d.PositionID != ev.Entry.RawID && !d.Correlates(ev.Code) {
			return false
		}
		if math.Abs(d.Volume-ev.ClosedVolume) >= MatchVolumeTolerance {
			return false
		}
		return now.Sub(d.ReceivedAt) < MatchRecency
	})
	if deal != nil {
		return Resolution{Profit: deal.Profit, Price: deal.Price}
	}
	return Resolution{
		Profit:    EstimatePartialProfit(ev.PrevProfit, ev.PrevVolume, ev.ClosedVolume),
		Price:     ev.Entry.CurrentPrice,
		Estimated: true,
	}
}

// ResolveFull resolves profit and price for a full close. Matching requires
// id correlation and recency only. Without a match, the last live figures are
// used; availability wins over precision so state progression never waits for
// a delayed event.
func (m *DealMatcher) ResolveFull(ev DiffEvent) Resolution {
	now := m.now()
	deal := m.buffer.Take(func(d *domain.DealEvent) bool {
		return d.Correlates(ev.Code) && now.Sub(d.ReceivedAt) < MatchRecency
	})
	if deal != nil {
		return Resolution{Profit: deal.Profit, Price: deal.Price}
	}
	return Resolution{
		Profit:    ev.PrevProfit,
		Price:     ev.PrevPrice,
		Estimated: true,
	}
}

// EstimatePartialProfit allocates the last known unrealized profit
// proportionally to the closed volume.
func EstimatePartialProfit(prevProfit, prevVolume, closedVolume float64) float64 {
	if prevVolume <= 0 {
		return 0
	}
	return prevProfit * (closedVolume / prevVolume)
}
