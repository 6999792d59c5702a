package usecase_test

import (
	"context"
	"fmt"
	"time"

	"github.com/vitos/signal_tracker/internal/domain"
	"go.uber.org/zap"
)

// MockSource returns the snapshot assigned to Next, or Err.
type MockSource struct {
	Next []*domain.PositionSnapshot
	Err  error
}

func (m *MockSource) GetPositions(ctx context.Context) ([]*domain.PositionSnapshot, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Next, nil
}

// MockSignalRepo keeps signals in a map and counts writes.
type MockSignalRepo struct {
	Signals map[string]*domain.SignalRecord
	Saves   int
	Deletes int
	SaveErr error
}

func NewMockSignalRepo() *MockSignalRepo {
	return &MockSignalRepo{Signals: make(map[string]*domain.SignalRecord)}
}

func (m *MockSignalRepo) SaveSignal(ctx context.Context, signal *domain.SignalRecord) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Saves++
	m.Signals[signal.Code] = signal
	return nil
}

func (m *MockSignalRepo) DeleteSignal(ctx context.Context, code string) error {
	m.Deletes++
	delete(m.Signals, code)
	return nil
}

func (m *MockSignalRepo) ListSignals(ctx context.Context) ([]*domain.SignalRecord, error) {
	var out []*domain.SignalRecord
	for _, s := range m.Signals {
		out = append(out, s)
	}
	return out, nil
}

// MockHistoryRepo records archived entries in order.
type MockHistoryRepo struct {
	Saved   []*domain.SignalRecord
	Cleared bool
}

func (m *MockHistoryRepo) SaveHistory(ctx context.Context, signal *domain.SignalRecord) error {
	m.Saved = append(m.Saved, signal)
	return nil
}

func (m *MockHistoryRepo) ListHistory(ctx context.Context, limit int) ([]*domain.SignalRecord, error) {
	if len(m.Saved) > limit {
		return m.Saved[:limit], nil
	}
	return m.Saved, nil
}

func (m *MockHistoryRepo) ClearHistory(ctx context.Context) error {
	m.Cleared = true
	m.Saved = nil
	return nil
}

func snapshotEntry(code string, volume, profit, price float64) *domain.PositionSnapshot {
	return &domain.PositionSnapshot{
		Code:         code,
		RawID:        "9000" + code,
		Symbol:       "XAUUSD.ec",
		Direction:    domain.DirectionBuy,
		Volume:       volume,
		OpenPrice:    price,
		CurrentPrice: price,
		Profit:       profit,
		OpenTime:     time.Now(),
	}
}

var dealSeq int

func dealEvent(positionID string, volume, profit float64, age time.Duration) *domain.DealEvent {
	dealSeq++
	return &domain.DealEvent{
		SourceID:   fmt.Sprintf("deal-%d", dealSeq),
		PositionID: positionID,
		Profit:     profit,
		Volume:     volume,
		Price:      2400,
		ReportedAt: time.Now().Add(-age),
		ReceivedAt: time.Now().Add(-age),
	}
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
