package domain

import "context"

// PositionSource provides the open-position snapshot from the broker bridge.
type PositionSource interface {
	GetPositions(ctx context.Context) ([]*PositionSnapshot, error)
}

// SignalRepository defines durable storage for the active signal set.
type SignalRepository interface {
	SaveSignal(ctx context.Context, signal *SignalRecord) error
	DeleteSignal(ctx context.Context, code string) error
	ListSignals(ctx context.Context) ([]*SignalRecord, error)
}

// HistoryRepository defines durable storage for closed signals.
type HistoryRepository interface {
	SaveHistory(ctx context.Context, signal *SignalRecord) error
	ListHistory(ctx context.Context, limit int) ([]*SignalRecord, error)
	ClearHistory(ctx context.Context) error
}
