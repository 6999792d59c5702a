package domain

import "time"

type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

type SignalStatus string

const (
	StatusActive SignalStatus = "active"
	StatusClosed SignalStatus = "closed"
)

type ActionKind string

const (
	ActionPartialClose ActionKind = "partial_close"
	ActionClosed       ActionKind = "closed"
)

// PositionSnapshot is one entry of the polled open-position snapshot.
// It is immutable once captured and superseded entirely by the next poll.
type PositionSnapshot struct {
	Code         string    `json:"code"`
	RawID        string    `json:"rawId"`
	Symbol       string    `json:"symbol"`
	Direction    Direction `json:"direction"`
	Volume       float64   `json:"volume"`
	OpenPrice    float64   `json:"openPrice"`
	CurrentPrice float64   `json:"currentPrice"`
	Profit       float64   `json:"profit"`
	OpenTime     time.Time `json:"openTime"`
}

// DealEvent is one realized close or partial close reported by the push
// stream. SourceID and ReportedAt identify the underlying broker deal for
// deduplication; ReceivedAt is the local arrival time used for recency checks.
type DealEvent struct {
	SourceID   string    `json:"sourceId"`
	PositionID string    `json:"positionId"`
	Profit     float64   `json:"profit"`
	Volume     float64   `json:"volume"`
	Price      float64   `json:"price"`
	ReportedAt time.Time `json:"reportedAt"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// ActionRecord is one entry in a signal's audit trail. Estimated marks a
// profit figure produced by the fallback path rather than a matched deal.
type ActionRecord struct {
	Kind            ActionKind `json:"kind"`
	ClosedVolume    float64    `json:"closedVolume"`
	RemainingVolume float64    `json:"remainingVolume"`
	Profit          float64    `json:"profit"`
	Price           float64    `json:"price"`
	Estimated       bool       `json:"estimated"`
	OccurredAt      time.Time  `json:"occurredAt"`
}

// SignalRecord is the lifecycle aggregate for one logical position: opened,
// zero or more partial closes, then a final close. Once Status is
// StatusClosed the record is immutable and CloseProfit equals the sum of all
// action profits.
type SignalRecord struct {
	Code        string         `json:"code"`
	Symbol      string         `json:"symbol"`
	Direction   Direction      `json:"direction"`
	OpenPrice   float64        `json:"openPrice"`
	OpenVolume  float64        `json:"openVolume"`
	OpenTime    time.Time      `json:"openTime"`
	Status      SignalStatus   `json:"status"`
	Actions     []ActionRecord `json:"actions"`
	LiveVolume  float64        `json:"liveVolume"`
	LivePrice   float64        `json:"livePrice"`
	LiveProfit  float64        `json:"liveProfit"`
	ClosePrice  float64        `json:"closePrice"`
	CloseProfit float64        `json:"closeProfit"`
	CloseTime   time.Time      `json:"closeTime"`
}

// Clone returns a deep copy that stays stable while the tracked original
// keeps mutating.
func (s *SignalRecord) Clone() *SignalRecord {
	c := *s
	c.Actions = make([]ActionRecord, len(s.Actions))
	copy(c.Actions, s.Actions)
	return &c
}

// ActionProfitSum returns the realized profit accumulated across the audit
// trail, including the final close action once appended.
func (s *SignalRecord) ActionProfitSum() float64 {
	var sum float64
	for _, a := range s.Actions {
		sum += a.Profit
	}
	return sum
}
