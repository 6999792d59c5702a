package bridge

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vitos/signal_tracker/internal/domain"
	"go.uber.org/zap"
)

const reconnectDelay = 3 * time.Second

// Stream is the push side of the MT5 bridge: a websocket delivering
// position_opened / deal_closed / position_closed envelopes. position_closed
// is ignored deliberately; realized profit for closes is sourced from
// deal_closed only.
type Stream struct {
	url    string
	logger *zap.Logger

	mu              sync.Mutex
	conn            *websocket.Conn
	closed          bool
	openedCallbacks []func(*domain.PositionSnapshot)
	dealCallbacks   []func(*domain.DealEvent)
}

func NewStream(url string, logger *zap.Logger) *Stream {
	return &Stream{
		url:    url,
		logger: logger,
	}
}

// OnPositionOpened registers a callback for position_opened events.
func (s *Stream) OnPositionOpened(cb func(*domain.PositionSnapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openedCallbacks = append(s.openedCallbacks, cb)
}

// OnDealClosed registers a callback for deal_closed events.
func (s *Stream) OnDealClosed(cb func(*domain.DealEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dealCallbacks = append(s.dealCallbacks, cb)
}

// Connect dials the bridge and starts the read loop. The loop reconnects on
// its own until Close is called; events missed while disconnected are covered
// by the matcher's estimation fallback.
func (s *Stream) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	go s.readLoop(conn)
	return nil
}

func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.conn != nil {
		s.conn.Close()
	}
}

// envelope is the bridge's push message frame.
type envelope struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

type dealPayload struct {
	ID         json.Number `json:"id"`
	PositionID json.Number `json:"positionId"`
	Profit     float64     `json:"profit"`
	Volume     float64     `json:"volume"`
	Price      float64     `json:"price"`
}

func (s *Stream) readLoop(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			s.mu.Lock()
			done := s.closed
			s.mu.Unlock()
			if done {
				return
			}
			s.logger.Warn("Event stream disconnected, reconnecting", zap.Error(err))
			s.reconnect()
			return
		}

		var env envelope
		if err := json.Unmarshal(message, &env); err != nil {
			s.logger.Warn("Malformed event frame", zap.Error(err))
			continue
		}
		s.dispatch(env)
	}
}

func (s *Stream) reconnect() {
	for {
		time.Sleep(reconnectDelay)

		s.mu.Lock()
		done := s.closed
		s.mu.Unlock()
		if done {
			return
		}

		if err := s.Connect(); err != nil {
			s.logger.Warn("Reconnect failed", zap.Error(err))
			continue
		}
		s.logger.Info("Event stream reconnected")
		return
	}
}

func (s *Stream) dispatch(env envelope) {
	switch env.Event {
	case "position_opened":
		var p positionPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			s.logger.Warn("Malformed position_opened payload", zap.Error(err))
			return
		}
		entry := toSnapshot(p)
		if entry.OpenTime.IsZero() || p.Time == 0 {
			entry.OpenTime = parseTimestamp(env.Timestamp)
		}
		if entry.CurrentPrice == 0 {
			entry.CurrentPrice = entry.OpenPrice
		}
		s.mu.Lock()
		callbacks := s.openedCallbacks
		s.mu.Unlock()
		for _, cb := range callbacks {
			cb(entry)
		}

	case "deal_closed":
		var p dealPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			s.logger.Warn("Malformed deal_closed payload", zap.Error(err))
			return
		}
		event := &domain.DealEvent{
			SourceID:   p.ID.String(),
			PositionID: p.PositionID.String(),
			Profit:     p.Profit,
			Volume:     p.Volume,
			Price:      p.Price,
			ReportedAt: parseTimestamp(env.Timestamp),
			ReceivedAt: time.Now(),
		}
		s.mu.Lock()
		callbacks := s.dealCallbacks
		s.mu.Unlock()
		for _, cb := range callbacks {
			cb(event)
		}

	case "position_closed":
		// Ignored: snapshot disappearance drives the close and deal_closed
		// carries the authoritative profit.

	default:
		s.logger.Debug("Unknown event", zap.String("event", env.Event))
	}
}

func parseTimestamp(ts string) time.Time {
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t
	}
	return time.Now()
}
