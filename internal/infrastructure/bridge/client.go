package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vitos/signal_tracker/internal/domain"
	"go.uber.org/zap"
)

// Client is the REST side of the MT5 bridge: a periodic full snapshot of
// currently open positions plus a health probe.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// positionPayload mirrors the bridge's position JSON. Magic is the
// user-assigned tag; 0 means untagged.
type positionPayload struct {
	ID           json.Number `json:"id"`
	Symbol       string      `json:"symbol"`
	Type         string      `json:"type"`
	Volume       float64     `json:"volume"`
	OpenPrice    float64     `json:"openPrice"`
	CurrentPrice float64     `json:"currentPrice"`
	Profit       float64     `json:"profit"`
	Magic        json.Number `json:"magic"`
	Comment      string      `json:"comment"`
	Time         int64       `json:"time"`
}

// GetPositions fetches the open-position snapshot. Entries with no derivable
// code are excluded and logged; they cannot be tracked.
func (c *Client) GetPositions(ctx context.Context) ([]*domain.PositionSnapshot, error) {
	body, err := c.get(ctx, "/api/trades/positions")
	if err != nil {
		return nil, err
	}

	var payload []positionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode positions: %w", err)
	}

	snapshot := make([]*domain.PositionSnapshot, 0, len(payload))
	for _, p := range payload {
		entry := toSnapshot(p)
		if entry.Code == "" {
			c.logger.Warn("Position without derivable code skipped", zap.String("symbol", p.Symbol))
			continue
		}
		snapshot = append(snapshot, entry)
	}
	return snapshot, nil
}

// Health probes the bridge, reporting whether the terminal connection is up.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.get(ctx, "/api/health")
	return err
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("bridge error %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func toSnapshot(p positionPayload) *domain.PositionSnapshot {
	entry := &domain.PositionSnapshot{
		Code:         domain.DeriveCode(magicString(p.Magic), p.Comment, p.ID.String()),
		RawID:        p.ID.String(),
		Symbol:       p.Symbol,
		Direction:    parseDirection(p.Type),
		Volume:       p.Volume,
		OpenPrice:    p.OpenPrice,
		CurrentPrice: p.CurrentPrice,
		Profit:       p.Profit,
	}
	if p.Time > 0 {
		entry.OpenTime = time.UnixMilli(p.Time)
	} else {
		entry.OpenTime = time.Now()
	}
	return entry
}

// parseDirection maps MT5 type strings like "POSITION_TYPE_BUY" or "BUY".
func parseDirection(t string) domain.Direction {
	if strings.Contains(t, "BUY") {
		return domain.DirectionBuy
	}
	return domain.DirectionSell
}

func magicString(n json.Number) string {
	s := n.String()
	if s == "0" {
		return ""
	}
	return s
}
