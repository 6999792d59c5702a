package bridge_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/signal_tracker/internal/domain"
	"github.com/vitos/signal_tracker/internal/infrastructure/bridge"
	"go.uber.org/zap"
)

func TestClient_GetPositions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/trades/positions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id": 123456789012, "symbol": "XAUUSD.ec", "type": "POSITION_TYPE_BUY",
			 "volume": 1.0, "openPrice": 2400.5, "currentPrice": 2405.2, "profit": 4.7,
			 "magic": 777, "comment": "", "time": 1748774400000},
			{"id": 123456789013, "symbol": "EURUSD.ec", "type": "POSITION_TYPE_SELL",
			 "volume": 0.3, "openPrice": 1.085, "currentPrice": 1.084, "profit": 3.0,
			 "magic": 0, "comment": "", "time": 1748774401000}
		]`))
	}))
	defer srv.Close()

	client := bridge.NewClient(srv.URL, zap.NewNop())
	snapshot, err := client.GetPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot, 2)

	tagged := snapshot[0]
	assert.Equal(t, "777", tagged.Code) // magic tag wins
	assert.Equal(t, "123456789012", tagged.RawID)
	assert.Equal(t, domain.DirectionBuy, tagged.Direction)
	assert.InDelta(t, 4.7, tagged.Profit, 1e-9)

	untagged := snapshot[1]
	assert.Equal(t, "56789013", untagged.Code) // raw id suffix fallback
	assert.Equal(t, domain.DirectionSell, untagged.Direction)
}

func TestClient_GetPositionsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "terminal disconnected", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := bridge.NewClient(srv.URL, zap.NewNop())
	_, err := client.GetPositions(context.Background())
	assert.Error(t, err)
}

func TestClient_Health(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/health", r.URL.Path)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	client := bridge.NewClient(srv.URL, zap.NewNop())
	assert.NoError(t, client.Health(context.Background()))
}
