package web

import (
	"encoding/json"
	"net/http"

	"github.com/vitos/signal_tracker/internal/domain"
	"go.uber.org/zap"
)

type signalsResponse struct {
	Signals     []*domain.SignalRecord `json:"signals"`
	TotalProfit float64                `json:"totalProfit"`
}

type historyResponse struct {
	History     []*domain.SignalRecord `json:"history"`
	TotalProfit float64                `json:"totalProfit"`
}

func (s *Server) handleActiveSignals(w http.ResponseWriter, r *http.Request) {
	resp := signalsResponse{
		Signals:     s.tracker.ActiveSignals(),
		TotalProfit: s.tracker.ActiveProfit(),
	}
	s.writeJSON(w, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	resp := historyResponse{
		History:     s.archiver.Entries(),
		TotalProfit: s.archiver.TotalProfit(),
	}
	s.writeJSON(w, resp)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.Sync(r.Context()); err != nil {
		s.logger.Error("Manual sync failed", zap.Error(err))
		http.Error(w, "Sync failed", http.StatusBadGateway)
		return
	}
	s.writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.archiver.Clear(r.Context()); err != nil {
		s.logger.Error("Failed to clear history", zap.Error(err))
		http.Error(w, "Failed to clear history", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	bridge := "connected"
	if err := s.prober.Health(r.Context()); err != nil {
		bridge = "disconnected"
	}
	s.writeJSON(w, map[string]string{"status": "ok", "bridge": bridge})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}
