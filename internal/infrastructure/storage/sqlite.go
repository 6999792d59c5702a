package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/signal_tracker/internal/domain"
)

// SQLiteStore persists the active signal set and the closed-signal history.
// Writes happen after every mutation; reads happen once at process start to
// warm the in-memory state.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS signals (
			code TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			direction TEXT NOT NULL,
			open_price REAL NOT NULL,
			open_volume REAL NOT NULL,
			open_time DATETIME NOT NULL,
			status TEXT NOT NULL,
			actions TEXT NOT NULL DEFAULT '[]',
			live_volume REAL NOT NULL DEFAULT 0,
			live_price REAL NOT NULL DEFAULT 0,
			live_profit REAL NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS history (
			code TEXT NOT NULL,
			symbol TEXT NOT NULL,
			direction TEXT NOT NULL,
			open_price REAL NOT NULL,
			open_volume REAL NOT NULL,
			open_time DATETIME NOT NULL,
			actions TEXT NOT NULL DEFAULT '[]',
			close_price REAL NOT NULL,
			close_profit REAL NOT NULL,
			close_time DATETIME NOT NULL,
			PRIMARY KEY (code, close_time)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_history_close_time ON history(close_time);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

// SignalRepository Implementation

func (s *SQLiteStore) SaveSignal(ctx context.Context, signal *domain.SignalRecord) error {
	actions, err := json.Marshal(signal.Actions)
	if err != nil {
		return err
	}

	query := `INSERT INTO signals (code, symbol, direction, open_price, open_volume, open_time, status, actions, live_volume, live_price, live_profit)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(code) DO UPDATE SET
			  status=excluded.status,
			  actions=excluded.actions,
			  live_volume=excluded.live_volume,
			  live_price=excluded.live_price,
			  live_profit=excluded.live_profit`
	_, err = s.db.ExecContext(ctx, query,
		signal.Code, signal.Symbol, signal.Direction, signal.OpenPrice, signal.OpenVolume,
		signal.OpenTime, signal.Status, string(actions), signal.LiveVolume, signal.LivePrice, signal.LiveProfit)
	return err
}

func (s *SQLiteStore) DeleteSignal(ctx context.Context, code string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM signals WHERE code = ?", code)
	return err
}

func (s *SQLiteStore) ListSignals(ctx context.Context) ([]*domain.SignalRecord, error) {
	query := `SELECT code, symbol, direction, open_price, open_volume, open_time, status, actions, live_volume, live_price, live_profit FROM signals`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []*domain.SignalRecord
	for rows.Next() {
		var r domain.SignalRecord
		var actions string
		if err := rows.Scan(&r.Code, &r.Symbol, &r.Direction, &r.OpenPrice, &r.OpenVolume,
			&r.OpenTime, &r.Status, &actions, &r.LiveVolume, &r.LivePrice, &r.LiveProfit); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(actions), &r.Actions); err != nil {
			return nil, fmt.Errorf("decode actions for %s: %w", r.Code, err)
		}
		signals = append(signals, &r)
	}
	return signals, rows.Err()
}

// HistoryRepository Implementation

func (s *SQLiteStore) SaveHistory(ctx context.Context, signal *domain.SignalRecord) error {
	actions, err := json.Marshal(signal.Actions)
	if err != nil {
		return err
	}

	query := `INSERT INTO history (code, symbol, direction, open_price, open_volume, open_time, actions, close_price, close_profit, close_time)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(code, close_time) DO NOTHING`
	_, err = s.db.ExecContext(ctx, query,
		signal.Code, signal.Symbol, signal.Direction, signal.OpenPrice, signal.OpenVolume,
		signal.OpenTime, string(actions), signal.ClosePrice, signal.CloseProfit, signal.CloseTime)
	return err
}

func (s *SQLiteStore) ListHistory(ctx context.Context, limit int) ([]*domain.SignalRecord, error) {
	query := `SELECT code, symbol, direction, open_price, open_volume, open_time, actions, close_price, close_profit, close_time
			  FROM history ORDER BY close_time DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.SignalRecord
	for rows.Next() {
		var r domain.SignalRecord
		var actions string
		var closeTime time.Time
		if err := rows.Scan(&r.Code, &r.Symbol, &r.Direction, &r.OpenPrice, &r.OpenVolume,
			&r.OpenTime, &actions, &r.ClosePrice, &r.CloseProfit, &closeTime); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(actions), &r.Actions); err != nil {
			return nil, fmt.Errorf("decode actions for %s: %w", r.Code, err)
		}
		r.Status = domain.StatusClosed
		r.CloseTime = closeTime
		entries = append(entries, &r)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) ClearHistory(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM history")
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
