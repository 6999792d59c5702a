package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vitos/signal_tracker/internal/domain"
	"github.com/vitos/signal_tracker/internal/infrastructure/bridge"
	"github.com/vitos/signal_tracker/internal/infrastructure/logger"
	"github.com/vitos/signal_tracker/internal/infrastructure/storage"
	"github.com/vitos/signal_tracker/internal/usecase"
	"github.com/vitos/signal_tracker/internal/web"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Bridge struct {
		RESTEndpoint string `yaml:"rest_endpoint"`
		WSEndpoint   string `yaml:"ws_endpoint"`
	} `yaml:"bridge"`
	Polling struct {
		IntervalMs int `yaml:"interval_ms"`
	} `yaml:"polling"`
	History struct {
		Capacity int `yaml:"capacity"`
	} `yaml:"history"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func main() {
	// 1. Load Config
	cfg, err := loadConfig("config/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Init Storage
	dbPath := cfg.Storage.Path
	if dbPath == "" {
		dbPath = "tracker.db"
	}
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	// 4. Init Bridge
	client := bridge.NewClient(cfg.Bridge.RESTEndpoint, log)
	stream := bridge.NewStream(cfg.Bridge.WSEndpoint, log)

	// 5. Init Engine
	buffer := usecase.NewDealBuffer()
	archiver := usecase.NewHistoryArchiver(cfg.History.Capacity, store, log)
	tracker := usecase.NewTrackerService(client, store, buffer, archiver, log)

	// Warm in-memory state from durable storage
	ctx := context.Background()
	if err := tracker.Warm(ctx); err != nil {
		log.Error("Failed to warm signals", zap.Error(err))
	}
	capacity := cfg.History.Capacity
	if capacity <= 0 {
		capacity = usecase.DefaultHistoryCap
	}
	if history, err := store.ListHistory(ctx, capacity); err != nil {
		log.Error("Failed to warm history", zap.Error(err))
	} else {
		archiver.Warm(history)
	}

	// 6. Wire push events
	stream.OnPositionOpened(func(entry *domain.PositionSnapshot) {
		tracker.HandlePositionOpened(context.Background(), entry)
	})
	stream.OnDealClosed(func(event *domain.DealEvent) {
		tracker.HandleDealClosed(event)
	})
	if err := stream.Connect(); err != nil {
		// The stream reconnects on its own once up; a cold-start failure only
		// costs matched profits until then.
		log.Warn("Event stream connect failed", zap.Error(err))
	}

	// Initial sync closes anything that ended while the tracker was down.
	if err := tracker.Sync(ctx); err != nil {
		log.Warn("Initial sync failed", zap.Error(err))
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	// 7. Poll Loop
	interval := time.Duration(cfg.Polling.IntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 2 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if err := tracker.Poll(context.Background()); err != nil {
				log.Warn("Poll cycle skipped", zap.Error(err))
			}

			select {
			case <-ticker.C:
				continue
			case <-done:
				return
			}
		}
	}()

	// 8. Init Web Server
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	server := web.NewServer(port, tracker, archiver, client, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 9. Wait for Shutdown
	<-stop
	close(done)

	log.Info("Shutting down...")
	stream.Close()
	server.Shutdown(context.Background())
}
