// Package main is the entry point for the GridMate energy dashboard server.
// It wires the snapshot store, the drift simulator, the trade lifecycle
// engine, and the HTTP layer, then runs the background simulation tick so
// the community energy market keeps moving between requests.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gridmate/gridmate/internal/config"
	"github.com/gridmate/gridmate/internal/database"
	"github.com/gridmate/gridmate/internal/live"
	"github.com/gridmate/gridmate/internal/market"
	markethandlers "github.com/gridmate/gridmate/internal/market/handlers"
	"github.com/gridmate/gridmate/internal/reliability"
	"github.com/gridmate/gridmate/internal/scheduler"
	"github.com/gridmate/gridmate/internal/server"
	"github.com/gridmate/gridmate/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting GridMate")

	// Single market database holding the snapshot document and its archive
	db, err := database.New(database.Config{
		Path: filepath.Join(cfg.DataDir, "market.db"),
		Name: "market",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open market database")
	}
	defer db.Close()

	clock := market.SystemClock{}
	rng := market.NewRand(time.Now().UnixNano())

	store, err := market.NewStore(db, clock, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize snapshot store")
	}

	service := market.NewService(market.ServiceConfig{
		Store:      store,
		Simulator:  market.NewSimulator(rng, clock, log),
		Engine:     market.NewEngine(clock, log),
		Aggregator: market.NewAggregator(clock, rng),
		TickOnRead: cfg.TickOnRead,
		Log:        log,
	})

	// Live telemetry hub, fed by the scheduled simulation tick
	hub := live.NewHub(service, clock, log)

	// Background jobs
	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.TickSchedule, market.NewTickJob(service, hub)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register simulation tick job")
	}

	if cfg.Backup != nil && cfg.Backup.Enabled {
		backupSvc, err := reliability.NewBackupService(context.Background(), cfg.Backup, store, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize backup service")
		}
		if err := sched.AddJob(cfg.Backup.Schedule, reliability.NewBackupJob(backupSvc)); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
	} else {
		log.Info().Msg("Offsite backups disabled")
	}

	srv := server.New(server.Config{
		Port:           cfg.Port,
		Log:            log,
		DevMode:        cfg.DevMode,
		DB:             db,
		MarketHandlers: markethandlers.NewMarketHandlers(service, log),
		LiveHub:        hub,
		SystemHandlers: server.NewSystemHandlers(db, store, cfg.DataDir, log),
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("Server started")

	sched.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
