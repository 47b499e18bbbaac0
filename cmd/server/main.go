package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/rebalancer/internal/config"
	"github.com/aristath/rebalancer/internal/database"
	"github.com/aristath/rebalancer/internal/modules/allocation"
	"github.com/aristath/rebalancer/internal/modules/jobs"
	"github.com/aristath/rebalancer/internal/modules/portfolio"
	"github.com/aristath/rebalancer/internal/modules/rebalancing"
	"github.com/aristath/rebalancer/internal/prices"
	"github.com/aristath/rebalancer/internal/scheduler"
	"github.com/aristath/rebalancer/internal/server"
	"github.com/aristath/rebalancer/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		errLog := logger.New(logger.Config{Level: "error"})
		errLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting portfolio rebalancer")

	// Database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Services
	priceSvc := prices.NewService(cfg.PricesCSVSource, prices.DefaultTTL, log)
	portfolioRepo := portfolio.NewRepository(db.Conn(), log)
	allocRepo := allocation.NewRepository(db.Conn(), log)
	rebalanceSvc := rebalancing.NewService(portfolioRepo, allocRepo, priceSvc, cfg.DefaultAssetType, log)
	jobRegistry := jobs.NewRegistry(jobs.DefaultTTL, log)

	// Background jobs
	sched := scheduler.New(log)
	if priceSvc.Configured() {
		refresh := scheduler.NewPriceRefreshJob(priceSvc, log)
		if err := sched.AddJob(cfg.PriceRefreshSchedule, refresh); err != nil {
			log.Fatal().Err(err).Msg("Failed to register price refresh job")
		}
		if err := sched.RunNow(refresh); err != nil {
			log.Warn().Err(err).Msg("Initial price refresh failed, will retry on schedule")
		}
	}
	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Port: cfg.Port,
		Log:  log,
		Handlers: server.Handlers{
			Portfolio:   portfolio.NewHandler(portfolioRepo, allocRepo, priceSvc, log),
			Allocation:  allocation.NewHandler(allocRepo, portfolioRepo, log),
			Rebalancing: rebalancing.NewHandler(rebalanceSvc, jobRegistry, log),
			Jobs:        jobs.NewHandler(jobRegistry, log),
			Prices:      prices.NewHandler(priceSvc, log),
		},
		DevMode: cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
