package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fieldops/backend/internal/config"
	"github.com/fieldops/backend/internal/db"
	"github.com/fieldops/backend/internal/dispatch"
	"github.com/fieldops/backend/internal/geocode"
	httpapi "github.com/fieldops/backend/internal/http"
	"github.com/fieldops/backend/internal/predict"
	"github.com/fieldops/backend/internal/route"
	"github.com/fieldops/backend/internal/service"
	"github.com/fieldops/backend/internal/sla"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "fieldops-backend").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate schema")
	}

	var backend predict.Service
	if cfg.MLURL == "" {
		backend = predict.MockService{ModelVersion: "mock-v1"}
		logger.Info().Msg("using mock prediction service")
	} else {
		backend = predict.HTTPService{BaseURL: cfg.MLURL}
	}
	predictClient := predict.NewClient(backend, predict.Options{
		RolloutPct:      cfg.MLRolloutPct,
		StickyKey:       cfg.MLStickyKey,
		CacheTTL:        cfg.MLCacheTTL,
		DisableFallback: cfg.MLDisableFallback,
		Logger:          logger,
	})

	orderer := &route.Orderer{
		Solver:  &route.TimeWindowSolver{},
		Timeout: cfg.RouteSolverTimeout,
		Logger:  logger,
	}

	dispatcher := &service.Dispatcher{
		Store:    store,
		Predict:  predictClient,
		Geocoder: &geocode.NominatimGeocoder{},
		Orderer:  orderer,
		Weights:  dispatch.DefaultWeights(),
		SpeedKmh: cfg.DefaultSpeedKmh,
		Logger:   logger,
	}

	engine := &sla.Engine{
		Store:      store,
		Weights:    dispatch.DefaultWeights(),
		SpeedKmh:   cfg.DefaultSpeedKmh,
		BatchLimit: cfg.SLASweepLimit,
		Logger:     logger,
	}

	router := httpapi.Router(cfg, store, dispatcher, engine, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	go runSweepLoop(sweepCtx, engine, cfg.SLASweepInterval, logger)

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopSweep()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}

func runSweepLoop(ctx context.Context, engine *sla.Engine, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := engine.Sweep(ctx); err != nil {
				logger.Error().Err(err).Msg("sla sweep failed")
			}
		}
	}
}
