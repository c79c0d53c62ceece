// Package main is the entry point for the halal screening service. It wires
// the cache, rate limiter, symbol normalizer, and compliance provider into
// the orchestrator, exposes them over HTTP, and runs cache maintenance jobs
// in the background.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/halalscreen/internal/cache"
	"github.com/aristath/halalscreen/internal/clients/staticlist"
	"github.com/aristath/halalscreen/internal/clients/yahoo"
	"github.com/aristath/halalscreen/internal/clients/zoya"
	"github.com/aristath/halalscreen/internal/compliance"
	"github.com/aristath/halalscreen/internal/config"
	"github.com/aristath/halalscreen/internal/domain"
	"github.com/aristath/halalscreen/internal/normalize"
	"github.com/aristath/halalscreen/internal/ratelimit"
	"github.com/aristath/halalscreen/internal/retry"
	"github.com/aristath/halalscreen/internal/scheduler"
	"github.com/aristath/halalscreen/internal/server"
	"github.com/aristath/halalscreen/pkg/logger"
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
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("compliance_provider", cfg.ComplianceProvider).
		Int("port", cfg.Port).
		Msg("Starting halal screening service")

	// Cache store
	store, err := cache.New(cache.Config{
		Dir:            cfg.CacheDir,
		SizeLimitBytes: cfg.CacheSizeBytes,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache")
	}
	defer store.Close()

	// Shared rate limiter; provider clients configure their own resources
	limiter := ratelimit.New(log)
	policy := retry.DefaultPolicy()

	// Compliance provider
	var provider domain.ComplianceProvider
	switch cfg.ComplianceProvider {
	case "zoya":
		provider, err = zoya.New(zoya.Config{
			APIKey:          cfg.ZoyaAPIKey,
			APIURL:          cfg.ZoyaAPIURL,
			CacheTTL:        cfg.ComplianceTTL,
			RequestsPerHour: cfg.ZoyaRequestsPerHour,
		}, store, limiter, policy, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Zoya client")
		}
	default:
		static, serr := staticlist.New(cfg.StaticCompliancePath, log)
		if serr != nil {
			log.Fatal().Err(serr).Msg("Failed to load static compliance data")
		}
		stats := static.GetStats()
		log.Info().Int("total", stats.Total).Int("compliant", stats.Compliant).Msg("Static compliance dataset loaded")
		provider = static
	}

	// Market data
	marketData := yahoo.New(yahoo.Config{
		RequestsPerHour: cfg.YahooRequestsPerHour,
		QuoteTTL:        cfg.QuoteTTL,
		BarsTTL:         cfg.DailyBarsTTL,
	}, store, limiter, policy, log)

	// Orchestrator
	normalizer := normalize.New(log)
	complianceService := compliance.New(normalizer, provider, log)

	// Background cache maintenance
	sched := scheduler.New(log)
	jobs := []struct {
		schedule string
		job      scheduler.Job
	}{
		{"@every 1h", &scheduler.PurgeExpiredJob{Store: store, Log: log}},
		{"@every 6h", &scheduler.WALCheckpointJob{Store: store, Log: log}},
		{"@every 15m", &scheduler.CacheStatsJob{Store: store, Log: log}},
	}
	for _, j := range jobs {
		if err := sched.AddJob(j.schedule, j.job); err != nil {
			log.Fatal().Err(err).Str("job", j.job.Name()).Msg("Failed to register job")
		}
	}
	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Log:        log,
		Port:       cfg.Port,
		DevMode:    cfg.DevMode,
		CacheDir:   cfg.CacheDir,
		Compliance: complianceService,
		Normalizer: normalizer,
		MarketData: marketData,
		Cache:      store,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Service stopped")
}
