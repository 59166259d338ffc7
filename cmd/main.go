package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/suwandre/pairdepth/api"
	"github.com/suwandre/pairdepth/config"
	"github.com/suwandre/pairdepth/internal/cache/redis"
	"github.com/suwandre/pairdepth/internal/exchange"
	"github.com/suwandre/pairdepth/internal/hub"
	"github.com/suwandre/pairdepth/internal/logger"
	"github.com/suwandre/pairdepth/internal/sampler"
	"github.com/suwandre/pairdepth/internal/scanner"
	"github.com/suwandre/pairdepth/internal/scheduler"
	"github.com/suwandre/pairdepth/internal/slippage"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// ── 1. Root context setup
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── 2. Config
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// ── 3. Logger setup (level and optional file from config)
	logFile, err := logger.Setup(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}
	defer logFile.Close()

	log.Info().
		Int("samples", cfg.Samples).
		Stringer("sample_interval", cfg.SampleInterval).
		Int("concurrency", cfg.Concurrency).
		Int("bands", len(cfg.Bands)).
		Msg("config loaded")

	// ── 4. Exchange adapter
	source, err := exchange.New(cfg.Exchange, exchange.Options{
		BaseURL:           cfg.BaseURL,
		Timeout:           cfg.HTTPTimeout,
		RequestsPerSecond: cfg.RateLimitRPS,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create exchange adapter")
	}
	log.Info().Str("exchange", source.Name()).Msg("exchange adapter initialized")

	// ── 5. Hub + optional Redis mirror
	h := hub.New()
	defer h.Close()

	if cfg.RedisAddr != "" {
		mirror, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.RedisAddr,
			Password:   cfg.RedisPassword,
			DB:         cfg.RedisDB,
			TLSEnabled: cfg.RedisTLS,
		})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, mirror disabled")
		} else {
			defer mirror.Close()

			// Serve the last mirrored rows until the first pass replaces them.
			restored, err := mirror.Load(ctx, source.Name())
			switch {
			case err == nil:
				h.Publish(restored)
				log.Info().
					Str("run_id", restored.RunID).
					Int("entries", len(restored.Entries)).
					Msg("restored depth state from redis")
			case !errors.Is(err, redis.ErrNoState):
				log.Warn().Err(err).Msg("failed to restore depth state")
			}

			go mirror.Run(ctx, h)
			log.Info().Str("addr", cfg.RedisAddr).Msg("redis mirror started")
		}
	}

	// ── 6. Sampler + Scanner + Scheduler
	smp := sampler.NewSampler(source, cfg.Bands, cfg.SampleInterval)
	sc := scanner.NewScanner(source, smp, h, scanner.Config{
		Samples:       cfg.Samples,
		RetrySamples:  cfg.RetrySamples,
		RetryAttempts: cfg.RetryAttempts,
		Concurrency:   cfg.Concurrency,
		MinVolume:     cfg.MinVolumeUSD,
	})
	sched := scheduler.NewScheduler(sc, cfg.RefreshInterval)

	sched.Start(ctx)
	defer sched.Stop()

	// ── 7. Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Pairdepth",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	// ── 8. Routes
	api.SetupRoutes(app, api.Deps{
		Hub:       h,
		Refresher: sched,
		Simulator: slippage.NewSimulator(source, cfg.SampleInterval),
		Bands:     cfg.Bands,
		Sizes:     cfg.SlippageSizes,
		Samples:   cfg.Samples,
	})

	// ── 9. Graceful shutdown listener
	go func() {
		<-ctx.Done()
		log.Info().Msg("shutdown signal received")
		if err := app.Shutdown(); err != nil {
			log.Error().Err(err).Msg("error during shutdown")
		}
	}()

	// ── 10. Start server (blocking)
	log.Info().Str("port", cfg.AppPort).Msg("starting server")
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatal().Err(err).Msg("server failed to start")
	}
}
