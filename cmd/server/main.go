package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/adrian-glinqvist/ideasvault/internal/config"
	"github.com/adrian-glinqvist/ideasvault/internal/db"
	"github.com/adrian-glinqvist/ideasvault/internal/handler"
	"github.com/adrian-glinqvist/ideasvault/internal/middleware"
	"github.com/adrian-glinqvist/ideasvault/internal/repository"
	"github.com/adrian-glinqvist/ideasvault/internal/router"
	"github.com/adrian-glinqvist/ideasvault/internal/service"
)

func main() {
	cfg := config.Load()
	middleware.InitLogger(cfg.LogLevel, "ideasvault")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage: Postgres when configured, in-process memory otherwise.
	var (
		pool     *pgxpool.Pool
		votes    service.VoteStorage
		counters service.CounterStorage
	)
	if cfg.DatabaseURL != "" {
		var err error
		pool, err = db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}
		defer pool.Close()

		if err := db.CreateSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("schema creation failed")
		}
		votes = repository.NewVoteRepo(pool)
		counters = repository.NewIdeaRepo(pool)
	} else {
		log.Info().Msg("no DATABASE_URL configured, running on the in-memory store")
		store := repository.NewMemoryStore()
		votes = store
		counters = store
	}

	cache := service.NewCacheService(cfg.RedisURL)
	defer cache.Close()

	handler.InitMetrics(pool)
	metrics := service.NewEngineMetrics()

	// Engine wiring
	trend := service.NewTrendService(cfg.TrendDecayWindow, cfg.TrendGravity)
	tally := service.NewTallyService()
	persist := service.NewPersistWorker(votes, counters, cfg.PersistRetryInterval, metrics)
	ledger := service.NewLedgerService(cfg.VoteLockWait, persist)
	hub := service.NewHubService(service.NewTallySnapshots(tally, cfg.TrendingLimit), cfg.SubscriberBuffer, metrics)
	engine := service.NewVoteService(ledger, tally, trend, hub, persist, votes, counters, metrics)

	warmCtx, warmCancel := context.WithTimeout(ctx, 30*time.Second)
	err := engine.Warm(warmCtx)
	warmCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("engine warm-up failed")
	}

	// Background workers share the signal context and are waited out on
	// shutdown so the persist worker's final flush completes.
	reconcile := service.NewReconcileWorker(ledger, tally, trend, persist, cfg.ReconcileInterval, metrics)
	decay := service.NewDecayWorker(tally, trend, cfg.DecaySweepInterval)

	var workers sync.WaitGroup
	workers.Add(3)
	go func() { defer workers.Done(); persist.Start(ctx) }()
	go func() { defer workers.Done(); reconcile.Start(ctx) }()
	go func() { defer workers.Done(); decay.Start(ctx) }()

	app := fiber.New(fiber.Config{
		AppName:      "IdeasVault API",
		ServerHeader: "IdeasVault",
	})

	h := &router.Handlers{
		Vote:   handler.NewVoteHandler(engine),
		Idea:   handler.NewIdeaHandler(engine, cache, cfg.TrendingLimit, cfg.IPHashSalt),
		Events: handler.NewEventsHandler(hub),
		Stats:  handler.NewStatsHandler(engine),
		Health: handler.NewHealthHandler(pool, cache.Client()),
	}
	router.Setup(app, h, cfg.CORSOrigins)

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Msg("ideasvault backend starting")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server shutdown failed")
	}

	workers.Wait()
	log.Info().Msg("bye")
}
