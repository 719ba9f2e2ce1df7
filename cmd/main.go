package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zerox80/riftstats/internal/adapters/http/api"
	"github.com/zerox80/riftstats/internal/adapters/repository"
	"github.com/zerox80/riftstats/internal/adapters/riot"
	app "github.com/zerox80/riftstats/internal/app"
	"github.com/zerox80/riftstats/internal/config"
	"github.com/zerox80/riftstats/internal/domain/dedupe"
	"github.com/zerox80/riftstats/internal/domain/lptrack"
	"github.com/zerox80/riftstats/pkg/logger"

	"github.com/joho/godotenv"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Statistic stores: Postgres when a database URL is configured,
	// in-memory otherwise.
	var (
		items  repository.CounterStore[repository.ItemKey]
		runes  repository.CounterStore[repository.RuneKey]
		spells repository.CounterStore[repository.SpellPairKey]
		lpSink repository.LPStore
	)
	if cfg.DatabaseURL != "" {
		pool, err := repository.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error(ctx, "database connection failed", logger.Error(err))
			return
		}
		defer pool.Close()
		items = repository.NewPGItemStore(pool)
		runes = repository.NewPGRuneStore(pool)
		spells = repository.NewPGSpellStore(pool)
		lpSink = repository.NewPGLPStore(pool)
		log.Info(ctx, "using postgres stores")
	} else {
		items = repository.NewMemCounterStore[repository.ItemKey]("items")
		runes = repository.NewMemCounterStore[repository.RuneKey]("runes")
		spells = repository.NewMemCounterStore[repository.SpellPairKey]("spells")
		lpSink = repository.NewMemLPStore()
		log.Info(ctx, "using in-memory stores")
	}

	source := riot.NewClient(cfg.RiotRegionalURL, cfg.RiotPlatformURL, cfg.RiotAPIKey,
		riot.WithRateLimit(cfg.RateLimitRequests, time.Duration(cfg.RateLimitWindowSeconds)*time.Second),
		riot.WithMaxAttempts(cfg.MaxFetchAttempts),
	)

	svc := app.New(source, items, runes, spells,
		app.WithLogger(log),
		app.WithLifecycle(ctx),
		app.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize))),
		app.WithPagesToScan(cfg.PagesToScan),
		app.WithMaxPlayers(cfg.MaxPlayers),
		app.WithMatchesPerPlayer(cfg.MatchesPerPlayer),
		app.WithParallelism(cfg.FetchParallelism),
		app.WithTopN(cfg.MaxTopN),
	)

	tracker := lptrack.New(lpSink)

	// Background loops: periodic full recomputes and LP sampling.
	scheduler := app.NewScheduler(svc, cfg.SchedulerChampions,
		time.Duration(cfg.SchedulerIntervalMinutes)*time.Minute)
	go scheduler.Run(ctx)

	refresher := lptrack.NewRefresher(source, tracker, cfg.LPTrackedPUUIDs,
		time.Duration(cfg.LPRefreshIntervalMinutes)*time.Minute)
	go refresher.Run(ctx)

	// HTTP mux and routes.
	mux := http.NewServeMux()
	apiServer := api.NewServer(svc, svc, tracker, cfg.TriggerToken, cfg.DefaultQueueID, cfg.MaxTopN)
	apiServer.Register(mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}
