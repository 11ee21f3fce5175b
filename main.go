package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/uwguessr/assets"
	"github.com/robalobadob/uwguessr/internal/config"
	"github.com/robalobadob/uwguessr/internal/daily"
	"github.com/robalobadob/uwguessr/internal/database"
	"github.com/robalobadob/uwguessr/internal/httpserver"
	"github.com/robalobadob/uwguessr/internal/photos"
	"github.com/robalobadob/uwguessr/internal/ratelimit"
	"github.com/robalobadob/uwguessr/internal/session"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		log.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	setupLogger(cfg, stdout)

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info().Str("path", cfg.DBPath).Msg("connected to sqlite")

	catalog := photos.NewSQLStore(db, cfg.DailySalt, time.Now)
	seed, err := assets.SeedPhotos()
	if err != nil {
		return fmt.Errorf("loading seed photos: %w", err)
	}
	if n, err := catalog.Seed(ctx, seed); err != nil {
		return fmt.Errorf("seeding photos: %w", err)
	} else if n > 0 {
		log.Info().Int("photos", n).Msg("seeded photo catalog")
	}

	// --- Redis (optional) ---
	var rdb *redis.Client
	var limiter ratelimit.Limiter = ratelimit.NewMemory(cfg.SubmitLimit, cfg.SubmitWindow)
	if cfg.RedisURL != "" {
		rdb, err = openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		limiter = ratelimit.NewRedis(rdb, cfg.SubmitLimit, cfg.SubmitWindow)
		log.Info().Msg("connected to redis")
	}

	tab := session.NewMemoryStore(time.Now)
	durable := session.NewSQLStore(db, time.Now)

	// --- HTTP Server ---
	srv := httpserver.New(httpserver.Deps{
		Config:  cfg,
		DB:      db,
		Redis:   rdb,
		Tab:     tab,
		Durable: durable,
		Photos:  catalog,
		Scores:  daily.NewStore(db, time.Now),
		Limiter: limiter,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr()).Msg("starting go-server")
		return srv.Run(gctx)
	})

	g.Go(func() error {
		t := time.NewTicker(cfg.SweepInterval)
		defer t.Stop()
		for {
			sweep(gctx, cfg, tab, durable, catalog)
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

// sweep drops idle in-memory sessions and daily records outside retention.
// Failures are logged and retried on the next tick.
func sweep(ctx context.Context, cfg *config.Config, tab *session.MemoryStore, durable session.Store, catalog *photos.SQLStore) {
	now := time.Now()
	idle := tab.Prune(now.Add(-cfg.SessionTTL))

	records, err := session.Sweep(ctx, durable, now)
	if err != nil {
		log.Warn().Err(err).Msg("sweep daily records")
	}
	cached, err := catalog.PruneCache(ctx, now)
	if err != nil {
		log.Warn().Err(err).Msg("prune daily photo cache")
	}
	log.Debug().
		Int("idle_sessions", idle).
		Int("daily_records", records).
		Int64("photo_cache", cached).
		Str("cutoff", daily.RetentionCutoff(now)).
		Msg("retention sweep")
}

func setupLogger(cfg *config.Config, stdout io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	var w io.Writer = stdout
	if cfg.LogFormat == "console" {
		w = zerolog.ConsoleWriter{Out: stdout, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
