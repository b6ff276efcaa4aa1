// Mural aggregates public social media profiles into one feed.
//
// It periodically pulls mirrored profile feeds, normalizes them into a
// single post schema, and serves summaries and reply suggestions
// generated from the stored posts.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sethvargo/go-envconfig"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/muralapp/mural/internal/api"
	"github.com/muralapp/mural/internal/enrich"
	"github.com/muralapp/mural/internal/gemini"
	"github.com/muralapp/mural/internal/migrations"
	"github.com/muralapp/mural/internal/mirror"
	"github.com/muralapp/mural/internal/sqlite"
	"github.com/muralapp/mural/internal/syncer"
	"github.com/muralapp/mural/logger"
)

type config struct {
	Port     int    `env:"PORT, default=4444"`
	Database string `env:"DATABASE, required"`

	// Which format to use for logging: either text or json
	LoggerFormat string `env:"LOGGER_FORMAT, default=text"`

	// Ranked mirror instances, tried in order on every fetch
	MirrorInstances []string `env:"MIRROR_INSTANCES, default=https://rss-bridge.org,https://bridge.suumitsu.eu,https://rss.nixnet.services"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL, default=gemini-2.0-flash-exp"`
	GeminiAPIURL string `env:"GEMINI_API_URL, default=https://generativelanguage.googleapis.com/v1beta/models"`

	CronSecret string `env:"CRON_SECRET, default=default-secret"`
	CorsOrigin string `env:"CORS_ORIGIN, default=*"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Parse the config
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	// Determine which logger format to use
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, nil)
	if cfg.LoggerFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	}
	l := slog.New(logger.NewContextHandler(handler))
	slog.SetDefault(l)

	// Start the application
	if err := run(ctx, cfg); err != nil {
		slog.Error("error running", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config) error {
	// Connect to the db
	dbx, err := sqlx.Open("sqlite", fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.Database))
	if err != nil {
		return fmt.Errorf("error opening database: %s", err)
	}
	defer dbx.Close()

	// Migrate, always
	if err := migrations.Run(dbx); err != nil {
		return fmt.Errorf("error migrating: %s", err)
	}

	var (
		repo     = sqlite.New(dbx)
		fetcher  = mirror.NewClient(cfg.MirrorInstances)
		genCli   = gemini.NewClient(gemini.Config{
			Endpoint: cfg.GeminiAPIURL,
			Model:    cfg.GeminiModel,
			APIKey:   cfg.GeminiAPIKey,
		})
		sync     = syncer.New(repo, fetcher)
		enricher = enrich.New(repo, genCli)
	)

	s := api.NewServer(api.ServerConfig{
		Port:       cfg.Port,
		CronSecret: cfg.CronSecret,
		CorsOrigin: cfg.CorsOrigin,
	}, repo, sync, enricher)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("listening", "port", cfg.Port)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error listening: %s", err)
		}

		return nil
	})
	g.Go(func() error {
		// Block from shutting down until the group is canceled
		<-gCtx.Done()

		downCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(downCtx); err != nil {
			slog.Error("error shutting down server", "error", err)
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("error running: %s", err)
	}

	return nil
}
