package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erazemk/hisa/internal/api"
	"github.com/erazemk/hisa/internal/blob"
	"github.com/erazemk/hisa/internal/config"
	"github.com/erazemk/hisa/internal/db"
	"github.com/erazemk/hisa/internal/embedding"
	"github.com/erazemk/hisa/internal/events"
	"github.com/erazemk/hisa/internal/imaging"
	"github.com/erazemk/hisa/internal/logging"
	"github.com/erazemk/hisa/internal/metrics"
	"github.com/erazemk/hisa/internal/search"
	"github.com/erazemk/hisa/internal/service"
	"github.com/erazemk/hisa/internal/store"
)

const feedQueueLen = 256

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fs := flag.NewFlagSet("hisa", flag.ContinueOnError)
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "")
	fs.StringVar(&cfg.ListenAddr, "addr", cfg.ListenAddr, "")
	fs.StringVar(&cfg.ListenAddr, "a", cfg.ListenAddr, "")
	fs.StringVar(&cfg.LogFile, "log", cfg.LogFile, "")
	fs.StringVar(&cfg.LogFile, "l", cfg.LogFile, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: hisa [flags]

Flags:
  -d, -db <path>          SQLite database path (default: hisa.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Everything else is configured through HISA_* environment variables or a
.env file in the working directory.
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg, logger); err != nil {
		slog.Error("fatal", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	optional, err := cfg.Validate()
	if err != nil {
		return err
	}
	disabled := make(map[string]bool)
	for _, ce := range optional {
		slog.Warn("component disabled", "component", ce.Component, "reason", ce.Reason)
		disabled[ce.Component] = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dialect, err := db.ParseDialect(cfg.DBDriver)
	if err != nil {
		return err
	}
	source := cfg.DBPath
	if dialect == db.Postgres {
		source = cfg.DBDSN
	}
	database, err := db.Open(ctx, dialect, source)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	slog.Info("database ready", "driver", dialect.String())

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	bus := events.NewBus()
	if m != nil {
		bus.OnDrop = m.EventDropped
	}
	defer bus.Close()

	opts := service.Options{
		Store:         store.New(database),
		Bus:           bus,
		Metrics:       m,
		Logger:        logger,
		MinSimilarity: cfg.SearchMinSimilarity,
	}

	stopSync := func(context.Context) {}
	if cfg.SearchEnabled && !disabled["search"] {
		embedder, err := embedding.New(embedding.Options{
			Provider:   cfg.EmbeddingProvider,
			URL:        cfg.EmbeddingURL,
			Model:      cfg.EmbeddingModel,
			APIKey:     cfg.EmbeddingAPIKey,
			Dimensions: cfg.EmbeddingDimensions,
		})
		if err != nil {
			slog.Warn("component disabled", "component", "search", "reason", err.Error())
		} else {
			opts.Index = search.NewIndex(database, embedder)
			syncer := search.NewSyncer(opts.Index, cfg.SearchQueueSize)
			if m != nil {
				syncer.OnResult = m.SearchSync
			}
			opts.Syncer = syncer
			stopSync = syncer.Start()
			slog.Info("semantic search enabled", "provider", cfg.EmbeddingProvider, "model", embedder.Model())
		}
	}

	if !disabled["photos"] {
		blobs, err := blob.Open(ctx, blob.Config{
			Driver: cfg.BlobDriver,
			FSRoot: cfg.BlobFSRoot,
			S3: blob.S3Config{
				Bucket:          cfg.BlobS3Bucket,
				Region:          cfg.BlobS3Region,
				Endpoint:        cfg.BlobS3Endpoint,
				PathStyle:       cfg.BlobS3PathStyle,
				AccessKeyID:     cfg.BlobS3AccessKeyID,
				SecretAccessKey: cfg.BlobS3SecretKey,
			},
		})
		if err != nil {
			slog.Warn("component disabled", "component", "photos", "reason", err.Error())
		} else {
			opts.Blobs = blobs
			opts.Photos = imaging.NewProcessor(cfg.PhotoMaxDimension)
			slog.Info("photo storage ready", "driver", string(blobs.Driver()))
		}
	}

	svc := service.New(opts)

	hub := api.NewHub(m)
	feed, unsubscribe := bus.Subscribe("feed", feedQueueLen)
	defer unsubscribe()
	go hub.Run(ctx, feed)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewRouter(svc, hub, m),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("server started", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	stopSync(shutdownCtx)

	slog.Info("server stopped, closing database")
	return nil
}
