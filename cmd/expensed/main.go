package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/receiptwise/expense-tracker/internal/async"
	"github.com/receiptwise/expense-tracker/internal/auth"
	"github.com/receiptwise/expense-tracker/internal/blobstore"
	"github.com/receiptwise/expense-tracker/internal/common"
	"github.com/receiptwise/expense-tracker/internal/export"
	"github.com/receiptwise/expense-tracker/internal/ingest"
	"github.com/receiptwise/expense-tracker/internal/pipeline"
	"github.com/receiptwise/expense-tracker/internal/recognize"
	"github.com/receiptwise/expense-tracker/internal/repository"
	"github.com/receiptwise/expense-tracker/internal/server"
)

func main() {
	fs := ff.NewFlagSet("expensed")
	var (
		configPath = fs.StringLong("config", "", "optional YAML config overlay")
		watchDir   = fs.StringLong("watch", "", "also ingest images dropped under this directory")
		debugLog   = fs.BoolLong("debug", "enable debug logging")
	)
	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("EXPENSED"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *debugLog {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Receipt store
	var store repository.ReceiptStore
	switch cfg.Database.Driver {
	case "postgres":
		pg, err := repository.Open(ctx, repository.Config{
			DSN:              cfg.Database.DSN,
			MaxConns:         cfg.Database.MaxConns,
			MinConns:         cfg.Database.MinConns,
			MaxConnLifetime:  cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
			DialTimeout:      cfg.Database.DialTimeout,
			StatementTimeout: cfg.Database.StatementTimeout,
		}, logger)
		if err != nil {
			logger.Error("failed to open postgres store", "error", err)
			os.Exit(1)
		}
		if err := pg.HealthCheck(ctx, cfg.Database.DialTimeout); err != nil {
			logger.Error("database health check failed", "error", err)
			os.Exit(1)
		}
		store = pg
	case "sqlite":
		sq, err := repository.OpenSQLite(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Error("failed to open sqlite store", "error", err)
			os.Exit(1)
		}
		store = sq
	default:
		logger.Error("unknown database driver", "driver", cfg.Database.Driver)
		os.Exit(1)
	}
	defer store.Close()

	// Blob store
	var blob blobstore.Store
	switch cfg.Storage.Backend {
	case "s3":
		blob, err = blobstore.NewS3Store(ctx, blobstore.S3Config{
			Region:    cfg.Storage.Region,
			Bucket:    cfg.Storage.Bucket,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
		}, logger)
	case "local":
		blob, err = blobstore.NewLocalStore(cfg.Storage.BasePath, "", logger)
	default:
		logger.Error("unknown storage backend", "backend", cfg.Storage.Backend)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Text recognizer
	var recognizer recognize.Recognizer
	switch cfg.Recognizer.Provider {
	case "vision":
		recognizer, err = recognize.NewVisionRecognizer(ctx, cfg.Recognizer.CredentialsFile, logger)
		if err != nil {
			logger.Error("failed to initialize vision recognizer", "error", err)
			os.Exit(1)
		}
	case "tesseract":
		recognizer = recognize.NewTesseractRecognizer(recognize.TesseractConfig{
			Tesseract: cfg.Recognizer.Tesseract,
			Lang:      cfg.Recognizer.TesseractLang,
		}, logger)
	default:
		logger.Error("unknown recognizer provider", "provider", cfg.Recognizer.Provider)
		os.Exit(1)
	}

	// Pipeline and worker queue
	proc := pipeline.NewProcessor(logger, recognizer, store, blob).
		WithMinConfidence(cfg.Pipeline.MinConfidence).
		WithRecognizeTimeout(cfg.Recognizer.Timeout)
	queue := async.NewProcessorQueue(proc, logger,
		async.WithWorkers(cfg.Pipeline.Workers),
		async.WithQueueSize(cfg.Pipeline.QueueSize),
		async.WithProcessTimeout(cfg.Pipeline.ProcessTimeout),
	)

	// The tesseract recognizer reads local paths; everything else reads the
	// object's public URL.
	imageRef := blob.PublicURL
	if cfg.Recognizer.Provider == "tesseract" && cfg.Storage.Backend == "local" {
		base := cfg.Storage.BasePath
		imageRef = func(key string) string {
			return filepath.Join(base, filepath.FromSlash(key))
		}
	}

	// Optional filesystem ingestion
	if *watchDir != "" {
		events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       []string{*watchDir},
			InitialScan: true,
			Debounce:    500 * time.Millisecond,
		}, logger)
		if err != nil {
			logger.Error("failed to start watcher", "error", err)
			os.Exit(1)
		}
		go func() {
			for ev := range events {
				_ = queue.Enqueue(ctx, async.Job{
					Key:         ev.Key,
					ImageRef:    ev.Path,
					SubmittedAt: time.Now(),
				})
			}
		}()
		go func() {
			for err := range errs {
				logger.Error("watcher error", "error", err)
			}
		}()
		logger.Info("watching for receipt images", "dir", *watchDir)
	}

	authSvc := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	exportSvc := export.NewService(store, logger)

	srv := server.New(server.Deps{
		Store:       store,
		Blob:        blob,
		Queue:       queue,
		Auth:        authSvc,
		Export:      exportSvc,
		ImageRef:    imageRef,
		MaxUploadMB: cfg.Server.MaxUploadMB,
		Logger:      logger,
	})

	host, port := splitAddr(cfg.Server.Addr)
	go func() {
		if err := srv.Listen(host, port); err != nil {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	logger.Info("stopped")
}

func splitAddr(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 8080
	}
	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return host, 8080
	}
	return host, port
}
