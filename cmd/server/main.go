package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/iconidentify/ytgrabba/internal/api"
	"github.com/iconidentify/ytgrabba/internal/api/handler"
	"github.com/iconidentify/ytgrabba/internal/config"
	"github.com/iconidentify/ytgrabba/internal/repository"
	"github.com/iconidentify/ytgrabba/internal/service"
	"github.com/iconidentify/ytgrabba/internal/worker"
	"github.com/iconidentify/ytgrabba/pkg/ffmpeg"
	"github.com/iconidentify/ytgrabba/pkg/ytdlp"
)

// Build information, set via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ytgrabba %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = newLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting ytgrabba",
		"version", Version,
		"build_time", BuildTime,
	)

	if err := os.MkdirAll(cfg.Storage.ScratchPath, 0755); err != nil {
		logger.Error("failed to create scratch directory", "error", err)
		os.Exit(1)
	}
	if cfg.Storage.SweepOnStart {
		if _, err := service.SweepScratch(cfg.Storage.ScratchPath, logger); err != nil {
			logger.Warn("scratch sweep failed", "error", err)
		}
	}

	prober := ffmpeg.NewProber(cfg.Extractor.FFmpegPath, cfg.Extractor.ProbeTimeout)
	probeCtx, cancelProbe := context.WithTimeout(context.Background(), cfg.Extractor.ProbeTimeout)
	if version, err := prober.Version(probeCtx); err != nil {
		// Not fatal: downloads answer with an install hint until it appears
		logger.Warn("ffmpeg not available", "path", prober.Path(), "error", err)
	} else {
		logger.Info("ffmpeg available", "path", prober.Path(), "version", version)
	}
	cancelProbe()

	engine := ytdlp.NewClient(ytdlp.Config{
		Executable: cfg.Extractor.YTDLPPath,
		Timeout:    cfg.Extractor.Timeout,
	})
	jobRepo := repository.NewInMemoryJobRepository()
	pool := worker.NewPool(worker.Config{Workers: cfg.Worker.MaxConcurrent}, logger)

	metadataSvc := service.NewMetadataService(engine, pool, logger)
	downloadSvc := service.NewDownloadService(
		engine,
		prober,
		pool,
		jobRepo,
		service.DownloadConfig{
			ScratchDir:      cfg.Storage.ScratchPath,
			DefaultFormat:   cfg.Extractor.DefaultFormat,
			MergeFormat:     cfg.Extractor.MergeFormat,
			Retries:         cfg.Extractor.Retries,
			FragmentRetries: cfg.Extractor.FragmentRetries,
		},
		logger,
	)

	videoHandler := handler.NewVideoHandler(metadataSvc, downloadSvc, logger)
	healthHandler := handler.NewHealthHandler(jobRepo, prober, pool, cfg.Storage.ScratchPath, logger)

	router := api.NewRouter(videoHandler, healthHandler, api.RouterConfig{
		CORSOrigin:      cfg.Server.CORSOrigin,
		MetadataTimeout: cfg.Server.MetadataTimeout,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr, "workers", pool.Workers())
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Cancels any extraction still running so its job cleans up
	if err := pool.Stop(25 * time.Second); err != nil {
		logger.Error("worker pool shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	level, err := cfg.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
