package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vzahanych/vision-portal/internal/auth"
	"github.com/vzahanych/vision-portal/internal/config"
	"github.com/vzahanych/vision-portal/internal/detect"
	"github.com/vzahanych/vision-portal/internal/health"
	"github.com/vzahanych/vision-portal/internal/logger"
	"github.com/vzahanych/vision-portal/internal/pipeline"
	"github.com/vzahanych/vision-portal/internal/service"
	"github.com/vzahanych/vision-portal/internal/storage"
	"github.com/vzahanych/vision-portal/internal/video"
	"github.com/vzahanych/vision-portal/internal/web"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&configPath, "c", "", "Path to configuration file (short)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting Vision Portal",
		"version", version,
		"build_time", buildTime,
		"git_commit", gitCommit,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// User database
	repo, err := auth.NewSQLiteRepository(cfg.Auth.DBPath)
	if err != nil {
		log.Error("Failed to open user database", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	sessions := auth.NewSessionManager(cfg.Auth.SessionTTL, log)
	authn := auth.NewAuthenticator(repo, sessions, log)

	if err := authn.Bootstrap(ctx, cfg.Auth.BootstrapUser, cfg.Auth.BootstrapPass); err != nil {
		log.Error("Failed to bootstrap initial user", "error", err)
		os.Exit(1)
	}

	// Per-user file storage
	layout, err := storage.NewLayout(
		cfg.Storage.UploadsDir,
		cfg.Storage.OutputsDir,
		cfg.Uploads.AllowedExtensions,
		log,
	)
	if err != nil {
		log.Error("Failed to initialize storage layout", "error", err)
		os.Exit(1)
	}

	// Detection service client, probed in the background until it answers
	detector := detect.NewClient(detect.ClientConfig{
		ServiceURL:          cfg.Detector.ServiceURL,
		Timeout:             cfg.Detector.Timeout,
		ConfidenceThreshold: cfg.Detector.ConfidenceThreshold,
	}, log)
	go probeDetector(ctx, detector, log)

	// Video tooling
	ffmpeg, err := video.NewFFmpeg(log)
	if err != nil {
		log.Error("Failed to locate ffmpeg", "error", err)
		os.Exit(1)
	}
	encoder := video.NewEncoder(ffmpeg, video.EncoderConfig{
		CodecFallback: cfg.Encoding.CodecFallback,
		TargetCodec:   cfg.Encoding.TargetCodec,
		DefaultFPS:    cfg.Encoding.DefaultFPS,
	}, log)

	processor := pipeline.NewProcessor(layout, detector, ffmpeg, encoder, log)

	// Services
	svcMgr := service.NewManager(log)

	healthReg := health.NewRegistry(log, svcMgr)
	healthReg.RegisterChecker(health.NewDatabaseChecker(repo))
	healthReg.RegisterChecker(health.NewDetectorChecker(detector))
	healthReg.RegisterChecker(health.NewStorageChecker(
		cfg.Storage.UploadsDir,
		cfg.Storage.OutputsDir,
	))

	webServer := web.NewServer(cfg, log)
	webServer.SetVersion(version)
	webServer.SetDependencies(authn, layout, processor)
	webServer.SetHealthRegistry(healthReg)

	svcMgr.Register(sessions)
	svcMgr.Register(webServer)

	if err := svcMgr.Start(ctx); err != nil {
		log.Error("Failed to start services", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info("Received shutdown signal", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := svcMgr.Shutdown(shutdownCtx); err != nil {
		log.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Shutdown complete")
}

// probeDetector retries the detection service health check until it passes.
// Processing requests return 503 until then.
func probeDetector(ctx context.Context, detector *detect.Client, log *logger.Logger) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		if err := detector.HealthCheck(ctx); err != nil {
			log.Warn("Detection service not ready", "error", err)
		} else {
			log.Info("Detection service is ready")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
