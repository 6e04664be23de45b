// main package for the avatar-service
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/avatar-service/internal/api"
	"github.com/book-expert/avatar-service/internal/config"
	"github.com/book-expert/avatar-service/internal/media"
	"github.com/book-expert/avatar-service/internal/motion"
	"github.com/book-expert/avatar-service/internal/objectstore"
	"github.com/book-expert/avatar-service/internal/pipeline"
	"github.com/book-expert/avatar-service/internal/render"
	"github.com/book-expert/avatar-service/internal/tts"
	"github.com/book-expert/avatar-service/internal/worker"
)

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
	natsClientName    = "avatar-service"
)

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir(), "avatar-service-bootstrap.log")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	bootstrapLog.Info("Bootstrap logger created.")

	// 2. Load configuration using the central configurator
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	// 3. Initialize the final logger based on the loaded configuration
	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir, "avatar-service.log")
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, finalLog)
}

// serve connects to NATS, assembles the pipeline and runs the worker and HTTP API until ctx
// is cancelled.
func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	natsConnection, err := nats.Connect(cfg.NATS.URL, nats.Name(natsClientName))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	store, err := objectstore.New(jetstreamContext, cfg.NATS.ArtifactBucket)
	if err != nil {
		return err
	}

	jobs := pipeline.New(
		store,
		tts.NewMinimaxClient(cfg.Minimax, log),
		render.NewRenderer(cfg.Renderer, log),
		media.NewToolkit(cfg.FFmpeg, log),
		pipeline.OptionsFromConfig(cfg),
		log,
	)

	natsWorker := worker.NewNatsWorker(natsConnection, cfg.NATS.SynthesisSubject, jobs, cfg.NATS.RequestTimeout(), log)
	client := worker.NewNatsClient(natsConnection, cfg.NATS.SynthesisSubject, cfg.NATS.RequestTimeout())

	router := api.NewRouter(client, api.Defaults{
		Mode:      motion.Mode(cfg.Motion.DefaultMode),
		Intensity: cfg.Motion.DefaultIntensity,
		FPS:       cfg.Renderer.FPS,
		Duration:  cfg.Motion.FallbackDurationSeconds,
		Limits:    cfg.Motion.Limits(),
	}, log)

	server := &http.Server{
		Addr:              cfg.HTTP.ListenAddr,
		Handler:           router.Setup(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errChan := make(chan error, 2)

	go func() {
		errChan <- natsWorker.Run(ctx)
	}()

	go func() {
		serveErr := server.ListenAndServe()
		if errors.Is(serveErr, http.ErrServerClosed) {
			serveErr = nil
		}

		errChan <- serveErr
	}()

	log.System("Avatar-Service successfully initialized. Listening for jobs on subject %s, HTTP on %s",
		cfg.NATS.SynthesisSubject, cfg.HTTP.ListenAddr)

	var runErr error

	select {
	case <-ctx.Done():
	case runErr = <-errChan:
		log.Error("Service component stopped: %v", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := server.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		log.Warn("HTTP server shutdown: %v", shutdownErr)
	}

	log.System("Avatar-Service stopped.")

	return runErr
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
