package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/provalab/provahub-backend/internal/attempt"
	"github.com/provalab/provahub-backend/internal/config"
	"github.com/provalab/provahub-backend/internal/database"
	"github.com/provalab/provahub-backend/internal/handler"
	"github.com/provalab/provahub-backend/internal/logger"
	"github.com/provalab/provahub-backend/internal/repository"
	"github.com/provalab/provahub-backend/internal/router"
	"github.com/provalab/provahub-backend/internal/service"
	"github.com/provalab/provahub-backend/internal/validator"
	"github.com/provalab/provahub-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting ProvaHub Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewPostgresUserRepository(pool)
	examRepo := repository.NewPostgresExamRepository(pool)
	submissionRepo := repository.NewPostgresSubmissionRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	manager := attempt.NewManager(log)
	authService := service.NewAuthService(cfg, userRepo)
	examService := service.NewExamService(examRepo, rdb, log)
	attemptService := service.NewAttemptService(manager, examRepo, submissionRepo, rdb, log)
	submissionService := service.NewSubmissionService(submissionRepo, examRepo, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:    handler.NewAuthHandler(authService),
		Exam:    handler.NewExamHandler(examService, submissionService),
		Student: handler.NewStudentHandler(examService, attemptService, submissionService),
		WS:      handler.NewWSHandler(attemptService, log, cfg.AllowedOrigins),
	}

	// ─── Start Countdown Ticker ───────────────────────────────────────
	// Sessions whose timer hits zero are force-finalized here, whether or
	// not the student is still connected.
	tickerCtx, tickerCancel := context.WithCancel(context.Background())
	go manager.Run(tickerCtx, cfg.TickInterval, attemptService.HandleExpiry)

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	autosaveWorker := worker.NewAutosaveWorker(pool, rdb, log)
	cleanupWorker := worker.NewCleanupWorker(pool, rdb, log)

	go autosaveWorker.Start(workerCtx)
	go cleanupWorker.Start(workerCtx)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load all exams into Redis BEFORE accepting traffic. This avoids race
	// conditions from lazy loading under thundering herd.
	if err := examService.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the countdown; live attempts do not survive a restart.
	tickerCancel()

	// 3. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
