package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/examforge/exams-service/internal/cache"
	"github.com/examforge/exams-service/internal/config"
	"github.com/examforge/exams-service/internal/database"
	"github.com/examforge/exams-service/internal/gateway"
	"github.com/examforge/exams-service/internal/handler"
	"github.com/examforge/exams-service/internal/logger"
	"github.com/examforge/exams-service/internal/messaging"
	"github.com/examforge/exams-service/internal/repository"
	"github.com/examforge/exams-service/internal/router"
	"github.com/examforge/exams-service/internal/service"
	"github.com/examforge/exams-service/internal/validator"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()

	log := logger.Setup(cfg)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Exams Service")

	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// Message bus for cross-service request/reply and result events.
	bus := messaging.NewRedisBus(rdb, cfg.BusTimeout, log)
	questionGateway := gateway.NewQuestionGateway(bus, log)
	authGateway := gateway.NewAuthGateway(bus, log)

	examRepo := repository.NewExamRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	sessionCache := cache.NewRedisSessionCache(rdb, cfg, log)

	lifecycleService := service.NewExamLifecycleService(
		examRepo,
		attemptRepo,
		sessionCache,
		questionGateway,
		bus,
		log,
	)

	handlers := &router.Handlers{
		Exam:    handler.NewExamHandler(lifecycleService),
		Attempt: handler.NewAttemptHandler(lifecycleService),
		WS:      handler.NewWSHandler(rdb, lifecycleService, log, cfg.AllowedOrigins),
	}

	r := router.SetupRouter(authGateway, handlers, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
