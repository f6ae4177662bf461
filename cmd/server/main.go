// Command server runs the freight marketplace HTTP API.
//
// Startup order: environment (.env optional) → config → logging → tracing →
// database (migrations included) → realtime broker → router → HTTP server.
// Shutdown drains in-flight requests, closes the broker so websocket clients
// disconnect cleanly, and flushes the tracer.
//
// @title        CargoLink Freight API
// @version      1.0
// @description  Marketplace backend for cargo postings, carrier quotes, deals, and realtime chat.
// @BasePath     /api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "github.com/cargolink/go-freight-backend/docs"
	"github.com/cargolink/go-freight-backend/internal/config"
	httpapi "github.com/cargolink/go-freight-backend/internal/http"
	"github.com/cargolink/go-freight-backend/internal/observability"
	"github.com/cargolink/go-freight-backend/internal/realtime"
	"github.com/cargolink/go-freight-backend/internal/repo"
	"github.com/cargolink/go-freight-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=…".
var version = "dev"

func main() {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	// Logging
	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Info().Str("version", version).Str("port", cfg.Port).Msg("starting freight backend")

	// Tracing
	ctx := context.Background()
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	// Database (+ migrations)
	db, err := repo.Open(cfg.DBPath, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database open failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	// Realtime fan-out
	broker := realtime.NewBroker()

	// Router
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, broker, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown error")
	}
	broker.Close()
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown error")
	}
	log.Info().Msg("stopped")
}
