// Command server runs the journaling gamification backend: the HTTP API, the
// gamification engine behind it, and the analysis-event intake.
//
// Startup order: env → config → logging → tracing → database (migrate + seed)
// → collaborators (publisher, notifier, dispatcher) → router → HTTP server.
// Shutdown reverses it: stop accepting requests, drain in-flight background
// tasks, flush the publisher, then the trace exporter.
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
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-journal-backend/internal/async"
	"github.com/tbourn/go-journal-backend/internal/config"
	httpapi "github.com/tbourn/go-journal-backend/internal/http"
	"github.com/tbourn/go-journal-backend/internal/notify"
	"github.com/tbourn/go-journal-backend/internal/observability"
	"github.com/tbourn/go-journal-backend/internal/pubsub"
	"github.com/tbourn/go-journal-backend/internal/repo"
	"github.com/tbourn/go-journal-backend/internal/services"
	"github.com/tbourn/go-journal-backend/internal/sysutil"
)

// version is stamped by the build (-ldflags "-X main.version=...").
var version = "dev"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetupLogging(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath, cfg.OTEL.Enabled)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("database open failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	if err := repo.SeedCatalog(db); err != nil {
		log.Fatal().Err(err).Msg("catalog seeding failed")
	}

	var publisher pubsub.Publisher = pubsub.NopPublisher{}
	if cfg.PubSub.ProjectID != "" {
		gp, err := pubsub.NewGooglePublisher(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicID)
		if err != nil {
			log.Fatal().Err(err).Msg("pubsub publisher setup failed")
		}
		publisher = gp
	}

	var notifier services.Notifier = notify.LogNotifier{}
	if cfg.NotifyWebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.NotifyWebhookURL)
	}

	dispatcher := async.NewDispatcher(cfg.Game.DispatchWorkers)

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, httpapi.Deps{
		DB:        db,
		Publisher: publisher,
		Notifier:  notifier,
		Dispatch:  dispatcher,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	// Drain pending achievement evaluations and notifications.
	dispatcher.Close()

	if err := publisher.Close(); err != nil {
		log.Error().Err(err).Msg("publisher close")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
}
