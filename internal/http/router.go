// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-journal-backend/internal/async"
	"github.com/tbourn/go-journal-backend/internal/config"
	"github.com/tbourn/go-journal-backend/internal/domain"
	"github.com/tbourn/go-journal-backend/internal/http/handlers"
	"github.com/tbourn/go-journal-backend/internal/http/middleware"
	"github.com/tbourn/go-journal-backend/internal/pubsub"
	"github.com/tbourn/go-journal-backend/internal/repo"
	"github.com/tbourn/go-journal-backend/internal/services"
)

// Deps carries the externally constructed collaborators the router wires into
// the service graph.
type Deps struct {
	// DB is the shared GORM handle.
	DB *gorm.DB
	// Publisher hands published journals to the analysis pipeline; nil
	// disables the hand-off.
	Publisher pubsub.Publisher
	// Notifier delivers user notifications; nil disables them.
	Notifier services.Notifier
	// Dispatch runs fire-and-forget side effects.
	Dispatch *async.Dispatcher
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under the configured base path.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Response compression
//  7. Metrics
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	db := deps.DB

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Compress responses for clients that accept it
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, journalID, key string, now time.Time) (bool, error) {
			var (
				rec *domain.Idempotency
				err error
			)
			if journalID == "" {
				// Creation routes have no :id; their records are keyed on (user, key).
				rec, err = repo.GetIdempotencyByKey(ctx, db, userID, key, now)
			} else {
				rec, err = repo.GetIdempotency(ctx, db, userID, journalID, key, now)
			}
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Swagger UI (opt-in)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/collaborators
	ledgerSvc := &services.LedgerService{DB: db}
	streakSvc := &services.StreakService{DB: db}
	emotionSvc := &services.EmotionService{DB: db}
	achSvc := &services.AchievementService{
		DB:       db,
		Ledger:   ledgerSvc,
		Streaks:  streakSvc,
		Emotions: emotionSvc,
		Notifier: deps.Notifier,
	}
	journalSvc := services.NewJournalService(db, ledgerSvc, streakSvc, achSvc, deps.Publisher, deps.Dispatch, cfg.Game.EntryPoints)
	journalSvc.TitleLocale = language.English
	userSvc := &services.UserService{DB: db, Achievements: achSvc, Dispatch: deps.Dispatch}
	analysisSvc := &services.AnalysisService{
		DB:                 db,
		Emotions:           emotionSvc,
		Streaks:            streakSvc,
		Ledger:             ledgerSvc,
		Achievements:       achSvc,
		Notifier:           deps.Notifier,
		PositiveConfidence: cfg.Game.PositiveConfidence,
		PositivePoints:     cfg.Game.PositivePoints,
	}

	h := handlers.New(userSvc, journalSvc, ledgerSvc, streakSvc, achSvc, emotionSvc, analysisSvc)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Users
		api.POST("/users", h.RegisterUser)
		api.PUT("/users/:id/device-token", h.UpdateDeviceToken)

		// Journals
		api.POST("/journals", h.CreateJournal)
		api.GET("/journals", h.ListJournals)
		api.GET("/journals/:id", h.GetJournal)
		api.PUT("/journals/:id", h.UpdateJournal)
		api.DELETE("/journals/:id", h.DeleteJournal)
		api.POST("/journals/:id/star", h.StarJournal)

		// Gamification (read side)
		api.GET("/game/points", h.GetPoints)
		api.GET("/game/level", h.GetLevel)
		api.GET("/game/streak", h.GetStreak)
		api.GET("/game/stats", h.GetGameStats)
		api.GET("/game/achievements", h.ListAchievements)
		api.GET("/game/achievements/:id", h.GetAchievement)

		// Emotion analysis (read side)
		api.GET("/emotions", h.GetEmotions)

		// Analysis-event intake
		api.POST("/events/journal-analyzed", h.JournalAnalyzed)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
