// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, the identity gate, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/cargolink/go-freight-backend/internal/config"
	"github.com/cargolink/go-freight-backend/internal/http/handlers"
	"github.com/cargolink/go-freight-backend/internal/http/middleware"
	"github.com/cargolink/go-freight-backend/internal/realtime"
	"github.com/cargolink/go-freight-backend/internal/services"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), the identity gate,
// per-class rate limiting, CORS and security headers, health and metrics
// endpoints, and then mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter + gzip
//  6. Metrics
//  7. Edge token-bucket rate limiter (per user/IP)
//  8. CORS and security headers
//
// The identity gate and per-class limiters apply per route group, so
// anonymous endpoints (/health, /metrics, swagger) stay open.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, broker *realtime.Broker, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured access logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB) and response compression
	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{"^/ws/"})))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Edge token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Content-Length"},
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
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeBadRequest, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Swagger UI (opt-in)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← db/broker
	cargoSvc := services.NewCargoService(db)
	cargoSvc.TrialActiveLimit = cfg.TrialActiveLimit
	quoteSvc := services.NewQuoteService(db)
	dealSvc := services.NewDealService(db)
	chatSvc := services.NewChatService(db, broker)

	h := handlers.New(cargoSvc, quoteSvc, dealSvc, chatSvc)
	ws := handlers.NewWSHandler(chatSvc, broker)

	// Per-class fixed-window limiters share one counter store. Budgets come
	// from config, falling back to the class defaults.
	counters := middleware.NewMemoryCounterStore()
	cl := middleware.NewClassLimiter(counters, middleware.KeyByUserOrIP())
	classAPI := middleware.ClassAPI.WithLimit(cfg.RateClassAPI)
	classSearch := middleware.ClassSearch.WithLimit(cfg.RateClassSearch)
	classCargo := middleware.ClassCargo.WithLimit(cfg.RateClassCargo)
	classQuotes := middleware.ClassQuotes.WithLimit(cfg.RateClassQuotes)
	classChat := middleware.ClassChat.WithLimit(cfg.RateClassChat)

	// Public API: everything below requires an identity and the general
	// API budget; the business classes stack on top per group.
	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(middleware.RequireAuth())
	api.Use(cl.Handler(classAPI))
	{
		// Cargo postings
		cargo := api.Group("/cargo")
		{
			cargo.POST("", cl.Handler(classCargo), h.CreateCargo)
			cargo.GET("/:id", h.GetCargo)
			cargo.POST("/:id/quote", cl.Handler(classQuotes), h.SubmitQuote)
			cargo.GET("/:id/quote", h.ListCargoQuotes)
		}

		// Marketplace views
		mp := api.Group("/marketplace", cl.Handler(classSearch))
		{
			mp.GET("/offers", h.ListMarketplace)
			mp.GET("/my-cargo", h.ListOwnCargo)
			mp.GET("/my-quotes", h.ListOwnQuotes)
			mp.GET("/active-deals", h.ListDeals)
		}

		// Deals
		api.PUT("/quotes/:id/accept", h.AcceptQuote)
		api.PATCH("/deals/:id/status", h.UpdateDealStatus)

		// Chat
		chat := api.Group("/chat", cl.Handler(classChat))
		{
			chat.GET("/threads", h.ListThreads)
			chat.POST("/:cargoId/thread", h.OpenThread)
			chat.GET("/:cargoId/messages", h.ListMessages)
			chat.POST("/:cargoId/messages", h.SendMessage)
		}
	}

	// Realtime socket, outside the gzip/class stack but behind the gate.
	r.GET("/ws/chat/:threadId", middleware.RequireAuth(), ws.ChatSocket)
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
