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
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/vrmchat/go-chat-backend/internal/auth"
	"github.com/vrmchat/go-chat-backend/internal/config"
	"github.com/vrmchat/go-chat-backend/internal/http/handlers"
	"github.com/vrmchat/go-chat-backend/internal/http/middleware"
	"github.com/vrmchat/go-chat-backend/internal/ollama"
	"github.com/vrmchat/go-chat-backend/internal/repo"
	"github.com/vrmchat/go-chat-backend/internal/services"
)

// relayPath is the streaming route. It is excluded from gzip: compressing an
// event stream defeats per-fragment flushing.
const relayPath = "/api/ollama/ask"

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), authentication,
// idempotency and rate limiting, CORS and security headers, health and
// metrics endpoints, and then mounts the public API under /api.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII/token scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Bearer-token resolution (identity feeds idempotency and rate keys)
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
//  10. Gzip (event-stream route excluded), CORS, and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, tokens *auth.Manager, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Resolve identity from the Authorization header. Not itself a gate;
	// protected groups add RequireAuth below.
	r.Use(middleware.Authenticate(tokens))

	// 8) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID int64, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 10) Compression, CORS, security headers.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{relayPath})))

	// The refresh cookie only flows on credentialed requests, and credentialed
	// CORS forbids a wildcard origin. Without an explicit allowlist the API
	// still works for same-origin and non-browser clients; browser clients on
	// other origins lose only the cookie-driven refresh flow.
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: true,
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

	// Dependency injection: services ← repo/db/upstream client
	userSvc := &services.UserService{DB: db, Tokens: tokens}
	tokenSvc := &services.TokenService{Tokens: tokens}
	historySvc := &services.HistoryService{DB: db, Capacity: cfg.HistoryCapacity}
	proxySvc := &services.ProxyService{
		DB:              db,
		Client:          ollama.NewClient(cfg.Ollama.ProbePath, cfg.Ollama.ProbeTimeout),
		DefaultEndpoint: cfg.Ollama.DefaultURL,
	}
	fbSvc := &services.FeedbackService{DB: db}

	h := handlers.New(userSvc, tokenSvc, historySvc, proxySvc, fbSvc, handlers.Options{
		CookieSecure:   cfg.Auth.CookieSecure,
		RefreshTTL:     cfg.Auth.RefreshTTL,
		IdempotencyTTL: cfg.IdempotencyTTL,
	})

	// Public API
	api := r.Group("/api")
	{
		// Accounts and sessions (no bearer token required; the token
		// endpoint drives its own refresh-cookie flow)
		api.POST("/user/signup", h.Signup)
		api.POST("/user/login", h.Login)
		api.POST("/user/logout", h.Logout)
		api.GET("/token", h.TokenStatus)

		// Protected resources
		protected := api.Group("", middleware.RequireAuth(tokens))
		{
			// History
			protected.POST("/message", h.PostMessage)
			protected.GET("/message/history", h.GetHistory)

			// Feedback
			protected.POST("/messages/:id/feedback", h.LeaveFeedback)

			// Upstream relay
			protected.POST("/ollama/ask", h.RelayChat)
			protected.PUT("/ollama/endpoint", h.UpdateEndpoint)
			protected.GET("/ollama/endpoint/check", h.CheckEndpoint)
		}
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
