// Handler wiring.
//
// This file declares the service contracts consumed by the HTTP layer and the
// Handlers aggregate that binds them together. Handlers are transport-thin:
// they validate and normalize input, call application services, and translate
// results into HTTP responses. Business rules (eviction, token rotation,
// endpoint probing) live in internal/services.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vrmchat/go-chat-backend/internal/domain"
	"github.com/vrmchat/go-chat-backend/internal/ollama"
	"github.com/vrmchat/go-chat-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// AccountService defines the account lifecycle operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AccountService interface {
	// Signup registers a new account with the given credentials.
	Signup(ctx context.Context, username, password string) (*domain.User, error)
	// Login verifies credentials and issues a fresh token pair.
	Login(ctx context.Context, username, password string) (*domain.User, *services.TokenPair, error)
}

// SessionService defines the silent-renewal token operations.
type SessionService interface {
	// Refresh rotates the token pair using a refresh token.
	Refresh(refreshToken string) (*services.TokenPair, error)
	// Status returns nil when the access token is still valid, or a rotated
	// pair when renewal was needed.
	Status(accessToken, refreshToken string) (*services.TokenPair, error)
}

// HistoryService defines the bounded per-user message log.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type HistoryService interface {
	// Append stores one message, evicting the oldest (user, ai) pair when
	// the history is at capacity.
	Append(ctx context.Context, userID int64, sender, content string) (*domain.Message, error)
	// List returns the user's history oldest-first; limit <= 0 means all.
	List(ctx context.Context, userID int64, limit int) ([]domain.Message, error)
}

// ProxyService defines upstream chat relay and endpoint configuration.
type ProxyService interface {
	// UpdateEndpoint validates, probes, and persists an upstream base URL.
	UpdateEndpoint(ctx context.Context, userID int64, raw string) error
	// CheckEndpoint probes the user's effective endpoint for liveness.
	CheckEndpoint(ctx context.Context, userID int64) error
	// Relay opens a streaming chat completion bound to ctx.
	Relay(ctx context.Context, userID int64, model string, turns []ollama.Turn) (*ollama.Stream, error)
}

// FeedbackService defines operations to capture user ratings on messages.
type FeedbackService interface {
	// Leave submits a feedback value (-1 or 1) for messageID by userID.
	Leave(ctx context.Context, userID, messageID int64, value int) error
}

//
// Handler wiring
//

// Options carries the transport-level knobs the handlers need beyond their
// services: refresh-cookie attributes and the idempotency record lifetime.
type Options struct {
	// CookieSecure sets the Secure attribute on the refresh cookie. Disable
	// only for plain-HTTP local development.
	CookieSecure bool
	// RefreshTTL bounds the refresh cookie's Max-Age.
	RefreshTTL time.Duration
	// IdempotencyTTL is how long a stored Idempotency-Key result can be
	// replayed before it lapses.
	IdempotencyTTL time.Duration
}

// Handlers groups HTTP endpoints for accounts, sessions, history, feedback,
// and the upstream relay. It depends on abstract service interfaces to keep
// transport concerns separate from business logic.
type Handlers struct {
	users    AccountService
	sessions SessionService
	history  HistoryService
	proxy    ProxyService
	feedback FeedbackService

	opts Options
}

// New constructs and returns a Handlers instance bound to the given services.
func New(users AccountService, sessions SessionService, history HistoryService, proxy ProxyService, feedback FeedbackService, opts Options) *Handlers {
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 24 * time.Hour
	}
	return &Handlers{
		users:    users,
		sessions: sessions,
		history:  history,
		proxy:    proxy,
		feedback: feedback,
		opts:     opts,
	}
}

// refreshCookieName is the cookie that carries the refresh token. It is
// HttpOnly and SameSite=Strict so scripts never see it and cross-site
// requests never send it.
const refreshCookieName = "refresh_token"

// setRefreshCookie installs (or overwrites) the refresh cookie. Rotation
// relies on this overwrite: the superseded token simply stops being presented.
func (h *Handlers) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, token, int(h.opts.RefreshTTL.Seconds()), "/", "", h.opts.CookieSecure, true)
}

// clearRefreshCookie expires the refresh cookie immediately.
func (h *Handlers) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, "", -1, "/", "", h.opts.CookieSecure, true)
}

// refreshCookie reads the refresh token from the request cookie, returning ""
// when absent.
func refreshCookie(c *gin.Context) string {
	v, err := c.Cookie(refreshCookieName)
	if err != nil {
		return ""
	}
	return v
}
