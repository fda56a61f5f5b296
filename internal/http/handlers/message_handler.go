// Message HTTP handlers.
//
// This file exposes REST endpoints for the bounded conversation history:
//   - POST /api/message          (store one message for the authenticated user)
//   - GET  /api/message/history  (list the user's history oldest-first)
//
// Handlers are transport-thin:
//   - validate & normalize inputs (sender enum, newline and whitespace cleanup)
//   - delegate to the application service (HistoryService)
//   - implement conditional responses (ETag) and idempotency semantics
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// result exists for (user, key), the handler returns that recorded message
// and sets `Idempotency-Replayed: true`.
package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vrmchat/go-chat-backend/internal/domain"
	"github.com/vrmchat/go-chat-backend/internal/http/middleware"
	"github.com/vrmchat/go-chat-backend/internal/repo"
	"github.com/vrmchat/go-chat-backend/internal/services"
	"github.com/vrmchat/go-chat-backend/internal/utils"
)

//
// DTOs
//

// PostMessageRequest is the JSON payload for storing a message.
//
// Content is normalized by the handler (line endings and excessive blank
// lines) before being passed to the service layer.
type PostMessageRequest struct {
	// Sender marks the side of the conversation this message belongs to.
	Sender string `json:"sender" binding:"required,oneof=user ai"`
	// Content is the message text. It must be non-empty after trimming.
	Content string `json:"content" binding:"required,min=1"`
}

// PostMessageResponse is the JSON envelope for a stored message.
type PostMessageResponse struct {
	Message *domain.Message `json:"message"`
}

//
// Helpers
//

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeContent normalizes message text for consistent downstream behavior:
//   - converts CRLF/CR to LF,
//   - collapses runs of 3+ LFs to exactly two (paragraph separation),
//   - trims surrounding whitespace.
func sanitizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// historyDB exposes the concrete service's DB handle for ETag and idempotency
// lookups. Returns nil when the handler was wired with a different
// implementation (e.g., a test double), in which case both features degrade
// gracefully to plain behavior.
func (h *Handlers) historyDB() *gorm.DB {
	if svc, ok := h.history.(*services.HistoryService); ok {
		return svc.DB
	}
	return nil
}

//
// Handlers
//

// PostMessage stores one message in the authenticated user's history,
// applying the capacity-bound eviction rule inside the service.
//
// Responses:
//   - 200 {message} on success
//   - 400 on invalid sender or empty content
//   - 401 without a valid access token
//   - 500 on storage failures
func (h *Handlers) PostMessage(c *gin.Context) {
	ctx := c.Request.Context()
	uid, okUID := middleware.UserID(c)
	if !okUID {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing bearer token")
		return
	}

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "sender (user|ai) and content required")
		return
	}

	content := sanitizeContent(req.Content)
	if content == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" {
		if db := h.historyDB(); db != nil {
			if rec, err := repo.GetIdempotency(ctx, db, uid, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetMessage(ctx, db, rec.MessageID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, PostMessageResponse{Message: prev})
					return
				}
			}
		}
	}

	m, err := h.history.Append(ctx, uid, req.Sender, content)
	if err != nil {
		switch err {
		case services.ErrInvalidSender:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "sender must be user or ai")
		case services.ErrEmptyContent:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, "internal server error")
		}
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if db := h.historyDB(); db != nil {
			_, _ = repo.CreateIdempotency(ctx, db, uid, idemKey, m.ID, http.StatusOK, h.opts.IdempotencyTTL)
		}
	}

	ok(c, http.StatusOK, PostMessageResponse{Message: m})
}

// GetHistory lists the authenticated user's messages oldest-first.
//
// An optional ?limit=N query caps the result to the first N messages;
// absent or non-positive values return everything. The response carries a
// weak ETag derived from (count, newest timestamp) so unchanged histories
// answer 304 to If-None-Match revalidation.
func (h *Handlers) GetHistory(c *gin.Context) {
	ctx := c.Request.Context()
	uid, okUID := middleware.UserID(c)
	if !okUID {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing bearer token")
		return
	}

	// ETag pre-check (best effort).
	if db := h.historyDB(); db != nil {
		count, maxTS, err := repo.MessagesStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"history:%d:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	limit := utils.AtoiDefault(c.Query("limit"), 0)

	msgs, err := h.history.List(ctx, uid, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "internal server error")
		return
	}

	ok(c, http.StatusOK, msgs)
}
