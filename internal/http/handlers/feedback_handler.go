// Feedback HTTP handlers.
//
// This file exposes the rating endpoint:
//   - POST /api/messages/{id}/feedback
//
// Users can rate ai replies in their own history with a thumbs up (+1) or
// down (-1). One rating per (user, message); repeats conflict.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vrmchat/go-chat-backend/internal/http/middleware"
	"github.com/vrmchat/go-chat-backend/internal/services"
)

// FeedbackRequest is the JSON payload for rating a message.
type FeedbackRequest struct {
	// Value is the rating: 1 (helpful) or -1 (not helpful).
	Value int `json:"value" binding:"required,oneof=-1 1"`
}

// LeaveFeedback records a rating on an ai message owned by the caller.
//
// Responses:
//   - 204 on success
//   - 400 on a malformed id or value
//   - 403 when the message is not the caller's ai reply
//   - 404 when the message does not exist
//   - 409 when the caller already rated it
func (h *Handlers) LeaveFeedback(c *gin.Context) {
	uid, okUID := middleware.UserID(c)
	if !okUID {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing bearer token")
		return
	}

	msgID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message id must be an integer")
		return
	}

	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "value must be -1 or 1")
		return
	}

	err = h.feedback.Leave(c.Request.Context(), uid, msgID, req.Value)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidFeedback):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "value must be -1 or 1")
		case errors.Is(err, services.ErrMessageNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
		case errors.Is(err, services.ErrForbiddenFeedback):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "feedback is limited to your own ai replies")
		case errors.Is(err, services.ErrDuplicateFeedback):
			fail(c, http.StatusConflict, ErrCodeConflict, "feedback already exists")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
		}
		return
	}

	noContent(c)
}
