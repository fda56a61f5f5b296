// Session token HTTP handler.
//
// This file exposes the silent-renewal endpoint:
//   - GET /api/token
//
// The client calls it before protected requests. If its cached access token
// is still valid the endpoint answers with a JSON null and the client keeps
// using the cached token. If the access token is absent or expired, the
// refresh cookie drives a rotation cycle: a brand-new access token is
// returned in the body and a brand-new refresh token replaces the cookie.
// A missing, expired, or forged refresh token forces re-login with 401.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vrmchat/go-chat-backend/internal/http/middleware"
	"github.com/vrmchat/go-chat-backend/internal/services"
)

// TokenStatus implements the silent-renewal decision over HTTP.
//
// Responses:
//   - 200 null                when the presented access token is still valid
//   - 200 "<access token>"    when a refresh cycle minted a new pair
//   - 401 when the refresh token is missing, expired, or invalid
//   - 401 when the access token is structurally invalid (not merely expired)
//   - 500 when minting the replacement pair fails
func (h *Handlers) TokenStatus(c *gin.Context) {
	access := middleware.BearerToken(c)
	refresh := refreshCookie(c)

	pair, err := h.sessions.Status(access, refresh)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingRefreshToken):
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "refresh token missing")
		case errors.Is(err, services.ErrRefreshExpired):
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "refresh token expired")
		case errors.Is(err, services.ErrInvalidRefreshToken):
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "refresh token invalid")
		case errors.Is(err, services.ErrInvalidAccessToken):
			// Structurally broken access token (bad signature, wrong type).
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "access token invalid")
		default:
			// Signing failures during issuance are server faults.
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
		}
		return
	}

	// Access token still valid: nothing to renew.
	if pair == nil {
		ok(c, http.StatusOK, nil)
		return
	}

	h.setRefreshCookie(c, pair.Refresh)
	ok(c, http.StatusOK, pair.Access)
}
