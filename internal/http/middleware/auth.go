// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-token session resolution. Authenticate parses
// an optional Authorization header and stashes the resolved identity (and the
// raw token) in the Gin context; RequireAuth aborts with 401 when no identity
// was resolved. The split exists because the token endpoint tolerates absent
// or expired access tokens (the refresh cookie drives silent renewal there),
// while resource endpoints must reject them.
package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vrmchat/go-chat-backend/internal/auth"
)

// Context keys for session state. userID holds the decimal string form so
// the rate limiter and access logs can key on it; ctxKeyUID holds the int64.
const (
	ctxKeyUID         = "uid"
	ctxKeyUserID      = "userID"
	ctxKeyBearerToken = "bearerToken"
)

// BearerToken returns the raw token extracted from the Authorization header,
// or "" when the header was absent or not a Bearer scheme.
func BearerToken(c *gin.Context) string {
	v, ok := c.Get(ctxKeyBearerToken)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// UserID returns the authenticated user's id, if Authenticate resolved one.
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ctxKeyUID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// extractBearer pulls the token out of "Authorization: Bearer <token>".
// Scheme matching is case-insensitive; a missing or foreign scheme yields "".
func extractBearer(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// Authenticate returns middleware that resolves the bearer token (when
// present and valid) to a user identity. Absence or failure is not fatal
// here; protected routes enforce identity via RequireAuth.
func Authenticate(mgr *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c.GetHeader("Authorization"))
		if token == "" {
			c.Next()
			return
		}
		c.Set(ctxKeyBearerToken, token)

		uid, err := mgr.Parse(token, auth.TypeAccess)
		if err != nil {
			c.Next()
			return
		}
		c.Set(ctxKeyUID, uid)
		c.Set(ctxKeyUserID, strconv.FormatInt(uid, 10))
		c.Next()
	}
}

// RequireAuth returns middleware that aborts with 401 unless Authenticate
// resolved an identity. The response distinguishes the underlying reason
// (missing, expired, invalid) without leaking signature details. A token
// whose subject is not a well-formed user id is a server-side fault and
// maps to 500.
func RequireAuth(mgr *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserID(c); ok {
			c.Next()
			return
		}

		reqID := c.Writer.Header().Get("X-Request-ID")
		token := BearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": reqID,
				"code":       "unauthorized",
				"message":    "missing bearer token",
			})
			return
		}

		_, err := mgr.Parse(token, auth.TypeAccess)
		if errors.Is(err, auth.ErrBadSubject) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": reqID,
				"code":       "internal_error",
				"message":    "internal server error",
			})
			return
		}

		msg := "invalid access token"
		if errors.Is(err, auth.ErrTokenExpired) {
			msg = "access token expired"
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"request_id": reqID,
			"code":       "unauthorized",
			"message":    msg,
		})
	}
}
