// Account HTTP handlers.
//
// This file exposes the account endpoints:
//   - POST /api/user/signup  (register)
//   - POST /api/user/login   (verify credentials, issue token pair)
//   - POST /api/user/logout  (clear refresh cookie)
//
// Login places the refresh token in an HttpOnly SameSite=Strict cookie and
// returns the access token in the body; clients hold the access token in
// memory only. Logout is purely client-facing: it expires the cookie and does
// not invalidate outstanding tokens server-side.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vrmchat/go-chat-backend/internal/services"
)

//
// DTOs
//

// SignupRequest is the JSON payload for registering an account.
type SignupRequest struct {
	// Username is the unique account name (1-150 chars).
	Username string `json:"username" binding:"required,min=1,max=150"`
	// Password is the clear-text password; it is hashed before storage and
	// never logged.
	Password string `json:"password" binding:"required,min=1"`
}

// SignupResponse confirms a successful registration.
type SignupResponse struct {
	Message  string `json:"message"`
	Username string `json:"username"`
}

// LoginRequest is the JSON payload for authenticating.
type LoginRequest struct {
	Username string `json:"username" binding:"required,min=1,max=150"`
	Password string `json:"password" binding:"required,min=1"`
}

// LoginResponse carries the access token; the refresh token travels only in
// the Set-Cookie header.
type LoginResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// MessageResponse is a minimal confirmation envelope.
type MessageResponse struct {
	Message string `json:"message"`
}

//
// Handlers
//

// Signup registers a new account.
//
// Responses:
//   - 200 {message, username} on success
//   - 400 "already registered" when the username exists
//   - 400 on malformed payloads
//   - 500 on storage failures
func (h *Handlers) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username and password required")
		return
	}

	u, err := h.users.Signup(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUsernameTaken):
			fail(c, http.StatusBadRequest, ErrCodeConflict, "already registered")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, "internal server error")
		}
		return
	}

	ok(c, http.StatusOK, SignupResponse{Message: "signup successful", Username: u.Username})
}

// Login verifies credentials, sets the refresh cookie, and returns the access
// token.
//
// Unknown usernames and wrong passwords are distinguished in the response
// body, both under a 400 status:
//   - 400 "username error" for unknown accounts
//   - 400 "password error" for failed verification
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username and password required")
		return
	}

	_, pair, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownUsername):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username error")
		case errors.Is(err, services.ErrWrongPassword):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "password error")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
		}
		return
	}

	h.setRefreshCookie(c, pair.Refresh)
	ok(c, http.StatusOK, LoginResponse{
		Message:     "login successful",
		AccessToken: pair.Access,
		TokenType:   "bearer",
	})
}

// Logout clears the refresh cookie. Outstanding access tokens stay valid
// until their (short) expiry; there is no server-side revocation list.
func (h *Handlers) Logout(c *gin.Context) {
	h.clearRefreshCookie(c)
	ok(c, http.StatusOK, MessageResponse{Message: "logout successful"})
}
