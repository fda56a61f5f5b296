// Package services – TokenService
//
// This file implements the silent-renewal protocol. Clients hold a short-lived
// access token in memory and a long-lived refresh token in an HttpOnly cookie.
// The token endpoint accepts either state: a still-valid access token passes
// through untouched (the client keeps using its cached copy), while a missing
// or expired access token triggers a refresh cycle that rotates BOTH tokens.
//
// Rotation does not invalidate the previous refresh token server-side; tokens
// are stateless and exposure is bounded by the short access TTL and the cookie
// overwrite. This is an accepted tradeoff, not a revocation mechanism.
package services

import (
	"errors"
	"fmt"

	"github.com/vrmchat/go-chat-backend/internal/auth"
)

// TokenService orchestrates verification and silent refresh of token pairs.
type TokenService struct {
	Tokens *auth.Manager
}

// Refresh runs one refresh cycle: it validates the refresh token from the
// cookie and mints a brand-new access AND refresh token for the same subject.
func (s *TokenService) Refresh(refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrMissingRefreshToken
	}
	uid, err := s.Tokens.Parse(refreshToken, auth.TypeRefresh)
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return nil, ErrRefreshExpired
	case err != nil:
		return nil, ErrInvalidRefreshToken
	}

	access, err := s.Tokens.IssueAccess(uid)
	if err != nil {
		return nil, err
	}
	refresh, err := s.Tokens.IssueRefresh(uid)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// Status implements the public silent-renewal decision. It returns nil when
// the presented access token is still valid (the client keeps its cached
// token), or a freshly rotated pair when the access token is absent or
// expired. A structurally invalid access token is rejected rather than
// silently refreshed.
func (s *TokenService) Status(accessToken, refreshToken string) (*TokenPair, error) {
	if accessToken == "" {
		return s.Refresh(refreshToken)
	}
	_, err := s.Tokens.Parse(accessToken, auth.TypeAccess)
	switch {
	case err == nil:
		return nil, nil
	case errors.Is(err, auth.ErrTokenExpired):
		return s.Refresh(refreshToken)
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}
}
