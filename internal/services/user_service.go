// Package services – UserService
//
// This file implements signup and login. Passwords are hashed with bcrypt
// (fresh salt per hash) and never stored or logged in clear text. Login
// returns a token pair; the handler layer is responsible for placing the
// refresh token in its cookie.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/vrmchat/go-chat-backend/internal/auth"
	"github.com/vrmchat/go-chat-backend/internal/domain"
	"github.com/vrmchat/go-chat-backend/internal/repo"
)

// TokenPair is the result of a successful login or refresh cycle.
type TokenPair struct {
	Access  string
	Refresh string
}

// UserService owns account lifecycle and credential verification.
type UserService struct {
	DB     *gorm.DB
	Tokens *auth.Manager
}

// Signup registers a new account. Returns ErrUsernameTaken when the username
// is already registered.
func (s *UserService) Signup(ctx context.Context, username, password string) (*domain.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u, err := repo.CreateUser(ctx, s.DB, username, hash)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies credentials and issues a fresh access/refresh pair whose
// subject is the user's id. Unknown usernames and wrong passwords are
// reported as distinct errors, matching the API contract.
func (s *UserService) Login(ctx context.Context, username, password string) (*domain.User, *TokenPair, error) {
	u, err := repo.GetUserByUsername(ctx, s.DB, username)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil, ErrUnknownUsername
	}
	if err != nil {
		return nil, nil, err
	}
	if !auth.CheckPassword(password, u.PasswordHash) {
		return nil, nil, ErrWrongPassword
	}

	access, err := s.Tokens.IssueAccess(u.ID)
	if err != nil {
		return nil, nil, err
	}
	refresh, err := s.Tokens.IssueRefresh(u.ID)
	if err != nil {
		return nil, nil, err
	}
	return u, &TokenPair{Access: access, Refresh: refresh}, nil
}
