// Package services defines the business logic for accounts, sessions, chat
// history, feedback, and the upstream chat proxy. This file centralizes
// common service-level error values so that they can be consistently
// returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the
// handler layer.
package services

import "errors"

// Account errors.
var (
	// ErrUsernameTaken is returned when signing up with a username that is
	// already registered.
	ErrUsernameTaken = errors.New("username already registered")

	// ErrUnknownUsername is returned when logging in with a username that
	// does not exist.
	ErrUnknownUsername = errors.New("unknown username")

	// ErrWrongPassword is returned when the password does not verify against
	// the stored hash.
	ErrWrongPassword = errors.New("wrong password")
)

// Session/token errors.
var (
	// ErrMissingRefreshToken is returned by the refresh cycle when no refresh
	// cookie accompanied the request.
	ErrMissingRefreshToken = errors.New("refresh token missing")

	// ErrRefreshExpired is returned when the refresh token's expiry has
	// passed; the client must log in again.
	ErrRefreshExpired = errors.New("refresh token expired")

	// ErrInvalidRefreshToken is returned on refresh-token signature or
	// format errors.
	ErrInvalidRefreshToken = errors.New("refresh token invalid")

	// ErrInvalidAccessToken is returned when a presented access token is
	// structurally broken (bad signature, wrong type) rather than merely
	// expired. Issuance failures are NOT wrapped in this error; they surface
	// as-is so handlers can treat them as server faults.
	ErrInvalidAccessToken = errors.New("access token invalid")
)

// History errors.
var (
	// ErrInvalidSender is returned when a message sender is not "user" or "ai".
	ErrInvalidSender = errors.New("sender must be user or ai")

	// ErrEmptyContent is returned when a message has no content.
	ErrEmptyContent = errors.New("content is empty")
)

// Proxy errors.
var (
	// ErrInvalidEndpointURL is returned when an endpoint is empty or not a
	// well-formed http(s) URL.
	ErrInvalidEndpointURL = errors.New("endpoint is not a valid http(s) URL")

	// ErrEndpointUnreachable is returned when the liveness probe against an
	// endpoint fails or times out.
	ErrEndpointUnreachable = errors.New("endpoint unreachable")
)

// Feedback errors.
var (
	// ErrMessageNotFound indicates the rated message does not exist.
	ErrMessageNotFound = errors.New("message not found")

	// ErrInvalidFeedback is returned when a feedback value is outside the
	// allowed set (-1 or 1).
	ErrInvalidFeedback = errors.New("feedback value must be -1 or 1")

	// ErrForbiddenFeedback is returned when a user rates a message they do
	// not own, or one that is not an ai reply.
	ErrForbiddenFeedback = errors.New("cannot leave feedback on this message")

	// ErrDuplicateFeedback is returned when the user already rated the message.
	ErrDuplicateFeedback = errors.New("feedback already exists")
)
