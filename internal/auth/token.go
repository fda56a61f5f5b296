package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type claim values. A token is only ever valid for the purpose it was
// issued with: access tokens authenticate requests, refresh tokens mint new
// pairs.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Token verification failures. Handlers map all of these to 401; the split
// lets the token endpoint distinguish "expired, try refresh" from "reject".
var (
	// ErrTokenExpired indicates a structurally valid token past its exp claim.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed indicates a token that is not a well-formed JWT.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenInvalid indicates a bad signature or failed standard validation.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrWrongTokenType indicates a valid token presented for the wrong purpose
	// (e.g. a refresh token used as an access token).
	ErrWrongTokenType = errors.New("wrong token type")
	// ErrBadSubject indicates a valid token whose subject is not an integer
	// user id. This is a server-side issuance bug, not a client error.
	ErrBadSubject = errors.New("token subject is not a user id")
)

// Claims extends the registered JWT claims with the token type. The subject
// is the decimal user id.
type Claims struct {
	jwt.RegisteredClaims
	Type string `json:"type"`
}

// Manager issues and verifies HMAC-signed access and refresh tokens. Tokens
// are stateless: no server-side record exists and issued tokens are never
// mutated, a new token is always a new independently-expiring credential.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewManager builds a Manager signing with secret. accessTTL is typically
// minutes, refreshTTL days.
func NewManager(secret []byte, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{secret: secret, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// AccessTTL returns the configured access-token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.accessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.refreshTTL }

// IssueAccess signs a short-lived access token for userID.
func (m *Manager) IssueAccess(userID int64) (string, error) {
	return m.issue(userID, TypeAccess, m.accessTTL)
}

// IssueRefresh signs a long-lived refresh token for userID.
func (m *Manager) IssueRefresh(userID int64) (string, error) {
	return m.issue(userID, TypeRefresh, m.refreshTTL)
}

func (m *Manager) issue(userID int64, typ string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Type: typ,
	})
	return token.SignedString(m.secret)
}

// Parse validates signature, expiry, and token type, and returns the user id
// carried in the subject claim. Expiry comparison is UTC-normalized by
// jwt.NumericDate.
func (m *Manager) Parse(tokenString, wantType string) (int64, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return 0, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return 0, ErrTokenMalformed
	case err != nil:
		return 0, ErrTokenInvalid
	}
	if !token.Valid {
		return 0, ErrTokenInvalid
	}
	if claims.Type != wantType {
		return 0, ErrWrongTokenType
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrBadSubject
	}
	return id, nil
}
