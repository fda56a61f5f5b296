// Package auth implements the credential and token primitives of the
// application: bcrypt password hashing and signed, time-limited JWTs for
// access and refresh credentials.
package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword derives a one-way bcrypt hash of pw. Every call embeds a fresh
// random salt, so hashing the same password twice yields different outputs.
func HashPassword(pw string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword reports whether pw re-hashes to hash using the salt embedded
// in it. bcrypt's comparison is constant-time.
func CheckPassword(pw, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
