// Package auth implements the identity layer: bearer-token
// verification and credential checks.
//
// Tokens are HS256 JWTs carrying user_id (or sub) and email claims,
// compatible with tokens minted by an external identity provider that
// shares the same secret. Passwords for the built-in auth endpoints
// are stored as bcrypt hashes.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidToken is returned for malformed, expired, or
// wrongly-signed credentials.
var ErrInvalidToken = errors.New("could not validate credentials")

// UserIdentity is the verified identity extracted from a bearer token.
type UserIdentity struct {
	UserID string
	Email  string
}

// Verifier validates bearer tokens and issues new ones.
type Verifier struct {
	secret []byte
	ttl    time.Duration
}

// NewVerifier creates a Verifier for the given shared HS256 secret.
func NewVerifier(secret string, ttl time.Duration) *Verifier {
	return &Verifier{secret: []byte(secret), ttl: ttl}
}

// claims is the JWT payload. Some issuers use "user_id", others "sub";
// Verify accepts either.
type claims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verify parses and validates a bearer token and returns the identity
// it carries. All failures collapse into ErrInvalidToken so callers
// cannot distinguish why a credential was rejected.
func (v *Verifier) Verify(token string) (UserIdentity, error) {
	// A JWT has exactly three dot-separated segments. Rejecting
	// anything else up front avoids parser panics on garbage input.
	if strings.Count(token, ".") != 2 {
		return UserIdentity{}, ErrInvalidToken
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return UserIdentity{}, ErrInvalidToken
	}

	userID := c.UserID
	if userID == "" {
		userID = c.Subject
	}
	if userID == "" {
		return UserIdentity{}, ErrInvalidToken
	}

	return UserIdentity{UserID: userID, Email: c.Email}, nil
}

// Issue mints a signed token for the given identity.
func (v *Verifier) Issue(identity UserIdentity) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: identity.UserID,
		Email:  identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	})

	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// HashPassword returns the bcrypt hash of a plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext password matches the
// stored bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
