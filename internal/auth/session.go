// Package auth issues and verifies session tokens and implements the
// sign-in flows.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"spendlog/internal/core"
)

const (
	// SessionCookie holds the session token for browser clients.
	SessionCookie = "session"
	issuer        = "spendlog"
)

var ErrInvalidSession = errors.New("invalid or expired session")

type claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Sessions signs HS256 session tokens.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	clock  core.Clock
}

func NewSessions(secret string, ttl time.Duration, clock core.Clock) *Sessions {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &Sessions{secret: []byte(secret), ttl: ttl, clock: clock}
}

func (s *Sessions) TTL() time.Duration { return s.ttl }

// Issue returns a token for u and its expiry.
func (s *Sessions) Issue(u core.User) (string, time.Time, error) {
	now := s.clock.Now()
	exp := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: u.Email,
		Name:  u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies raw and returns the identity it carries.
func (s *Sessions) Parse(raw string) (Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if c.Subject == "" {
		return Identity{}, ErrInvalidSession
	}
	return Identity{UserID: c.Subject, Email: c.Email, Name: c.Name}, nil
}

// TokenFromRequest reads the session cookie, falling back to a Bearer
// Authorization header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
