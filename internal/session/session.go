// Package session verifies access tokens issued by the managed auth backend
// and exposes the caller as an explicit per-request session.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tpc-global/tpc_portal/internal/rpc"
)

const (
	localsKey = "session"
	adminRole = "admin"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrRevoked      = errors.New("session signed out")
)

// Claims are the access token claims the portal relies on.
type Claims struct {
	jwt.RegisteredClaims
	Email       string         `json:"email"`
	Role        string         `json:"role"`
	SessionID   string         `json:"session_id"`
	AppMetadata map[string]any `json:"app_metadata"`
}

// User is the signed-in caller.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Admin bool   `json:"admin"`
}

// Session is the explicit session context passed to every operation that
// needs the caller.
type Session struct {
	CurrentUser User
	Token       string

	claims    *Claims
	revoker   Revoker
	revokeKey string
}

// Identity returns the rpc identity for this session.
func (s *Session) Identity() rpc.Identity {
	if s == nil {
		return rpc.Anonymous()
	}
	id := rpc.Identity{UserID: s.CurrentUser.ID, Email: s.CurrentUser.Email, Role: s.claims.Role}
	id.Claims = map[string]any{"aud": "authenticated"}
	if s.claims.AppMetadata != nil {
		id.Claims["app_metadata"] = s.claims.AppMetadata
	}
	if s.claims.SessionID != "" {
		id.Claims["session_id"] = s.claims.SessionID
	}
	return id
}

// ExpiresAt is the token expiry.
func (s *Session) ExpiresAt() time.Time {
	if s.claims.ExpiresAt == nil {
		return time.Time{}
	}
	return s.claims.ExpiresAt.Time
}

// SignOut revokes the session until its token expires.
func (s *Session) SignOut(ctx context.Context) error {
	ttl := time.Until(s.ExpiresAt())
	if ttl <= 0 {
		return nil
	}
	return s.revoker.Revoke(ctx, s.revokeKey, ttl)
}

// Verifier validates HS256 access tokens.
type Verifier struct {
	secret  []byte
	revoker Revoker
	now     func() time.Time
}

// NewVerifier builds a verifier for the backend's JWT secret.
func NewVerifier(secret string, revoker Revoker) *Verifier {
	return &Verifier{secret: []byte(secret), revoker: revoker, now: time.Now}
}

// Verify parses token and returns the session it describes.
func (v *Verifier) Verify(ctx context.Context, token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(v.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	key := revokeKey(claims)
	revoked, err := v.revoker.Revoked(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrRevoked
	}

	role, _ := claims.AppMetadata["role"].(string)
	return &Session{
		CurrentUser: User{ID: claims.Subject, Email: claims.Email, Admin: role == adminRole},
		Token:       token,
		claims:      claims,
		revoker:     v.revoker,
		revokeKey:   key,
	}, nil
}

func revokeKey(c *Claims) string {
	switch {
	case c.SessionID != "":
		return c.SessionID
	case c.ID != "":
		return c.ID
	}
	var iat int64
	if c.IssuedAt != nil {
		iat = c.IssuedAt.Unix()
	}
	return fmt.Sprintf("%s:%d", c.Subject, iat)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.Clone(strings.TrimSpace(header[7:]))
}

// Attach stores s on the request.
func Attach(c *fiber.Ctx, s *Session) {
	c.Locals(localsKey, s)
}

// From returns the session attached to the request, if any.
func From(c *fiber.Ctx) (*Session, bool) {
	s, ok := c.Locals(localsKey).(*Session)
	return s, ok && s != nil
}
