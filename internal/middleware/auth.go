package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"club-auth/internal/session"
)

// unexported, collision-proof context key
type sessionContextKeyType struct{}

var sessionKey = sessionContextKeyType{}

// SessionFromContext extracts the authenticated session from context.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*session.Session)
	return s, ok && s != nil
}

// WithSession attaches a session to ctx.
func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionAuthenticator verifies an access token and returns its live session.
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*session.Session, error)
}

type AuthMiddleware struct {
	Sessions SessionAuthenticator
}

func NewAuthMiddleware(sessions SessionAuthenticator) *AuthMiddleware {
	return &AuthMiddleware{Sessions: sessions}
}

var errMissingBearer = errors.New("missing bearer token")

func (a *AuthMiddleware) authenticate(r *http.Request) (*session.Session, error) {
	// 1. Read bearer token
	token, ok := bearerToken(r)
	if !ok {
		return nil, errMissingBearer
	}

	// 2. Verify token and load the live session
	return a.Sessions.Authenticate(r.Context(), token)
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
