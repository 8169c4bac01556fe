package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"club-auth/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthenticator map[string]*session.Session

func (f fakeAuthenticator) Authenticate(_ context.Context, token string) (*session.Session, error) {
	s, ok := f[token]
	if !ok {
		return nil, session.ErrInvalidToken
	}
	return s, nil
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	auth := NewAuthMiddleware(fakeAuthenticator{
		"good": {SessionID: "sid-1", AccountID: "acc-1"},
	})

	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/me", GinRequireAuth(auth), func(c *gin.Context) {
		s, ok := SessionFromContext(c.Request.Context())
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"account_id": s.AccountID})
	})
	return r
}

func TestGinRequireAuth(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid bearer", "Bearer good", http.StatusOK},
		{"lowercase scheme", "bearer good", http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer bad", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"account_id":"acc-1"}`, w.Body.String())
			} else {
				assert.JSONEq(t, `{"success":false,"error":"unauthorized"}`, w.Body.String())
			}
		})
	}
}

func TestSessionFromContextEmpty(t *testing.T) {
	_, ok := SessionFromContext(context.Background())
	assert.False(t, ok)
}
