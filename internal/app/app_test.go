package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"club-auth/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	return config.Config{
		AppPort:                "0",
		StoreDriver:            config.StoreDriverMemory,
		SessionDriver:          config.SessionDriverMemory,
		SessionSigningKey:      "0123456789abcdef0123456789abcdef",
		SessionIssuer:          "club-auth",
		AccessTokenTTL:         15 * time.Minute,
		RefreshTokenTTL:        24 * time.Hour,
		CredentialTTL:          time.Minute,
		BcryptCost:             4,
		ProviderTimeout:        time.Second,
		PlaceholderEmailDomain: "example.com",
		KakaoClientID:          "client-123",
		KakaoRedirectURL:       "https://app.example/callback",
	}
}

func TestSetupHTTPMemoryDrivers(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router, cleanup, err := setupHTTP(context.Background(), testConfig())
	require.NoError(t, err)
	defer func() { assert.NoError(t, cleanup()) }()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	// produce at least one login sample
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/naver/callback", strings.NewReader(`{"code":"x"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "club_auth_logins_total")
	assert.Contains(t, w.Body.String(), "go_goroutines")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/oauth/login/kakao", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "https://kauth.kakao.com/oauth/authorize?"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSetupInfraRedisSessions(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.SessionDriver = config.SessionDriverRedis
	cfg.RedisAddr = mr.Addr()

	infra, err := setupInfra(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, infra.Redis)
	assert.Nil(t, infra.DB)
	assert.NoError(t, infra.Check(context.Background()))

	mr.Close()
	assert.Error(t, infra.Check(context.Background()))
	assert.NoError(t, infra.Close())
}

func TestSetupInfraRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig()
	cfg.SessionDriver = config.SessionDriverRedis
	cfg.RedisAddr = addr

	_, err := setupInfra(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewAndShutdown(t *testing.T) {
	gin.SetMode(gin.TestMode)

	a, err := New(context.Background(), testConfig())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, a.Shutdown(ctx))
}
