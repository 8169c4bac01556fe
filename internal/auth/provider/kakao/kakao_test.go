package kakao_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"club-auth/internal/auth/provider"
	"club-auth/internal/auth/provider/kakao"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeKakao struct {
	server       *httptest.Server
	tokenBody    string
	profileBody  string
	profileCode  int
	logoutCode   int
	profileCalls atomic.Int32

	mu       sync.Mutex
	lastForm url.Values
	lastAuth string
}

func (f *fakeKakao) form() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastForm
}

func (f *fakeKakao) authHeader() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth
}

func newFakeKakao(t *testing.T) *fakeKakao {
	t.Helper()
	f := &fakeKakao{
		tokenBody:   `{"access_token":"tok1","token_type":"bearer","refresh_token":"r1","expires_in":21599}`,
		profileBody: `{"id":555,"kakao_account":{"email":null},"properties":{"nickname":"Minsu"}}`,
		profileCode: http.StatusOK,
		logoutCode:  http.StatusOK,
	}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/oauth/token":
			_ = r.ParseForm()
			f.mu.Lock()
			f.lastForm = r.PostForm
			f.mu.Unlock()
			_, _ = w.Write([]byte(f.tokenBody))
		case "/v2/user/me":
			f.profileCalls.Add(1)
			f.mu.Lock()
			f.lastAuth = r.Header.Get("Authorization")
			f.mu.Unlock()
			w.WriteHeader(f.profileCode)
			_, _ = w.Write([]byte(f.profileBody))
		case "/v1/user/logout":
			f.mu.Lock()
			f.lastAuth = r.Header.Get("Authorization")
			code := f.logoutCode
			f.mu.Unlock()
			w.WriteHeader(code)
			_, _ = w.Write([]byte(`{"id":555}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeKakao) provider(t *testing.T) *kakao.Provider {
	t.Helper()
	p, err := kakao.New(kakao.Config{
		ClientID:    "client-123",
		RedirectURL: "https://app.example/default-callback",
		Timeout:     2 * time.Second,
		Endpoints: kakao.Endpoints{
			AuthURL:    f.server.URL + "/oauth/authorize",
			TokenURL:   f.server.URL + "/oauth/token",
			ProfileURL: f.server.URL + "/v2/user/me",
			LogoutURL:  f.server.URL + "/v1/user/logout",
		},
	})
	require.NoError(t, err)
	return p
}

func TestNewRequiresClientID(t *testing.T) {
	_, err := kakao.New(kakao.Config{RedirectURL: "https://app.example/cb"})
	assert.Error(t, err)
}

func TestAuthCodeURL(t *testing.T) {
	f := newFakeKakao(t)
	p := f.provider(t)

	u, err := url.Parse(p.AuthCodeURL("state-xyz"))
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "client-123", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "state-xyz", q.Get("state"))
	assert.Equal(t, "https://app.example/default-callback", q.Get("redirect_uri"))
	assert.Contains(t, q.Get("scope"), "profile_nickname,")
}

func TestExchangeCode(t *testing.T) {
	f := newFakeKakao(t)
	p := f.provider(t)

	tok, err := p.ExchangeCode(context.Background(), "abc123", "https://app.example/callback")
	require.NoError(t, err)
	assert.Equal(t, "tok1", tok.AccessToken)

	assert.Equal(t, "authorization_code", f.form().Get("grant_type"))
	assert.Equal(t, "client-123", f.form().Get("client_id"))
	assert.Equal(t, "https://app.example/callback", f.form().Get("redirect_uri"))
	assert.Equal(t, "abc123", f.form().Get("code"))
}

func TestExchangeCodeWithVerifier(t *testing.T) {
	f := newFakeKakao(t)
	p := f.provider(t)

	_, err := p.ExchangeCode(context.Background(), "abc123", "", oauth2.VerifierOption("verifier-1"))
	require.NoError(t, err)
	assert.Equal(t, "verifier-1", f.form().Get("code_verifier"))
}

func TestAuthCodeURLWithChallenge(t *testing.T) {
	f := newFakeKakao(t)
	p := f.provider(t)

	u, err := url.Parse(p.AuthCodeURL("state-xyz", oauth2.S256ChallengeOption("verifier-1")))
	require.NoError(t, err)
	assert.Equal(t, "S256", u.Query().Get("code_challenge_method"))
	assert.Equal(t, oauth2.S256ChallengeFromVerifier("verifier-1"), u.Query().Get("code_challenge"))
	assert.Contains(t, u.Query().Get("scope"), "profile_nickname")
}

func TestExchangeCodeDefaultsRedirect(t *testing.T) {
	f := newFakeKakao(t)
	p := f.provider(t)

	_, err := p.ExchangeCode(context.Background(), "abc123", "")
	require.NoError(t, err)
	assert.Equal(t, "https://app.example/default-callback", f.form().Get("redirect_uri"))
}

func TestExchangeCodeMissingAccessToken(t *testing.T) {
	f := newFakeKakao(t)
	f.tokenBody = `{"error":"invalid_grant","error_description":"authorization code not found"}`
	p := f.provider(t)

	_, err := p.ExchangeCode(context.Background(), "expired", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrExchangeCodeFailed)
}

func TestFetchProfileWithoutEmail(t *testing.T) {
	f := newFakeKakao(t)
	p := f.provider(t)

	id, err := p.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "tok1"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok1", f.authHeader())
	assert.Equal(t, "kakao", id.Provider)
	assert.Equal(t, "555", id.ProviderUserID)
	assert.Equal(t, "Minsu", id.Nickname)
	assert.Empty(t, id.Email)
	assert.False(t, id.EmailVerified)
}

func TestFetchProfileFullAccount(t *testing.T) {
	f := newFakeKakao(t)
	f.profileBody = `{
		"id": 3141592653,
		"properties": {},
		"kakao_account": {
			"email": "minsu@example.org",
			"is_email_valid": true,
			"is_email_verified": true,
			"name": "Kim Minsu",
			"birthday": "0315",
			"birthyear": "1995",
			"gender": "male",
			"age_range": "20~29",
			"profile": {"nickname": "minsu_k", "profile_image_url": "https://img.example/p.png"}
		}
	}`
	p := f.provider(t)

	id, err := p.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "tok1"})
	require.NoError(t, err)

	assert.Equal(t, "3141592653", id.ProviderUserID)
	assert.Equal(t, "minsu@example.org", id.Email)
	assert.True(t, id.EmailVerified)
	assert.Equal(t, "minsu_k", id.Nickname)
	assert.Equal(t, "https://img.example/p.png", id.AvatarURL)
	assert.Equal(t, "Kim Minsu", id.Name)
	assert.Equal(t, "0315", id.Birthday)
	assert.Equal(t, "1995", id.BirthYear)
	assert.Equal(t, "male", id.Gender)
	assert.Equal(t, "20~29", id.AgeRange)
}

func TestFetchProfileDropsUnverifiedEmail(t *testing.T) {
	f := newFakeKakao(t)
	f.profileBody = `{"id":7,"kakao_account":{"email":"x@example.org","is_email_valid":true,"is_email_verified":false}}`
	p := f.provider(t)

	id, err := p.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "tok1"})
	require.NoError(t, err)
	assert.Empty(t, id.Email)
}

func TestFetchProfileErrors(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
	}{
		{"missing id", http.StatusOK, `{"properties":{"nickname":"x"}}`},
		{"unauthorized", http.StatusUnauthorized, `{"msg":"this access token does not exist","code":-401}`},
		{"malformed", http.StatusOK, `{"id":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeKakao(t)
			f.profileCode = tt.code
			f.profileBody = tt.body
			p := f.provider(t)

			_, err := p.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "tok1"})
			assert.ErrorIs(t, err, provider.ErrFetchProfileFailed)
		})
	}
}

func TestFetchProfileTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer slow.Close()

	p, err := kakao.New(kakao.Config{
		ClientID:    "client-123",
		RedirectURL: "https://app.example/cb",
		Timeout:     50 * time.Millisecond,
		Endpoints: kakao.Endpoints{
			AuthURL:    slow.URL,
			TokenURL:   slow.URL,
			ProfileURL: slow.URL,
			LogoutURL:  slow.URL,
		},
	})
	require.NoError(t, err)

	_, err = p.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "tok1"})
	assert.ErrorIs(t, err, provider.ErrFetchProfileFailed)
}

func TestRevoke(t *testing.T) {
	f := newFakeKakao(t)
	p := f.provider(t)

	require.NoError(t, p.Revoke(context.Background(), "tok1"))
	assert.Equal(t, "Bearer tok1", f.authHeader())

	f.mu.Lock()
	f.logoutCode = http.StatusUnauthorized
	f.mu.Unlock()
	assert.ErrorIs(t, p.Revoke(context.Background(), "tok1"), provider.ErrRevokeFailed)

	assert.NoError(t, p.Revoke(context.Background(), ""))
}
