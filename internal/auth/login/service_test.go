package login_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"club-auth/internal/auth"
	"club-auth/internal/auth/credentials"
	"club-auth/internal/auth/login"
	"club-auth/internal/auth/provider"
	"club-auth/internal/auth/provider/kakao"
	"club-auth/internal/auth/resolver"
	"club-auth/internal/metrics"
	"club-auth/internal/session"
	"club-auth/internal/store"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type kakaoStub struct {
	server       *httptest.Server
	tokenBody    atomic.Value
	profileBody  atomic.Value
	profileCalls atomic.Int32
}

func newKakaoStub(t *testing.T) *kakaoStub {
	t.Helper()
	k := &kakaoStub{}
	k.tokenBody.Store(`{"access_token":"tok1","token_type":"bearer","expires_in":21599}`)
	k.profileBody.Store(`{"id":555,"kakao_account":{"email":null},"properties":{"nickname":"Minsu"}}`)

	k.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/oauth/token":
			_, _ = w.Write([]byte(k.tokenBody.Load().(string)))
		case "/v2/user/me":
			k.profileCalls.Add(1)
			_, _ = w.Write([]byte(k.profileBody.Load().(string)))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(k.server.Close)
	return k
}

type countingResolver struct {
	inner resolver.Resolver
	calls atomic.Int32
}

func (c *countingResolver) Resolve(ctx context.Context, id *auth.Identity) (*resolver.Resolution, error) {
	c.calls.Add(1)
	return c.inner.Resolve(ctx, id)
}

type fixture struct {
	kakao    *kakaoStub
	records  *store.Memory
	resolver *countingResolver
	sessions *session.Provisioner
	metrics  *metrics.Metrics
	svc      *login.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	k := newKakaoStub(t)

	kp, err := kakao.New(kakao.Config{
		ClientID:    "client-123",
		RedirectURL: "https://app.example/callback",
		Timeout:     2 * time.Second,
		Endpoints: kakao.Endpoints{
			AuthURL:    k.server.URL + "/oauth/authorize",
			TokenURL:   k.server.URL + "/oauth/token",
			ProfileURL: k.server.URL + "/v2/user/me",
			LogoutURL:  k.server.URL + "/v1/user/logout",
		},
	})
	require.NoError(t, err)

	records := store.NewMemory()
	creds := credentials.NewService(records, credentials.NewHasher(bcrypt.MinCost), time.Minute)
	res := &countingResolver{inner: resolver.NewAccountResolver(records, creds, "")}

	sessionStore := session.NewMemoryStore()
	t.Cleanup(sessionStore.Close)
	tokens := session.NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), "club-auth", 15*time.Minute)
	provisioner := session.NewProvisioner(creds, sessionStore, tokens, 24*time.Hour)

	m := metrics.New(nil)

	return &fixture{
		kakao:    k,
		records:  records,
		resolver: res,
		sessions: provisioner,
		metrics:  m,
		svc:      login.NewService(provider.NewRegistry(kp), res, provisioner, records, m),
	}
}

var minsuRequest = login.Request{
	Provider:    "kakao",
	Code:        "abc123",
	RedirectURI: "https://app.example/callback",
}

func TestLoginCreatesAccountAndSession(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Login(context.Background(), minsuRequest)
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.Equal(t, "kakao_555@example.com", res.Account.Email)
	assert.Equal(t, "Minsu", res.Account.Nickname)
	assert.Equal(t, "kakao", res.Account.Provider)
	assert.Equal(t, "555", res.Account.ProviderUserID)
	require.NotNil(t, res.Tokens)
	assert.NotEmpty(t, res.Tokens.AccessToken)

	sess, err := f.sessions.Authenticate(context.Background(), res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.Account.ID, sess.AccountID)
	assert.Equal(t, "tok1", sess.ProviderToken)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LoginsTotal.WithLabelValues("kakao", metrics.OutcomeSuccess, "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AccountsCreatedTotal.WithLabelValues("kakao")))
}

func TestLoginIsIdempotent(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Login(context.Background(), minsuRequest)
	require.NoError(t, err)
	firstLogin := *first.Account.LastLoginAt

	time.Sleep(5 * time.Millisecond)

	second, err := f.svc.Login(context.Background(), minsuRequest)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Account.ID, second.Account.ID)
	assert.True(t, second.Account.LastLoginAt.After(firstLogin))
	assert.NotEqual(t, first.Tokens.SessionID, second.Tokens.SessionID)

	list, err := f.records.ListByProvider(context.Background(), "kakao")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestLoginConcurrentFirstLogins(t *testing.T) {
	f := newFixture(t)

	const n = 6
	ids := make([]string, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.Login(context.Background(), minsuRequest)
			errs[i] = err
			if err == nil {
				ids[i] = res.Account.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	list, err := f.records.ListByProvider(context.Background(), "kakao")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestLoginTokenFailureStopsEarly(t *testing.T) {
	f := newFixture(t)
	f.kakao.tokenBody.Store(`{"token_type":"bearer"}`)

	_, err := f.svc.Login(context.Background(), minsuRequest)
	require.Error(t, err)

	var fe *auth.FlowError
	require.True(t, errors.As(err, &fe))
	assert.ErrorIs(t, err, auth.ErrProvider)
	assert.ErrorIs(t, err, provider.ErrExchangeCodeFailed)
	assert.Equal(t, auth.StepCodeReceived, fe.Step)

	assert.Zero(t, f.kakao.profileCalls.Load())
	assert.Zero(t, f.resolver.calls.Load())

	list, err := f.records.ListByProvider(context.Background(), "kakao")
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Equal(t, 1.0, testutil.ToFloat64(
		f.metrics.LoginsTotal.WithLabelValues("kakao", metrics.OutcomeFailure, string(auth.StepCodeReceived)),
	))
}

func TestLoginProfileFailure(t *testing.T) {
	f := newFixture(t)
	f.kakao.profileBody.Store(`{"properties":{"nickname":"Minsu"}}`)

	_, err := f.svc.Login(context.Background(), minsuRequest)

	var fe *auth.FlowError
	require.True(t, errors.As(err, &fe))
	assert.ErrorIs(t, err, auth.ErrProvider)
	assert.Equal(t, auth.StepTokenExchanged, fe.Step)
	assert.Zero(t, f.resolver.calls.Load())
}

func TestLoginInvalidRequest(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		req  login.Request
	}{
		{"missing code", login.Request{Provider: "kakao"}},
		{"unknown provider", login.Request{Provider: "naver", Code: "abc123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Login(context.Background(), tt.req)

			var fe *auth.FlowError
			require.True(t, errors.As(err, &fe))
			assert.ErrorIs(t, err, auth.ErrInvalidRequest)
			assert.Equal(t, auth.StepStart, fe.Step)
		})
	}
	assert.Zero(t, f.kakao.profileCalls.Load())
}

type failingProvisioner struct{}

func (failingProvisioner) Provision(context.Context, *auth.Account, credentials.Secret, string) (*session.Tokens, error) {
	return nil, session.ErrCredentialRejected
}

func TestLoginSessionFailure(t *testing.T) {
	f := newFixture(t)

	p, err := kakao.New(kakao.Config{
		ClientID:    "client-123",
		RedirectURL: "https://app.example/callback",
		Endpoints: kakao.Endpoints{
			AuthURL:    f.kakao.server.URL + "/oauth/authorize",
			TokenURL:   f.kakao.server.URL + "/oauth/token",
			ProfileURL: f.kakao.server.URL + "/v2/user/me",
			LogoutURL:  f.kakao.server.URL + "/v1/user/logout",
		},
	})
	require.NoError(t, err)

	svc := login.NewService(provider.NewRegistry(p), f.resolver, failingProvisioner{}, nil, nil)

	_, err = svc.Login(context.Background(), minsuRequest)

	var fe *auth.FlowError
	require.True(t, errors.As(err, &fe))
	assert.ErrorIs(t, err, auth.ErrSession)
	assert.Equal(t, auth.StepAccountResolved, fe.Step)
	assert.Equal(t, "555", fe.RemoteID)
}

func TestLoginLinksRosterProfile(t *testing.T) {
	f := newFixture(t)
	f.kakao.profileBody.Store(`{
		"id": 555,
		"properties": {"nickname": "Minsu", "profile_image": "https://img.example/m.png"},
		"kakao_account": {"name": "Kim Minsu", "birthday": "0315"}
	}`)
	player := f.records.AddRosterProfile("Kim Minsu", "0315")

	res, err := f.svc.Login(context.Background(), minsuRequest)
	require.NoError(t, err)
	assert.True(t, res.RosterLinked)

	for _, p := range f.records.RosterProfiles() {
		if p.ID == player.ID {
			assert.Equal(t, "555", p.ProviderUserID)
			assert.Equal(t, "kakao_555@example.com", p.Email)
		}
	}

	again, err := f.svc.Login(context.Background(), minsuRequest)
	require.NoError(t, err)
	assert.False(t, again.RosterLinked)
}
