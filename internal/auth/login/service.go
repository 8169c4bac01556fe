package login

import (
	"context"
	"errors"
	"strings"
	"time"

	"club-auth/internal/auth"
	"club-auth/internal/auth/credentials"
	"club-auth/internal/auth/provider"
	"club-auth/internal/auth/resolver"
	"club-auth/internal/logger"
	"club-auth/internal/metrics"
	"club-auth/internal/session"

	"golang.org/x/oauth2"
)

// Request is a browser callback: the authorization code and the redirect URI
// it was issued for. CodeVerifier is set when the consent redirect used PKCE.
type Request struct {
	Provider     string
	Code         string
	RedirectURI  string
	CodeVerifier string
}

// Result is a completed login.
type Result struct {
	Account      *auth.Account
	Tokens       *session.Tokens
	Created      bool
	RosterLinked bool
}

type Providers interface {
	Get(name string) (provider.OAuthProvider, error)
}

type Provisioner interface {
	Provision(ctx context.Context, account *auth.Account, secret credentials.Secret, providerToken string) (*session.Tokens, error)
}

type RosterLinker interface {
	LinkRosterProfile(ctx context.Context, acc *auth.Account) (bool, error)
}

// Service runs the login workflow:
// start -> code_received -> token_exchanged -> profile_fetched ->
// account_resolved -> session_provisioned. Any step may fail, ending the
// attempt with a *auth.FlowError. Nothing is retried here.
type Service struct {
	providers Providers
	resolver  resolver.Resolver
	sessions  Provisioner
	roster    RosterLinker
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewService wires the workflow. roster and m may be nil.
func NewService(
	providers Providers,
	res resolver.Resolver,
	sessions Provisioner,
	roster RosterLinker,
	m *metrics.Metrics,
) *Service {
	return &Service{
		providers: providers,
		resolver:  res,
		sessions:  sessions,
		roster:    roster,
		metrics:   m,
		now:       time.Now,
	}
}

// Login runs one callback through exchange, profile, resolve and provision.
// Provider names are matched case-insensitively.
func (s *Service) Login(ctx context.Context, req Request) (*Result, error) {
	start := s.now()
	req.Provider = strings.ToLower(req.Provider)

	res, err := s.run(ctx, req)
	elapsed := s.now().Sub(start)

	if err != nil {
		var fe *auth.FlowError
		if errors.As(err, &fe) {
			s.metrics.ObserveLogin(req.Provider, metrics.OutcomeFailure, string(fe.Step), elapsed)
			if errors.Is(fe, auth.ErrStore) || errors.Is(fe, auth.ErrSession) {
				logger.Error("login failed", fe.Fields())
			} else {
				logger.Warn("login failed", fe.Fields())
			}
		}
		return nil, err
	}

	s.metrics.ObserveLogin(req.Provider, metrics.OutcomeSuccess, "", elapsed)
	if res.Created {
		s.metrics.AccountCreated(req.Provider)
	}

	logger.Info("login succeeded", map[string]any{
		"provider":      req.Provider,
		"remote_id":     res.Account.ProviderUserID,
		"account_id":    res.Account.ID,
		"created":       res.Created,
		"roster_linked": res.RosterLinked,
		"step":          string(auth.StepSessionProvisioned),
		"duration_ms":   elapsed.Milliseconds(),
	})

	return res, nil
}

func (s *Service) run(ctx context.Context, req Request) (*Result, error) {
	step := auth.StepStart
	remoteID := ""

	fail := func(kind error, err error) error {
		return &auth.FlowError{
			Kind:     kind,
			Step:     step,
			Provider: req.Provider,
			RemoteID: remoteID,
			Err:      err,
		}
	}

	if req.Code == "" {
		return nil, fail(auth.ErrInvalidRequest, errors.New("missing authorization code"))
	}

	p, err := s.providers.Get(req.Provider)
	if err != nil {
		return nil, fail(auth.ErrInvalidRequest, err)
	}
	step = auth.StepCodeReceived

	var opts []oauth2.AuthCodeOption
	if req.CodeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(req.CodeVerifier))
	}

	token, err := p.ExchangeCode(ctx, req.Code, req.RedirectURI, opts...)
	if err != nil {
		return nil, fail(auth.ErrProvider, err)
	}
	step = auth.StepTokenExchanged

	identity, err := p.FetchProfile(ctx, token)
	if err != nil {
		return nil, fail(auth.ErrProvider, err)
	}
	remoteID = identity.ProviderUserID
	step = auth.StepProfileFetched

	resolution, err := s.resolver.Resolve(ctx, identity)
	if errors.Is(err, resolver.ErrInvalidIdentity) {
		return nil, fail(auth.ErrProvider, err)
	}
	if err != nil {
		return nil, fail(auth.ErrStore, err)
	}
	step = auth.StepAccountResolved

	linked := s.linkRoster(ctx, resolution.Account)

	tokens, err := s.sessions.Provision(ctx, resolution.Account, resolution.Secret, token.AccessToken)
	if err != nil {
		return nil, fail(auth.ErrSession, err)
	}

	return &Result{
		Account:      resolution.Account,
		Tokens:       tokens,
		Created:      resolution.Created,
		RosterLinked: linked,
	}, nil
}

// linkRoster attaches a pre-registered player profile when one matches.
// Failures never fail the login.
func (s *Service) linkRoster(ctx context.Context, acc *auth.Account) bool {
	if s.roster == nil {
		return false
	}

	linked, err := s.roster.LinkRosterProfile(ctx, acc)
	if err != nil {
		logger.Warn("roster linking failed", map[string]any{
			"provider":   acc.Provider,
			"remote_id":  acc.ProviderUserID,
			"account_id": acc.ID,
			"error":      err.Error(),
		})
		return false
	}
	return linked
}
