package app

import (
	"context"

	"club-auth/internal/auth/provider"
	"club-auth/internal/auth/provider/kakao"
	"club-auth/internal/auth/provider/oidc"
	"club-auth/internal/config"
	"club-auth/internal/logger"
)

// setupProviders builds every provider with configuration present.
func setupProviders(ctx context.Context, cfg config.Config) (*provider.Registry, error) {
	var list []provider.OAuthProvider

	if cfg.KakaoEnabled() {
		p, err := kakao.New(kakao.Config{
			ClientID:     cfg.KakaoClientID,
			ClientSecret: cfg.KakaoClientSecret,
			RedirectURL:  cfg.KakaoRedirectURL,
			Timeout:      cfg.ProviderTimeout,
		})
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}

	if cfg.GoogleEnabled() {
		p, err := oidc.NewGoogle(
			ctx,
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.GoogleRedirectURL,
			cfg.ProviderTimeout,
		)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}

	if cfg.KeycloakEnabled() {
		p, err := oidc.NewKeycloak(
			ctx,
			cfg.KeycloakIssuer,
			cfg.KeycloakClientID,
			cfg.KeycloakRedirectURL,
			cfg.KeycloakPublicBaseURL,
			cfg.ProviderTimeout,
		)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}

	registry := provider.NewRegistry(list...)
	logger.Info("oauth providers ready", map[string]any{"providers": registry.Names()})

	return registry, nil
}
