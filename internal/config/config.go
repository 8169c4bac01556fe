package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	SessionDriverRedis  = "redis"
	SessionDriverMemory = "memory"
)

type Config struct {
	AppPort   string `env:"APP_PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseDSN string `env:"DATABASE_DSN"`

	SessionDriver string `env:"SESSION_DRIVER" envDefault:"redis"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	SessionSigningKey string        `env:"SESSION_SIGNING_KEY,required"`
	SessionIssuer     string        `env:"SESSION_ISSUER" envDefault:"club-auth"`
	AccessTokenTTL    time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL   time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`
	CredentialTTL     time.Duration `env:"CREDENTIAL_TTL" envDefault:"1m"`
	BcryptCost        int           `env:"BCRYPT_COST" envDefault:"10"`
	CookieSecure      bool          `env:"COOKIE_SECURE" envDefault:"true"`

	ProviderTimeout        time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"5s"`
	PlaceholderEmailDomain string        `env:"PLACEHOLDER_EMAIL_DOMAIN" envDefault:"example.com"`

	KakaoClientID     string `env:"KAKAO_CLIENT_ID"`
	KakaoClientSecret string `env:"KAKAO_CLIENT_SECRET"`
	KakaoRedirectURL  string `env:"KAKAO_REDIRECT_URL"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`

	KeycloakIssuer        string `env:"KEYCLOAK_ISSUER"`
	KeycloakClientID      string `env:"KEYCLOAK_CLIENT_ID"`
	KeycloakRedirectURL   string `env:"KEYCLOAK_REDIRECT_URL"`
	KeycloakPublicBaseURL string `env:"KEYCLOAK_PUBLIC_BASE_URL"`
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseDSN == "" {
			return errors.New("config: DATABASE_DSN is required for the postgres store")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.SessionDriver {
	case SessionDriverRedis, SessionDriverMemory:
	default:
		return fmt.Errorf("config: unknown SESSION_DRIVER %q", c.SessionDriver)
	}

	if len(c.SessionSigningKey) < 32 {
		return errors.New("config: SESSION_SIGNING_KEY must be at least 32 bytes")
	}

	if !c.KakaoEnabled() && !c.GoogleEnabled() && !c.KeycloakEnabled() {
		return errors.New("config: no oauth provider configured")
	}

	return nil
}

func (c Config) KakaoEnabled() bool {
	return c.KakaoClientID != ""
}

func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != ""
}

func (c Config) KeycloakEnabled() bool {
	return c.KeycloakIssuer != ""
}
