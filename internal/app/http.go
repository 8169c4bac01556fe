package app

import (
	"context"
	"net/http"

	"club-auth/internal/auth/credentials"
	"club-auth/internal/auth/handler"
	"club-auth/internal/auth/login"
	"club-auth/internal/auth/resolver"
	"club-auth/internal/config"
	"club-auth/internal/logger"
	"club-auth/internal/metrics"
	"club-auth/internal/middleware"
	"club-auth/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	registry, err := setupProviders(ctx, cfg)
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promRegistry)

	credentialService := credentials.NewService(
		infra.Records,
		credentials.NewHasher(cfg.BcryptCost),
		cfg.CredentialTTL,
	)

	accountResolver := resolver.NewAccountResolver(
		infra.Records,
		credentialService,
		cfg.PlaceholderEmailDomain,
	)

	provisioner := session.NewProvisioner(
		credentialService,
		infra.Sessions,
		session.NewTokenIssuer([]byte(cfg.SessionSigningKey), cfg.SessionIssuer, cfg.AccessTokenTTL),
		cfg.RefreshTokenTTL,
	)

	loginService := login.NewService(
		registry,
		accountResolver,
		provisioner,
		infra.Records,
		m,
	)

	authHandler := handler.NewHandler(
		registry,
		loginService,
		provisioner,
		infra.Records,
		m,
		cfg.CookieSecure,
	)

	authMiddleware := middleware.NewAuthMiddleware(provisioner)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())

	authHandler.RegisterRoutes(router, middleware.GinRequireAuth(authMiddleware))

	router.GET("/health", func(c *gin.Context) {
		if err := infra.Check(c.Request.Context()); err != nil {
			logger.Warn("health check failed", map[string]any{"error": err.Error()})
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})))

	// ----------------------------
	// Cleanup
	// ----------------------------

	return router, infra.Close, nil
}
