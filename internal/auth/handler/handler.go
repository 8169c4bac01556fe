package handler

import (
	"context"
	"errors"
	"net/http"

	"club-auth/internal/auth"
	"club-auth/internal/auth/login"
	"club-auth/internal/auth/provider"
	"club-auth/internal/logger"
	"club-auth/internal/metrics"
	"club-auth/internal/session"

	"github.com/gin-gonic/gin"
)

type LoginService interface {
	Login(ctx context.Context, req login.Request) (*login.Result, error)
}

type Sessions interface {
	Refresh(ctx context.Context, refreshToken string) (*session.Tokens, *session.Session, error)
	Revoke(ctx context.Context, sessionID string) error
}

type Accounts interface {
	FindByID(ctx context.Context, id string) (*auth.Account, error)
	ListByProvider(ctx context.Context, provider string) ([]*auth.Account, error)
}

type Handler struct {
	providers *provider.Registry
	login     LoginService
	sessions  Sessions
	accounts  Accounts
	metrics   *metrics.Metrics
	cookies   session.CookieOptions
}

func NewHandler(
	registry *provider.Registry,
	loginService LoginService,
	sessions Sessions,
	accounts Accounts,
	m *metrics.Metrics,
	cookieSecure bool,
) *Handler {
	return &Handler{
		providers: registry,
		login:     loginService,
		sessions:  sessions,
		accounts:  accounts,
		metrics:   m,
		cookies:   session.CookieOptions{Secure: cookieSecure},
	}
}

// RegisterRoutes mounts the auth routes. requireAuth guards the routes that
// need a bearer access token.
func (h *Handler) RegisterRoutes(r *gin.Engine, requireAuth gin.HandlerFunc) {
	r.GET("/oauth/login/:provider", h.consent)

	r.POST("/auth/refresh", h.refresh)
	r.POST("/auth/:provider/callback", h.callback)
	r.POST("/auth/:provider/logout", requireAuth, h.logout)

	api := r.Group("/api", requireAuth)
	api.GET("/me", h.me)
	api.GET("/users/:provider", h.listUsers)

	for _, route := range r.Routes() {
		logger.Debug("route registered", map[string]any{
			"method": route.Method,
			"path":   route.Path,
		})
	}
}

type callbackRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirectUri"`
	State       string `json:"state"`
}

func (h *Handler) callback(c *gin.Context) {
	providerName := c.Param("provider")

	var req callbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	// state is optional: clients that started at /oauth/login echo it back
	if req.State != "" && !validateState(c, req.State) {
		fail(c, http.StatusBadRequest, "invalid state")
		return
	}

	verifier := pkceVerifier(c)

	res, err := h.login.Login(c.Request.Context(), login.Request{
		Provider:     providerName,
		Code:         req.Code,
		RedirectURI:  req.RedirectURI,
		CodeVerifier: verifier,
	})
	if err != nil {
		fail(c, statusFor(err), publicMessage(err))
		return
	}

	if req.State != "" {
		clearState(c, h.cookies.Secure)
	}
	if verifier != "" {
		clearPKCE(c, h.cookies.Secure)
	}
	h.cookies.SetRefresh(c.Writer, res.Tokens.RefreshToken, res.Tokens.RefreshExpiresAt)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": res.Tokens,
	})
}

// statusFor maps a workflow failure to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrProvider):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage never exposes the wrapped cause, only the failure kind.
func publicMessage(err error) string {
	var fe *auth.FlowError
	if errors.As(err, &fe) && fe.Kind != nil {
		return fe.Kind.Error()
	}
	return "internal error"
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   msg,
	})
}
