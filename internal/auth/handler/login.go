package handler

import (
	"net/http"

	"club-auth/internal/logger"

	"github.com/gin-gonic/gin"
)

// consent redirects the browser to the provider's consent screen. The state
// and the PKCE verifier are kept in short-lived cookies for the callback.
func (h *Handler) consent(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		fail(c, http.StatusBadRequest, "unknown oauth provider")
		return
	}

	state, err := generateState(c, h.cookies.Secure)
	if err != nil {
		logger.Error("failed to generate oauth state", map[string]any{
			"provider": providerName,
			"error":    err.Error(),
		})
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}

	challenge := startPKCE(c, h.cookies.Secure)

	c.Redirect(http.StatusFound, p.AuthCodeURL(state, challenge))
}
