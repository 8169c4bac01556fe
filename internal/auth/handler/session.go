package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"club-auth/internal/logger"
	"club-auth/internal/metrics"
	"club-auth/internal/middleware"
	"club-auth/internal/session"

	"github.com/gin-gonic/gin"
)

// logout revokes the upstream provider token and ends the local session.
// The local session is cleared even when the provider call fails.
func (h *Handler) logout(c *gin.Context) {
	ctx := c.Request.Context()

	sess, ok := middleware.SessionFromContext(ctx)
	if !ok {
		fail(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	if !strings.EqualFold(c.Param("provider"), sess.Provider) {
		fail(c, http.StatusBadRequest, "session belongs to another provider")
		return
	}

	upstream := metrics.OutcomeSuccess
	var revokeErr error
	if p, err := h.providers.Get(sess.Provider); err == nil {
		revokeErr = p.Revoke(ctx, sess.ProviderToken)
	} else {
		upstream = "skipped"
	}

	if err := h.sessions.Revoke(ctx, sess.SessionID); err != nil {
		logger.Error("failed to delete session", map[string]any{
			"account_id": sess.AccountID,
			"provider":   sess.Provider,
			"error":      err.Error(),
		})
		fail(c, http.StatusInternalServerError, "failed to end session")
		return
	}

	h.cookies.ClearRefresh(c.Writer)

	if revokeErr != nil {
		h.metrics.LoggedOut(sess.Provider, metrics.OutcomeFailure)
		logger.Warn("upstream logout failed", map[string]any{
			"account_id": sess.AccountID,
			"provider":   sess.Provider,
			"error":      revokeErr.Error(),
		})
		fail(c, http.StatusBadGateway, "upstream logout failed")
		return
	}

	h.metrics.LoggedOut(sess.Provider, upstream)
	logger.Info("logged out", map[string]any{
		"account_id": sess.AccountID,
		"provider":   sess.Provider,
	})

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refresh accepts the refresh token from the body or the refresh cookie.
func (h *Handler) refresh(c *gin.Context) {
	ctx := c.Request.Context()

	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	token := req.RefreshToken
	if token == "" {
		token = session.RefreshFromRequest(c.Request)
	}
	if token == "" {
		fail(c, http.StatusBadRequest, "missing refresh token")
		return
	}

	tokens, sess, err := h.sessions.Refresh(ctx, token)
	if err != nil {
		h.metrics.Refreshed(metrics.OutcomeFailure)
		if errors.Is(err, session.ErrInvalidToken) {
			h.cookies.ClearRefresh(c.Writer)
			fail(c, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		logger.Error("refresh failed", map[string]any{"error": err.Error()})
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}

	if acc, err := h.accounts.FindByID(ctx, sess.AccountID); err == nil {
		tokens.User = acc
	}

	h.metrics.Refreshed(metrics.OutcomeSuccess)
	h.cookies.SetRefresh(c.Writer, tokens.RefreshToken, tokens.RefreshExpiresAt)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": tokens,
	})
}
