package handler

import (
	"errors"
	"net/http"

	"club-auth/internal/logger"
	"club-auth/internal/middleware"
	"club-auth/internal/store"

	"github.com/gin-gonic/gin"
)

func (h *Handler) me(c *gin.Context) {
	ctx := c.Request.Context()

	sess, ok := middleware.SessionFromContext(ctx)
	if !ok {
		fail(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	acc, err := h.accounts.FindByID(ctx, sess.AccountID)
	if errors.Is(err, store.ErrNotFound) {
		fail(c, http.StatusNotFound, "account not found")
		return
	}
	if err != nil {
		logger.Error("failed to load account", map[string]any{
			"account_id": sess.AccountID,
			"error":      err.Error(),
		})
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    acc,
	})
}

// listUsers returns the accounts linked to a provider, oldest first.
func (h *Handler) listUsers(c *gin.Context) {
	p, err := h.providers.Get(c.Param("provider"))
	if err != nil {
		fail(c, http.StatusBadRequest, "unknown oauth provider")
		return
	}
	providerName := p.Name()

	users, err := h.accounts.ListByProvider(c.Request.Context(), providerName)
	if err != nil {
		logger.Error("failed to list accounts", map[string]any{
			"provider": providerName,
			"error":    err.Error(),
		})
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"users":   users,
	})
}
