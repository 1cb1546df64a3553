package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailtriage/internal/token"
)

// TokenHandler writes bearer tokens into the shared credential store. The
// OAuth callback handlers land tokens through the same path.
type TokenHandler struct {
	store  token.Store
	logger *zap.Logger
}

func NewTokenHandler(store token.Store, logger *zap.Logger) *TokenHandler {
	return &TokenHandler{store: store, logger: logger}
}

// Upsert handles PUT /tokens/:identity
func (h *TokenHandler) Upsert(c *gin.Context) {
	identity := c.Param("identity")

	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.store.Set(c.Request.Context(), identity, req.Token); err != nil {
		h.logger.Error("Failed to store token",
			zap.String("identity", identity),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store token"})
		return
	}

	h.logger.Info("Token stored", zap.String("identity", identity))
	c.JSON(http.StatusOK, gin.H{"status": "stored"})
}
