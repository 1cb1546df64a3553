package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailtriage/internal/provider"
	"mailtriage/internal/token"
)

// MailHandler exposes thin synchronous proxies over the provider gateways
// for listing and reading mail. No pipeline logic lives here.
type MailHandler struct {
	gateways map[string]provider.Gateway
	store    token.Store
	logger   *zap.Logger
}

func NewMailHandler(gateways map[string]provider.Gateway, store token.Store, logger *zap.Logger) *MailHandler {
	return &MailHandler{gateways: gateways, store: store, logger: logger}
}

func (h *MailHandler) resolve(c *gin.Context) (provider.Gateway, string, bool) {
	gw, ok := h.gateways[c.Param("provider")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return nil, "", false
	}

	identity := c.Param("identity")
	tok, err := h.store.Get(c.Request.Context(), identity)
	if err != nil {
		if errors.Is(err, token.ErrCredentialMissing) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "access token not found, re-authorize"})
		} else {
			h.logger.Error("Token lookup failed", zap.String("identity", identity), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token lookup failed"})
		}
		return nil, "", false
	}
	return gw, tok, true
}

// List handles GET /mail/:provider/list/:identity
func (h *MailHandler) List(c *gin.Context) {
	gw, tok, ok := h.resolve(c)
	if !ok {
		return
	}

	raw, err := gw.ListMessages(c.Request.Context(), tok, c.Param("identity"))
	if err != nil {
		h.logger.Error("Failed to list messages", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch emails"})
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

// Read handles GET /mail/:provider/read/:identity/:id
func (h *MailHandler) Read(c *gin.Context) {
	gw, tok, ok := h.resolve(c)
	if !ok {
		return
	}

	msg, err := gw.FetchMessage(c.Request.Context(), tok, c.Param("identity"), c.Param("id"))
	if err != nil {
		h.logger.Error("Failed to read message", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to read email"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"subject":   msg.Subject,
		"snippet":   msg.Snippet,
		"body_text": msg.BodyText,
	})
}
