package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	contracts "mailtriage/contracts/mq"
	"mailtriage/pkg/mq"
)

// routingKeys maps the URL provider segment to the queue routing key.
var routingKeys = map[string]string{
	"gmail":   contracts.RoutingKeyGmail,
	"outlook": contracts.RoutingKeyOutlook,
}

// TriageHandler enqueues triage jobs. The route layer only publishes; the
// worker owns the whole pipeline lifecycle.
type TriageHandler struct {
	publisher *mq.Publisher
	logger    *zap.Logger
}

func NewTriageHandler(publisher *mq.Publisher, logger *zap.Logger) *TriageHandler {
	return &TriageHandler{publisher: publisher, logger: logger}
}

// Enqueue handles POST /triage/:provider
func (h *TriageHandler) Enqueue(c *gin.Context) {
	routingKey, ok := routingKeys[c.Param("provider")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}

	var req struct {
		Identity  string `json:"identity" binding:"required"`
		Recipient string `json:"recipient" binding:"required"`
		MessageID string `json:"message_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	payload := contracts.TriageJobPayload{
		Identity:   req.Identity,
		Recipient:  req.Recipient,
		MessageID:  req.MessageID,
		EnqueuedAt: time.Now(),
	}

	if err := h.publisher.Publish(routingKey, payload); err != nil {
		h.logger.Error("Failed to publish triage job",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue"})
		return
	}

	h.logger.Info("Triage job enqueued",
		zap.String("routing_key", routingKey),
		zap.String("identity", req.Identity),
		zap.String("message_id", req.MessageID),
	)

	c.JSON(http.StatusAccepted, gin.H{
		"status":     "queued",
		"provider":   c.Param("provider"),
		"message_id": req.MessageID,
	})
}
