package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dvbernardes/pastelbot/internal/domain/models"
	"github.com/dvbernardes/pastelbot/internal/service/bot"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookHandler handles inbound Telegram webhook deliveries.
type WebhookHandler struct {
	svc    bot.MessagingService
	logger *zap.Logger
}

// NewWebhookHandler constructs the HTTP handler adapter.
func NewWebhookHandler(svc bot.MessagingService, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{svc: svc, logger: logger}
}

// Receive ingests webhook POST callbacks from Telegram. Processing failures
// still answer 200: the operator already got an error message in the chat
// and a retried delivery would just repeat the failing command.
func (h *WebhookHandler) Receive(c *gin.Context) {
	if err := h.svc.VerifyWebhookSecret(c.GetHeader(secretTokenHeader)); err != nil {
		h.logger.Warn("webhook secret verification failed", zap.Error(err))
		c.String(http.StatusForbidden, "verification failed")
		return
	}

	var update models.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		h.logger.Warn("invalid webhook payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := h.svc.HandleUpdate(c.Request.Context(), update); err != nil {
		h.logger.Error("failed processing update", zap.Int64("update_id", update.UpdateID), zap.Error(err))
	}

	c.Status(http.StatusOK)
}
