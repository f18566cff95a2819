package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/logema/payments-backend/internal/dto"
	"github.com/logema/payments-backend/internal/http/handlers/common"
	"github.com/logema/payments-backend/internal/service"
)

// SignatureHeader carries the provider's HMAC over the webhook body.
const SignatureHeader = "X-Webhook-Signature"

type WebhookHandler struct {
	webhooks *service.WebhookService
}

func NewWebhookHandler(webhooks *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// Handle POST /payments/webhook/:provider
//
// Unauthenticated by design; authenticity comes from the signature header.
func (h *WebhookHandler) Handle(c *gin.Context) {
	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		common.RespondBadRequest(c, "invalid JSON payload")
		return
	}

	signature := c.GetHeader(SignatureHeader)
	if err := h.webhooks.Handle(c.Request.Context(), c.Param("provider"), payload, signature); err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.WebhookAckResponse{Status: "ok"})
}
