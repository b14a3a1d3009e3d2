package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"event-ticketing/internal/handler/httperr"
	"event-ticketing/internal/infra/gateway"
	"event-ticketing/internal/usecase/commands"
)

const maxWebhookBodyBytes = 1 << 20

// gatewayEventEnvelope is the gateway's webhook wire format.
type gatewayEventEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		SessionID   string `json:"session_id"`
		PaymentID   string `json:"payment_id"`
		RefundID    string `json:"refund_id"`
		AmountCents int64  `json:"amount_cents"`
	} `json:"data"`
}

type WebhookHandler struct {
	verifier        *gateway.SignatureVerifier
	webhookCommands commands.WebhookCommands
}

func NewWebhookHandler(verifier *gateway.SignatureVerifier, webhookCommands commands.WebhookCommands) *WebhookHandler {
	return &WebhookHandler{
		verifier:        verifier,
		webhookCommands: webhookCommands,
	}
}

// @Summary Payment gateway webhook
// @Description Receive signed payment notifications from the gateway
// @Tags webhooks
// @Accept json
// @Produce json
// @Param Gateway-Signature header string true "HMAC signature"
// @Success 200 {object} map[string]string
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Router /webhooks/payment [post]
func (h *WebhookHandler) HandlePaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Failed to read request body", nil)
		return
	}

	if err := h.verifier.Verify(c.GetHeader(gateway.SignatureHeader), body); err != nil {
		httperr.AbortWithError(c, http.StatusUnauthorized, err, "Invalid webhook signature", nil)
		return
	}

	var envelope gatewayEventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid webhook payload", nil)
		return
	}

	outcome, err := h.webhookCommands.HandleEvent(c.Request.Context(), commands.GatewayEvent{
		ID:          envelope.ID,
		Type:        envelope.Type,
		SessionID:   envelope.Data.SessionID,
		PaymentID:   envelope.Data.PaymentID,
		RefundID:    envelope.Data.RefundID,
		AmountCents: envelope.Data.AmountCents,
		Payload:     body,
	})
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrMissingEventID):
			httperr.AbortWithError(c, http.StatusBadRequest, err, "Event id is required", nil)
		default:
			// A 5xx makes the gateway redeliver; the command released its
			// claim so the retry is processed, not skipped as a duplicate.
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": string(outcome)})
}
