package handler

import (
	"errors"
	"io"
	"net/http"

	"creatorpay/internal/domain"
	"creatorpay/pkg/payment"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// WebhookHandler receives asynchronous provider notifications on
// /webhooks/:provider. The adapter verifies transport-level authenticity
// before anything in the body is trusted; delivery is at-least-once, so
// replays must come back 200 without re-applying effects.
type WebhookHandler struct {
	dispatcher *payment.Dispatcher
}

func NewWebhookHandler(dispatcher *payment.Dispatcher) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher}
}

func (h *WebhookHandler) Handle(c *gin.Context) {
	providerName := c.Param("provider")
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	err = h.dispatcher.ProcessWebhook(c.Request.Context(), payment.WebhookPayload{
		Provider:  providerName,
		Signature: webhookSignature(providerName, c),
		RawBody:   body,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"received": true})
	case errors.Is(err, payment.ErrUnknownProvider):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
	case errors.Is(err, payment.ErrInvalidSignature):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
	case errors.Is(err, gorm.ErrRecordNotFound):
		// a notification for an order we do not know; acknowledge so the
		// provider stops retrying
		logrus.WithField("provider", providerName).Info("webhook for unknown payment, acknowledging")
		c.JSON(http.StatusOK, gin.H{"received": true})
	default:
		logrus.WithField("provider", providerName).WithError(err).Error("webhook processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
	}
}

func webhookSignature(providerName string, c *gin.Context) string {
	switch providerName {
	case domain.ProviderStripe:
		return c.GetHeader("Stripe-Signature")
	case domain.ProviderRazorpay:
		return c.GetHeader("X-Razorpay-Signature")
	default:
		return ""
	}
}
