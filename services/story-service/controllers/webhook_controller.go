package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rmtechsolution/valentine-backend/services/story-service/services"
)

const maxWebhookBytes = 1 << 20

type WebhookController struct {
	webhookService services.WebhookService
}

func NewWebhookController(webhookService services.WebhookService) *WebhookController {
	return &WebhookController{webhookService: webhookService}
}

// Razorpay handles POST /webhooks/razorpay. The signature covers the raw body.
func (wc *WebhookController) Razorpay(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}

	if svcErr := wc.webhookService.HandleRazorpay(c.Request.Context(), body, c.GetHeader("X-Razorpay-Signature")); svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
