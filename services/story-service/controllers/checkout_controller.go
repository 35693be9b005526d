package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"github.com/rmtechsolution/valentine-backend/services/story-service/services"
)

// CheckoutController handles the payment flow of a session.
type CheckoutController struct {
	checkoutService services.CheckoutService
}

func NewCheckoutController(checkoutService services.CheckoutService) *CheckoutController {
	return &CheckoutController{checkoutService: checkoutService}
}

// Start handles POST /api/sessions/:id/checkout and returns the widget options.
func (cc *CheckoutController) Start(c *gin.Context) {
	opts, svcErr := cc.checkoutService.Start(c.Request.Context(), c.Param("id"))
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"checkout": opts})
}

// Dismiss handles POST /api/sessions/:id/checkout/dismiss.
func (cc *CheckoutController) Dismiss(c *gin.Context) {
	view, svcErr := cc.checkoutService.Dismiss(c.Request.Context(), c.Param("id"))
	respondSession(c, http.StatusOK, view, svcErr)
}

// Complete handles POST /api/sessions/:id/checkout/complete with the widget
// result, sent as JSON by the client or form-encoded by the gateway redirect.
func (cc *CheckoutController) Complete(c *gin.Context) {
	var result models.PaymentResult
	if err := c.ShouldBind(&result); err != nil {
		respondBadRequest(c, err)
		return
	}

	conf, svcErr := cc.checkoutService.Complete(c.Request.Context(), c.Param("id"), result)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, conf)
}
