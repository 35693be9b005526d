package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"github.com/rmtechsolution/valentine-backend/services/story-service/services"
)

// OrderController handles the stateless order and promo endpoints.
type OrderController struct {
	orderService services.OrderService
	promoService services.PromoService
}

func NewOrderController(orderService services.OrderService, promoService services.PromoService) *OrderController {
	return &OrderController{orderService: orderService, promoService: promoService}
}

// CreateOrder handles POST /api/create-order. The gateway order is returned as-is.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	order, svcErr := oc.orderService.CreateOrder(c.Request.Context(), &req)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, order)
}

// QuotePromo handles POST /api/promo/apply.
func (oc *OrderController) QuotePromo(c *gin.Context) {
	var req models.ApplyPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	quote, svcErr := oc.promoService.Quote(c.Request.Context(), req.Code)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, quote)
}
