package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rmtechsolution/valentine-backend/services/story-service/controllers"
	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"github.com/rmtechsolution/valentine-backend/services/story-service/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupOrderRouter(orders services.OrderService, promos services.PromoService) *gin.Engine {
	r := gin.New()
	oc := controllers.NewOrderController(orders, promos)
	r.POST("/api/create-order", oc.CreateOrder)
	r.POST("/api/promo/apply", oc.QuotePromo)
	return r
}

func TestOrderController_CreateOrder_Success(t *testing.T) {
	orders := &mockOrderService{
		createFn: func(_ context.Context, req *models.CreateOrderRequest) (map[string]interface{}, *services.ServiceError) {
			require.NotNil(t, req.Amount)
			assert.Equal(t, 199.0, *req.Amount)
			assert.Equal(t, "LOVE100", req.PromoCode)
			return map[string]interface{}{"id": "order_1", "amount": 19900, "currency": "INR"}, nil
		},
	}
	r := setupOrderRouter(orders, &mockPromoService{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/create-order", bytes.NewBufferString(`{"amount":199,"promoCode":"LOVE100"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"order_1","amount":19900,"currency":"INR"}`, w.Body.String())
}

func TestOrderController_CreateOrder_Errors(t *testing.T) {
	orders := &mockOrderService{
		createFn: func(context.Context, *models.CreateOrderRequest) (map[string]interface{}, *services.ServiceError) {
			return nil, &services.ServiceError{StatusCode: http.StatusInternalServerError, Message: "Razorpay keys not configured"}
		},
	}
	r := setupOrderRouter(orders, &mockPromoService{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/create-order", bytes.NewBufferString(`{"amount":299}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Razorpay keys not configured"}`, w.Body.String())

	for _, body := range []string{`{}`, `{"amount":"abc"}`, `not json`} {
		w = httptest.NewRecorder()
		req, _ = http.NewRequest(http.MethodPost, "/api/create-order", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestOrderController_QuotePromo(t *testing.T) {
	promos := &mockPromoService{
		quoteFn: func(_ context.Context, code string) (*models.PromoQuote, *services.ServiceError) {
			return &models.PromoQuote{Code: code, Applied: true, Base: 299, Discount: 200, Total: 99, Message: "Promo code applied successfully"}, nil
		},
	}
	r := setupOrderRouter(&mockOrderService{}, promos)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/promo/apply", bytes.NewBufferString(`{"code":"STUDENT100"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var quote models.PromoQuote
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &quote))
	assert.Equal(t, int64(99), quote.Total)
}
