package controllers_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rmtechsolution/valentine-backend/services/story-service/controllers"
	"github.com/rmtechsolution/valentine-backend/services/story-service/services"
	"github.com/stretchr/testify/assert"
)

func TestWebhookController_Razorpay(t *testing.T) {
	var gotBody []byte
	var gotSig string
	svc := &mockWebhookService{
		handleFn: func(_ context.Context, body []byte, signature string) *services.ServiceError {
			gotBody, gotSig = body, signature
			if signature != "good" {
				return &services.ServiceError{StatusCode: http.StatusBadRequest, Message: "invalid webhook"}
			}
			return nil
		},
	}
	r := gin.New()
	r.POST("/webhooks/razorpay", controllers.NewWebhookController(svc).Razorpay)

	payload := `{"event":"payment.captured"}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/webhooks/razorpay", bytes.NewBufferString(payload))
	req.Header.Set("X-Razorpay-Signature", "good")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, payload, string(gotBody))
	assert.Equal(t, "good", gotSig)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodPost, "/webhooks/razorpay", bytes.NewBufferString(payload))
	req.Header.Set("X-Razorpay-Signature", "bad")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
