package providers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns the hex HMAC-SHA256 of payload under secret, the scheme the
// gateway uses for both checkout results and webhooks.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPaymentSignature checks the signature the widget returns for orderID|paymentID.
func VerifyPaymentSignature(orderID, paymentID, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := Sign([]byte(orderID+"|"+paymentID), secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks a webhook body against its X-Razorpay-Signature header.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(body, secret)), []byte(signature))
}
