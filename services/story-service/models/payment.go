package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentAttempt statuses.
const (
	AttemptStatusCreated    = "created"
	AttemptStatusDismissed  = "dismissed"
	AttemptStatusPaid       = "paid"
	AttemptStatusSaved      = "saved"
	AttemptStatusSaveFailed = "save_failed"
)

// Gateway-reported statuses, fed by webhooks.
const (
	GatewayStatusCaptured = "captured"
	GatewayStatusFailed   = "failed"
)

// PaymentAttempt is one gateway order together with what happened to it.
type PaymentAttempt struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SessionID      string    `gorm:"type:varchar(64);index" json:"session_id,omitempty"`
	GatewayOrderID string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"gateway_order_id"`
	Receipt        string    `gorm:"type:varchar(64);not null" json:"receipt"`
	AmountMinor    int64     `gorm:"not null" json:"amount_minor"`
	Currency       string    `gorm:"type:varchar(10);not null" json:"currency"`
	PromoCode      string    `gorm:"type:varchar(64)" json:"promo_code,omitempty"`
	Discount       int64     `gorm:"not null" json:"discount"`
	Email          string    `gorm:"type:varchar(255)" json:"email,omitempty"`
	Phone          string    `gorm:"type:varchar(32)" json:"phone,omitempty"`
	Status         string    `gorm:"type:varchar(20);not null;index" json:"status"`
	GatewayStatus  string    `gorm:"type:varchar(20)" json:"gateway_status,omitempty"`
	PaymentID      *string   `gorm:"type:varchar(64);index" json:"payment_id,omitempty"`
	StoryID        string    `gorm:"type:varchar(64)" json:"story_id,omitempty"`
	FailureReason  string    `gorm:"type:text" json:"failure_reason,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// AttemptUpdate lists the fields to change on an attempt; nil fields are left alone.
type AttemptUpdate struct {
	Status        *string
	GatewayStatus *string
	PaymentID     *string
	StoryID       *string
	FailureReason *string
}

// PaymentResult is what the gateway widget hands back after a successful
// payment, either as JSON from the client or form-posted to callback_url.
type PaymentResult struct {
	PaymentID string `json:"razorpay_payment_id" form:"razorpay_payment_id" binding:"required"`
	OrderID   string `json:"razorpay_order_id" form:"razorpay_order_id" binding:"required"`
	Signature string `json:"razorpay_signature" form:"razorpay_signature" binding:"required"`
}

// CreateOrderRequest is the body of POST /api/create-order. Amount is in rupees.
type CreateOrderRequest struct {
	Amount    *float64 `json:"amount" binding:"required"`
	PromoCode string   `json:"promoCode"`
}
