package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Event types published to SNS.
const (
	EventStorySaved        = "story_saved"
	EventStorySaveFailed   = "story_save_failed"
	EventPaymentCaptured   = "payment_captured"
	EventPaymentFailed     = "payment_failed"
	EventCheckoutDismissed = "checkout_dismissed"
)

// StoryEvent is published whenever a paid checkout changes state.
type StoryEvent struct {
	EventType   string    `json:"event_type"`
	SessionID   string    `json:"session_id,omitempty"`
	OrderID     string    `json:"order_id"`
	PaymentID   string    `json:"payment_id,omitempty"`
	StoryID     string    `json:"story_id,omitempty"`
	Email       string    `json:"email,omitempty"`
	AmountMinor int64     `json:"amount_minor"`
	Discount    int64     `json:"discount"`
	PromoCode   string    `json:"promo_code,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ShareLinkMessage asks the notifier to email a story link to its author.
type ShareLinkMessage struct {
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	FromName  string `json:"from_name"`
	ToName    string `json:"to_name"`
	StoryID   string `json:"story_id"`
	ShareLink string `json:"share_link"`
}

// GatewayWebhook is the subset of a Razorpay webhook body the service reads.
type GatewayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity GatewayPayment `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
	CreatedAt int64 `json:"created_at"`
}

// GatewayPayment is a payment entity inside a webhook.
type GatewayPayment struct {
	ID               string       `json:"id"`
	OrderID          string       `json:"order_id"`
	Amount           int64        `json:"amount"`
	Currency         string       `json:"currency"`
	Status           string       `json:"status"`
	Email            string       `json:"email"`
	Contact          string       `json:"contact"`
	ErrorDescription string       `json:"error_description"`
	Notes            GatewayNotes `json:"notes"`
}

// GatewayNotes is the notes bag of a gateway entity. The gateway encodes an
// empty bag as [] and may send non-string values.
type GatewayNotes map[string]string

func (n *GatewayNotes) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] == '[' || bytes.Equal(trimmed, []byte("null")) {
		*n = GatewayNotes{}
		return nil
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	out := make(GatewayNotes, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	*n = out
	return nil
}
