package providers

import (
	"context"
	"errors"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

var ErrGatewayNotConfigured = errors.New("payment gateway keys not configured")

// OrderRequest is what the gateway needs to open an order. AmountMinor is in paise.
type OrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// PaymentGateway creates orders on the hosted payment provider.
type PaymentGateway interface {
	// CreateOrder returns the provider's order object unmodified.
	CreateOrder(ctx context.Context, req OrderRequest) (map[string]interface{}, error)
	// KeyID is the public key handed to the checkout widget.
	KeyID() string
	Configured() bool
}

// RazorpayGateway implements PaymentGateway with the Razorpay Orders API.
type RazorpayGateway struct {
	client    *razorpay.Client
	keyID     string
	keySecret string
}

// NewRazorpayGateway builds a gateway. Empty credentials yield a gateway that
// reports ErrGatewayNotConfigured on every order.
func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	g := &RazorpayGateway{keyID: keyID, keySecret: keySecret}
	if g.Configured() {
		g.client = razorpay.NewClient(keyID, keySecret)
	}
	return g
}

func (g *RazorpayGateway) Configured() bool {
	return g.keyID != "" && g.keySecret != ""
}

func (g *RazorpayGateway) KeyID() string {
	return g.keyID
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, req OrderRequest) (map[string]interface{}, error) {
	if !g.Configured() {
		return nil, ErrGatewayNotConfigured
	}

	data := map[string]interface{}{
		"amount":   req.AmountMinor,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}
	if len(req.Notes) > 0 {
		data["notes"] = req.Notes
	}

	type result struct {
		order map[string]interface{}
		err   error
	}
	done := make(chan result, 1)
	go func() {
		order, err := g.client.Order.Create(data, nil)
		done <- result{order, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("razorpay create order: %w", r.err)
		}
		return r.order, nil
	}
}
