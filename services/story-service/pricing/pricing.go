package pricing

import (
	"context"
	"strings"

	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
)

// BasePrice is the price of one story in rupees.
const BasePrice int64 = 299

const (
	MessageApplied = "Promo code applied successfully"
	MessageInvalid = "Invalid promo code"
)

// DefaultCodes is the built-in promo table, discount in rupees.
var DefaultCodes = map[string]int64{
	"LOVE100":    100,
	"RMTECH99":   298,
	"STUDENT100": 200,
}

// Catalog resolves a normalized promo code to its discount.
type Catalog interface {
	Lookup(ctx context.Context, code string) (discount int64, ok bool, err error)
}

// StaticCatalog serves a fixed in-memory table.
type StaticCatalog map[string]int64

func NewStaticCatalog() StaticCatalog {
	c := make(StaticCatalog, len(DefaultCodes))
	for code, d := range DefaultCodes {
		c[code] = d
	}
	return c
}

func (c StaticCatalog) Lookup(_ context.Context, code string) (int64, bool, error) {
	d, ok := c[code]
	return d, ok, nil
}

// NormalizeCode trims and upper-cases a user-entered code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Total is base minus discount, never below zero.
func Total(base, discount int64) int64 {
	if discount >= base {
		return 0
	}
	return base - discount
}

// ApplyPromo prices base with code. An unknown or blank code is not an
// error: it yields a quote with Applied=false and no discount.
func ApplyPromo(ctx context.Context, catalog Catalog, base int64, code string) (models.PromoQuote, error) {
	normalized := NormalizeCode(code)
	quote := models.PromoQuote{
		Code:    normalized,
		Base:    base,
		Total:   base,
		Message: MessageInvalid,
	}
	if normalized == "" {
		return quote, nil
	}

	discount, ok, err := catalog.Lookup(ctx, normalized)
	if err != nil {
		return quote, err
	}
	if !ok {
		return quote, nil
	}

	quote.Applied = true
	quote.Discount = discount
	quote.Total = Total(base, discount)
	quote.Message = MessageApplied
	return quote, nil
}

// Quote prices base with an already applied promo state.
func Quote(base int64, promo models.PromoState) models.PromoQuote {
	q := models.PromoQuote{Code: promo.Code, Base: base, Total: base, Message: promo.Message}
	if promo.Applied {
		q.Applied = true
		q.Discount = promo.Discount
		q.Total = Total(base, promo.Discount)
	}
	return q
}
