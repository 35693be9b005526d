package models

import "time"

// PromoCode is a flat discount (in rupees) keyed by its normalized code.
type PromoCode struct {
	Code      string    `gorm:"type:varchar(64);primaryKey" json:"code"`
	Discount  int64     `gorm:"not null" json:"discount"`
	Active    bool      `gorm:"not null" json:"active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ApplyPromoRequest is the payload for applying a promo code.
type ApplyPromoRequest struct {
	Code string `json:"code"`
}

// PromoQuote is the priced result of applying a promo code to the base price.
type PromoQuote struct {
	Code     string `json:"code"`
	Applied  bool   `json:"applied"`
	Base     int64  `json:"base"`
	Discount int64  `json:"discount"`
	Total    int64  `json:"total"`
	Message  string `json:"message,omitempty"`
}
