package models

import "time"

// PromoState is the promo code applied to a session.
type PromoState struct {
	Code     string `json:"code"`
	Discount int64  `json:"discount"`
	Applied  bool   `json:"applied"`
	Message  string `json:"message,omitempty"`
}

// CheckoutState tracks the payment flow of a session.
type CheckoutState struct {
	Phase       string         `json:"phase"`
	OrderID     string         `json:"orderId,omitempty"`
	AmountMinor int64          `json:"amountMinor,omitempty"`
	Payment     *PaymentResult `json:"payment,omitempty"`
	StoryID     string         `json:"storyId,omitempty"`
	ShareLink   string         `json:"shareLink,omitempty"`
	Failure     string         `json:"failure,omitempty"`
}

// Session is one user's wizard draft plus its checkout progress.
type Session struct {
	ID        string        `json:"id"`
	Wizard    WizardState   `json:"wizard"`
	Promo     PromoState    `json:"promo"`
	Checkout  CheckoutState `json:"checkout"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// SessionView is the API representation of a session.
type SessionView struct {
	ID         string        `json:"id"`
	Wizard     WizardState   `json:"wizard"`
	StepTitle  string        `json:"stepTitle"`
	TotalSteps int           `json:"totalSteps"`
	CanAdvance bool          `json:"canAdvance"`
	Promo      PromoState    `json:"promo"`
	Quote      PromoQuote    `json:"quote"`
	Checkout   CheckoutState `json:"checkout"`
	Processing bool          `json:"processing"`
}

// Confirmation is returned once a paid story has been saved.
type Confirmation struct {
	StoryID   string `json:"storyId"`
	ShareLink string `json:"shareLink"`
	Message   string `json:"message"`
}

// CheckoutPrefill seeds the payment widget's contact fields.
type CheckoutPrefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

type CheckoutTheme struct {
	Color string `json:"color"`
}

// CheckoutOptions is the configuration handed to the hosted payment widget.
// CallbackURL and DismissURL are where the client reports the widget's
// completion and dismissal.
type CheckoutOptions struct {
	Key         string            `json:"key"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	OrderID     string            `json:"order_id"`
	Notes       map[string]string `json:"notes"`
	Prefill     CheckoutPrefill   `json:"prefill"`
	Theme       CheckoutTheme     `json:"theme"`
	CallbackURL string            `json:"callback_url"`
	DismissURL  string            `json:"dismiss_url"`
}
