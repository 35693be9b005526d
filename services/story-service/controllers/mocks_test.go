package controllers_test

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rmtechsolution/valentine-backend/services/story-service/media"
	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"github.com/rmtechsolution/valentine-backend/services/story-service/services"
	"github.com/rmtechsolution/valentine-backend/services/story-service/wizard"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- Mock WizardService ---

type mockWizardService struct {
	createFn       func(ctx context.Context) (*models.SessionView, *services.ServiceError)
	getFn          func(ctx context.Context, id string) (*models.SessionView, *services.ServiceError)
	discardFn      func(ctx context.Context, id string) *services.ServiceError
	applyFn        func(ctx context.Context, id string, action wizard.Action) (*models.SessionView, *services.ServiceError)
	attachImagesFn func(ctx context.Context, id string, field models.ImageField, uploads []media.Upload) (*models.SessionView, *services.ServiceError)
	setAudioFn     func(ctx context.Context, id string, upload media.Upload) (*models.SessionView, *services.ServiceError)
	applyPromoFn   func(ctx context.Context, id, code string) (*models.SessionView, *services.ServiceError)
}

func (m *mockWizardService) CreateSession(ctx context.Context) (*models.SessionView, *services.ServiceError) {
	return m.createFn(ctx)
}
func (m *mockWizardService) GetSession(ctx context.Context, id string) (*models.SessionView, *services.ServiceError) {
	return m.getFn(ctx, id)
}
func (m *mockWizardService) DiscardSession(ctx context.Context, id string) *services.ServiceError {
	return m.discardFn(ctx, id)
}
func (m *mockWizardService) Apply(ctx context.Context, id string, action wizard.Action) (*models.SessionView, *services.ServiceError) {
	return m.applyFn(ctx, id, action)
}
func (m *mockWizardService) AttachImages(ctx context.Context, id string, field models.ImageField, uploads []media.Upload) (*models.SessionView, *services.ServiceError) {
	return m.attachImagesFn(ctx, id, field, uploads)
}
func (m *mockWizardService) SetAudio(ctx context.Context, id string, upload media.Upload) (*models.SessionView, *services.ServiceError) {
	return m.setAudioFn(ctx, id, upload)
}
func (m *mockWizardService) ApplyPromo(ctx context.Context, id, code string) (*models.SessionView, *services.ServiceError) {
	return m.applyPromoFn(ctx, id, code)
}

// --- Mock OrderService / PromoService ---

type mockOrderService struct {
	createFn func(ctx context.Context, req *models.CreateOrderRequest) (map[string]interface{}, *services.ServiceError)
	placeFn  func(ctx context.Context, in services.OrderInput) (*services.PlacedOrder, *services.ServiceError)
}

func (m *mockOrderService) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (map[string]interface{}, *services.ServiceError) {
	return m.createFn(ctx, req)
}
func (m *mockOrderService) PlaceOrder(ctx context.Context, in services.OrderInput) (*services.PlacedOrder, *services.ServiceError) {
	return m.placeFn(ctx, in)
}

type mockPromoService struct {
	quoteFn func(ctx context.Context, code string) (*models.PromoQuote, *services.ServiceError)
}

func (m *mockPromoService) Quote(ctx context.Context, code string) (*models.PromoQuote, *services.ServiceError) {
	return m.quoteFn(ctx, code)
}

// --- Mock CheckoutService ---

type mockCheckoutService struct {
	startFn    func(ctx context.Context, id string) (*models.CheckoutOptions, *services.ServiceError)
	dismissFn  func(ctx context.Context, id string) (*models.SessionView, *services.ServiceError)
	completeFn func(ctx context.Context, id string, result models.PaymentResult) (*models.Confirmation, *services.ServiceError)
}

func (m *mockCheckoutService) Start(ctx context.Context, id string) (*models.CheckoutOptions, *services.ServiceError) {
	return m.startFn(ctx, id)
}
func (m *mockCheckoutService) Dismiss(ctx context.Context, id string) (*models.SessionView, *services.ServiceError) {
	return m.dismissFn(ctx, id)
}
func (m *mockCheckoutService) Complete(ctx context.Context, id string, result models.PaymentResult) (*models.Confirmation, *services.ServiceError) {
	return m.completeFn(ctx, id, result)
}

// --- Mock WebhookService ---

type mockWebhookService struct {
	handleFn func(ctx context.Context, body []byte, signature string) *services.ServiceError
}

func (m *mockWebhookService) HandleRazorpay(ctx context.Context, body []byte, signature string) *services.ServiceError {
	return m.handleFn(ctx, body, signature)
}

// --- Helpers ---

func sessionView(id string) *models.SessionView {
	return &models.SessionView{
		ID:         id,
		Wizard:     models.NewWizardState(),
		StepTitle:  wizard.StepTitle(1),
		TotalSteps: wizard.TotalSteps,
	}
}
