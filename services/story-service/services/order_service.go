package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	awspkg "github.com/rmtechsolution/valentine-backend/pkg/aws"
	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"github.com/rmtechsolution/valentine-backend/services/story-service/pricing"
	"github.com/rmtechsolution/valentine-backend/services/story-service/providers"
	"github.com/rmtechsolution/valentine-backend/services/story-service/repository"
	"go.uber.org/zap"
)

const (
	Currency  = "INR"
	ItemLabel = "Valentine Card"
)

// OrderConfig tunes order creation.
type OrderConfig struct {
	MerchantID string
	// EnforceQuote rejects client amounts that differ from the server quote.
	EnforceQuote bool
}

// OrderInput describes a session-backed order. Quote is the server-side price.
type OrderInput struct {
	SessionID string
	Quote     models.PromoQuote
	Email     string
	Phone     string
}

// PlacedOrder is a created gateway order.
type PlacedOrder struct {
	OrderID     string
	AmountMinor int64
	Receipt     string
	Notes       map[string]string
	Raw         map[string]interface{}
}

// OrderService creates gateway orders and records them in the attempt ledger.
type OrderService interface {
	CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (map[string]interface{}, *ServiceError)
	PlaceOrder(ctx context.Context, in OrderInput) (*PlacedOrder, *ServiceError)
}

type orderServiceImpl struct {
	gateway  providers.PaymentGateway
	catalog  pricing.Catalog
	attempts repository.AttemptRepository
	metrics  awspkg.MetricsRecorder
	cfg      OrderConfig
	logger   *zap.Logger
	now      func() time.Time
}

func NewOrderService(
	gateway providers.PaymentGateway,
	catalog pricing.Catalog,
	attempts repository.AttemptRepository,
	metrics awspkg.MetricsRecorder,
	cfg OrderConfig,
	logger *zap.Logger,
) OrderService {
	if cfg.MerchantID == "" {
		cfg.MerchantID = "8"
	}
	return &orderServiceImpl{
		gateway:  gateway,
		catalog:  catalog,
		attempts: attempts,
		metrics:  metrics,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

var (
	errKeysNotConfigured = newServiceError(http.StatusInternalServerError, "Razorpay keys not configured")
	errOrderFailed       = newServiceError(http.StatusInternalServerError, "Failed to create order")
)

// CreateOrder opens an order for a client-supplied amount in rupees. The
// gateway response is returned as-is.
func (s *orderServiceImpl) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (map[string]interface{}, *ServiceError) {
	if !s.gateway.Configured() {
		return nil, errKeysNotConfigured
	}
	if req.Amount == nil || *req.Amount <= 0 || math.IsNaN(*req.Amount) || math.IsInf(*req.Amount, 0) {
		return nil, newServiceError(http.StatusBadRequest, "Amount must be a positive number")
	}
	amount := *req.Amount

	quote, err := pricing.ApplyPromo(ctx, s.catalog, pricing.BasePrice, req.PromoCode)
	if err != nil {
		s.logger.Error("Promo lookup failed", zap.Error(err))
		return nil, errOrderFailed
	}
	if math.Abs(amount-float64(quote.Total)) > 0.005 {
		s.logger.Warn("Amount does not match quote",
			zap.Float64("amount", amount),
			zap.Int64("quoted_total", quote.Total),
			zap.String("promo_code", quote.Code),
			zap.Bool("enforced", s.cfg.EnforceQuote),
		)
		if s.cfg.EnforceQuote {
			return nil, newServiceError(http.StatusBadRequest, "Amount does not match quoted total")
		}
	}

	placed, svcErr := s.create(ctx, int64(math.Round(amount*100)), nil, OrderInput{Quote: quote})
	if svcErr != nil {
		return nil, svcErr
	}
	return placed.Raw, nil
}

// PlaceOrder opens an order priced from a server quote.
func (s *orderServiceImpl) PlaceOrder(ctx context.Context, in OrderInput) (*PlacedOrder, *ServiceError) {
	if !s.gateway.Configured() {
		return nil, errKeysNotConfigured
	}
	if in.Quote.Total <= 0 {
		return nil, newServiceError(http.StatusUnprocessableEntity, "Order total must be positive")
	}
	return s.create(ctx, in.Quote.Total*100, s.notes(in), in)
}

// notes is the notes bag attached to orders and the checkout widget.
func (s *orderServiceImpl) notes(in OrderInput) map[string]string {
	return map[string]string{
		"merchant_id": s.cfg.MerchantID,
		"user_id":     in.Email,
		"discount":    strconv.FormatInt(in.Quote.Discount, 10),
		"promo_code":  promoCodeOf(in.Quote),
		"items":       ItemLabel,
		"phone":       in.Phone,
	}
}

func promoCodeOf(q models.PromoQuote) string {
	if !q.Applied {
		return ""
	}
	return q.Code
}

func (s *orderServiceImpl) create(ctx context.Context, amountMinor int64, notes map[string]string, in OrderInput) (*PlacedOrder, *ServiceError) {
	receipt := fmt.Sprintf("valentine_%d", s.now().UnixMilli())

	raw, err := s.gateway.CreateOrder(ctx, providers.OrderRequest{
		AmountMinor: amountMinor,
		Currency:    Currency,
		Receipt:     receipt,
		Notes:       notes,
	})
	if err != nil {
		recordCount(ctx, s.metrics, s.logger, awspkg.MetricOrdersFailed, nil)
		if errors.Is(err, providers.ErrGatewayNotConfigured) {
			return nil, errKeysNotConfigured
		}
		s.logger.Error("Create order error", zap.String("receipt", receipt), zap.Error(err))
		return nil, errOrderFailed
	}

	orderID, _ := raw["id"].(string)
	placed := &PlacedOrder{
		OrderID:     orderID,
		AmountMinor: amountMinor,
		Receipt:     receipt,
		Notes:       notes,
		Raw:         raw,
	}
	recordCount(ctx, s.metrics, s.logger, awspkg.MetricOrdersCreated, nil)
	s.logger.Info("Order created",
		zap.String("order_id", orderID),
		zap.Int64("amount_minor", amountMinor),
		zap.String("session_id", in.SessionID),
	)

	s.recordAttempt(ctx, placed, in)
	return placed, nil
}

// recordAttempt writes the ledger row. A ledger failure never fails the order.
func (s *orderServiceImpl) recordAttempt(ctx context.Context, placed *PlacedOrder, in OrderInput) {
	if s.attempts == nil || placed.OrderID == "" {
		return
	}
	attempt := &models.PaymentAttempt{
		SessionID:      in.SessionID,
		GatewayOrderID: placed.OrderID,
		Receipt:        placed.Receipt,
		AmountMinor:    placed.AmountMinor,
		Currency:       Currency,
		PromoCode:      promoCodeOf(in.Quote),
		Discount:       in.Quote.Discount,
		Email:          in.Email,
		Phone:          in.Phone,
		Status:         models.AttemptStatusCreated,
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		s.logger.Error("Failed to record payment attempt", zap.String("order_id", placed.OrderID), zap.Error(err))
	}
}
