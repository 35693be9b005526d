package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	awspkg "github.com/rmtechsolution/valentine-backend/pkg/aws"
	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"github.com/rmtechsolution/valentine-backend/services/story-service/providers"
	"github.com/rmtechsolution/valentine-backend/services/story-service/repository"
	"go.uber.org/zap"
)

// WebhookService reconciles the attempt ledger with gateway webhooks.
type WebhookService interface {
	HandleRazorpay(ctx context.Context, body []byte, signature string) *ServiceError
}

type webhookServiceImpl struct {
	secret   string
	attempts repository.AttemptRepository
	events   eventPublisher
	metrics  awspkg.MetricsRecorder
	logger   *zap.Logger
}

func NewWebhookService(
	secret string,
	attempts repository.AttemptRepository,
	sns awspkg.SNSPublisher,
	topicArn string,
	metrics awspkg.MetricsRecorder,
	logger *zap.Logger,
) WebhookService {
	return &webhookServiceImpl{
		secret:   secret,
		attempts: attempts,
		events:   eventPublisher{sns: sns, topicArn: topicArn, logger: logger},
		metrics:  metrics,
		logger:   logger,
	}
}

var webhookStatuses = map[string]string{
	"payment.captured": models.GatewayStatusCaptured,
	"order.paid":       models.GatewayStatusCaptured,
	"payment.failed":   models.GatewayStatusFailed,
}

func (s *webhookServiceImpl) HandleRazorpay(ctx context.Context, body []byte, signature string) *ServiceError {
	if s.secret == "" {
		return newServiceError(http.StatusServiceUnavailable, "Webhook secret not configured")
	}
	if !providers.VerifyWebhookSignature(body, signature, s.secret) {
		s.logger.Warn("Razorpay webhook signature verification failed")
		return newServiceError(http.StatusBadRequest, "invalid webhook")
	}

	var hook models.GatewayWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		s.logger.Warn("Failed to decode webhook", zap.Error(err))
		return newServiceError(http.StatusBadRequest, "invalid webhook payload")
	}

	status, ok := webhookStatuses[hook.Event]
	if !ok {
		s.logger.Info("Unhandled webhook event type", zap.String("event_type", hook.Event))
		return nil
	}

	payment := hook.Payload.Payment.Entity
	orderID := payment.OrderID
	if orderID == "" {
		orderID = hook.Payload.Order.Entity.ID
	}
	s.logger.Info("Processing Razorpay webhook",
		zap.String("event_type", hook.Event),
		zap.String("order_id", orderID),
		zap.String("payment_id", payment.ID),
		zap.Any("notes", payment.Notes),
	)
	if orderID == "" {
		s.logger.Warn("Webhook carries no order id", zap.String("event_type", hook.Event))
		return nil
	}

	attempt, err := s.attempts.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrAttemptNotFound) {
			s.logger.Warn("Payment attempt not found for webhook", zap.String("order_id", orderID))
			return nil
		}
		s.logger.Error("Failed to load payment attempt", zap.String("order_id", orderID), zap.Error(err))
		return errInternal
	}
	if attempt.GatewayStatus == status {
		s.logger.Info("Skipping duplicate webhook",
			zap.String("order_id", orderID),
			zap.String("gateway_status", status),
		)
		return nil
	}
	// Captured is terminal; a late failure for an earlier try of the same order is stale.
	if attempt.GatewayStatus == models.GatewayStatusCaptured {
		s.logger.Info("Ignoring webhook for captured order",
			zap.String("order_id", orderID),
			zap.String("event_type", hook.Event),
			zap.String("payment_id", payment.ID),
		)
		return nil
	}

	upd := models.AttemptUpdate{GatewayStatus: &status}
	if payment.ID != "" {
		upd.PaymentID = &payment.ID
	}
	if status == models.GatewayStatusFailed && payment.ErrorDescription != "" {
		upd.FailureReason = &payment.ErrorDescription
	}
	if err := s.attempts.Update(ctx, orderID, upd); err != nil {
		s.logger.Error("Failed to update payment attempt", zap.String("order_id", orderID), zap.Error(err))
		return errInternal
	}

	if status == models.GatewayStatusFailed {
		recordCount(ctx, s.metrics, s.logger, awspkg.MetricPaymentFailed, nil)
	}

	eventType := models.EventPaymentCaptured
	if status == models.GatewayStatusFailed {
		eventType = models.EventPaymentFailed
	}
	ts := time.Now().UTC()
	if hook.CreatedAt > 0 {
		ts = time.Unix(hook.CreatedAt, 0).UTC()
	}
	s.events.publish(ctx, models.StoryEvent{
		EventType:   eventType,
		SessionID:   attempt.SessionID,
		OrderID:     orderID,
		PaymentID:   payment.ID,
		Email:       attempt.Email,
		AmountMinor: attempt.AmountMinor,
		Discount:    attempt.Discount,
		PromoCode:   attempt.PromoCode,
		Reason:      payment.ErrorDescription,
		Timestamp:   ts,
	})
	return nil
}
