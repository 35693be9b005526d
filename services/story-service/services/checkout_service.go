package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	awspkg "github.com/rmtechsolution/valentine-backend/pkg/aws"
	"github.com/rmtechsolution/valentine-backend/services/story-service/checkout"
	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"github.com/rmtechsolution/valentine-backend/services/story-service/pricing"
	"github.com/rmtechsolution/valentine-backend/services/story-service/providers"
	"github.com/rmtechsolution/valentine-backend/services/story-service/repository"
	"go.uber.org/zap"
)

// Widget presentation.
const (
	CheckoutName        = "Valentine Card 💖"
	CheckoutDescription = "Payment for Valentine Card"
	CheckoutThemeColor  = "#ec4899"

	defaultPrefillName    = "Valentine User"
	defaultPrefillEmail   = "test@example.com"
	defaultPrefillContact = "9999999999"
)

// ConfirmationMessage is shown once a paid story is saved.
const ConfirmationMessage = "Your Valentine story has been created successfully. " +
	"Your story link will be sent to your email ID within 2 hours. " +
	"If you do not receive the email within 2 hours, please write to " +
	"contact@rmtechsolution.com or rmtechsolution@gmail.com."

type CheckoutConfig struct {
	// PublicBaseURL prefixes the callback and dismiss URLs handed to the widget.
	PublicBaseURL   string
	ShareHost       string
	KeySecret       string
	VerifySignature bool
	UploadTimeout   time.Duration
}

// CheckoutDeps groups the collaborators of the checkout service.
type CheckoutDeps struct {
	Store    repository.SessionStore
	Orders   OrderService
	Gateway  providers.PaymentGateway
	Archive  providers.StoryArchive
	Attempts repository.AttemptRepository
	Notifier ShareLinkNotifier
	Media    MediaManager
	SNS      awspkg.SNSPublisher
	TopicArn string
	Metrics  awspkg.MetricsRecorder
}

// CheckoutService runs the payment flow of a session: order creation, widget
// dismissal and the post-payment story upload.
type CheckoutService interface {
	Start(ctx context.Context, id string) (*models.CheckoutOptions, *ServiceError)
	Dismiss(ctx context.Context, id string) (*models.SessionView, *ServiceError)
	Complete(ctx context.Context, id string, result models.PaymentResult) (*models.Confirmation, *ServiceError)
}

type checkoutServiceImpl struct {
	deps   CheckoutDeps
	cfg    CheckoutConfig
	events eventPublisher
	logger *zap.Logger
}

func NewCheckoutService(deps CheckoutDeps, cfg CheckoutConfig, logger *zap.Logger) CheckoutService {
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 2 * time.Minute
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &checkoutServiceImpl{
		deps:   deps,
		cfg:    cfg,
		events: eventPublisher{sns: deps.SNS, topicArn: deps.TopicArn, logger: logger},
		logger: logger,
	}
}

var (
	errFreeOrder       = errors.New("order total must be positive")
	errPaymentMismatch = errors.New("payment does not match the current order")
	errStorySaveFailed = newServiceError(http.StatusBadGateway, "Failed to save story")
)

// advance applies ev to the session's checkout phase.
func advance(sess *models.Session, ev checkout.Event) error {
	next, err := checkout.Transition(checkout.Phase(sess.Checkout.Phase), ev)
	if err != nil {
		return err
	}
	sess.Checkout.Phase = string(next)
	return nil
}

func (s *checkoutServiceImpl) Start(ctx context.Context, id string) (*models.CheckoutOptions, *ServiceError) {
	var quote models.PromoQuote
	sess, err := s.deps.Store.Update(ctx, id, func(sess *models.Session) error {
		if !sess.Wizard.ShowPaymentSummary {
			return errNotAtCheckout
		}
		quote = pricing.Quote(pricing.BasePrice, sess.Promo)
		if quote.Total <= 0 {
			return errFreeOrder
		}
		if err := advance(sess, checkout.EventBegin); err != nil {
			return err
		}
		sess.Checkout = models.CheckoutState{Phase: sess.Checkout.Phase}
		return nil
	})
	if err != nil {
		return nil, s.mapError(err, id)
	}
	recordCount(ctx, s.deps.Metrics, s.logger, awspkg.MetricCheckoutStarted, nil)
	flowCtx := context.WithoutCancel(ctx)

	form := sess.Wizard.Form
	placed, svcErr := s.deps.Orders.PlaceOrder(ctx, OrderInput{
		SessionID: id,
		Quote:     quote,
		Email:     form.Email,
		Phone:     form.Phone,
	})
	if svcErr != nil {
		s.finish(flowCtx, id, checkout.EventOrderFailed, func(c *models.CheckoutState) {
			c.Failure = svcErr.Message
		})
		return nil, svcErr
	}

	if _, err := s.deps.Store.Update(flowCtx, id, func(sess *models.Session) error {
		if err := advance(sess, checkout.EventOrderCreated); err != nil {
			return err
		}
		sess.Checkout.OrderID = placed.OrderID
		sess.Checkout.AmountMinor = placed.AmountMinor
		return nil
	}); err != nil {
		return nil, s.mapError(err, id)
	}

	return &models.CheckoutOptions{
		Key:         s.deps.Gateway.KeyID(),
		Amount:      placed.AmountMinor,
		Currency:    Currency,
		Name:        CheckoutName,
		Description: CheckoutDescription,
		OrderID:     placed.OrderID,
		Notes:       placed.Notes,
		Prefill: models.CheckoutPrefill{
			Name:    orDefault(form.FromName, defaultPrefillName),
			Email:   orDefault(form.Email, defaultPrefillEmail),
			Contact: orDefault(form.Phone, defaultPrefillContact),
		},
		Theme:       models.CheckoutTheme{Color: CheckoutThemeColor},
		CallbackURL: s.cfg.PublicBaseURL + "/api/sessions/" + id + "/checkout/complete",
		DismissURL:  s.cfg.PublicBaseURL + "/api/sessions/" + id + "/checkout/dismiss",
	}, nil
}

func (s *checkoutServiceImpl) Dismiss(ctx context.Context, id string) (*models.SessionView, *ServiceError) {
	var orderID string
	sess, err := s.deps.Store.Update(ctx, id, func(sess *models.Session) error {
		orderID = sess.Checkout.OrderID
		if err := advance(sess, checkout.EventDismissed); err != nil {
			return err
		}
		sess.Checkout = models.CheckoutState{Phase: sess.Checkout.Phase}
		return nil
	})
	if err != nil {
		return nil, s.mapError(err, id)
	}

	s.updateAttempt(ctx, orderID, models.AttemptUpdate{Status: strPtr(models.AttemptStatusDismissed)})
	recordCount(ctx, s.deps.Metrics, s.logger, awspkg.MetricCheckoutDismiss, nil)
	s.events.publish(ctx, models.StoryEvent{
		EventType: models.EventCheckoutDismissed,
		SessionID: id,
		OrderID:   orderID,
		Email:     sess.Wizard.Form.Email,
	})
	s.logger.Info("Checkout dismissed", zap.String("session_id", id), zap.String("order_id", orderID))
	return BuildView(sess), nil
}

func (s *checkoutServiceImpl) Complete(ctx context.Context, id string, result models.PaymentResult) (*models.Confirmation, *ServiceError) {
	current, err := s.deps.Store.Get(ctx, id)
	if err != nil {
		return nil, s.mapError(err, id)
	}
	if checkout.Normalize(checkout.Phase(current.Checkout.Phase)) != checkout.PhaseAwaitingGateway {
		return nil, s.mapError(checkout.ErrInvalidTransition, id)
	}
	if result.OrderID != current.Checkout.OrderID {
		return nil, newServiceError(http.StatusBadRequest, "Payment does not match the current order")
	}
	if s.cfg.VerifySignature && !providers.VerifyPaymentSignature(result.OrderID, result.PaymentID, result.Signature, s.cfg.KeySecret) {
		s.logger.Warn("Payment signature mismatch",
			zap.String("session_id", id),
			zap.String("order_id", result.OrderID),
		)
		return nil, newServiceError(http.StatusBadRequest, "Invalid payment signature")
	}

	sess, err := s.deps.Store.Update(ctx, id, func(sess *models.Session) error {
		if sess.Checkout.OrderID != result.OrderID {
			return errPaymentMismatch
		}
		if err := advance(sess, checkout.EventPaid); err != nil {
			return err
		}
		payment := result
		sess.Checkout.Payment = &payment
		return nil
	})
	if err != nil {
		return nil, s.mapError(err, id)
	}

	// Detached from the request so the session always leaves uploading.
	uploadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.UploadTimeout)
	defer cancel()

	s.updateAttempt(uploadCtx, result.OrderID, models.AttemptUpdate{
		Status:    strPtr(models.AttemptStatusPaid),
		PaymentID: strPtr(result.PaymentID),
	})
	recordCount(uploadCtx, s.deps.Metrics, s.logger, awspkg.MetricPaymentSucceeded, nil)

	form := sess.Wizard.Form
	quote := pricing.Quote(pricing.BasePrice, sess.Promo)
	event := models.StoryEvent{
		SessionID:   id,
		OrderID:     result.OrderID,
		PaymentID:   result.PaymentID,
		Email:       form.Email,
		AmountMinor: sess.Checkout.AmountMinor,
		Discount:    quote.Discount,
		PromoCode:   promoCodeOf(quote),
	}

	storyID, err := s.deps.Archive.Save(uploadCtx, providers.StorySubmission{
		Form:      form,
		Payment:   result,
		Amount:    quote.Total,
		Discount:  quote.Discount,
		PromoCode: promoCodeOf(quote),
	})
	if err != nil {
		s.logger.Error("Story upload failed",
			zap.String("session_id", id),
			zap.String("order_id", result.OrderID),
			zap.String("payment_id", result.PaymentID),
			zap.Error(err),
		)
		reason := err.Error()
		s.finish(uploadCtx, id, checkout.EventSaveFailed, func(c *models.CheckoutState) {
			c.Failure = errStorySaveFailed.Message
		})
		s.updateAttempt(uploadCtx, result.OrderID, models.AttemptUpdate{
			Status:        strPtr(models.AttemptStatusSaveFailed),
			FailureReason: &reason,
		})
		recordCount(uploadCtx, s.deps.Metrics, s.logger, awspkg.MetricStorySaveFailed, nil)
		event.EventType = models.EventStorySaveFailed
		event.Reason = reason
		s.events.publish(uploadCtx, event)
		return nil, errStorySaveFailed
	}

	link := providers.BuildShareLink(s.cfg.ShareHost, storyID, form.FromName)
	s.finish(uploadCtx, id, checkout.EventSaved, func(c *models.CheckoutState) {
		c.StoryID = storyID
		c.ShareLink = link
	})
	s.updateAttempt(uploadCtx, result.OrderID, models.AttemptUpdate{
		Status:  strPtr(models.AttemptStatusSaved),
		StoryID: &storyID,
	})
	recordCount(uploadCtx, s.deps.Metrics, s.logger, awspkg.MetricStoriesSaved, nil)
	event.EventType = models.EventStorySaved
	event.StoryID = storyID
	s.events.publish(uploadCtx, event)

	if s.deps.Notifier != nil {
		if err := s.deps.Notifier.Notify(uploadCtx, models.ShareLinkMessage{
			Email:     form.Email,
			Phone:     form.Phone,
			FromName:  form.FromName,
			ToName:    form.ToName,
			StoryID:   storyID,
			ShareLink: link,
		}); err != nil {
			s.logger.Error("Failed to hand off share link", zap.String("story_id", storyID), zap.Error(err))
		}
	}
	s.deps.Media.Release(uploadCtx, form.Attachments())

	s.logger.Info("Story checkout complete",
		zap.String("session_id", id),
		zap.String("order_id", result.OrderID),
		zap.String("story_id", storyID),
	)
	return &models.Confirmation{StoryID: storyID, ShareLink: link, Message: ConfirmationMessage}, nil
}

// finish records a terminal transition. The outcome has already happened, so
// a failed write is only logged.
func (s *checkoutServiceImpl) finish(ctx context.Context, id string, ev checkout.Event, mutate func(c *models.CheckoutState)) {
	_, err := s.deps.Store.Update(ctx, id, func(sess *models.Session) error {
		if err := advance(sess, ev); err != nil {
			return err
		}
		mutate(&sess.Checkout)
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to record checkout transition",
			zap.String("session_id", id),
			zap.String("event", string(ev)),
			zap.Error(err),
		)
	}
}

func (s *checkoutServiceImpl) updateAttempt(ctx context.Context, orderID string, upd models.AttemptUpdate) {
	if s.deps.Attempts == nil || orderID == "" {
		return
	}
	if err := s.deps.Attempts.Update(ctx, orderID, upd); err != nil {
		s.logger.Error("Failed to update payment attempt", zap.String("order_id", orderID), zap.Error(err))
	}
}

func (s *checkoutServiceImpl) mapError(err error, id string) *ServiceError {
	switch {
	case errors.Is(err, errFreeOrder):
		return newServiceError(http.StatusUnprocessableEntity, "Order total must be positive")
	case errors.Is(err, errPaymentMismatch):
		return newServiceError(http.StatusBadRequest, "Payment does not match the current order")
	}
	if svcErr := sessionError(err); svcErr != nil {
		return svcErr
	}
	s.logger.Error("Checkout operation failed", zap.String("session_id", id), zap.Error(err))
	return errInternal
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func strPtr(s string) *string {
	return &s
}
