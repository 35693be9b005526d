package services

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	awspkg "github.com/rmtechsolution/valentine-backend/pkg/aws"
	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"go.uber.org/zap"
)

// ServiceError represents a typed error with an HTTP status code.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func newServiceError(code int, msg string) *ServiceError {
	return &ServiceError{StatusCode: code, Message: msg}
}

var (
	errSessionNotFound = newServiceError(http.StatusNotFound, "Session not found")
	errConflict        = newServiceError(http.StatusConflict, "Session was modified concurrently, please retry")
	errInternal        = newServiceError(http.StatusInternalServerError, "Internal server error")
)

// recordCount emits a counter when metrics are wired.
func recordCount(ctx context.Context, m awspkg.MetricsRecorder, logger *zap.Logger, name string, dims map[string]string) {
	if m == nil {
		return
	}
	if err := m.RecordCount(ctx, name, dims); err != nil {
		logger.Debug("Failed to record metric", zap.String("metric", name), zap.Error(err))
	}
}

// eventPublisher publishes StoryEvents to an SNS topic.
type eventPublisher struct {
	sns      awspkg.SNSPublisher
	topicArn string
	logger   *zap.Logger
}

func (p eventPublisher) publish(ctx context.Context, event models.StoryEvent) {
	if p.sns == nil || p.topicArn == "" {
		p.logger.Debug("SNS client not configured, skipping event", zap.String("event_type", event.EventType))
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal event", zap.String("event_type", event.EventType), zap.Error(err))
		return
	}
	if err := p.sns.Publish(ctx, p.topicArn, eventBytes); err != nil {
		p.logger.Error("Failed to publish event", zap.String("event_type", event.EventType), zap.Error(err))
		return
	}

	p.logger.Info("Published event",
		zap.String("event_type", event.EventType),
		zap.String("order_id", event.OrderID),
	)
}
