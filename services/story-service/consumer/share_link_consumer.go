package consumer

import (
	"context"
	"encoding/json"
	"strings"

	awspkg "github.com/rmtechsolution/valentine-backend/pkg/aws"
	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"github.com/rmtechsolution/valentine-backend/services/story-service/services"
	"go.uber.org/zap"
)

// Poller long-polls a queue and hands each body to a handler.
type Poller interface {
	StartPolling(ctx context.Context, handler awspkg.MessageHandler) error
}

// ShareLinkConsumer delivers share links queued after a story is saved.
type ShareLinkConsumer struct {
	queue    Poller
	notifier services.ShareLinkNotifier
	metrics  awspkg.MetricsRecorder
	logger   *zap.Logger
}

func NewShareLinkConsumer(queue Poller, notifier services.ShareLinkNotifier, metrics awspkg.MetricsRecorder, logger *zap.Logger) *ShareLinkConsumer {
	return &ShareLinkConsumer{queue: queue, notifier: notifier, metrics: metrics, logger: logger}
}

// Start blocks until ctx is cancelled.
func (c *ShareLinkConsumer) Start(ctx context.Context) error {
	c.logger.Info("Share link consumer started")
	return c.queue.StartPolling(ctx, c.Handle)
}

// snsEnvelope unwraps messages fanned out from an SNS topic.
type snsEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

// Handle processes one message. Unparseable messages return nil so they are
// deleted; a delivery failure returns the error so the queue redelivers.
func (c *ShareLinkConsumer) Handle(ctx context.Context, body string) error {
	if c.metrics != nil {
		if err := c.metrics.RecordCount(ctx, awspkg.MetricSQSMessages, map[string]string{"Queue": "share-link"}); err != nil {
			c.logger.Debug("Failed to record metric", zap.Error(err))
		}
	}

	payload := body
	var envelope snsEnvelope
	if err := json.Unmarshal([]byte(body), &envelope); err == nil && envelope.Type == "Notification" {
		payload = envelope.Message
	}

	var msg models.ShareLinkMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		c.logger.Error("Failed to unmarshal share link message", zap.Error(err))
		return nil
	}
	if strings.TrimSpace(msg.Email) == "" || msg.ShareLink == "" {
		c.logger.Warn("Share link message incomplete, dropping", zap.String("story_id", msg.StoryID))
		return nil
	}

	if err := c.notifier.Notify(ctx, msg); err != nil {
		c.logger.Error("Failed to deliver share link",
			zap.String("story_id", msg.StoryID),
			zap.Error(err),
		)
		return err
	}
	return nil
}
