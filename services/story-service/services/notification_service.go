package services

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"sync"
	texttemplate "text/template"
	"time"

	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"github.com/rmtechsolution/valentine-backend/services/story-service/sender"
	"go.uber.org/zap"
)

//go:embed templates/*
var templateFS embed.FS

const (
	ShareLinkSubject = "Your Valentine story is ready 💖"
	sendAttempts     = 3
)

// ShareLinkNotifier delivers the share link of a saved story to its author.
type ShareLinkNotifier interface {
	Notify(ctx context.Context, msg models.ShareLinkMessage) error
}

// QueueSender enqueues a raw message body.
type QueueSender interface {
	SendMessage(ctx context.Context, body string) error
}

// QueuedNotifier hands share links to a queue; a consumer delivers them later.
type QueuedNotifier struct {
	queue  QueueSender
	logger *zap.Logger
}

func NewQueuedNotifier(queue QueueSender, logger *zap.Logger) *QueuedNotifier {
	return &QueuedNotifier{queue: queue, logger: logger}
}

func (n *QueuedNotifier) Notify(ctx context.Context, msg models.ShareLinkMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal share link message: %w", err)
	}
	if err := n.queue.SendMessage(ctx, string(body)); err != nil {
		return fmt.Errorf("enqueue share link: %w", err)
	}
	n.logger.Info("Share link queued", zap.String("story_id", msg.StoryID))
	return nil
}

// BackgroundNotifier delivers share links off the request path when no queue
// is configured. Delivery is not retried across restarts.
type BackgroundNotifier struct {
	next    ShareLinkNotifier
	timeout time.Duration
	wg      sync.WaitGroup
	logger  *zap.Logger
}

func NewBackgroundNotifier(next ShareLinkNotifier, timeout time.Duration, logger *zap.Logger) *BackgroundNotifier {
	return &BackgroundNotifier{next: next, timeout: timeout, logger: logger}
}

// Notify returns immediately; the outcome is only logged.
func (n *BackgroundNotifier) Notify(ctx context.Context, msg models.ShareLinkMessage) error {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer cancel()
		if err := n.next.Notify(sendCtx, msg); err != nil {
			n.logger.Error("Share link delivery failed", zap.String("story_id", msg.StoryID), zap.Error(err))
		}
	}()
	return nil
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (n *BackgroundNotifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NotificationService renders share-link messages and sends them by email
// and, when a phone number is known, by SMS.
type NotificationService struct {
	emailSender sender.EmailSender
	smsSender   sender.SMSSender
	emailTmpl   *template.Template
	textTmpl    *texttemplate.Template
	backoff     func(attempt int) time.Duration
	logger      *zap.Logger
}

func NewNotificationService(emailSender sender.EmailSender, smsSender sender.SMSSender, logger *zap.Logger) (*NotificationService, error) {
	emailTmpl, err := template.ParseFS(templateFS, "templates/share_link.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email template: %w", err)
	}
	textTmpl, err := texttemplate.ParseFS(templateFS, "templates/share_link_sms.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to parse text template: %w", err)
	}
	return &NotificationService{
		emailSender: emailSender,
		smsSender:   smsSender,
		emailTmpl:   emailTmpl,
		textTmpl:    textTmpl,
		backoff:     func(attempt int) time.Duration { return time.Duration(attempt) * time.Second },
		logger:      logger,
	}, nil
}

var errMissingRecipient = errors.New("share link message has no email")

// Notify sends the share link. Only an email failure is reported; SMS is
// best effort.
func (s *NotificationService) Notify(ctx context.Context, msg models.ShareLinkMessage) error {
	if msg.Email == "" {
		return errMissingRecipient
	}

	var html, text bytes.Buffer
	if err := s.emailTmpl.Execute(&html, msg); err != nil {
		return fmt.Errorf("template render failed: %w", err)
	}
	if err := s.textTmpl.Execute(&text, msg); err != nil {
		return fmt.Errorf("template render failed: %w", err)
	}
	email := sender.Email{
		To:      msg.Email,
		Subject: ShareLinkSubject,
		HTML:    html.String(),
		Text:    text.String(),
	}
	if err := s.sendWithRetry(ctx, "email", msg.StoryID, func() (sender.SendResult, error) {
		return s.emailSender.SendEmail(ctx, email)
	}); err != nil {
		return err
	}

	if msg.Phone == "" || s.smsSender == nil {
		return nil
	}
	_ = s.sendWithRetry(ctx, "sms", msg.StoryID, func() (sender.SendResult, error) {
		return s.smsSender.SendSMS(ctx, sender.E164India(msg.Phone), text.String())
	})
	return nil
}

func (s *NotificationService) sendWithRetry(ctx context.Context, channel, storyID string, send func() (sender.SendResult, error)) error {
	var lastErr error
	for attempt := 0; attempt < sendAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.backoff(attempt)):
			}
		}

		result, err := send()
		if err == nil {
			s.logger.Info("Share link sent",
				zap.String("channel", channel),
				zap.String("story_id", storyID),
				zap.String("provider", result.Provider),
				zap.String("message_id", result.MessageID),
			)
			return nil
		}
		lastErr = err
		s.logger.Warn("Send attempt failed",
			zap.String("channel", channel),
			zap.String("story_id", storyID),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	s.logger.Error("Share link not delivered",
		zap.String("channel", channel),
		zap.String("story_id", storyID),
		zap.Error(lastErr),
	)
	return fmt.Errorf("send %s: %w", channel, lastErr)
}
