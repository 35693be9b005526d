package sender

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogSender writes messages to the log instead of delivering them. It stands
// in for a channel whose credentials are not configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (l *LogSender) SendEmail(_ context.Context, email Email) (SendResult, error) {
	l.logger.Info("Email not delivered, no SMTP configured",
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
		zap.Int("html_bytes", len(email.HTML)),
		zap.Int("text_bytes", len(email.Text)),
	)
	return l.result(), nil
}

func (l *LogSender) SendSMS(_ context.Context, to, body string) (SendResult, error) {
	l.logger.Info("SMS not delivered, no SMS provider configured",
		zap.String("to", to),
		zap.Int("body_bytes", len(body)),
	)
	return l.result(), nil
}

func (l *LogSender) result() SendResult {
	return SendResult{Provider: "log", MessageID: uuid.NewString(), SentAt: time.Now()}
}
