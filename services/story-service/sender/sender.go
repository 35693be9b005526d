// Package sender delivers share-link notifications over email and SMS.
package sender

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Email is one outgoing message. Text is sent as the plain alternative of
// HTML and may be empty.
type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// SendResult identifies a delivered message at its provider.
type SendResult struct {
	Provider  string
	MessageID string
	SentAt    time.Time
}

type EmailSender interface {
	SendEmail(ctx context.Context, email Email) (SendResult, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) (SendResult, error)
}

// requireEnv reads every key and fails on the first one that is empty.
func requireEnv(keys ...string) (map[string]string, error) {
	values := make(map[string]string, len(keys))
	for _, key := range keys {
		v := os.Getenv(key)
		if v == "" {
			return nil, fmt.Errorf("%s not set", key)
		}
		values[key] = v
	}
	return values, nil
}
