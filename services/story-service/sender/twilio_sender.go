package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioBaseURL = "https://api.twilio.com"

// TwilioSender posts messages to the Twilio Messages API.
type TwilioSender struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	httpClient *http.Client
}

// twilioMessage is the subset of the Messages API response the sender reads.
// Error responses reuse Code and Message.
type twilioMessage struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewTwilioSender reads TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER.
func NewTwilioSender() (*TwilioSender, error) {
	env, err := requireEnv("TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_FROM_NUMBER")
	if err != nil {
		return nil, err
	}
	return &TwilioSender{
		accountSID: env["TWILIO_ACCOUNT_SID"],
		authToken:  env["TWILIO_AUTH_TOKEN"],
		fromNumber: env["TWILIO_FROM_NUMBER"],
		baseURL:    twilioBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// E164India turns a 10-digit Indian mobile number into +91XXXXXXXXXX.
// Numbers already carrying a + prefix are returned unchanged.
func E164India(phone string) string {
	phone = strings.TrimSpace(phone)
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	return "+91" + phone
}

// SendSMS returns the Twilio message SID as the message id.
func (t *TwilioSender) SendSMS(ctx context.Context, to, body string) (SendResult, error) {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, url.PathEscape(t.accountSID))
	form := url.Values{
		"To":   {E164India(to)},
		"From": {t.fromNumber},
		"Body": {body},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return SendResult{}, fmt.Errorf("build twilio request: %w", err)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("twilio request failed: %w", err)
	}
	defer resp.Body.Close()

	var msg twilioMessage
	decodeErr := json.NewDecoder(resp.Body).Decode(&msg)
	if resp.StatusCode >= 300 {
		if decodeErr != nil || msg.Message == "" {
			return SendResult{}, fmt.Errorf("twilio error %s", resp.Status)
		}
		return SendResult{}, fmt.Errorf("twilio error %d: %s", msg.Code, msg.Message)
	}
	if decodeErr != nil {
		return SendResult{}, fmt.Errorf("decode twilio response: %w", decodeErr)
	}
	if msg.Status == "failed" || msg.Status == "undelivered" {
		return SendResult{}, fmt.Errorf("twilio message %s %s", msg.SID, msg.Status)
	}
	return SendResult{Provider: "twilio", MessageID: msg.SID, SentAt: time.Now()}, nil
}
