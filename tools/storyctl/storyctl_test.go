package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"github.com/rmtechsolution/valentine-backend/services/story-service/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestQuote(t *testing.T) {
	out, err := run(t, "", "quote", "--code", " love100 ")
	require.NoError(t, err)

	var quote models.PromoQuote
	require.NoError(t, json.Unmarshal([]byte(out), &quote))
	assert.True(t, quote.Applied)
	assert.Equal(t, "LOVE100", quote.Code)
	assert.Equal(t, int64(199), quote.Total)

	out, err = run(t, "", "quote", "--code", "RMTECH99")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &quote))
	assert.Equal(t, int64(1), quote.Total)
}

func TestSignWebhook(t *testing.T) {
	body := `{"event":"payment.captured"}`
	path := filepath.Join(t.TempDir(), "body.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	out, err := run(t, "", "sign-webhook", "--file", path, "--secret", "whsec")
	require.NoError(t, err)
	assert.Equal(t, providers.Sign([]byte(body), "whsec"), strings.TrimSpace(out))

	fromStdin, err := run(t, body, "sign-webhook", "--secret", "whsec")
	require.NoError(t, err)
	assert.Equal(t, out, fromStdin)
}

func TestSignWebhook_RequiresSecret(t *testing.T) {
	t.Setenv("RAZORPAY_WEBHOOK_SECRET", "")
	_, err := run(t, "{}", "sign-webhook")
	assert.ErrorContains(t, err, "webhook secret required")
}

type fakeLedger struct {
	byStatus map[string][]models.PaymentAttempt
	listErr  error
	written  []models.PaymentAttempt
}

func (f *fakeLedger) ListByStatus(_ context.Context, status string, _ int) ([]models.PaymentAttempt, error) {
	return f.byStatus[status], f.listErr
}

func (f *fakeLedger) PutMany(_ context.Context, attempts []models.PaymentAttempt) error {
	f.written = append(f.written, attempts...)
	return nil
}

func TestCopyAttempts(t *testing.T) {
	ledger := &fakeLedger{byStatus: map[string][]models.PaymentAttempt{
		models.AttemptStatusSaved:      {{GatewayOrderID: "order_1"}, {GatewayOrderID: "order_2"}},
		models.AttemptStatusSaveFailed: {{GatewayOrderID: "order_3"}},
	}}
	var out bytes.Buffer

	require.NoError(t, copyAttempts(context.Background(), ledger, ledger, 10, &out))

	assert.Len(t, ledger.written, 3)
	assert.Contains(t, out.String(), "copied 3 attempts")
}

func TestCopyAttempts_ListError(t *testing.T) {
	ledger := &fakeLedger{listErr: errors.New("connection reset")}

	err := copyAttempts(context.Background(), ledger, ledger, 10, &bytes.Buffer{})

	assert.ErrorContains(t, err, "list created attempts")
	assert.Empty(t, ledger.written)
}

func TestPrintAttempts(t *testing.T) {
	paymentID := "pay_1"
	var out bytes.Buffer

	require.NoError(t, printAttempts(&out, []models.PaymentAttempt{{
		GatewayOrderID: "order_1",
		PaymentID:      &paymentID,
		AmountMinor:    19900,
		PromoCode:      "LOVE100",
		Status:         models.AttemptStatusSaveFailed,
		FailureReason:  "story endpoint rejected the submission",
		CreatedAt:      time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC),
	}}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "order_1")
	assert.Contains(t, lines[1], "pay_1")
	assert.Contains(t, lines[1], "2026-02-14T10:00:00Z")
}
