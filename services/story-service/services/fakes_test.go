package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rmtechsolution/valentine-backend/services/story-service/media"
	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"github.com/rmtechsolution/valentine-backend/services/story-service/providers"
	"github.com/rmtechsolution/valentine-backend/services/story-service/repository"
	"github.com/rmtechsolution/valentine-backend/services/story-service/sender"
	"go.uber.org/zap"
)

// --- Media ---

type fakeMedia struct {
	mu         sync.Mutex
	seq        int
	acquireErr error
	released   []string
}

func (f *fakeMedia) Acquire(_ context.Context, owner string, kind media.Kind, uploads []media.Upload) ([]models.Attachment, error) {
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Attachment, len(uploads))
	for i, u := range uploads {
		f.seq++
		out[i] = models.Attachment{
			Key:      fmt.Sprintf("stories/%s/%s-%d", owner, kind, f.seq),
			Filename: u.Filename,
		}
	}
	return out, nil
}

func (f *fakeMedia) Release(_ context.Context, atts []models.Attachment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range atts {
		f.released = append(f.released, a.Key)
	}
}

func (f *fakeMedia) releasedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.released...)
}

func upload(name string) media.Upload {
	return media.Upload{Filename: name}
}

// --- Payment gateway ---

type fakeGateway struct {
	configured bool
	createFn   func(ctx context.Context, req providers.OrderRequest) (map[string]interface{}, error)
	requests   []providers.OrderRequest
}

func (g *fakeGateway) CreateOrder(ctx context.Context, req providers.OrderRequest) (map[string]interface{}, error) {
	g.requests = append(g.requests, req)
	if g.createFn != nil {
		return g.createFn(ctx, req)
	}
	return map[string]interface{}{
		"id":       "order_test123",
		"entity":   "order",
		"amount":   req.AmountMinor,
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"status":   "created",
	}, nil
}

func (g *fakeGateway) KeyID() string    { return "rzp_test_key" }
func (g *fakeGateway) Configured() bool { return g.configured }

// --- Attempt ledger ---

type fakeAttempts struct {
	mu        sync.Mutex
	byOrder   map[string]*models.PaymentAttempt
	createErr error
	updateErr error
}

func newFakeAttempts() *fakeAttempts {
	return &fakeAttempts{byOrder: make(map[string]*models.PaymentAttempt)}
}

func (f *fakeAttempts) Create(_ context.Context, a *models.PaymentAttempt) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.byOrder[a.GatewayOrderID] = &cp
	return nil
}

func (f *fakeAttempts) FindByOrderID(_ context.Context, orderID string) (*models.PaymentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byOrder[orderID]
	if !ok {
		return nil, repository.ErrAttemptNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAttempts) Update(_ context.Context, orderID string, upd models.AttemptUpdate) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byOrder[orderID]
	if !ok {
		return repository.ErrAttemptNotFound
	}
	if upd.Status != nil {
		a.Status = *upd.Status
	}
	if upd.GatewayStatus != nil {
		a.GatewayStatus = *upd.GatewayStatus
	}
	if upd.PaymentID != nil {
		id := *upd.PaymentID
		a.PaymentID = &id
	}
	if upd.StoryID != nil {
		a.StoryID = *upd.StoryID
	}
	if upd.FailureReason != nil {
		a.FailureReason = *upd.FailureReason
	}
	return nil
}

func (f *fakeAttempts) ListByStatus(_ context.Context, status string, limit int) ([]models.PaymentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PaymentAttempt
	for _, a := range f.byOrder {
		if a.Status == status && len(out) < limit {
			out = append(out, *a)
		}
	}
	return out, nil
}

// --- Story archive ---

type fakeArchive struct {
	saveFn func(ctx context.Context, sub providers.StorySubmission) (string, error)
	saved  []providers.StorySubmission
}

func (a *fakeArchive) Save(ctx context.Context, sub providers.StorySubmission) (string, error) {
	a.saved = append(a.saved, sub)
	if a.saveFn != nil {
		return a.saveFn(ctx, sub)
	}
	return "42", nil
}

// --- Notifications and events ---

type fakeNotifier struct {
	err  error
	sent []models.ShareLinkMessage
}

func (n *fakeNotifier) Notify(_ context.Context, msg models.ShareLinkMessage) error {
	n.sent = append(n.sent, msg)
	return n.err
}

type mockSNSPublisher struct {
	mu        sync.Mutex
	published [][]byte
}

func (m *mockSNSPublisher) Publish(_ context.Context, _ string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, message)
	return nil
}

func (m *mockSNSPublisher) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, raw := range m.published {
		var ev models.StoryEvent
		if err := json.Unmarshal(raw, &ev); err == nil {
			out = append(out, ev.EventType)
		}
	}
	return out
}

type fakeMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{counts: make(map[string]int)}
}

func (m *fakeMetrics) RecordCount(_ context.Context, name string, _ map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[name]++
	return nil
}

func (m *fakeMetrics) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[name]
}

// --- Senders ---

type fakeEmailSender struct {
	failures int
	calls    int
	sent     sender.Email
}

func (f *fakeEmailSender) SendEmail(_ context.Context, email sender.Email) (sender.SendResult, error) {
	f.calls++
	if f.calls <= f.failures {
		return sender.SendResult{}, errors.New("smtp unavailable")
	}
	f.sent = email
	return sender.SendResult{Provider: "fake", MessageID: "email-1"}, nil
}

type fakeSMSSender struct {
	err   error
	calls int
	to    string
	msg   string
}

func (f *fakeSMSSender) SendSMS(_ context.Context, to, msg string) (sender.SendResult, error) {
	f.calls++
	f.to, f.msg = to, msg
	if f.err != nil {
		return sender.SendResult{}, f.err
	}
	return sender.SendResult{Provider: "fake", MessageID: "sms-1"}, nil
}

type fakeQueue struct {
	err    error
	bodies []string
}

func (q *fakeQueue) SendMessage(_ context.Context, body string) error {
	if q.err != nil {
		return q.err
	}
	q.bodies = append(q.bodies, body)
	return nil
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
