//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"hosted-checkout/internal/domain/model"
	"hosted-checkout/internal/domain/ports/adapter"
	"hosted-checkout/internal/domain/ports/repository"
)

// -----------------------------
// Utilities
// -----------------------------

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// =============================
// Adapters
// =============================

// ---- Deferred TaskRunner ----

// deferredRunner queues tasks until RunAll, so tests can observe the state
// returned to the caller before any side effect has happened.
type deferredRunner struct {
	mu        sync.Mutex
	tasks     []func(ctx context.Context) error
	SubmitErr error
}

var _ adapter.TaskRunner = (*deferredRunner)(nil)

func (r *deferredRunner) Submit(task func(ctx context.Context) error) error {
	if r.SubmitErr != nil {
		return r.SubmitErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
	return nil
}

func (r *deferredRunner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

func (r *deferredRunner) RunAll() []error {
	r.mu.Lock()
	tasks := r.tasks
	r.tasks = nil
	r.mu.Unlock()
	var errs []error
	for _, t := range tasks {
		if err := t(context.Background()); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// ---- Recording WebhookNotifier ----

type sentWebhook struct {
	URL     string
	Payload *model.WebhookPayload
}

type recordingNotifier struct {
	mu   sync.Mutex
	Sent []sentWebhook
}

var _ adapter.WebhookNotifier = (*recordingNotifier)(nil)

func (n *recordingNotifier) Send(ctx context.Context, url string, p *model.WebhookPayload) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, sentWebhook{URL: url, Payload: p})
	return true
}

func (n *recordingNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Sent)
}

func (n *recordingNotifier) Last() sentWebhook {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.Sent[len(n.Sent)-1]
}

// ---- Stub InvoiceRenderer ----

type stubRenderer struct {
	mu    sync.Mutex
	Err   error
	Calls int
}

var _ adapter.InvoiceRenderer = (*stubRenderer)(nil)

func (r *stubRenderer) Render(ctx context.Context, s *model.CheckoutSession) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls++
	if r.Err != nil {
		return nil, r.Err
	}
	return []byte("%PDF-1.3 " + s.Invoice.InvoiceNumber), nil
}

func (r *stubRenderer) ContentType() string { return "application/pdf" }

func (r *stubRenderer) Filename(s *model.CheckoutSession) string {
	return s.Invoice.InvoiceNumber + ".pdf"
}

// ---- Recording Mailer ----

type recordingMailer struct {
	mu   sync.Mutex
	Sent []adapter.Email
	Err  error
}

var _ adapter.Mailer = (*recordingMailer)(nil)

func (m *recordingMailer) Send(ctx context.Context, e adapter.Email) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	m.Sent = append(m.Sent, e)
	return "email-1", nil
}

// ---- Capturing InvoiceMailer ----

type capturingInvoiceMailer struct {
	mu      sync.Mutex
	Session *model.CheckoutSession
	PDF     []byte
}

var _ adapter.InvoiceMailer = (*capturingInvoiceMailer)(nil)

func (m *capturingInvoiceMailer) SendInvoice(ctx context.Context, s *model.CheckoutSession, pdf []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Session = s
	m.PDF = pdf
	return "receipt-1", nil
}

// ---- Stub PaymentGateway ----

type stubGateway struct {
	Err error
}

var _ adapter.PaymentGateway = (*stubGateway)(nil)

func (g *stubGateway) Name() string { return "stub" }

func (g *stubGateway) Authorize(ctx context.Context, amount decimal.Decimal, currency string, a adapter.PaymentAttempt) (adapter.Authorization, error) {
	return adapter.Authorization{}, g.Err
}

// =============================
// Repositories
// =============================

// faultyRepo wraps a working store and fails conditional updates.
type faultyRepo struct {
	repository.CheckoutSessionRepository
	UpdateErr error
}

func (r *faultyRepo) UpdateIfPending(ctx context.Context, id string, patch model.SessionPatch) (*model.CheckoutSession, error) {
	return nil, r.UpdateErr
}

var errStoreDown = errors.New("store unavailable")
