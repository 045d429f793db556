//go:build !integration

package api_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hosted-checkout/internal/domain/model"
	"hosted-checkout/internal/domain/ports/adapter"
	"hosted-checkout/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// ---- Mock CheckoutUseCase ----

type mockCheckoutUC struct {
	CreateFunc         func(ctx context.Context, req usecase.CreateCheckoutRequest) (*usecase.CreateCheckoutResult, error)
	GetFunc            func(ctx context.Context, id string) (*model.CheckoutSession, error)
	AttemptPaymentFunc func(ctx context.Context, id string, a adapter.PaymentAttempt) (*usecase.PaymentResult, error)
	CancelFunc         func(ctx context.Context, id string) (*usecase.PaymentResult, error)
	InvoiceFunc        func(ctx context.Context, invoiceID string) (*usecase.InvoiceDocument, error)
}

var _ usecase.CheckoutUseCase = (*mockCheckoutUC)(nil)

func (m *mockCheckoutUC) Create(ctx context.Context, req usecase.CreateCheckoutRequest) (*usecase.CreateCheckoutResult, error) {
	return m.CreateFunc(ctx, req)
}

func (m *mockCheckoutUC) Get(ctx context.Context, id string) (*model.CheckoutSession, error) {
	return m.GetFunc(ctx, id)
}

func (m *mockCheckoutUC) AttemptPayment(ctx context.Context, id string, a adapter.PaymentAttempt) (*usecase.PaymentResult, error) {
	return m.AttemptPaymentFunc(ctx, id, a)
}

func (m *mockCheckoutUC) Cancel(ctx context.Context, id string) (*usecase.PaymentResult, error) {
	return m.CancelFunc(ctx, id)
}

func (m *mockCheckoutUC) Invoice(ctx context.Context, invoiceID string) (*usecase.InvoiceDocument, error) {
	return m.InvoiceFunc(ctx, invoiceID)
}

func (m *mockCheckoutUC) CleanupExpired(ctx context.Context) (int, error) { return 0, nil }

// ---- Mock PayLimiter ----

type mockLimiter struct {
	mu   sync.Mutex
	hits map[string]int
	Err  error
}

func (m *mockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hits == nil {
		m.hits = map[string]int{}
	}
	m.hits[key]++
	return m.hits[key] <= limit, nil
}

// ---- Adapters for end-to-end routing ----

// discardRunner drops background work; HTTP results never depend on it.
type discardRunner struct{}

func (discardRunner) Submit(func(ctx context.Context) error) error { return nil }
