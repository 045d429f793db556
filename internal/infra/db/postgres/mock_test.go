//go:build !integration

package postgres

import (
	"context"
	"time"

	"hosted-checkout/internal/domain/model"
	"hosted-checkout/internal/domain/ports/repository"
	red "hosted-checkout/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerSessionRepo mocks the database repository that the decorator wraps.
type mockInnerSessionRepo struct {
	CreateFunc          func(ctx context.Context, s *model.CheckoutSession) error
	FindByIDFunc        func(ctx context.Context, id string) (*model.CheckoutSession, error)
	FindByInvoiceIDFunc func(ctx context.Context, invoiceID string) (*model.CheckoutSession, error)
	UpdateFunc          func(ctx context.Context, id string, patch model.SessionPatch) (*model.CheckoutSession, error)
	UpdateIfPendingFunc func(ctx context.Context, id string, patch model.SessionPatch) (*model.CheckoutSession, error)
	DeleteFunc          func(ctx context.Context, id string) error
	CleanupExpiredFunc  func(ctx context.Context, cutoff time.Time) (int, error)
}

var _ repository.CheckoutSessionRepository = (*mockInnerSessionRepo)(nil)

func (m *mockInnerSessionRepo) Create(ctx context.Context, s *model.CheckoutSession) error {
	return m.CreateFunc(ctx, s)
}
func (m *mockInnerSessionRepo) FindByID(ctx context.Context, id string) (*model.CheckoutSession, error) {
	return m.FindByIDFunc(ctx, id)
}
func (m *mockInnerSessionRepo) FindByInvoiceID(ctx context.Context, invoiceID string) (*model.CheckoutSession, error) {
	return m.FindByInvoiceIDFunc(ctx, invoiceID)
}
func (m *mockInnerSessionRepo) Update(ctx context.Context, id string, patch model.SessionPatch) (*model.CheckoutSession, error) {
	return m.UpdateFunc(ctx, id, patch)
}
func (m *mockInnerSessionRepo) UpdateIfPending(ctx context.Context, id string, patch model.SessionPatch) (*model.CheckoutSession, error) {
	return m.UpdateIfPendingFunc(ctx, id, patch)
}
func (m *mockInnerSessionRepo) Delete(ctx context.Context, id string) error {
	return m.DeleteFunc(ctx, id)
}
func (m *mockInnerSessionRepo) CleanupExpired(ctx context.Context, cutoff time.Time) (int, error) {
	return m.CleanupExpiredFunc(ctx, cutoff)
}

// mockRedisClient mocks our Redis client wrapper. Nil funcs behave like an
// empty, healthy cache.
type mockRedisClient struct {
	GetFunc func(ctx context.Context, key string) (string, error)
	SetFunc func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc func(ctx context.Context, keys ...string) error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc == nil {
		return "", red.Nil
	}
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc == nil {
		return nil
	}
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return nil }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return 0, nil
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}
func (m *mockRedisClient) Close() error { return nil }
