package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"hosted-checkout/internal/domain/model"
	"hosted-checkout/internal/domain/ports/repository"
	"hosted-checkout/internal/infra/metrics"
	red "hosted-checkout/internal/infra/redis"
)

var _ repository.CheckoutSessionRepository = (*sessionRepoCacheDecorator)(nil)

// sessionRepoCacheDecorator is a read-through cache for FindByID. Every write
// goes to the inner repository first and then refreshes or drops the entry.
// A miss only fills the cache with terminal sessions: a pending row read on a
// miss can race a concurrent UpdateIfPending and land after its refresh.
type sessionRepoCacheDecorator struct {
	inner     repository.CheckoutSessionRepository
	cache     red.RedisClient
	ttl       time.Duration
	retention time.Duration
	log       zerolog.Logger
}

func NewSessionRepoCacheDecorator(inner repository.CheckoutSessionRepository, cache red.RedisClient, ttl, retention time.Duration, logger *zerolog.Logger) repository.CheckoutSessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &sessionRepoCacheDecorator{
		inner:     inner,
		cache:     cache,
		ttl:       ttl,
		retention: retention,
		log:       logger.With().Str("component", "session_cache").Logger(),
	}
}

func sessionCacheKey(id string) string { return "checkout_session:" + id }

func (d *sessionRepoCacheDecorator) FindByID(ctx context.Context, id string) (*model.CheckoutSession, error) {
	key := sessionCacheKey(id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var s model.CheckoutSession
		if json.Unmarshal([]byte(val), &s) == nil {
			metrics.IncCacheRequest("checkout_session", "hit")
			return &s, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		d.log.Warn().Err(err).Str("checkout_id", id).Msg("cache read failed")
	}

	metrics.IncCacheRequest("checkout_session", "miss")
	s, err := d.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Status.Terminal() {
		d.store(ctx, s)
	}
	return s, nil
}

func (d *sessionRepoCacheDecorator) FindByInvoiceID(ctx context.Context, invoiceID string) (*model.CheckoutSession, error) {
	return d.inner.FindByInvoiceID(ctx, invoiceID)
}

func (d *sessionRepoCacheDecorator) Create(ctx context.Context, s *model.CheckoutSession) error {
	if err := d.inner.Create(ctx, s); err != nil {
		return err
	}
	d.store(ctx, s)
	return nil
}

func (d *sessionRepoCacheDecorator) Update(ctx context.Context, id string, patch model.SessionPatch) (*model.CheckoutSession, error) {
	d.drop(ctx, id)
	s, err := d.inner.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	d.store(ctx, s)
	return s, nil
}

func (d *sessionRepoCacheDecorator) UpdateIfPending(ctx context.Context, id string, patch model.SessionPatch) (*model.CheckoutSession, error) {
	d.drop(ctx, id)
	s, err := d.inner.UpdateIfPending(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	d.store(ctx, s)
	return s, nil
}

func (d *sessionRepoCacheDecorator) Delete(ctx context.Context, id string) error {
	d.drop(ctx, id)
	return d.inner.Delete(ctx, id)
}

// CleanupExpired needs no invalidation: entries never outlive expires_at plus
// the retention window, which is exactly when the sweep may delete them.
func (d *sessionRepoCacheDecorator) CleanupExpired(ctx context.Context, cutoff time.Time) (int, error) {
	return d.inner.CleanupExpired(ctx, cutoff)
}

func (d *sessionRepoCacheDecorator) store(ctx context.Context, s *model.CheckoutSession) {
	ttl := d.ttl
	if until := time.Until(s.ExpiresAt) + d.retention; until < ttl {
		ttl = until
	}
	if ttl <= 0 {
		return
	}
	b, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, sessionCacheKey(s.CheckoutID), b, ttl); err != nil {
		d.log.Warn().Err(err).Str("checkout_id", s.CheckoutID).Msg("cache write failed")
	}
}

func (d *sessionRepoCacheDecorator) drop(ctx context.Context, id string) {
	if err := d.cache.Del(ctx, sessionCacheKey(id)); err != nil {
		d.log.Warn().Err(err).Str("checkout_id", id).Msg("cache invalidation failed")
	}
}
