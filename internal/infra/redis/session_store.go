package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"hosted-checkout/internal/domain"
	"hosted-checkout/internal/domain/model"
	"hosted-checkout/internal/domain/ports/repository"
)

var _ repository.CheckoutSessionRepository = (*SessionStore)(nil)

const (
	sessionKeyPrefix = "checkout:session:"
	invoiceKeyPrefix = "checkout:invoice:"
	expiryIndexKey   = "checkout:sessions:by_expiry"
	maxCASRetries    = 8
)

// SessionStore keeps each session as a JSON string. Keys carry a TTL of
// expires_at plus retention, and a sorted set indexed by expires_at lets the
// sweep find stale ids. UpdateIfPending uses WATCH/MULTI so a concurrent writer
// aborts the transaction instead of overwriting a terminal state.
type SessionStore struct {
	cli       *redis.Client
	retention time.Duration
	log       zerolog.Logger
}

func NewSessionStore(c *Client, retention time.Duration, logger *zerolog.Logger) *SessionStore {
	return &SessionStore{
		cli:       c.cli,
		retention: retention,
		log:       logger.With().Str("component", "session_store").Str("backend", "redis").Logger(),
	}
}

func sessionKey(id string) string        { return sessionKeyPrefix + id }
func invoiceKey(invoiceID string) string { return invoiceKeyPrefix + invoiceID }

// keyTTL keeps a record around until the sweep would remove it anyway.
func keyTTL(expiresAt time.Time, retention, floor time.Duration) time.Duration {
	ttl := time.Until(expiresAt) + retention
	if ttl < floor {
		ttl = floor
	}
	return ttl
}

func (s *SessionStore) ttl(sess *model.CheckoutSession) time.Duration {
	return keyTTL(sess.ExpiresAt, s.retention, time.Minute)
}

func (s *SessionStore) Create(ctx context.Context, sess *model.CheckoutSession) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	ok, err := s.cli.SetNX(ctx, sessionKey(sess.CheckoutID), b, s.ttl(sess)).Result()
	if err != nil {
		s.log.Error().Err(err).Str("checkout_id", sess.CheckoutID).Msg("create session failed")
		return domain.ErrOperationFailed
	}
	if !ok {
		return domain.ErrAlreadyExists
	}
	err = s.cli.ZAdd(ctx, expiryIndexKey, &redis.Z{
		Score:  float64(sess.ExpiresAt.UnixMilli()),
		Member: sess.CheckoutID,
	}).Err()
	if err != nil {
		s.log.Warn().Err(err).Str("checkout_id", sess.CheckoutID).Msg("expiry index update failed")
	}
	return nil
}

func (s *SessionStore) FindByID(ctx context.Context, id string) (*model.CheckoutSession, error) {
	return s.get(ctx, s.cli, id)
}

func (s *SessionStore) FindByInvoiceID(ctx context.Context, invoiceID string) (*model.CheckoutSession, error) {
	id, err := s.cli.Get(ctx, invoiceKey(invoiceID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	sess, err := s.get(ctx, s.cli, id)
	if err != nil {
		return nil, err
	}
	if sess.Invoice == nil || sess.Invoice.InvoiceID != invoiceID {
		return nil, domain.ErrNotFound
	}
	return sess, nil
}

func (s *SessionStore) Update(ctx context.Context, id string, patch model.SessionPatch) (*model.CheckoutSession, error) {
	return s.cas(ctx, id, patch, false)
}

func (s *SessionStore) UpdateIfPending(ctx context.Context, id string, patch model.SessionPatch) (*model.CheckoutSession, error) {
	return s.cas(ctx, id, patch, true)
}

func (s *SessionStore) cas(ctx context.Context, id string, patch model.SessionPatch, onlyPending bool) (*model.CheckoutSession, error) {
	key := sessionKey(id)
	var out *model.CheckoutSession

	txf := func(tx *redis.Tx) error {
		cur, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if onlyPending && cur.Status != model.CheckoutStatusPending {
			return domain.ErrInvalidStatus
		}
		patch.Apply(cur)
		b, err := json.Marshal(cur)
		if err != nil {
			return domain.ErrInvalidArgument
		}
		ttl := s.ttl(cur)
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, b, ttl)
			if cur.Invoice != nil {
				p.Set(ctx, invoiceKey(cur.Invoice.InvoiceID), id, ttl)
			}
			return nil
		})
		if err != nil {
			return err
		}
		out = cur
		return nil
	}

	for i := 0; i < maxCASRetries; i++ {
		err := s.cli.Watch(ctx, txf, key)
		switch {
		case err == nil:
			return out, nil
		case errors.Is(err, redis.TxFailedErr):
			// another writer touched the key; re-read and re-check
			continue
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidStatus),
			errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrReadDatabaseRow):
			return nil, err
		default:
			s.log.Error().Err(err).Str("checkout_id", id).Msg("session update failed")
			return nil, domain.ErrOperationFailed
		}
	}
	return nil, domain.ErrOperationFailed
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	sess, err := s.get(ctx, s.cli, id)
	if err != nil {
		return err
	}
	keys := []string{sessionKey(id)}
	if sess.Invoice != nil {
		keys = append(keys, invoiceKey(sess.Invoice.InvoiceID))
	}
	_, err = s.cli.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, keys...)
		p.ZRem(ctx, expiryIndexKey, id)
		return nil
	})
	if err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

// CleanupExpired removes every indexed session whose expires_at is before
// cutoff. Keys that already lapsed through their TTL are still counted.
func (s *SessionStore) CleanupExpired(ctx context.Context, cutoff time.Time) (int, error) {
	upper := "(" + strconv.FormatInt(cutoff.UnixMilli(), 10)
	ids, err := s.cli.ZRangeByScore(ctx, expiryIndexKey, &redis.ZRangeBy{Min: "-inf", Max: upper}).Result()
	if err != nil {
		return 0, domain.ErrOperationFailed
	}
	removed := 0
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.log.Warn().Err(err).Str("checkout_id", id).Msg("failed to remove expired session")
			continue
		}
		if err := s.cli.ZRem(ctx, expiryIndexKey, id).Err(); err != nil {
			continue
		}
		removed++
	}
	return removed, nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *SessionStore) get(ctx context.Context, g getter, id string) (*model.CheckoutSession, error) {
	val, err := g.Get(ctx, sessionKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	var sess model.CheckoutSession
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return &sess, nil
}
