package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"hosted-checkout/internal/domain"
	"hosted-checkout/internal/domain/model"
	"hosted-checkout/internal/domain/ports/repository"
)

var _ repository.CheckoutSessionRepository = (*checkoutSessionRepo)(nil)

type checkoutSessionRepo struct {
	db  querier
	log zerolog.Logger
}

func NewCheckoutSessionRepo(db querier, logger *zerolog.Logger) *checkoutSessionRepo {
	return &checkoutSessionRepo{
		db:  db,
		log: logger.With().Str("component", "checkout_session_repo").Logger(),
	}
}

const sessionColumns = `checkout_id, order_id, amount::text, currency, plan_id, plan_name,
  billing_start, billing_end, customer, redirect_urls, webhook_url, metadata, status,
  payment, invoice, failure, completed_at, created_at, expires_at`

func (r *checkoutSessionRepo) Create(ctx context.Context, s *model.CheckoutSession) error {
	const q = `
INSERT INTO checkout_sessions (
  checkout_id, order_id, amount, currency, plan_id, plan_name, billing_start, billing_end,
  customer, redirect_urls, webhook_url, metadata, status, payment, invoice, invoice_id,
  failure, completed_at, created_at, expires_at
) VALUES (
  $1,$2,$3::numeric,$4,$5,$6,$7,$8,$9::jsonb,$10::jsonb,$11,$12::json,$13,$14::jsonb,$15::jsonb,$16,$17::jsonb,$18,$19,$20
);`
	args, err := jsonArgs(s.Customer, s.RedirectURLs, s.Metadata, s.Payment, s.Invoice, s.Failure)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.CheckoutID, domain.ErrInvalidArgument)
	}
	var invoiceID *string
	if s.Invoice != nil {
		invoiceID = &s.Invoice.InvoiceID
	}
	_, err = r.db.Exec(ctx, q,
		s.CheckoutID, s.OrderID, s.Amount.String(), s.Currency, s.PlanID, s.PlanName,
		s.BillingPeriod.Start, s.BillingPeriod.End, args[0], args[1], s.WebhookURL, args[2],
		string(s.Status), args[3], args[4], invoiceID, args[5], s.CompletedAt, s.CreatedAt, s.ExpiresAt,
	)
	if err != nil {
		r.log.Error().Err(err).Str("checkout_id", s.CheckoutID).Msg("insert session failed")
		return mapErr(err)
	}
	return nil
}

func (r *checkoutSessionRepo) FindByID(ctx context.Context, id string) (*model.CheckoutSession, error) {
	q := `SELECT ` + sessionColumns + ` FROM checkout_sessions WHERE checkout_id=$1;`
	return r.one(ctx, q, id)
}

func (r *checkoutSessionRepo) FindByInvoiceID(ctx context.Context, invoiceID string) (*model.CheckoutSession, error) {
	q := `SELECT ` + sessionColumns + ` FROM checkout_sessions WHERE invoice_id=$1;`
	return r.one(ctx, q, invoiceID)
}

func (r *checkoutSessionRepo) Update(ctx context.Context, id string, patch model.SessionPatch) (*model.CheckoutSession, error) {
	return r.update(ctx, id, patch, false)
}

// UpdateIfPending is a single conditional UPDATE, so concurrent callers race
// inside Postgres and exactly one of them sees a returned row.
func (r *checkoutSessionRepo) UpdateIfPending(ctx context.Context, id string, patch model.SessionPatch) (*model.CheckoutSession, error) {
	return r.update(ctx, id, patch, true)
}

func (r *checkoutSessionRepo) update(ctx context.Context, id string, patch model.SessionPatch, onlyPending bool) (*model.CheckoutSession, error) {
	q := `
UPDATE checkout_sessions
   SET status       = COALESCE($2, status),
       payment      = COALESCE($3::jsonb, payment),
       invoice      = COALESCE($4::jsonb, invoice),
       invoice_id   = COALESCE($5, invoice_id),
       failure      = COALESCE($6::jsonb, failure),
       completed_at = COALESCE($7, completed_at)
 WHERE checkout_id = $1`
	if onlyPending {
		q += ` AND status = 'pending'`
	}
	q += ` RETURNING ` + sessionColumns + `;`

	args, err := jsonArgs(patch.Payment, patch.Invoice, patch.Failure)
	if err != nil {
		return nil, fmt.Errorf("encode patch for %s: %w", id, domain.ErrInvalidArgument)
	}
	var status, invoiceID *string
	if patch.Status != nil {
		v := string(*patch.Status)
		status = &v
	}
	if patch.Invoice != nil {
		invoiceID = &patch.Invoice.InvoiceID
	}

	s, err := r.one(ctx, q, id, status, args[0], args[1], invoiceID, args[2], patch.CompletedAt)
	if errors.Is(err, domain.ErrNotFound) && onlyPending {
		// either the id is unknown or the row is no longer pending
		if _, ferr := r.FindByID(ctx, id); ferr == nil {
			return nil, domain.ErrInvalidStatus
		}
	}
	return s, err
}

func (r *checkoutSessionRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM checkout_sessions WHERE checkout_id=$1;`, id)
	if err != nil {
		return mapErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *checkoutSessionRepo) CleanupExpired(ctx context.Context, cutoff time.Time) (int, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM checkout_sessions WHERE expires_at < $1;`, cutoff)
	if err != nil {
		r.log.Error().Err(err).Msg("cleanup expired sessions failed")
		return 0, mapErr(err)
	}
	return int(cmd.RowsAffected()), nil
}

func (r *checkoutSessionRepo) one(ctx context.Context, q string, args ...interface{}) (*model.CheckoutSession, error) {
	s, err := scanSession(r.db.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		if errors.Is(err, domain.ErrReadDatabaseRow) {
			r.log.Error().Err(err).Msg("decode session row failed")
			return nil, err
		}
		return nil, mapErr(err)
	}
	return s, nil
}

func scanSession(row pgx.Row) (*model.CheckoutSession, error) {
	var (
		s                         model.CheckoutSession
		amount, status            string
		customer, redirects, meta []byte
		payment, invoice, failure []byte
	)
	err := row.Scan(
		&s.CheckoutID, &s.OrderID, &amount, &s.Currency, &s.PlanID, &s.PlanName,
		&s.BillingPeriod.Start, &s.BillingPeriod.End, &customer, &redirects, &s.WebhookURL, &meta, &status,
		&payment, &invoice, &failure, &s.CompletedAt, &s.CreatedAt, &s.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	s.Status = model.CheckoutStatus(status)
	if s.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("%w: amount %q", domain.ErrReadDatabaseRow, amount)
	}
	if err := json.Unmarshal(customer, &s.Customer); err != nil {
		return nil, fmt.Errorf("%w: customer: %v", domain.ErrReadDatabaseRow, err)
	}
	if err := json.Unmarshal(redirects, &s.RedirectURLs); err != nil {
		return nil, fmt.Errorf("%w: redirect_urls: %v", domain.ErrReadDatabaseRow, err)
	}
	if err := unmarshalOptional(meta, &s.Metadata); err != nil {
		return nil, err
	}
	if err := unmarshalOptional(payment, &s.Payment); err != nil {
		return nil, err
	}
	if err := unmarshalOptional(invoice, &s.Invoice); err != nil {
		return nil, err
	}
	if err := unmarshalOptional(failure, &s.Failure); err != nil {
		return nil, err
	}
	return &s, nil
}

// unmarshalOptional decodes a nullable JSON column into a pointer field.
func unmarshalOptional[T any](b []byte, dst **T) error {
	if len(b) == 0 || string(b) == "null" {
		*dst = nil
		return nil
	}
	v := new(T)
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	*dst = v
	return nil
}

// jsonArgs encodes each value as a JSON string parameter, or nil for nil pointers.
func jsonArgs(vals ...interface{}) ([]interface{}, error) {
	out := make([]interface{}, len(vals))
	for i, v := range vals {
		if isNil(v) {
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[i] = string(b)
	}
	return out, nil
}

func isNil(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case *model.Metadata:
		return t == nil
	case *model.PaymentRecord:
		return t == nil
	case *model.InvoiceRecord:
		return t == nil
	case *model.Failure:
		return t == nil
	}
	return false
}
