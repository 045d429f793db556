package repository

import (
	"context"
	"time"

	"hosted-checkout/internal/domain/model"
)

// -----------------------------
// Checkout sessions
// -----------------------------

// CheckoutSessionRepository is the durable key-value store behind the state machine.
//
// Implementations MUST:
//   - return domain.ErrNotFound for unknown ids
//   - return copies; callers may mutate what they receive
//   - store Metadata without losing keys or their order
//   - make UpdateIfPending atomic: the patch is applied only while the stored
//     status is pending, otherwise domain.ErrInvalidStatus is returned and the
//     record is left untouched
type CheckoutSessionRepository interface {
	Create(ctx context.Context, s *model.CheckoutSession) error
	FindByID(ctx context.Context, id string) (*model.CheckoutSession, error)
	FindByInvoiceID(ctx context.Context, invoiceID string) (*model.CheckoutSession, error)
	Update(ctx context.Context, id string, patch model.SessionPatch) (*model.CheckoutSession, error)
	UpdateIfPending(ctx context.Context, id string, patch model.SessionPatch) (*model.CheckoutSession, error)
	Delete(ctx context.Context, id string) error
	// CleanupExpired removes sessions whose expires_at is before cutoff and
	// returns how many were removed.
	CleanupExpired(ctx context.Context, cutoff time.Time) (int, error)
}
