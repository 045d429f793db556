//go:build integration

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"hosted-checkout/internal/domain"
	"hosted-checkout/internal/domain/model"
)

func newIntegrationSession(id string, now time.Time) *model.CheckoutSession {
	md := model.NewMetadata()
	md.Set("zeta", "first")
	md.Set("alpha", json.Number("2"))
	return &model.CheckoutSession{
		CheckoutID: id,
		OrderID:    "order-" + id,
		Amount:     decimal.RequireFromString("1499.50"),
		Currency:   "INR",
		PlanID:     "pro",
		PlanName:   "Pro Monthly",
		BillingPeriod: model.BillingPeriod{
			Start: now,
			End:   now.AddDate(0, 1, 0),
		},
		Customer:     model.Customer{UserID: "u1", Email: "a@b.co", Name: "A", Address: &model.Address{City: "Pune"}},
		RedirectURLs: model.RedirectURLs{Success: "https://m.test/ok", Failure: "https://m.test/fail", Cancel: "https://m.test/cancel"},
		WebhookURL:   "https://m.test/hook",
		Metadata:     md,
		Status:       model.CheckoutStatusPending,
		CreatedAt:    now,
		ExpiresAt:    now.Add(model.DefaultSessionTTL),
	}
}

func TestCheckoutSessionRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	l := zerolog.Nop()
	repo := NewCheckoutSessionRepo(testPool, &l)
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("should create and find a session", func(t *testing.T) {
		cleanup(t)
		in := newIntegrationSession("cs_create", now)
		if err := repo.Create(ctx, in); err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if err := repo.Create(ctx, in); !errors.Is(err, domain.ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}

		got, err := repo.FindByID(ctx, "cs_create")
		if err != nil {
			t.Fatalf("Failed to find session: %v", err)
		}
		if !got.Amount.Equal(in.Amount) || got.Currency != "INR" || got.Customer.Address.City != "Pune" {
			t.Errorf("fields lost: %+v", got)
		}
		if !got.ExpiresAt.Equal(in.ExpiresAt) {
			t.Errorf("expires_at changed: %s vs %s", got.ExpiresAt, in.ExpiresAt)
		}
		keys := got.Metadata.Keys()
		if len(keys) != 2 || keys[0] != "zeta" {
			t.Errorf("metadata order lost: %v", keys)
		}

		if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("UpdateIfPending should allow exactly one transition", func(t *testing.T) {
		cleanup(t)
		_ = repo.Create(ctx, newIntegrationSession("cs_race", now))

		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p := model.SuccessPatch(
					model.PaymentRecord{TransactionID: "txn_x", CompletedAt: now},
					model.InvoiceRecord{InvoiceID: "inv_x", InvoiceNumber: "INV-2026-X"},
				)
				if _, err := repo.UpdateIfPending(ctx, "cs_race", p); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				} else if !errors.Is(err, domain.ErrInvalidStatus) {
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()
		if wins != 1 {
			t.Fatalf("expected one winner, got %d", wins)
		}

		byInvoice, err := repo.FindByInvoiceID(ctx, "inv_x")
		if err != nil || byInvoice.CheckoutID != "cs_race" || byInvoice.Payment == nil {
			t.Errorf("find by invoice failed: %v %+v", err, byInvoice)
		}
		if _, err := repo.UpdateIfPending(ctx, "missing", model.SessionPatch{}); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound for unknown id, got %v", err)
		}
	})

	t.Run("should delete and clean up expired sessions", func(t *testing.T) {
		cleanup(t)
		_ = repo.Create(ctx, newIntegrationSession("cs_old", now.Add(-time.Hour)))
		_ = repo.Create(ctx, newIntegrationSession("cs_new", now))

		n, err := repo.CleanupExpired(ctx, now)
		if err != nil || n != 1 {
			t.Fatalf("expected 1 removed, got %d (%v)", n, err)
		}
		if err := repo.Delete(ctx, "cs_new"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := repo.Delete(ctx, "cs_new"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
