//go:build !integration

package email

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"hosted-checkout/internal/domain/model"
	"hosted-checkout/internal/domain/ports/adapter"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func TestResendMailer_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("posts the message with a bearer key", func(t *testing.T) {
		// --- Arrange ---
		var got resendRequest
		var auth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			_ = json.NewDecoder(r.Body).Decode(&got)
			_, _ = w.Write([]byte(`{"id":"em_123"}`))
		}))
		defer srv.Close()
		m, err := NewResendMailer("re_key", "Payments <p@x.dev>", srv.URL, newTestLogger())
		if err != nil {
			t.Fatalf("new mailer: %v", err)
		}

		// --- Act ---
		id, err := m.Send(ctx, adapter.Email{
			To:          "payer@example.com",
			Subject:     "Invoice",
			HTML:        "<p>hi</p>",
			Attachments: []adapter.EmailAttachment{{Filename: "INV-1.pdf", Content: []byte("%PDF")}},
		})

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != "em_123" {
			t.Errorf("expected em_123, got %s", id)
		}
		if auth != "Bearer re_key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if len(got.To) != 1 || got.To[0] != "payer@example.com" {
			t.Errorf("unexpected recipients %v", got.To)
		}
		if len(got.Attachments) != 1 || got.Attachments[0].Content != base64.StdEncoding.EncodeToString([]byte("%PDF")) {
			t.Errorf("attachment not base64 encoded: %+v", got.Attachments)
		}
	})

	t.Run("provider error surfaces", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"message":"invalid from"}`, http.StatusUnprocessableEntity)
		}))
		defer srv.Close()
		m, _ := NewResendMailer("re_key", "x", srv.URL, newTestLogger())
		if _, err := m.Send(ctx, adapter.Email{To: "a@b.co"}); err == nil || !strings.Contains(err.Error(), "422") {
			t.Errorf("expected a 422 error, got %v", err)
		}
	})

	t.Run("empty key is rejected", func(t *testing.T) {
		if _, err := NewResendMailer("", "x", "", newTestLogger()); err == nil {
			t.Fatal("expected an error")
		}
	})
}

func TestLogMailer_Send(t *testing.T) {
	m := NewLogMailer(newTestLogger())
	a, _ := m.Send(context.Background(), adapter.Email{To: "a@b.co"})
	b, _ := m.Send(context.Background(), adapter.Email{To: "a@b.co"})
	if a == "" || a == b {
		t.Errorf("expected distinct simulated ids, got %q and %q", a, b)
	}
}

func TestInvoiceEmail(t *testing.T) {
	now := time.Now()
	s := &model.CheckoutSession{
		CheckoutID: "cs_1",
		OrderID:    "order-<1>",
		Amount:     decimal.NewFromInt(100),
		Currency:   "USD",
		PlanName:   "Pro",
		Customer:   model.Customer{Name: "A", Email: "a@b.co"},
		Payment:    &model.PaymentRecord{TransactionID: "txn_1", CompletedAt: now},
		Invoice:    &model.InvoiceRecord{InvoiceNumber: "INV-2026-AAAA", InvoiceURL: "http://x/api/v1/invoices/inv_1"},
	}

	e, err := InvoiceEmail(s, []byte("%PDF"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if e.To != "a@b.co" || e.Subject != "Payment Successful - Pro" {
		t.Errorf("unexpected envelope %+v", e)
	}
	if len(e.Attachments) != 1 || e.Attachments[0].Filename != "Invoice-INV-2026-AAAA.pdf" {
		t.Errorf("unexpected attachments %+v", e.Attachments)
	}
	if !strings.Contains(e.HTML, "USD 100.00") || strings.Contains(e.HTML, "order-<1>") {
		t.Errorf("expected escaped html with the amount, got %s", e.HTML)
	}

	s.Invoice = nil
	if _, err := InvoiceEmail(s, nil); err == nil {
		t.Error("expected an error without an invoice")
	}
}

type recordingMailer struct {
	sent []adapter.Email
}

func (m *recordingMailer) Send(ctx context.Context, e adapter.Email) (string, error) {
	m.sent = append(m.sent, e)
	return "email-1", nil
}

func TestInvoiceSender_SendInvoice(t *testing.T) {
	// --- Arrange ---
	mailer := &recordingMailer{}
	sender := NewInvoiceSender(mailer)
	s := &model.CheckoutSession{
		CheckoutID: "cs_1",
		Amount:     decimal.NewFromInt(10),
		Currency:   "EUR",
		PlanName:   "Basic",
		Customer:   model.Customer{Name: "B", Email: "b@c.co"},
		Payment:    &model.PaymentRecord{TransactionID: "txn_2"},
		Invoice:    &model.InvoiceRecord{InvoiceNumber: "INV-2026-BBBB"},
	}

	// --- Act ---
	id, err := sender.SendInvoice(context.Background(), s, []byte("%PDF"))

	// --- Assert ---
	if err != nil || id != "email-1" {
		t.Fatalf("expected delivery, got %q, %v", id, err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].To != "b@c.co" || string(mailer.sent[0].Attachments[0].Content) != "%PDF" {
		t.Errorf("unexpected email %+v", mailer.sent)
	}

	s.Payment = nil
	if _, err := sender.SendInvoice(context.Background(), s, nil); err == nil {
		t.Error("expected an error for an unpaid session")
	}
	if len(mailer.sent) != 1 {
		t.Error("nothing should be sent for an unpaid session")
	}
}
