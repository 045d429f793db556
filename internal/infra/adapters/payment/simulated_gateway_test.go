//go:build !integration

package payment

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"hosted-checkout/internal/domain/ports/adapter"
)

func newTestGateway() *SimulatedGateway {
	l := zerolog.Nop()
	return NewSimulatedGateway(&l)
}

func TestSimulatedGateway_DeclineTriggers(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway()
	amount := decimal.NewFromInt(100)

	tests := []struct {
		name    string
		attempt adapter.PaymentAttempt
		code    string
	}{
		{"card suffix 0002", card("4000 0000 0000 0002"), DeclineCardDeclined},
		{"card suffix 9995", card("4000000000009995"), DeclineInsufficientFunds},
		{"card suffix 0069", card("4000000000000069"), DeclineExpiredCard},
		{"card suffix 0119", card("4000000000000119"), DeclineProcessingError},
		{"netbanking", adapter.PaymentAttempt{Method: "netbanking", Details: map[string]any{"bank": "hdfc"}}, DeclineBankUnavailable},
		{"wallet short", adapter.PaymentAttempt{Method: "wallet", Details: map[string]any{"wallet_balance": json.Number("99.99")}}, DeclineInsufficientFunds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth, err := g.Authorize(ctx, amount, "USD", tt.attempt)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if auth.Approved {
				t.Fatal("expected a decline")
			}
			if auth.DeclineCode != tt.code {
				t.Errorf("expected %s, got %s", tt.code, auth.DeclineCode)
			}
			if auth.DeclineMessage == "" {
				t.Error("expected a decline message")
			}
		})
	}
}

func TestSimulatedGateway_Approvals(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway()
	amount := decimal.NewFromInt(100)

	t.Run("card details are derived", func(t *testing.T) {
		a := card("5555 5555 5555 4444")
		a.Details["expiry"] = "07/29"
		auth, err := g.Authorize(ctx, amount, "USD", a)
		if err != nil || !auth.Approved {
			t.Fatalf("expected approval, got %+v, %v", auth, err)
		}
		pm := auth.PaymentMethod
		if pm.Type != "card" || pm.CardBrand != "mastercard" || pm.Last4 != "4444" {
			t.Errorf("unexpected payment method %+v", pm)
		}
		if pm.ExpiryMonth != 7 || pm.ExpiryYear != 2029 {
			t.Errorf("unexpected expiry %d/%d", pm.ExpiryMonth, pm.ExpiryYear)
		}
	})

	t.Run("card without details uses defaults", func(t *testing.T) {
		auth, _ := g.Authorize(ctx, amount, "USD", adapter.PaymentAttempt{Method: "card", Details: map[string]any{}})
		pm := auth.PaymentMethod
		if !auth.Approved || pm.Last4 != "4242" || pm.ExpiryMonth != 12 || pm.ExpiryYear != 2028 || pm.CardBrand != "visa" {
			t.Errorf("unexpected defaults %+v", auth)
		}
	})

	t.Run("wallet with enough balance", func(t *testing.T) {
		auth, _ := g.Authorize(ctx, amount, "USD", adapter.PaymentAttempt{Method: "wallet", Details: map[string]any{"wallet_balance": 100.0}})
		if !auth.Approved {
			t.Error("balance equal to the amount should be approved")
		}
	})

	t.Run("upi is approved", func(t *testing.T) {
		auth, _ := g.Authorize(ctx, amount, "USD", adapter.PaymentAttempt{Method: "UPI", Details: map[string]any{"vpa": "a@upi"}})
		if !auth.Approved || auth.PaymentMethod.Type != "upi" {
			t.Errorf("unexpected %+v", auth)
		}
	})
}

func TestSimulatedGateway_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newTestGateway().Authorize(ctx, decimal.NewFromInt(1), "USD", card("4242424242424242")); err == nil {
		t.Fatal("expected the context error to surface as an infrastructure fault")
	}
}

func TestCardBrand(t *testing.T) {
	cases := map[string]string{
		"4242424242424242": "visa",
		"5105105105105100": "mastercard",
		"378282246310005":  "amex",
		"6070000000000000": "rupay",
		"":                 "visa",
	}
	for in, want := range cases {
		if got := CardBrand(in); got != want {
			t.Errorf("CardBrand(%q) = %q, want %q", in, got, want)
		}
	}
}

func card(number string) adapter.PaymentAttempt {
	return adapter.PaymentAttempt{Method: "card", Details: map[string]any{"cardNumber": number, "name": "Test Payer"}}
}
