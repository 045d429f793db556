package adapter

import (
	"context"

	"github.com/shopspring/decimal"

	"hosted-checkout/internal/domain/model"
)

// PaymentAttempt is what the payer submitted for a session.
type PaymentAttempt struct {
	Method  string         // card | upi | wallet | netbanking | app
	Details map[string]any // opaque form fields, e.g. cardNumber, name, expiry, wallet_balance
}

// Authorization is the gateway's verdict on an attempt.
// When Approved is false, DeclineCode and DeclineMessage explain why.
type Authorization struct {
	Approved       bool
	PaymentMethod  model.PaymentMethod
	DeclineCode    string
	DeclineMessage string
}

// PaymentGateway is the hex port for payment adjudication. A decline is a
// normal result, not an error; err is reserved for infrastructure faults.
type PaymentGateway interface {
	Name() string
	Authorize(ctx context.Context, amount decimal.Decimal, currency string, attempt PaymentAttempt) (Authorization, error)
}
