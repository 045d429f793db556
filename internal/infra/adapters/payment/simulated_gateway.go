// File: internal/infra/adapters/payment/simulated_gateway.go
package payment

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"hosted-checkout/internal/domain/model"
	"hosted-checkout/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*SimulatedGateway)(nil)

// Decline codes reported by the simulated gateway.
const (
	DeclineCardDeclined      = "card_declined"
	DeclineInsufficientFunds = "insufficient_funds"
	DeclineExpiredCard       = "expired_card"
	DeclineProcessingError   = "processing_error"
	DeclineBankUnavailable   = "bank_unavailable"
)

// Payment methods accepted on the hosted page.
const (
	MethodCard       = "card"
	MethodUPI        = "upi"
	MethodWallet     = "wallet"
	MethodNetBanking = "netbanking"
	MethodApp        = "app"
)

var declineBySuffix = map[string]struct{ code, msg string }{
	"0002": {DeclineCardDeclined, "Your card was declined."},
	"9995": {DeclineInsufficientFunds, "Your card has insufficient funds."},
	"0069": {DeclineExpiredCard, "Your card has expired."},
	"0119": {DeclineProcessingError, "An error occurred while processing your card."},
}

const (
	defaultLast4       = "4242"
	defaultExpiryMonth = 12
	defaultExpiryYear  = 2028
)

// SimulatedGateway adjudicates attempts locally. An attempt is declined if
// and only if it carries a known decline trigger; everything else is approved.
type SimulatedGateway struct {
	log zerolog.Logger
}

func NewSimulatedGateway(logger *zerolog.Logger) *SimulatedGateway {
	return &SimulatedGateway{log: logger.With().Str("component", "simulated_gateway").Logger()}
}

func (g *SimulatedGateway) Name() string { return "simulated" }

func (g *SimulatedGateway) Authorize(ctx context.Context, amount decimal.Decimal, currency string, attempt adapter.PaymentAttempt) (adapter.Authorization, error) {
	if err := ctx.Err(); err != nil {
		return adapter.Authorization{}, err
	}
	method := strings.ToLower(strings.TrimSpace(attempt.Method))
	pm := model.PaymentMethod{Type: method}

	switch method {
	case MethodCard:
		pan := digitsOnly(str(attempt.Details, "cardNumber", "card_number", "number"))
		if len(pan) >= 4 {
			if d, ok := declineBySuffix[pan[len(pan)-4:]]; ok {
				return decline(pm, d.code, d.msg), nil
			}
		}
		pm.CardBrand = CardBrand(pan)
		pm.Last4 = defaultLast4
		if len(pan) >= 4 {
			pm.Last4 = pan[len(pan)-4:]
		}
		pm.ExpiryMonth, pm.ExpiryYear = expiry(attempt.Details)

	case MethodNetBanking:
		return decline(pm, DeclineBankUnavailable, "The selected bank is not responding. Try another payment method."), nil

	case MethodWallet:
		if bal, ok := number(attempt.Details, "wallet_balance", "walletBalance"); ok && bal.LessThan(amount) {
			return decline(pm, DeclineInsufficientFunds, "Wallet balance is lower than the amount due."), nil
		}
	}

	g.log.Debug().Str("method", method).Str("currency", currency).Str("amount", amount.String()).Msg("attempt approved")
	return adapter.Authorization{Approved: true, PaymentMethod: pm}, nil
}

func decline(pm model.PaymentMethod, code, msg string) adapter.Authorization {
	return adapter.Authorization{PaymentMethod: pm, DeclineCode: code, DeclineMessage: msg}
}

// CardBrand guesses the network from the leading digits of a PAN.
func CardBrand(number string) string {
	switch {
	case strings.HasPrefix(number, "34"), strings.HasPrefix(number, "37"):
		return "amex"
	case len(number) >= 2 && number[0] == '5' && number[1] >= '1' && number[1] <= '5':
		return "mastercard"
	case strings.HasPrefix(number, "60"), strings.HasPrefix(number, "65"),
		strings.HasPrefix(number, "81"), strings.HasPrefix(number, "82"):
		return "rupay"
	default:
		return "visa"
	}
}

// expiry reads "MM/YY" (or MM/YYYY) from the expiry field, falling back to
// explicit month/year fields and finally to the default card expiry.
func expiry(details map[string]any) (int, int) {
	if raw := str(details, "expiry", "expiryDate", "expiry_date"); raw != "" {
		parts := strings.SplitN(raw, "/", 2)
		if len(parts) == 2 {
			m, errM := strconv.Atoi(strings.TrimSpace(parts[0]))
			y, errY := strconv.Atoi(strings.TrimSpace(parts[1]))
			if errM == nil && errY == nil && m >= 1 && m <= 12 {
				if y < 100 {
					y += 2000
				}
				return m, y
			}
		}
	}
	if m, ok := number(details, "expiry_month"); ok {
		if y, ok := number(details, "expiry_year"); ok {
			mi, yi := int(m.IntPart()), int(y.IntPart())
			if mi >= 1 && mi <= 12 {
				return mi, yi
			}
		}
	}
	return defaultExpiryMonth, defaultExpiryYear
}

func str(details map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := details[k]; ok {
			switch t := v.(type) {
			case string:
				return strings.TrimSpace(t)
			case json.Number:
				return t.String()
			}
		}
	}
	return ""
}

func number(details map[string]any, keys ...string) (decimal.Decimal, bool) {
	for _, k := range keys {
		v, ok := details[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case float64:
			return decimal.NewFromFloat(t), true
		case int:
			return decimal.NewFromInt(int64(t)), true
		case int64:
			return decimal.NewFromInt(t), true
		case json.Number:
			d, err := decimal.NewFromString(t.String())
			return d, err == nil
		case string:
			d, err := decimal.NewFromString(strings.TrimSpace(t))
			return d, err == nil
		}
	}
	return decimal.Decimal{}, false
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
