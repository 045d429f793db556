package usecase

import (
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hosted-checkout/internal/domain"
	"hosted-checkout/internal/domain/model"
)

type BillingPeriodInput struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// CreateCheckoutRequest is the merchant's session creation payload.
type CreateCheckoutRequest struct {
	OrderID       string             `json:"order_id"`
	Amount        decimal.Decimal    `json:"amount"`
	Currency      string             `json:"currency"`
	PlanID        string             `json:"plan_id"`
	PlanName      string             `json:"plan_name"`
	BillingPeriod BillingPeriodInput `json:"billing_period"`
	Customer      model.Customer     `json:"customer"`
	RedirectURLs  model.RedirectURLs `json:"redirect_urls"`
	WebhookURL    string             `json:"webhook_url"`
	Metadata      *model.Metadata    `json:"metadata,omitempty"`
}

var billingLayouts = []string{time.RFC3339Nano, "2006-01-02"}

func parseBillingTime(v string) (time.Time, bool) {
	for _, layout := range billingLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func isEmail(v string) bool {
	addr, err := mail.ParseAddress(v)
	return err == nil && addr.Address == v
}

func isAbsoluteURL(v string) bool {
	u, err := url.Parse(v)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func isCurrencyCode(v string) bool {
	if len(v) != 3 {
		return false
	}
	for _, r := range v {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}

// validate checks every field and reports all problems at once. On success it
// returns the parsed billing period.
func (r *CreateCheckoutRequest) validate() (model.BillingPeriod, error) {
	verr := &domain.ValidationError{}
	required := func(field, v string) {
		if strings.TrimSpace(v) == "" {
			verr.Add(field, "is required")
		}
	}
	absURL := func(field, v string) {
		if !isAbsoluteURL(v) {
			verr.Add(field, "must be an absolute http(s) URL")
		}
	}

	required("order_id", r.OrderID)
	if !r.Amount.IsPositive() {
		verr.Add("amount", "must be greater than zero")
	}
	if !isCurrencyCode(r.Currency) {
		verr.Add("currency", "must be a 3-letter code")
	}
	required("plan_id", r.PlanID)
	required("plan_name", r.PlanName)

	var bp model.BillingPeriod
	start, okStart := parseBillingTime(r.BillingPeriod.Start)
	end, okEnd := parseBillingTime(r.BillingPeriod.End)
	if !okStart {
		verr.Add("billing_period.start", "must be an RFC 3339 timestamp")
	}
	if !okEnd {
		verr.Add("billing_period.end", "must be an RFC 3339 timestamp")
	}
	if okStart && okEnd {
		if end.Before(start) {
			verr.Add("billing_period.end", "must not be before start")
		}
		bp = model.BillingPeriod{Start: start, End: end}
	}

	required("customer.user_id", r.Customer.UserID)
	required("customer.name", r.Customer.Name)
	if !isEmail(r.Customer.Email) {
		verr.Add("customer.email", "must be a valid email address")
	}

	absURL("redirect_urls.success", r.RedirectURLs.Success)
	absURL("redirect_urls.failure", r.RedirectURLs.Failure)
	absURL("redirect_urls.cancel", r.RedirectURLs.Cancel)
	absURL("webhook_url", r.WebhookURL)

	if !verr.Empty() {
		return model.BillingPeriod{}, verr
	}
	return bp, nil
}
