package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Merchants send and receive amounts as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

type CheckoutStatus string

const (
	CheckoutStatusPending CheckoutStatus = "pending" // created, awaiting a payment attempt or cancel
	CheckoutStatusSuccess CheckoutStatus = "success" // paid; payment + invoice attached
	CheckoutStatusFailed  CheckoutStatus = "failed"  // declined or cancelled by the payer
)

// Terminal reports whether no further transition is permitted.
func (s CheckoutStatus) Terminal() bool {
	return s == CheckoutStatusSuccess || s == CheckoutStatusFailed
}

// DefaultSessionTTL is the lifetime of a checkout session.
const DefaultSessionTTL = 15 * time.Minute

type BillingPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type Address struct {
	Line1      string `json:"line1"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type Customer struct {
	UserID  string   `json:"user_id"`
	Email   string   `json:"email"`
	Name    string   `json:"name"`
	Phone   string   `json:"phone,omitempty"`
	Address *Address `json:"address,omitempty"`
}

type RedirectURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Cancel  string `json:"cancel"`
}

type PaymentMethod struct {
	Type        string `json:"type"` // card | upi | wallet | netbanking | app
	CardBrand   string `json:"card_brand"`
	Last4       string `json:"last4"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
}

// PaymentRecord is attached to a session only on the pending -> success transition.
type PaymentRecord struct {
	TransactionID string        `json:"transaction_id"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	CompletedAt   time.Time     `json:"completed_at"`
}

// InvoiceRecord holds the reference metadata of an issued invoice, never the bytes.
type InvoiceRecord struct {
	InvoiceID     string    `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	InvoiceURL    string    `json:"invoice_url"`
	IssuedAt      time.Time `json:"issued_at"`
}

// Failure explains why a session ended in the failed state.
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const FailureUserCancelled = "user_cancelled"

// CheckoutSession is a time-bounded payable transaction between merchant and payer.
// CheckoutID is a bearer token: possessing it grants read/pay/cancel rights.
type CheckoutSession struct {
	CheckoutID    string          `json:"checkout_id"`
	OrderID       string          `json:"order_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PlanID        string          `json:"plan_id"`
	PlanName      string          `json:"plan_name"`
	BillingPeriod BillingPeriod   `json:"billing_period"`
	Customer      Customer        `json:"customer"`
	RedirectURLs  RedirectURLs    `json:"redirect_urls"`
	WebhookURL    string          `json:"webhook_url"`
	Metadata      *Metadata       `json:"metadata,omitempty"`
	Status        CheckoutStatus  `json:"status"`
	Payment       *PaymentRecord  `json:"payment,omitempty"`
	Invoice       *InvoiceRecord  `json:"invoice,omitempty"`
	Failure       *Failure        `json:"failure,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	ExpiresAt     time.Time       `json:"expires_at"`
}

// ExpiredAt reports whether the session is unusable at now. Expiry is a pure
// time comparison and does not depend on Status.
func (s *CheckoutSession) ExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Clone returns a deep copy so stores never hand out shared pointers.
func (s *CheckoutSession) Clone() *CheckoutSession {
	if s == nil {
		return nil
	}
	cp := *s
	if s.Customer.Address != nil {
		a := *s.Customer.Address
		cp.Customer.Address = &a
	}
	if s.Metadata != nil {
		cp.Metadata = s.Metadata.Clone()
	}
	if s.Payment != nil {
		p := *s.Payment
		cp.Payment = &p
	}
	if s.Invoice != nil {
		inv := *s.Invoice
		cp.Invoice = &inv
	}
	if s.Failure != nil {
		f := *s.Failure
		cp.Failure = &f
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

// SessionPatch is a partial update. Nil fields are left untouched.
type SessionPatch struct {
	Status      *CheckoutStatus
	Payment     *PaymentRecord
	Invoice     *InvoiceRecord
	Failure     *Failure
	CompletedAt *time.Time
}

// Apply writes the non-nil fields of p onto s.
func (p SessionPatch) Apply(s *CheckoutSession) {
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.Payment != nil {
		v := *p.Payment
		s.Payment = &v
	}
	if p.Invoice != nil {
		v := *p.Invoice
		s.Invoice = &v
	}
	if p.Failure != nil {
		v := *p.Failure
		s.Failure = &v
	}
	if p.CompletedAt != nil {
		v := *p.CompletedAt
		s.CompletedAt = &v
	}
}

// SuccessPatch moves a session to success with payment and invoice attached together.
func SuccessPatch(payment PaymentRecord, invoice InvoiceRecord) SessionPatch {
	st := CheckoutStatusSuccess
	at := payment.CompletedAt
	return SessionPatch{Status: &st, Payment: &payment, Invoice: &invoice, CompletedAt: &at}
}

// FailurePatch moves a session to failed. Payment and invoice stay absent.
func FailurePatch(f Failure, at time.Time) SessionPatch {
	st := CheckoutStatusFailed
	return SessionPatch{Status: &st, Failure: &f, CompletedAt: &at}
}
