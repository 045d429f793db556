package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type WebhookEvent string

const (
	EventPaymentSuccess WebhookEvent = "payment.success"
	EventPaymentFailed  WebhookEvent = "payment.failed"
	// Reserved. Cancellation is reported as payment.failed with error.code=user_cancelled.
	EventPaymentCancelled WebhookEvent = "payment.cancelled"
)

// WebhookPayload is the transient notification body sent to the merchant.
// Exactly one of Payment (success) or Data (failure) is set.
type WebhookPayload struct {
	Event     WebhookEvent        `json:"event"`
	ID        string              `json:"id,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
	Payment   *WebhookPayment     `json:"payment,omitempty"`
	Data      *WebhookFailureData `json:"data,omitempty"`
	Signature string              `json:"signature,omitempty"`
}

type WebhookCustomer struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

type WebhookPlan struct {
	PlanID        string        `json:"plan_id"`
	PlanName      string        `json:"plan_name"`
	BillingPeriod BillingPeriod `json:"billing_period"`
}

type WebhookPayment struct {
	TransactionID string          `json:"transaction_id"`
	CheckoutID    string          `json:"checkout_id"`
	OrderID       string          `json:"order_id"`
	Status        CheckoutStatus  `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	CreatedAt     time.Time       `json:"created_at"`
	CompletedAt   time.Time       `json:"completed_at"`
	Customer      WebhookCustomer `json:"customer"`
	Plan          WebhookPlan     `json:"plan"`
	Invoice       InvoiceRecord   `json:"invoice"`
	Metadata      *Metadata       `json:"metadata,omitempty"`
}

type WebhookFailureData struct {
	CheckoutID string          `json:"checkout_id"`
	OrderID    string          `json:"order_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	UserID     string          `json:"user_id"`
	PlanID     string          `json:"plan_id"`
	Error      Failure         `json:"error"`
	Metadata   *Metadata       `json:"metadata,omitempty"`
}

// NewSuccessPayload builds the payment.success notification for a paid session.
func NewSuccessPayload(s *CheckoutSession, at time.Time) *WebhookPayload {
	p := &WebhookPayload{Event: EventPaymentSuccess, Timestamp: at}
	wp := &WebhookPayment{
		CheckoutID: s.CheckoutID,
		OrderID:    s.OrderID,
		Status:     CheckoutStatusSuccess,
		Amount:     s.Amount,
		Currency:   s.Currency,
		CreatedAt:  s.CreatedAt,
		Customer: WebhookCustomer{
			UserID: s.Customer.UserID,
			Email:  s.Customer.Email,
			Name:   s.Customer.Name,
		},
		Plan: WebhookPlan{
			PlanID:        s.PlanID,
			PlanName:      s.PlanName,
			BillingPeriod: s.BillingPeriod,
		},
		Metadata: s.Metadata.Clone(),
	}
	if s.Payment != nil {
		wp.TransactionID = s.Payment.TransactionID
		wp.PaymentMethod = s.Payment.PaymentMethod
		wp.CompletedAt = s.Payment.CompletedAt
	}
	if s.Invoice != nil {
		wp.Invoice = *s.Invoice
	}
	p.Payment = wp
	return p
}

// NewFailurePayload builds the payment.failed notification carrying reason f.
func NewFailurePayload(s *CheckoutSession, f Failure, at time.Time) *WebhookPayload {
	return &WebhookPayload{
		Event:     EventPaymentFailed,
		Timestamp: at,
		Data: &WebhookFailureData{
			CheckoutID: s.CheckoutID,
			OrderID:    s.OrderID,
			Amount:     s.Amount,
			Currency:   s.Currency,
			UserID:     s.Customer.UserID,
			PlanID:     s.PlanID,
			Error:      f,
			Metadata:   s.Metadata.Clone(),
		},
	}
}
