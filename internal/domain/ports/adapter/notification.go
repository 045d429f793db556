package adapter

import (
	"context"

	"hosted-checkout/internal/domain/model"
)

// WebhookNotifier signs and POSTs a payload to a merchant URL. It reports
// delivery success and never returns an error: failures are logged inside.
type WebhookNotifier interface {
	Send(ctx context.Context, url string, payload *model.WebhookPayload) bool
}

// InvoiceRenderer produces the downloadable invoice document for a paid session.
type InvoiceRenderer interface {
	Render(ctx context.Context, s *model.CheckoutSession) ([]byte, error)
	ContentType() string
	// Filename is the download name of the document for s.
	Filename(s *model.CheckoutSession) string
}

type EmailAttachment struct {
	Filename string
	Content  []byte
}

type Email struct {
	To          string
	Subject     string
	HTML        string
	Attachments []EmailAttachment
}

// Mailer delivers transactional email. Delivery is best-effort.
type Mailer interface {
	Send(ctx context.Context, e Email) (id string, err error)
}

// InvoiceMailer sends the payer receipt for a paid session with the rendered
// invoice attached.
type InvoiceMailer interface {
	SendInvoice(ctx context.Context, s *model.CheckoutSession, pdf []byte) (id string, err error)
}

// TaskRunner runs work detached from the caller. Submit must not block on
// the work itself; it returns an error when the task could not be queued.
type TaskRunner interface {
	Submit(task func(ctx context.Context) error) error
}
