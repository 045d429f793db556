package email

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"hosted-checkout/internal/domain/model"
	"hosted-checkout/internal/domain/ports/adapter"
)

var _ adapter.InvoiceMailer = (*InvoiceSender)(nil)

// InvoiceSender turns paid sessions into receipts and hands them to a Mailer.
type InvoiceSender struct {
	mailer adapter.Mailer
}

func NewInvoiceSender(m adapter.Mailer) *InvoiceSender {
	return &InvoiceSender{mailer: m}
}

func (s *InvoiceSender) SendInvoice(ctx context.Context, sess *model.CheckoutSession, pdf []byte) (string, error) {
	msg, err := InvoiceEmail(sess, pdf)
	if err != nil {
		return "", err
	}
	return s.mailer.Send(ctx, msg)
}

var invoiceTmpl = template.Must(template.New("invoice").Parse(`<!doctype html>
<html><body style="font-family:Helvetica,Arial,sans-serif;color:#222">
<h2>Payment received</h2>
<p>Hi {{.Name}},</p>
<p>Thanks for your payment of <strong>{{.Amount}}</strong> for <strong>{{.Plan}}</strong>.</p>
<table cellpadding="4">
<tr><td>Invoice</td><td>{{.Number}}</td></tr>
<tr><td>Transaction</td><td>{{.Transaction}}</td></tr>
<tr><td>Order</td><td>{{.Order}}</td></tr>
</table>
<p>Your invoice is attached. You can also <a href="{{.URL}}">download it here</a>.</p>
</body></html>`))

// InvoiceEmail builds the payer receipt for a paid session with the rendered
// invoice attached as Invoice-<number>.pdf.
func InvoiceEmail(s *model.CheckoutSession, pdf []byte) (adapter.Email, error) {
	if s.Payment == nil || s.Invoice == nil {
		return adapter.Email{}, fmt.Errorf("session %s has no invoice", s.CheckoutID)
	}
	var b strings.Builder
	err := invoiceTmpl.Execute(&b, map[string]string{
		"Name":        s.Customer.Name,
		"Amount":      s.Currency + " " + s.Amount.StringFixed(2),
		"Plan":        s.PlanName,
		"Number":      s.Invoice.InvoiceNumber,
		"Transaction": s.Payment.TransactionID,
		"Order":       s.OrderID,
		"URL":         s.Invoice.InvoiceURL,
	})
	if err != nil {
		return adapter.Email{}, err
	}
	return adapter.Email{
		To:          s.Customer.Email,
		Subject:     fmt.Sprintf("Payment Successful - %s", s.PlanName),
		HTML:        b.String(),
		Attachments: []adapter.EmailAttachment{{Filename: "Invoice-" + s.Invoice.InvoiceNumber + ".pdf", Content: pdf}},
	}, nil
}
