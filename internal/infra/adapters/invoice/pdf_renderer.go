// File: internal/infra/adapters/invoice/pdf_renderer.go
package invoice

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"hosted-checkout/internal/config"
	"hosted-checkout/internal/domain"
	"hosted-checkout/internal/domain/model"
	"hosted-checkout/internal/domain/ports/adapter"
)

var _ adapter.InvoiceRenderer = (*PDFRenderer)(nil)

const (
	pageMargin = 20.0
	lineH      = 6.0
	dateLayout = "January 2, 2006"
)

// PDFRenderer draws the fixed A4 invoice layout for a paid session.
type PDFRenderer struct {
	issuer  string
	tagline string
	support string
	footer  string
}

func NewPDFRenderer(cfg config.InvoiceConfig) *PDFRenderer {
	return &PDFRenderer{
		issuer:  cfg.IssuerName,
		tagline: cfg.Tagline,
		support: cfg.Support,
		footer:  cfg.Footer,
	}
}

func (r *PDFRenderer) ContentType() string { return "application/pdf" }

// Render returns the PDF bytes. The session must carry both payment and invoice.
func (r *PDFRenderer) Render(ctx context.Context, s *model.CheckoutSession) ([]byte, error) {
	if s == nil || s.Payment == nil || s.Invoice == nil {
		return nil, fmt.Errorf("render invoice: %w", domain.ErrInvalidArgument)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle("Invoice "+s.Invoice.InvoiceNumber, true)
	pdf.SetCreator(r.issuer, true)
	pdf.SetCreationDate(s.Invoice.IssuedAt)
	pdf.SetModificationDate(s.Invoice.IssuedAt)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	width, _ := pdf.GetPageSize()
	content := width - 2*pageMargin

	// header
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(content/2, 10, tr(r.issuer), "", 0, "L", false, 0, "")
	pdf.CellFormat(content/2, 10, "INVOICE", "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(content/2, lineH, tr(r.tagline), "", 0, "L", false, 0, "")
	pdf.CellFormat(content/2, lineH, tr(s.Invoice.InvoiceNumber), "", 1, "R", false, 0, "")
	pdf.CellFormat(content/2, lineH, tr(r.support), "", 0, "L", false, 0, "")
	pdf.CellFormat(content/2, lineH, "Issued "+s.Invoice.IssuedAt.UTC().Format(dateLayout), "", 1, "R", false, 0, "")
	pdf.Ln(8)

	// bill to
	section(pdf, "BILL TO")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(content, lineH, tr(s.Customer.Name), "", 1, "L", false, 0, "")
	pdf.CellFormat(content, lineH, tr(s.Customer.Email), "", 1, "L", false, 0, "")
	for _, l := range addressLines(s.Customer.Address) {
		pdf.CellFormat(content, lineH, tr(l), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// payment details
	section(pdf, "PAYMENT DETAILS")
	pdf.SetFont("Helvetica", "", 10)
	kv(pdf, tr, "Transaction ID", s.Payment.TransactionID)
	kv(pdf, tr, "Payment method", describeMethod(s.Payment.PaymentMethod))
	kv(pdf, tr, "Paid on", s.Payment.CompletedAt.UTC().Format(dateLayout))
	kv(pdf, tr, "Order ID", s.OrderID)
	pdf.Ln(4)

	// line item
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(content*0.7, 8, "Description", "B", 0, "L", true, 0, "")
	pdf.CellFormat(content*0.3, 8, "Amount", "B", 1, "R", true, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	period := fmt.Sprintf("%s - %s",
		s.BillingPeriod.Start.UTC().Format(dateLayout), s.BillingPeriod.End.UTC().Format(dateLayout))
	pdf.CellFormat(content*0.7, 7, tr(s.PlanName), "", 0, "L", false, 0, "")
	pdf.CellFormat(content*0.3, 7, money(s), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(content*0.7, 5, tr(period), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// totals
	pdf.SetFont("Helvetica", "", 10)
	total(pdf, content, "Subtotal", money(s))
	total(pdf, content, "Tax (0%)", fmt.Sprintf("%s %s", s.Currency, "0.00"))
	pdf.SetFont("Helvetica", "B", 12)
	total(pdf, content, "Total", money(s))
	pdf.Ln(12)

	// footer
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(110, 110, 110)
	pdf.MultiCell(content, 5, tr(r.footer), "", "C", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", s.Invoice.InvoiceNumber, err)
	}
	return buf.Bytes(), nil
}

// Filename is the download name for the invoice of s.
func (r *PDFRenderer) Filename(s *model.CheckoutSession) string {
	return s.Invoice.InvoiceNumber + ".pdf"
}

func section(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(110, 110, 110)
	pdf.CellFormat(0, lineH, title, "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

func kv(pdf *fpdf.Fpdf, tr func(string) string, k, v string) {
	pdf.CellFormat(40, lineH, k, "", 0, "L", false, 0, "")
	pdf.CellFormat(0, lineH, tr(v), "", 1, "L", false, 0, "")
}

func total(pdf *fpdf.Fpdf, content float64, label, value string) {
	pdf.CellFormat(content*0.7, 7, label, "", 0, "R", false, 0, "")
	pdf.CellFormat(content*0.3, 7, value, "", 1, "R", false, 0, "")
}

func money(s *model.CheckoutSession) string {
	return s.Currency + " " + s.Amount.StringFixed(2)
}

func addressLines(a *model.Address) []string {
	if a == nil {
		return nil
	}
	var out []string
	if a.Line1 != "" {
		out = append(out, a.Line1)
	}
	city := strings.Join(nonEmpty(a.City, a.State, a.PostalCode), ", ")
	if city != "" {
		out = append(out, city)
	}
	if a.Country != "" {
		out = append(out, a.Country)
	}
	return out
}

func describeMethod(pm model.PaymentMethod) string {
	if pm.Type == "card" && pm.Last4 != "" {
		return fmt.Sprintf("%s ending in %s", strings.ToUpper(pm.CardBrand), pm.Last4)
	}
	return strings.ToUpper(pm.Type)
}

func nonEmpty(vals ...string) []string {
	out := vals[:0:0]
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
