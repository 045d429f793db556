// Package idgen produces prefixed opaque identifiers.
//
// Checkout ids are bearer tokens, so suffixes come from crypto/rand and are
// drawn uniformly from a 62-character alphabet (about 5.95 bits per char).
package idgen

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"
)

const (
	alphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	upperAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // no 0/O, 1/I

	PrefixCheckout    = "cs"
	PrefixTransaction = "txn"
	PrefixInvoice     = "inv"

	CheckoutIDLen    = 24
	TransactionIDLen = 16
	InvoiceIDLen     = 12
	invoiceNumberLen = 8
)

// Generator creates ids from a random source. The zero value is not usable;
// use New or NewWithReader.
type Generator struct {
	rnd io.Reader
}

func New() *Generator { return &Generator{rnd: rand.Reader} }

// NewWithReader is used by tests to inject a deterministic source.
func NewWithReader(r io.Reader) *Generator { return &Generator{rnd: r} }

// ID returns prefix + "_" + n random characters.
func (g *Generator) ID(prefix string, n int) (string, error) {
	s, err := g.random(alphabet, n)
	if err != nil {
		return "", err
	}
	return prefix + "_" + s, nil
}

func (g *Generator) CheckoutID() (string, error) { return g.ID(PrefixCheckout, CheckoutIDLen) }

func (g *Generator) TransactionID() (string, error) {
	return g.ID(PrefixTransaction, TransactionIDLen)
}

func (g *Generator) InvoiceID() (string, error) { return g.ID(PrefixInvoice, InvoiceIDLen) }

// InvoiceNumber returns a human-facing number such as INV-2026-K7M2QX9A.
func (g *Generator) InvoiceNumber(at time.Time) (string, error) {
	s, err := g.random(upperAlphabet, invoiceNumberLen)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%d-%s", at.Year(), s), nil
}

// random draws n characters from set with rejection sampling so every
// character is equally likely.
func (g *Generator) random(set string, n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("idgen: length must be positive, got %d", n)
	}
	limit := 256 - (256 % len(set))
	out := make([]byte, 0, n)
	buf := make([]byte, n*2)
	for len(out) < n {
		if _, err := io.ReadFull(g.rnd, buf); err != nil {
			return "", fmt.Errorf("idgen: read random: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, set[int(b)%len(set)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
