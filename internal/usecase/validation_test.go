//go:build !integration

package usecase

import "testing"

func TestIsEmail(t *testing.T) {
	for in, want := range map[string]bool{
		"a@b.co":            true,
		"payer@example.com": true,
		"Pat <a@b.co>":      false,
		"no-at-sign":        false,
		"":                  false,
	} {
		if got := isEmail(in); got != want {
			t.Errorf("isEmail(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestIsAbsoluteURL(t *testing.T) {
	for in, want := range map[string]bool{
		"https://m.example.com/x": true,
		"http://localhost:3000":   true,
		"/relative":               false,
		"mailto:a@b.co":           false,
		"https://":                false,
	} {
		if got := isAbsoluteURL(in); got != want {
			t.Errorf("isAbsoluteURL(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseBillingTime(t *testing.T) {
	if _, ok := parseBillingTime("2026-03-01T10:00:00+05:30"); !ok {
		t.Error("expected RFC 3339 with offset to parse")
	}
	if ts, ok := parseBillingTime("2026-03-01"); !ok || ts.Day() != 1 {
		t.Error("expected a date-only value to parse")
	}
	if _, ok := parseBillingTime("March 1st"); ok {
		t.Error("expected free text to be rejected")
	}
}

func TestIsCurrencyCode(t *testing.T) {
	if !isCurrencyCode("inr") || isCurrencyCode("US") || isCurrencyCode("U$D") {
		t.Error("unexpected currency classification")
	}
}
