//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"hosted-checkout/internal/config"
)

func TestWith_AddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := newWithWriter(config.LogConfig{Level: "info", Format: "json"}, false, &buf)

	ctx := WithCheckoutID(WithTraceID(context.Background(), "trace-1"), "cs_abc")
	With(ctx, base).Info().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected a JSON log line, got %q: %v", buf.String(), err)
	}
	if line["trace_id"] != "trace-1" || line["checkout_id"] != "cs_abc" {
		t.Errorf("missing context fields: %v", line)
	}
	if TraceID(ctx) != "trace-1" {
		t.Errorf("expected trace id round trip")
	}
}

func TestRedact(t *testing.T) {
	tests := []struct {
		in   string
		dev  bool
		want string
	}{
		{"payer@example.com", true, "payer@example.com"},
		{"short", false, "***"},
		{"payer@example.com", false, "paye...om"},
	}
	for _, tt := range tests {
		if got := Redact(tt.in, tt.dev); got != tt.want {
			t.Errorf("Redact(%q, %v) = %q, want %q", tt.in, tt.dev, got, tt.want)
		}
	}
}
