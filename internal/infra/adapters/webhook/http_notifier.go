// File: internal/infra/adapters/webhook/http_notifier.go
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"hosted-checkout/internal/domain/model"
	"hosted-checkout/internal/domain/ports/adapter"
	"hosted-checkout/internal/infra/metrics"
	"hosted-checkout/internal/infra/security"
)

var _ adapter.WebhookNotifier = (*HTTPNotifier)(nil)

const (
	HeaderSignature = "X-Checkout-Signature"
	HeaderEvent     = "X-Checkout-Event"
	HeaderDelivery  = "X-Checkout-Delivery"
)

// HTTPNotifier delivers signed webhook payloads with a single POST.
// There are no retries: delivery is at most once.
type HTTPNotifier struct {
	client *http.Client
	signer *security.Signer
	log    zerolog.Logger
}

func NewHTTPNotifier(signer *security.Signer, timeout time.Duration, logger *zerolog.Logger) *HTTPNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPNotifier{
		client: &http.Client{Timeout: timeout},
		signer: signer,
		log:    logger.With().Str("component", "webhook_notifier").Logger(),
	}
}

// Send signs payload and POSTs it to url. The payload's ID and Signature are
// filled in here. It returns true only for a 2xx response.
func (n *HTTPNotifier) Send(ctx context.Context, url string, payload *model.WebhookPayload) bool {
	start := time.Now()
	event := string(payload.Event)
	log := n.log.With().Str("event", event).Str("url", url).Logger()

	if url == "" {
		log.Warn().Msg("no webhook url configured; skipping delivery")
		metrics.ObserveWebhook(event, "error", 0)
		return false
	}

	body, err := n.Sign(payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to serialize webhook payload")
		metrics.ObserveWebhook(event, "error", time.Since(start).Seconds())
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Error().Err(err).Msg("failed to build webhook request")
		metrics.ObserveWebhook(event, "error", time.Since(start).Seconds())
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "hosted-checkout-webhooks/1.0")
	req.Header.Set(HeaderSignature, n.signer.Sign(body))
	req.Header.Set(HeaderEvent, event)
	req.Header.Set(HeaderDelivery, payload.ID)

	resp, err := n.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("delivery_id", payload.ID).Msg("webhook delivery failed")
		metrics.ObserveWebhook(event, "error", time.Since(start).Seconds())
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn().Int("status", resp.StatusCode).Str("delivery_id", payload.ID).Msg("webhook rejected by merchant")
		metrics.ObserveWebhook(event, "rejected", time.Since(start).Seconds())
		return false
	}

	log.Info().Int("status", resp.StatusCode).Str("delivery_id", payload.ID).Dur("took", time.Since(start)).Msg("webhook delivered")
	metrics.ObserveWebhook(event, "delivered", time.Since(start).Seconds())
	return true
}

// Sign assigns a delivery id when missing, sets payload.Signature to the HMAC
// of the payload serialized without its signature, and returns the final body.
func (n *HTTPNotifier) Sign(payload *model.WebhookPayload) ([]byte, error) {
	if payload.ID == "" {
		payload.ID = "evt_" + ulid.Make().String()
	}
	payload.Signature = ""
	unsigned, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	payload.Signature = n.signer.Sign(unsigned)
	return json.Marshal(payload)
}
