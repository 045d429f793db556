// File: internal/infra/adapters/email/resend_mailer.go
package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"hosted-checkout/internal/domain/ports/adapter"
)

var _ adapter.Mailer = (*ResendMailer)(nil)

// ResendMailer sends email through the Resend HTTP API.
type ResendMailer struct {
	apiKey   string
	from     string
	endpoint string
	client   *http.Client
	log      zerolog.Logger
}

func NewResendMailer(apiKey, from, endpoint string, logger *zerolog.Logger) (*ResendMailer, error) {
	if apiKey == "" {
		return nil, errors.New("resend api key empty")
	}
	if endpoint == "" {
		endpoint = "https://api.resend.com/emails"
	}
	return &ResendMailer{
		apiKey:   apiKey,
		from:     from,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
		log:      logger.With().Str("component", "resend_mailer").Logger(),
	}, nil
}

type resendAttachment struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type resendRequest struct {
	From        string             `json:"from"`
	To          []string           `json:"to"`
	Subject     string             `json:"subject"`
	HTML        string             `json:"html"`
	Attachments []resendAttachment `json:"attachments,omitempty"`
}

func (m *ResendMailer) Send(ctx context.Context, e adapter.Email) (string, error) {
	payload := resendRequest{
		From:    m.from,
		To:      []string{e.To},
		Subject: e.Subject,
		HTML:    e.HTML,
	}
	for _, a := range e.Attachments {
		payload.Attachments = append(payload.Attachments, resendAttachment{
			Filename: a.Filename,
			Content:  base64.StdEncoding.EncodeToString(a.Content),
		})
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("resend: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("resend: decode response: %w", err)
	}
	m.log.Debug().Str("email_id", out.ID).Msg("email accepted")
	return out.ID, nil
}
