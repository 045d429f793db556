package email

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"hosted-checkout/internal/domain/ports/adapter"
)

var _ adapter.Mailer = (*LogMailer)(nil)

// LogMailer simulates delivery when no email provider is configured.
type LogMailer struct {
	seq atomic.Int64
	log zerolog.Logger
}

func NewLogMailer(logger *zerolog.Logger) *LogMailer {
	return &LogMailer{log: logger.With().Str("component", "log_mailer").Logger()}
}

func (m *LogMailer) Send(ctx context.Context, e adapter.Email) (string, error) {
	id := fmt.Sprintf("simulated-%d", m.seq.Add(1))
	names := make([]string, 0, len(e.Attachments))
	for _, a := range e.Attachments {
		names = append(names, a.Filename)
	}
	m.log.Info().
		Str("email_id", id).
		Str("subject", e.Subject).
		Strs("attachments", names).
		Msg("email delivery simulated (no provider configured)")
	return id, nil
}
