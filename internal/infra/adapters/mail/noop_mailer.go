package mail

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"invoice-portal/internal/domain/ports/adapter"
	"invoice-portal/internal/infra/logging"
	"invoice-portal/internal/infra/metrics"
)

var _ adapter.Mailer = (*NoopMailer)(nil)

// NoopMailer logs access links instead of sending them. Used when no SMTP host is configured.
type NoopMailer struct {
	log *zerolog.Logger
	dev bool

	mu   sync.Mutex
	sent []adapter.AccessLinkMessage
}

// NewNoopMailer builds the mailer. With dev set the full link is logged.
func NewNoopMailer(logger *zerolog.Logger, dev bool) *NoopMailer {
	l := logger.With().Str("component", "NoopMailer").Logger()
	return &NoopMailer{log: &l, dev: dev}
}

func (m *NoopMailer) SendAccessLink(ctx context.Context, msg adapter.AccessLinkMessage) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	metrics.IncMailDelivery("skipped")
	logging.With(ctx, m.log).Info().
		Str("to", logging.Redact(msg.To, m.dev)).
		Str("url", logging.Redact(msg.LoginURL, m.dev)).
		Msg("mail disabled, access link not sent")
	return nil
}

// Sent returns the messages seen so far.
func (m *NoopMailer) Sent() []adapter.AccessLinkMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]adapter.AccessLinkMessage(nil), m.sent...)
}
