package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strconv"

	"github.com/rs/zerolog"

	"invoice-portal/internal/config"
	"invoice-portal/internal/domain"
	"invoice-portal/internal/domain/ports/adapter"
	"invoice-portal/internal/infra/logging"
	"invoice-portal/internal/infra/metrics"
)

var _ adapter.Mailer = (*SMTPMailer)(nil)

const accessLinkSubject = "Access Your Invoices"

var accessLinkBody = template.Must(template.New("access_link").Parse(`<p>Hello,</p>
<p>You requested access to your invoices from {{.CompanyName}}.</p>
<p><a href="{{.LoginURL}}">View your invoices</a></p>
<p>{{if .ExpiresAt.IsZero}}This link expires soon.{{else}}This link expires on {{.ExpiresAt.UTC.Format "January 2, 2006 15:04 MST"}}.{{end}} If you did not request it, you can ignore this e-mail.</p>
`))

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer delivers access-link e-mails through a plain SMTP relay.
type SMTPMailer struct {
	addr    string
	auth    smtp.Auth
	sender  string
	company string
	send    sendFunc
	log     *zerolog.Logger
}

func NewSMTPMailer(cfg config.MailConfig, logger *zerolog.Logger) *SMTPMailer {
	l := logger.With().Str("component", "SMTPMailer").Logger()
	sender := cfg.Sender
	if sender == "" {
		sender = "no-reply@localhost"
		l.Warn().Str("sender", sender).Msg("mail.sender not set, using default")
	}
	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPMailer{
		addr:    cfg.Host + ":" + strconv.Itoa(cfg.Port),
		auth:    auth,
		sender:  sender,
		company: cfg.CompanyName,
		send:    smtp.SendMail,
		log:     &l,
	}
}

func (m *SMTPMailer) SendAccessLink(ctx context.Context, msg adapter.AccessLinkMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.CompanyName == "" {
		msg.CompanyName = m.company
	}
	raw, err := m.compose(msg)
	if err != nil {
		metrics.IncMailDelivery("failed")
		return fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}
	if err := m.send(m.addr, m.auth, m.sender, []string{msg.To}, raw); err != nil {
		metrics.IncMailDelivery("failed")
		logging.With(ctx, m.log).Error().Err(err).Str("to", logging.Redact(msg.To, false)).Msg("smtp send failed")
		return fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}
	metrics.IncMailDelivery("sent")
	logging.With(ctx, m.log).Info().Str("to", logging.Redact(msg.To, false)).Str("relay", m.addr).Msg("access link sent")
	return nil
}

func (m *SMTPMailer) compose(msg adapter.AccessLinkMessage) ([]byte, error) {
	var body bytes.Buffer
	if err := accessLinkBody.Execute(&body, msg); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	fmt.Fprintf(&out, "From: %s\r\nTo: %s\r\nSubject: %s\r\n", m.sender, msg.To, accessLinkSubject)
	out.WriteString("MIME-Version: 1.0\r\n")
	out.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	out.Write(body.Bytes())
	return out.Bytes(), nil
}
