package adapter

import (
	"context"
	"time"
)

// AccessLinkMessage is the e-mail that carries an access link to a customer.
type AccessLinkMessage struct {
	To          string
	LoginURL    string
	CompanyName string
	ExpiresAt   time.Time
}

// Mailer delivers transactional e-mail.
type Mailer interface {
	SendAccessLink(ctx context.Context, msg AccessLinkMessage) error
}
