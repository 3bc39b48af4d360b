package model

import (
	"net/mail"
	"strings"
	"time"

	"invoice-portal/internal/domain"
)

// DefaultLinkTTL is the lifetime of an access link when the issuer gives none.
const DefaultLinkTTL = 7 * 24 * time.Hour

type LinkOrigin string

const (
	LinkOriginMerchant    LinkOrigin = "merchant"     // issued from the merchant dashboard
	LinkOriginSelfService LinkOrigin = "self_service" // requested by the customer
)

// AccessLink is a bearer token granting time-limited access to one customer's invoices.
// Links are never mutated; expiry is the only way they stop working.
type AccessLink struct {
	ID              int64
	Token           string
	Email           string  // trimmed, case kept as typed; provider lookups are case-sensitive
	UserID          string  // issuing merchant
	StripeAccountID *string // nil scopes the link to all of the merchant's accounts
	ExpiresAt       time.Time
	CreatedAt       time.Time
}

// NewAccessLink validates the scope and builds a link expiring ttl after now.
func NewAccessLink(token, email, userID string, accountID *string, ttl time.Duration, now time.Time) (*AccessLink, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if token == "" || strings.TrimSpace(userID) == "" || ttl <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if accountID != nil && strings.TrimSpace(*accountID) == "" {
		accountID = nil
	}
	return &AccessLink{
		Token:           token,
		Email:           email,
		UserID:          userID,
		StripeAccountID: accountID,
		ExpiresAt:       now.Add(ttl),
		CreatedAt:       now,
	}, nil
}

// ValidAt reports whether the link grants access at t. A link is valid strictly before expires_at.
func (l *AccessLink) ValidAt(t time.Time) bool {
	return t.Before(l.ExpiresAt)
}

// Scoped reports whether the link is restricted to a single merchant account.
func (l *AccessLink) Scoped() bool {
	return l.StripeAccountID != nil
}

// NormalizeEmail trims an address and checks it parses as a bare address.
// Case is preserved: the payment provider matches customer emails case-sensitively.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", domain.ErrInvalidArgument
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.ErrInvalidArgument
	}
	return email, nil
}
