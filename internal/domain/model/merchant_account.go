package model

import (
	"strings"
	"time"

	"invoice-portal/internal/domain"
)

// MerchantAccount is one payment-provider account linked by a platform user.
// The API credential is only ever held as ciphertext.
type MerchantAccount struct {
	ID                    int64
	UserID                string  // owning platform user
	StripeAccountID       string  // provider-assigned identifier
	EncryptedStripeAPIKey *string // nil when the credential was removed
	DisplayName           *string // cached provider metadata, nil until fetched
	IconURL               *string
	CreatedAt             time.Time
}

// NewMerchantAccount validates and constructs an account record.
func NewMerchantAccount(userID, stripeAccountID, encryptedKey string) (*MerchantAccount, error) {
	userID = strings.TrimSpace(userID)
	stripeAccountID = strings.TrimSpace(stripeAccountID)
	if userID == "" || stripeAccountID == "" || encryptedKey == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &MerchantAccount{
		UserID:                userID,
		StripeAccountID:       stripeAccountID,
		EncryptedStripeAPIKey: &encryptedKey,
		CreatedAt:             time.Now(),
	}, nil
}

// HasCredential reports whether the account can be queried at the provider.
func (a *MerchantAccount) HasCredential() bool {
	return a != nil && a.EncryptedStripeAPIKey != nil && *a.EncryptedStripeAPIKey != ""
}

// NeedsMetadata is true until display metadata has been cached once.
func (a *MerchantAccount) NeedsMetadata() bool {
	return a.DisplayName == nil
}

// SetMetadata stores display metadata fetched from the provider.
func (a *MerchantAccount) SetMetadata(name, icon string) {
	a.DisplayName = &name
	if icon == "" {
		a.IconURL = nil
		return
	}
	a.IconURL = &icon
}
