package repository

import (
	"context"

	"invoice-portal/internal/domain/model"
)

// MerchantAccountRepository is the port for the stripe_accounts table.
type MerchantAccountRepository interface {
	// Save inserts a new account. Duplicate (user, provider account) pairs return domain.ErrAlreadyExists.
	Save(ctx context.Context, tx Tx, acc *model.MerchantAccount) error
	FindByUserAndAccount(ctx context.Context, tx Tx, userID, stripeAccountID string) (*model.MerchantAccount, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.MerchantAccount, error)
	// UpdateDisplayMetadata is the only mutation allowed on an existing account.
	UpdateDisplayMetadata(ctx context.Context, tx Tx, userID, stripeAccountID string, name string, icon *string) error
	Delete(ctx context.Context, tx Tx, userID, stripeAccountID string) error
}
