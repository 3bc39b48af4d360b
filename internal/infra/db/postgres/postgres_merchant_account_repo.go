package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"invoice-portal/internal/domain"
	"invoice-portal/internal/domain/model"
	"invoice-portal/internal/domain/ports/repository"
)

var _ repository.MerchantAccountRepository = (*PostgresMerchantAccountRepo)(nil)

type PostgresMerchantAccountRepo struct {
	pool *pgxpool.Pool
}

func NewMerchantAccountRepo(pool *pgxpool.Pool) *PostgresMerchantAccountRepo {
	return &PostgresMerchantAccountRepo{pool: pool}
}

const merchantAccountColumns = `id, user_id, stripe_account_id, encrypted_stripe_api_key, display_name, icon_url, created_at`

func (r *PostgresMerchantAccountRepo) Save(ctx context.Context, tx repository.Tx, acc *model.MerchantAccount) error {
	const sql = `
INSERT INTO stripe_accounts (user_id, stripe_account_id, encrypted_stripe_api_key, display_name, icon_url, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id;
`
	row, err := pickRow(ctx, r.pool, tx, sql,
		acc.UserID, acc.StripeAccountID, acc.EncryptedStripeAPIKey, acc.DisplayName, acc.IconURL, acc.CreatedAt,
	)
	if err != nil {
		return err
	}
	if err := row.Scan(&acc.ID); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("save merchant account: %w", err)
	}
	return nil
}

func (r *PostgresMerchantAccountRepo) FindByUserAndAccount(ctx context.Context, tx repository.Tx, userID, stripeAccountID string) (*model.MerchantAccount, error) {
	sql := `SELECT ` + merchantAccountColumns + `
  FROM stripe_accounts
 WHERE user_id = $1 AND stripe_account_id = $2;`
	row, err := pickRow(ctx, r.pool, tx, sql, userID, stripeAccountID)
	if err != nil {
		return nil, err
	}
	acc, err := scanMerchantAccount(row)
	if err != nil {
		return nil, scanErr(err)
	}
	return acc, nil
}

// ListByUser returns the user's accounts oldest first.
func (r *PostgresMerchantAccountRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.MerchantAccount, error) {
	sql := `SELECT ` + merchantAccountColumns + `
  FROM stripe_accounts
 WHERE user_id = $1
 ORDER BY created_at, id;`
	rows, err := queryRows(ctx, r.pool, tx, sql, userID)
	if err != nil {
		return nil, fmt.Errorf("list merchant accounts: %w", err)
	}
	defer rows.Close()

	out := make([]*model.MerchantAccount, 0)
	for rows.Next() {
		acc, err := scanMerchantAccount(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list merchant accounts: %w", err)
	}
	return out, nil
}

func (r *PostgresMerchantAccountRepo) UpdateDisplayMetadata(ctx context.Context, tx repository.Tx, userID, stripeAccountID string, name string, icon *string) error {
	const sql = `
UPDATE stripe_accounts
   SET display_name = $3, icon_url = $4
 WHERE user_id = $1 AND stripe_account_id = $2;
`
	tag, err := execSQL(ctx, r.pool, tx, sql, userID, stripeAccountID, name, icon)
	if err != nil {
		return fmt.Errorf("update merchant account metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresMerchantAccountRepo) Delete(ctx context.Context, tx repository.Tx, userID, stripeAccountID string) error {
	const sql = `DELETE FROM stripe_accounts WHERE user_id = $1 AND stripe_account_id = $2;`
	tag, err := execSQL(ctx, r.pool, tx, sql, userID, stripeAccountID)
	if err != nil {
		return fmt.Errorf("delete merchant account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanMerchantAccount(row pgx.Row) (*model.MerchantAccount, error) {
	var a model.MerchantAccount
	if err := row.Scan(&a.ID, &a.UserID, &a.StripeAccountID, &a.EncryptedStripeAPIKey, &a.DisplayName, &a.IconURL, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
