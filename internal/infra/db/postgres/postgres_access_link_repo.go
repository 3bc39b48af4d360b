package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"invoice-portal/internal/domain"
	"invoice-portal/internal/domain/model"
	"invoice-portal/internal/domain/ports/repository"
)

var _ repository.AccessLinkRepository = (*PostgresAccessLinkRepo)(nil)

type PostgresAccessLinkRepo struct {
	pool *pgxpool.Pool
}

func NewAccessLinkRepo(pool *pgxpool.Pool) *PostgresAccessLinkRepo {
	return &PostgresAccessLinkRepo{pool: pool}
}

func (r *PostgresAccessLinkRepo) Save(ctx context.Context, tx repository.Tx, l *model.AccessLink) error {
	const sql = `
INSERT INTO private_links (link, email, user_id, stripe_account_id, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id;
`
	row, err := pickRow(ctx, r.pool, tx, sql, l.Token, l.Email, l.UserID, l.StripeAccountID, l.ExpiresAt, l.CreatedAt)
	if err != nil {
		return err
	}
	if err := row.Scan(&l.ID); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("save access link: %w", err)
	}
	return nil
}

func (r *PostgresAccessLinkRepo) FindByToken(ctx context.Context, tx repository.Tx, token string) (*model.AccessLink, error) {
	const sql = `
SELECT id, link, email, user_id, stripe_account_id, expires_at, created_at
  FROM private_links
 WHERE link = $1;
`
	row, err := pickRow(ctx, r.pool, tx, sql, token)
	if err != nil {
		return nil, err
	}
	var l model.AccessLink
	if err := row.Scan(&l.ID, &l.Token, &l.Email, &l.UserID, &l.StripeAccountID, &l.ExpiresAt, &l.CreatedAt); err != nil {
		return nil, scanErr(err)
	}
	return &l, nil
}

func (r *PostgresAccessLinkRepo) DeleteExpired(ctx context.Context, tx repository.Tx, cutoff time.Time) (int, error) {
	const sql = `DELETE FROM private_links WHERE expires_at <= $1;`
	tag, err := execSQL(ctx, r.pool, tx, sql, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired links: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
