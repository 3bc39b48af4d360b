package repository

import (
	"context"
	"time"

	"invoice-portal/internal/domain/model"
)

// AccessLinkRepository is the port for the private_links table.
type AccessLinkRepository interface {
	Save(ctx context.Context, tx Tx, link *model.AccessLink) error
	// FindByToken returns the link regardless of expiry, or domain.ErrNotFound.
	FindByToken(ctx context.Context, tx Tx, token string) (*model.AccessLink, error)
	// DeleteExpired removes links whose expiry is at or before cutoff and returns how many went.
	DeleteExpired(ctx context.Context, tx Tx, cutoff time.Time) (int, error)
}
