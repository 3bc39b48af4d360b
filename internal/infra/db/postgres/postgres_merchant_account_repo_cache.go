package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"invoice-portal/internal/domain/model"
	"invoice-portal/internal/domain/ports/repository"
	"invoice-portal/internal/infra/metrics"
	red "invoice-portal/internal/infra/redis"
)

var _ repository.MerchantAccountRepository = (*merchantAccountRepoCacheDecorator)(nil)

const merchantAccountCache = "merchant_accounts"

// merchantAccountRepoCacheDecorator caches ListByUser; every write drops the user's entry afterwards.
type merchantAccountRepoCacheDecorator struct {
	inner repository.MerchantAccountRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewMerchantAccountRepoCacheDecorator(inner repository.MerchantAccountRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.MerchantAccountRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	l := logger.With().Str("component", "MerchantAccountCache").Logger()
	return &merchantAccountRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: &l}
}

func merchantAccountsKey(userID string) string {
	return fmt.Sprintf("merchant_accounts:user:%s", userID)
}

func (d *merchantAccountRepoCacheDecorator) invalidate(ctx context.Context, userID string) {
	if err := d.cache.Del(ctx, merchantAccountsKey(userID)); err != nil {
		d.log.Warn().Err(err).Str("user_id", userID).Msg("cache invalidation failed")
	}
}

func (d *merchantAccountRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, acc *model.MerchantAccount) error {
	err := d.inner.Save(ctx, tx, acc)
	d.invalidate(ctx, acc.UserID)
	return err
}

func (d *merchantAccountRepoCacheDecorator) FindByUserAndAccount(ctx context.Context, tx repository.Tx, userID, stripeAccountID string) (*model.MerchantAccount, error) {
	return d.inner.FindByUserAndAccount(ctx, tx, userID, stripeAccountID)
}

// ListByUser bypasses the cache inside a transaction so callers see their own writes.
func (d *merchantAccountRepoCacheDecorator) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.MerchantAccount, error) {
	if tx != nil {
		return d.inner.ListByUser(ctx, tx, userID)
	}
	key := merchantAccountsKey(userID)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var accounts []*model.MerchantAccount
		if json.Unmarshal([]byte(val), &accounts) == nil {
			metrics.IncCacheRequest(merchantAccountCache, "hit")
			return accounts, nil
		}
	} else if !errors.Is(err, red.Nil) {
		metrics.IncCacheRequest(merchantAccountCache, "error")
		d.log.Warn().Err(err).Msg("cache read failed")
	}

	metrics.IncCacheRequest(merchantAccountCache, "miss")
	accounts, err := d.inner.ListByUser(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(accounts); err == nil {
		if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
			d.log.Warn().Err(err).Msg("cache write failed")
		}
	}
	return accounts, nil
}

func (d *merchantAccountRepoCacheDecorator) UpdateDisplayMetadata(ctx context.Context, tx repository.Tx, userID, stripeAccountID string, name string, icon *string) error {
	err := d.inner.UpdateDisplayMetadata(ctx, tx, userID, stripeAccountID, name, icon)
	d.invalidate(ctx, userID)
	return err
}

func (d *merchantAccountRepoCacheDecorator) Delete(ctx context.Context, tx repository.Tx, userID, stripeAccountID string) error {
	err := d.inner.Delete(ctx, tx, userID, stripeAccountID)
	d.invalidate(ctx, userID)
	return err
}
