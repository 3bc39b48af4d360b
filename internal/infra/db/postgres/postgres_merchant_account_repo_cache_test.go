//go:build !integration

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"invoice-portal/internal/domain/model"
	"invoice-portal/internal/domain/ports/repository"
	red "invoice-portal/internal/infra/redis"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func TestMerchantAccountRepoCacheDecorator(t *testing.T) {
	ctx := context.Background()
	name := "Acme"
	accounts := []*model.MerchantAccount{{ID: 1, UserID: "user-1", StripeAccountID: "acct_1", DisplayName: &name}}
	accountsJSON, _ := json.Marshal(accounts)

	t.Run("ListByUser should return from cache on hit", func(t *testing.T) {
		// --- Arrange ---
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) {
				if key != "merchant_accounts:user:user-1" {
					t.Errorf("unexpected cache key %q", key)
				}
				return string(accountsJSON), nil
			},
		}
		innerCalled := false
		inner := &mockInnerMerchantAccountRepo{
			ListByUserFunc: func(ctx context.Context, tx repository.Tx, userID string) ([]*model.MerchantAccount, error) {
				innerCalled = true
				return nil, nil
			},
		}
		decorator := NewMerchantAccountRepoCacheDecorator(inner, mockRedis, time.Hour, newTestLogger())

		// --- Act ---
		got, err := decorator.ListByUser(ctx, nil, "user-1")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if innerCalled {
			t.Error("inner repository should not be called on a cache hit")
		}
		if len(got) != 1 || got[0].StripeAccountID != "acct_1" || *got[0].DisplayName != "Acme" {
			t.Errorf("did not return the cached accounts: %+v", got)
		}
	})

	t.Run("ListByUser should fill the cache on miss", func(t *testing.T) {
		// --- Arrange ---
		var setKey string
		var setTTL time.Duration
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) { return "", red.Nil },
			SetFunc: func(ctx context.Context, key string, value interface{}, exp time.Duration) error {
				setKey, setTTL = key, exp
				return nil
			},
		}
		inner := &mockInnerMerchantAccountRepo{
			ListByUserFunc: func(ctx context.Context, tx repository.Tx, userID string) ([]*model.MerchantAccount, error) {
				return accounts, nil
			},
		}
		decorator := NewMerchantAccountRepoCacheDecorator(inner, mockRedis, 10*time.Minute, newTestLogger())

		// --- Act ---
		got, err := decorator.ListByUser(ctx, nil, "user-1")

		// --- Assert ---
		if err != nil || len(got) != 1 {
			t.Fatalf("expected one account, got %v, %v", got, err)
		}
		if setKey != "merchant_accounts:user:user-1" || setTTL != 10*time.Minute {
			t.Errorf("cache not populated as expected: key=%q ttl=%v", setKey, setTTL)
		}
	})

	t.Run("ListByUser should fall through on redis errors", func(t *testing.T) {
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) { return "", errors.New("redis down") },
			SetFunc: func(ctx context.Context, key string, value interface{}, exp time.Duration) error {
				return errors.New("redis down")
			},
		}
		inner := &mockInnerMerchantAccountRepo{
			ListByUserFunc: func(ctx context.Context, tx repository.Tx, userID string) ([]*model.MerchantAccount, error) {
				return accounts, nil
			},
		}
		decorator := NewMerchantAccountRepoCacheDecorator(inner, mockRedis, time.Hour, newTestLogger())

		got, err := decorator.ListByUser(ctx, nil, "user-1")
		if err != nil || len(got) != 1 {
			t.Fatalf("expected the database result, got %v, %v", got, err)
		}
	})

	t.Run("writes should invalidate the user's entry", func(t *testing.T) {
		// --- Arrange ---
		var deleted []string
		mockRedis := &mockRedisClient{
			DelFunc: func(ctx context.Context, keys ...string) error {
				deleted = append(deleted, keys...)
				return nil
			},
		}
		inner := &mockInnerMerchantAccountRepo{
			SaveFunc: func(ctx context.Context, tx repository.Tx, acc *model.MerchantAccount) error { return nil },
			UpdateDisplayMetadataFunc: func(ctx context.Context, tx repository.Tx, userID, accountID, name string, icon *string) error {
				return nil
			},
			DeleteFunc: func(ctx context.Context, tx repository.Tx, userID, accountID string) error { return nil },
		}
		decorator := NewMerchantAccountRepoCacheDecorator(inner, mockRedis, time.Hour, newTestLogger())

		// --- Act ---
		_ = decorator.Save(ctx, nil, &model.MerchantAccount{UserID: "user-1", StripeAccountID: "acct_2"})
		_ = decorator.UpdateDisplayMetadata(ctx, nil, "user-1", "acct_2", "Acme", nil)
		_ = decorator.Delete(ctx, nil, "user-1", "acct_2")

		// --- Assert ---
		if len(deleted) != 3 {
			t.Fatalf("expected 3 invalidations, got %v", deleted)
		}
		for _, k := range deleted {
			if k != "merchant_accounts:user:user-1" {
				t.Errorf("unexpected invalidated key %q", k)
			}
		}
	})
}
