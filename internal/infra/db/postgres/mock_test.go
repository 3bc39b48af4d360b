//go:build !integration

package postgres

import (
	"context"
	"time"

	"invoice-portal/internal/domain/model"
	"invoice-portal/internal/domain/ports/repository"
	red "invoice-portal/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerMerchantAccountRepo mocks the database repository that the decorator wraps.
type mockInnerMerchantAccountRepo struct {
	SaveFunc                  func(ctx context.Context, tx repository.Tx, acc *model.MerchantAccount) error
	FindByUserAndAccountFunc  func(ctx context.Context, tx repository.Tx, userID, accountID string) (*model.MerchantAccount, error)
	ListByUserFunc            func(ctx context.Context, tx repository.Tx, userID string) ([]*model.MerchantAccount, error)
	UpdateDisplayMetadataFunc func(ctx context.Context, tx repository.Tx, userID, accountID, name string, icon *string) error
	DeleteFunc                func(ctx context.Context, tx repository.Tx, userID, accountID string) error
}

func (m *mockInnerMerchantAccountRepo) Save(ctx context.Context, tx repository.Tx, acc *model.MerchantAccount) error {
	return m.SaveFunc(ctx, tx, acc)
}
func (m *mockInnerMerchantAccountRepo) FindByUserAndAccount(ctx context.Context, tx repository.Tx, userID, accountID string) (*model.MerchantAccount, error) {
	return m.FindByUserAndAccountFunc(ctx, tx, userID, accountID)
}
func (m *mockInnerMerchantAccountRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.MerchantAccount, error) {
	return m.ListByUserFunc(ctx, tx, userID)
}
func (m *mockInnerMerchantAccountRepo) UpdateDisplayMetadata(ctx context.Context, tx repository.Tx, userID, accountID, name string, icon *string) error {
	return m.UpdateDisplayMetadataFunc(ctx, tx, userID, accountID, name, icon)
}
func (m *mockInnerMerchantAccountRepo) Delete(ctx context.Context, tx repository.Tx, userID, accountID string) error {
	return m.DeleteFunc(ctx, tx, userID, accountID)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc        func(ctx context.Context, key string) (string, error)
	SetFunc        func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc        func(ctx context.Context, keys ...string) error
	PingFunc       func(ctx context.Context) error
	IncrWindowFunc func(ctx context.Context, key string, window time.Duration) (int64, error)
	CloseFunc      func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	return m.IncrWindowFunc(ctx, key, window)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }
