//go:build !integration

package api

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"invoice-portal/internal/domain/model"
	"invoice-portal/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type mockAccountUC struct {
	LinkFunc            func(ctx context.Context, userID, apiKey string) (*model.MerchantAccount, error)
	ListFunc            func(ctx context.Context, userID string) ([]*model.MerchantAccount, error)
	RefreshMetadataFunc func(ctx context.Context, acc *model.MerchantAccount) error
	RevokeFunc          func(ctx context.Context, userID, stripeAccountID string) error
}

var _ usecase.AccountUseCase = (*mockAccountUC)(nil)

func (m *mockAccountUC) Link(ctx context.Context, userID, apiKey string) (*model.MerchantAccount, error) {
	return m.LinkFunc(ctx, userID, apiKey)
}
func (m *mockAccountUC) List(ctx context.Context, userID string) ([]*model.MerchantAccount, error) {
	return m.ListFunc(ctx, userID)
}
func (m *mockAccountUC) RefreshMetadata(ctx context.Context, acc *model.MerchantAccount) error {
	return m.RefreshMetadataFunc(ctx, acc)
}
func (m *mockAccountUC) Revoke(ctx context.Context, userID, stripeAccountID string) error {
	return m.RevokeFunc(ctx, userID, stripeAccountID)
}

type mockAccessLinkUC struct {
	IssueFunc        func(ctx context.Context, in usecase.IssueLinkInput) (*usecase.IssuedLink, error)
	RequestLinkFunc  func(ctx context.Context, userID, email string) error
	ResolveFunc      func(ctx context.Context, token string) (*model.AccessLink, error)
	PurgeExpiredFunc func(ctx context.Context, before time.Time) (int, error)
}

var _ usecase.AccessLinkUseCase = (*mockAccessLinkUC)(nil)

func (m *mockAccessLinkUC) Issue(ctx context.Context, in usecase.IssueLinkInput) (*usecase.IssuedLink, error) {
	return m.IssueFunc(ctx, in)
}
func (m *mockAccessLinkUC) RequestLink(ctx context.Context, userID, email string) error {
	return m.RequestLinkFunc(ctx, userID, email)
}
func (m *mockAccessLinkUC) Resolve(ctx context.Context, token string) (*model.AccessLink, error) {
	return m.ResolveFunc(ctx, token)
}
func (m *mockAccessLinkUC) PurgeExpired(ctx context.Context, before time.Time) (int, error) {
	return m.PurgeExpiredFunc(ctx, before)
}

type mockInvoiceUC struct {
	AggregateFunc    func(ctx context.Context, email string, accounts []*model.MerchantAccount) (*model.InvoiceSet, error)
	FetchForLinkFunc func(ctx context.Context, token string) (*model.InvoiceSet, error)
	DocumentFunc     func(ctx context.Context, token, chargeID string, edits usecase.DocumentEdits) (*usecase.InvoiceDocument, error)
}

var _ usecase.InvoiceUseCase = (*mockInvoiceUC)(nil)

func (m *mockInvoiceUC) Aggregate(ctx context.Context, email string, accounts []*model.MerchantAccount) (*model.InvoiceSet, error) {
	return m.AggregateFunc(ctx, email, accounts)
}
func (m *mockInvoiceUC) FetchForLink(ctx context.Context, token string) (*model.InvoiceSet, error) {
	return m.FetchForLinkFunc(ctx, token)
}
func (m *mockInvoiceUC) Document(ctx context.Context, token, chargeID string, edits usecase.DocumentEdits) (*usecase.InvoiceDocument, error) {
	return m.DocumentFunc(ctx, token, chargeID, edits)
}
