package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"invoice-portal/internal/domain"
	"invoice-portal/internal/domain/model"
	"invoice-portal/internal/domain/ports/adapter"
	"invoice-portal/internal/domain/ports/repository"
	"invoice-portal/internal/infra/logging"
	"invoice-portal/internal/infra/worker"
)

// Compile-time check
var _ AccountUseCase = (*accountUC)(nil)

// AccountUseCase manages the merchant accounts a user has linked.
type AccountUseCase interface {
	Link(ctx context.Context, userID, apiKey string) (*model.MerchantAccount, error)
	List(ctx context.Context, userID string) ([]*model.MerchantAccount, error)
	RefreshMetadata(ctx context.Context, acc *model.MerchantAccount) error
	Revoke(ctx context.Context, userID, stripeAccountID string) error
}

// TaskSubmitter queues background work; *worker.Pool satisfies it.
type TaskSubmitter interface {
	Submit(task worker.Task) error
}

type accountUC struct {
	accounts repository.MerchantAccountRepository
	creds    adapter.CredentialStore
	gateways adapter.GatewayFactory
	tasks    TaskSubmitter
	log      *zerolog.Logger

	inflight sync.Map // "<user>/<account>" -> struct{}
}

func NewAccountUseCase(
	accounts repository.MerchantAccountRepository,
	creds adapter.CredentialStore,
	gateways adapter.GatewayFactory,
	tasks TaskSubmitter,
	logger *zerolog.Logger,
) *accountUC {
	l := logger.With().Str("component", "AccountUC").Logger()
	return &accountUC{accounts: accounts, creds: creds, gateways: gateways, tasks: tasks, log: &l}
}

// Link validates apiKey against the provider before anything is stored.
func (uc *accountUC) Link(ctx context.Context, userID, apiKey string) (*model.MerchantAccount, error) {
	defer logging.TraceDuration(uc.log, "AccountUC.Link")()

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" || strings.TrimSpace(userID) == "" {
		return nil, domain.ErrInvalidArgument
	}
	gw, err := uc.gateways.NewGateway(apiKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	if err := gw.Probe(ctx); err != nil {
		return nil, fmt.Errorf("%w: api key rejected by provider", domain.ErrInvalidArgument)
	}
	summary, err := gw.GetAccountSummary(ctx)
	if err != nil {
		return nil, err
	}

	ciphertext, err := uc.creds.Encrypt(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	acc, err := model.NewMerchantAccount(userID, summary.ID, ciphertext)
	if err != nil {
		return nil, err
	}
	acc.SetMetadata(summary.DisplayName, summary.IconURL)

	if err := uc.accounts.Save(ctx, nil, acc); err != nil {
		return nil, err
	}
	logging.With(ctx, uc.log).Info().Str("stripe_account_id", acc.StripeAccountID).Msg("merchant account linked")
	return acc, nil
}

// List returns the user's accounts and queues a metadata refresh for any that lack it.
func (uc *accountUC) List(ctx context.Context, userID string) ([]*model.MerchantAccount, error) {
	accounts, err := uc.accounts.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	for _, acc := range accounts {
		if acc.NeedsMetadata() && acc.HasCredential() {
			uc.queueRefresh(ctx, *acc)
		}
	}
	return accounts, nil
}

func (uc *accountUC) queueRefresh(ctx context.Context, acc model.MerchantAccount) {
	if uc.tasks == nil {
		return
	}
	key := acc.UserID + "/" + acc.StripeAccountID
	if _, busy := uc.inflight.LoadOrStore(key, struct{}{}); busy {
		return
	}
	err := uc.tasks.Submit(func(ctx context.Context) error {
		defer uc.inflight.Delete(key)
		return uc.RefreshMetadata(ctx, &acc)
	})
	if err != nil {
		uc.inflight.Delete(key)
		logging.With(ctx, uc.log).Warn().Err(err).Str("stripe_account_id", acc.StripeAccountID).Msg("metadata refresh not queued")
	}
}

func (uc *accountUC) RefreshMetadata(ctx context.Context, acc *model.MerchantAccount) error {
	if !acc.HasCredential() {
		return domain.ErrCredential
	}
	apiKey, err := uc.creds.Decrypt(ctx, *acc.EncryptedStripeAPIKey)
	if err != nil {
		return err
	}
	gw, err := uc.gateways.NewGateway(apiKey)
	if err != nil {
		return err
	}
	summary, err := gw.GetAccountSummary(ctx)
	if err != nil {
		return err
	}
	acc.SetMetadata(summary.DisplayName, summary.IconURL)
	if err := uc.accounts.UpdateDisplayMetadata(ctx, nil, acc.UserID, acc.StripeAccountID, summary.DisplayName, acc.IconURL); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// revoked while the refresh was queued
			return nil
		}
		return err
	}
	return nil
}

func (uc *accountUC) Revoke(ctx context.Context, userID, stripeAccountID string) error {
	if err := uc.accounts.Delete(ctx, nil, userID, stripeAccountID); err != nil {
		return err
	}
	logging.With(ctx, uc.log).Info().Str("stripe_account_id", stripeAccountID).Msg("merchant account revoked")
	return nil
}
