package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"invoice-portal/internal/domain"
	"invoice-portal/internal/domain/model"
	"invoice-portal/internal/domain/ports/adapter"
	"invoice-portal/internal/domain/ports/repository"
	"invoice-portal/internal/infra/logging"
	"invoice-portal/internal/infra/metrics"
)

// Compile-time check
var _ InvoiceUseCase = (*invoiceUC)(nil)

// InvoiceDocument is a rendered invoice ready to be served as an attachment.
type InvoiceDocument struct {
	FileName    string
	ContentType string
	Body        []byte
}

// DocumentEdits are the customer's changes applied to an invoice before it is rendered.
// Blank fields keep the values from the provider.
type DocumentEdits struct {
	Note          string
	CustomerName  string
	CustomerEmail string
}

func (e DocumentEdits) apply(inv *model.Invoice) {
	inv.AdditionalInfo = strings.TrimSpace(e.Note)
	if v := strings.TrimSpace(e.CustomerName); v != "" {
		inv.CustomerName = v
	}
	if v := strings.TrimSpace(e.CustomerEmail); v != "" {
		inv.CustomerEmail = v
	}
}

// InvoiceUseCase aggregates a customer's invoices across merchant accounts.
type InvoiceUseCase interface {
	// Aggregate never fails because of a single account; such accounts contribute nothing.
	Aggregate(ctx context.Context, email string, accounts []*model.MerchantAccount) (*model.InvoiceSet, error)
	FetchForLink(ctx context.Context, token string) (*model.InvoiceSet, error)
	Document(ctx context.Context, token, chargeID string, edits DocumentEdits) (*InvoiceDocument, error)
}

type invoiceUC struct {
	links    AccessLinkUseCase
	accounts repository.MerchantAccountRepository
	creds    adapter.CredentialStore
	gateways adapter.GatewayFactory
	renderer adapter.InvoiceRenderer
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewInvoiceUseCase(
	links AccessLinkUseCase,
	accounts repository.MerchantAccountRepository,
	creds adapter.CredentialStore,
	gateways adapter.GatewayFactory,
	renderer adapter.InvoiceRenderer,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *invoiceUC {
	l := logger.With().Str("component", "InvoiceUC").Logger()
	return &invoiceUC{
		links:    links,
		accounts: accounts,
		creds:    creds,
		gateways: gateways,
		renderer: renderer,
		tm:       tm,
		log:      &l,
	}
}

type fetchResult string

const (
	fetchOK              fetchResult = "ok"
	fetchNoCustomer      fetchResult = "no_customer"
	fetchSkipped         fetchResult = "skipped"
	fetchCredentialError fetchResult = "credential_error"
	fetchGatewayError    fetchResult = "gateway_error"
)

func (uc *invoiceUC) Aggregate(ctx context.Context, email string, accounts []*model.MerchantAccount) (*model.InvoiceSet, error) {
	defer logging.TraceDuration(uc.log, "InvoiceUC.Aggregate")()
	start := time.Now()

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, domain.ErrInvalidArgument
	}

	parts := make([]*model.InvoiceSet, len(accounts))
	results := make([]fetchResult, len(accounts))
	var g errgroup.Group // no shared cancellation: one account must not stop the others
	for i, acc := range accounts {
		i, acc := i, acc
		if !acc.HasCredential() {
			results[i] = fetchSkipped
			continue
		}
		g.Go(func() error {
			parts[i], results[i] = uc.fetchAccount(ctx, email, acc)
			return nil
		})
	}
	_ = g.Wait()

	out := model.NewInvoiceSet()
	failed := 0
	for i := range accounts {
		metrics.IncAccountFetch(string(results[i]))
		if results[i] == fetchCredentialError || results[i] == fetchGatewayError {
			failed++
		}
		out.Append(parts[i])
	}

	result := "ok"
	switch {
	case failed > 0:
		result = "partial"
	case out.Len() == 0:
		result = "empty"
	}
	metrics.ObserveAggregation(result, time.Since(start))
	logging.With(ctx, uc.log).Debug().
		Int("accounts", len(accounts)).
		Int("failed", failed).
		Int("single_payments", len(out.SinglePayments)).
		Int("subscriptions", len(out.Subscriptions)).
		Msg("invoices aggregated")
	return out, nil
}

// fetchAccount runs one account's branch. Any failure yields an empty contribution.
func (uc *invoiceUC) fetchAccount(ctx context.Context, email string, acc *model.MerchantAccount) (*model.InvoiceSet, fetchResult) {
	log := logging.With(ctx, uc.log).With().Str("stripe_account_id", acc.StripeAccountID).Logger()

	apiKey, err := uc.creds.Decrypt(ctx, *acc.EncryptedStripeAPIKey)
	if err != nil {
		log.Warn().Err(err).Msg("credential unavailable, skipping account")
		return nil, fetchCredentialError
	}
	gw, err := uc.gateways.NewGateway(apiKey)
	if err != nil {
		log.Warn().Err(err).Msg("gateway construction failed")
		return nil, fetchGatewayError
	}

	cust, err := gw.FindCustomer(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fetchNoCustomer
	}
	if err != nil {
		log.Warn().Err(err).Msg("customer lookup failed")
		return nil, fetchGatewayError
	}

	var (
		charges []adapter.Charge
		subs    []adapter.Subscription
		company model.CompanyInfo
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		charges, err = gw.ListCharges(gctx, cust.ID)
		return err
	})
	g.Go(func() (err error) {
		subs, err = gw.ListSubscriptions(gctx, cust.ID)
		return err
	})
	g.Go(func() (err error) {
		company, err = gw.GetAccountProfile(gctx, acc.StripeAccountID)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Msg("invoice fetch failed")
		return nil, fetchGatewayError
	}

	set, orphans := classifyCharges(acc.StripeAccountID, cust, charges, subs, company)
	if orphans > 0 {
		metrics.IncOrphanedCharges(orphans)
		log.Debug().Int("orphaned", orphans).Msg("dropped charges whose subscription is not listed")
	}
	return set, fetchOK
}

// classifyCharges partitions charges into single and subscription payments.
// A charge whose invoice names a subscription missing from subs is dropped and counted.
func classifyCharges(accountID string, cust *adapter.Customer, charges []adapter.Charge, subs []adapter.Subscription, company model.CompanyInfo) (*model.InvoiceSet, int) {
	byID := make(map[string]adapter.Subscription, len(subs))
	for _, s := range subs {
		byID[s.ID] = s
	}
	info := model.AccountInfo{StripeAccountID: accountID, CompanyInfo: company}

	set := model.NewInvoiceSet()
	orphans := 0
	for _, ch := range charges {
		inv := toInvoice(ch, cust, info)
		if ch.Invoice == nil || ch.Invoice.SubscriptionID == "" {
			set.SinglePayments = append(set.SinglePayments, model.SinglePayment{Invoice: inv})
			continue
		}
		sub, ok := byID[ch.Invoice.SubscriptionID]
		if !ok {
			orphans++
			continue
		}
		set.Subscriptions = append(set.Subscriptions, model.SubscriptionPayment{
			Invoice: inv,
			SubscriptionDetails: model.SubscriptionDetails{
				Plan:             orDefault(sub.PlanNickname, model.UnknownPlanName),
				Interval:         orDefault(sub.PlanInterval, model.UnknownPlanInterval),
				CurrentPeriodEnd: sub.CurrentPeriodEnd,
			},
		})
	}
	return set, orphans
}

// toInvoice prefers billing details captured on the charge and falls back to the customer.
func toInvoice(ch adapter.Charge, cust *adapter.Customer, info model.AccountInfo) model.Invoice {
	addr := ch.Billing.Address
	if addr.IsZero() {
		addr = cust.Address
	}
	if addr.IsZero() {
		addr = nil
	}
	return model.Invoice{
		ID:            ch.ID,
		Amount:        ch.Amount,
		Currency:      ch.Currency,
		Status:        ch.Status,
		Created:       ch.Created,
		CustomerName:  cust.Name,
		CustomerEmail: cust.Email,
		BillingDetails: model.BillingDetails{
			Name:    firstSet(ch.Billing.Name, cust.Name),
			Email:   firstSet(ch.Billing.Email, cust.Email),
			Phone:   firstSet(ch.Billing.Phone, cust.Phone),
			Address: addr,
		},
		AccountInfo: info,
	}
}

func (uc *invoiceUC) FetchForLink(ctx context.Context, token string) (*model.InvoiceSet, error) {
	link, err := uc.links.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithLinkID(logging.WithUserID(ctx, link.UserID), link.ID)

	accounts, err := uc.scopedAccounts(ctx, link)
	if err != nil {
		return nil, err
	}
	return uc.Aggregate(ctx, link.Email, accounts)
}

// scopedAccounts loads the accounts a link may read. A scoped link whose account
// was revoked reads nothing rather than widening to the owner's other accounts.
func (uc *invoiceUC) scopedAccounts(ctx context.Context, link *model.AccessLink) ([]*model.MerchantAccount, error) {
	var accounts []*model.MerchantAccount
	err := uc.tm.WithTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(ctx context.Context, tx repository.Tx) error {
		if !link.Scoped() {
			list, err := uc.accounts.ListByUser(ctx, tx, link.UserID)
			accounts = list
			return err
		}
		acc, err := uc.accounts.FindByUserAndAccount(ctx, tx, link.UserID, *link.StripeAccountID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		accounts = []*model.MerchantAccount{acc}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load linked accounts: %w", err)
	}
	return accounts, nil
}

func (uc *invoiceUC) Document(ctx context.Context, token, chargeID string, edits DocumentEdits) (*InvoiceDocument, error) {
	defer logging.TraceDuration(uc.log, "InvoiceUC.Document")()

	chargeID = strings.TrimSpace(chargeID)
	if chargeID == "" {
		return nil, domain.ErrInvalidArgument
	}
	set, err := uc.FetchForLink(ctx, token)
	if err != nil {
		return nil, err
	}
	inv, kind, ok := set.Find(chargeID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	edits.apply(inv)

	body, err := uc.renderer.Render(inv, kind, inv.AccountInfo.CompanyInfo)
	if err != nil {
		metrics.IncDocument(string(kind), "error")
		logging.With(ctx, uc.log).Error().Err(err).Str("charge_id", chargeID).Msg("invoice render failed")
		return nil, err
	}
	metrics.IncDocument(string(kind), "ok")
	return &InvoiceDocument{
		FileName:    fmt.Sprintf("invoice_%s.pdf", inv.ID),
		ContentType: uc.renderer.ContentType(),
		Body:        body,
	}, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func firstSet(vals ...string) *string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			v := v
			return &v
		}
	}
	return nil
}
