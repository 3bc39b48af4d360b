package payment

import (
	"context"
	"sync"

	"invoice-portal/internal/domain"
	"invoice-portal/internal/domain/model"
	"invoice-portal/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway is a simple in-memory gateway to use in tests and local runs.
type NoopPaymentGateway struct {
	mu            sync.Mutex
	summary       adapter.AccountSummary
	profiles      map[string]model.CompanyInfo
	customers     map[string]adapter.Customer // email -> customer
	charges       map[string][]adapter.Charge // customer id -> charges
	subscriptions map[string][]adapter.Subscription

	// Err, when set, is returned by every read.
	Err error
}

func NewNoopPaymentGateway(accountID, displayName string) *NoopPaymentGateway {
	return &NoopPaymentGateway{
		summary:       adapter.AccountSummary{ID: accountID, DisplayName: displayName},
		profiles:      map[string]model.CompanyInfo{accountID: {Name: displayName}},
		customers:     make(map[string]adapter.Customer),
		charges:       make(map[string][]adapter.Charge),
		subscriptions: make(map[string][]adapter.Subscription),
	}
}

func (g *NoopPaymentGateway) Name() string { return "noop" }

// AddCustomer registers c under its exact email; lookups are case-sensitive like the provider's.
func (g *NoopPaymentGateway) AddCustomer(c adapter.Customer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.customers[c.Email] = c
}

func (g *NoopPaymentGateway) AddCharge(customerID string, ch adapter.Charge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.charges[customerID] = append(g.charges[customerID], ch)
}

func (g *NoopPaymentGateway) AddSubscription(customerID string, s adapter.Subscription) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subscriptions[customerID] = append(g.subscriptions[customerID], s)
}

func (g *NoopPaymentGateway) SetProfile(accountID string, info model.CompanyInfo) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.profiles[accountID] = info
}

func (g *NoopPaymentGateway) Probe(ctx context.Context) error {
	return g.Err
}

func (g *NoopPaymentGateway) FindCustomer(ctx context.Context, email string) (*adapter.Customer, error) {
	if g.Err != nil {
		return nil, g.Err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.customers[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (g *NoopPaymentGateway) ListCharges(ctx context.Context, customerID string) ([]adapter.Charge, error) {
	if g.Err != nil {
		return nil, g.Err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	out := g.charges[customerID]
	if len(out) > adapter.ChargePageSize {
		out = out[:adapter.ChargePageSize]
	}
	return append([]adapter.Charge(nil), out...), nil
}

func (g *NoopPaymentGateway) ListSubscriptions(ctx context.Context, customerID string) ([]adapter.Subscription, error) {
	if g.Err != nil {
		return nil, g.Err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]adapter.Subscription(nil), g.subscriptions[customerID]...), nil
}

func (g *NoopPaymentGateway) GetAccountProfile(ctx context.Context, accountID string) (model.CompanyInfo, error) {
	if g.Err != nil {
		return model.CompanyInfo{}, g.Err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.profiles[accountID]
	if !ok {
		return model.CompanyInfo{}, domain.ErrGateway
	}
	return p, nil
}

func (g *NoopPaymentGateway) GetAccountSummary(ctx context.Context) (adapter.AccountSummary, error) {
	if g.Err != nil {
		return adapter.AccountSummary{}, g.Err
	}
	return g.summary, nil
}

// StaticGatewayFactory maps plaintext keys to prebuilt gateways; unknown keys fail with ErrGateway.
type StaticGatewayFactory map[string]adapter.PaymentGateway

func (f StaticGatewayFactory) NewGateway(apiKey string) (adapter.PaymentGateway, error) {
	g, ok := f[apiKey]
	if !ok {
		return nil, domain.ErrGateway
	}
	return g, nil
}
