package adapter

import (
	"context"

	"invoice-portal/internal/domain/model"
)

// ChargePageSize bounds how many charges are read per customer.
const ChargePageSize = 100

// Customer is the provider customer matched by email.
type Customer struct {
	ID      string
	Name    string
	Email   string
	Phone   string
	Address *model.Address
}

// ChargeBilling holds the billing details captured on the charge itself.
type ChargeBilling struct {
	Name    string
	Email   string
	Phone   string
	Address *model.Address
}

// InvoiceRef is the expanded invoice a charge paid, if any.
type InvoiceRef struct {
	ID             string
	SubscriptionID string // empty when the invoice is not subscription-linked
}

// Charge is one payment attempt at the provider.
type Charge struct {
	ID       string
	Amount   int64 // minor units
	Currency string
	Status   string
	Created  int64
	Billing  ChargeBilling
	Invoice  *InvoiceRef
}

// Subscription is a provider subscription in any lifecycle state.
type Subscription struct {
	ID               string
	Status           string
	PlanNickname     string
	PlanInterval     string
	CurrentPeriodEnd int64
}

// AccountSummary is the display metadata of the account that owns a key.
type AccountSummary struct {
	ID          string
	DisplayName string
	IconURL     string
}

// PaymentGateway is the port for one payment-provider account.
// Implementations are bound to a single credential and must not be shared across accounts.
type PaymentGateway interface {
	Name() string

	// Probe performs a cheap read to check the credential works.
	Probe(ctx context.Context) error
	// FindCustomer returns the first customer with exactly this email, or domain.ErrNotFound.
	FindCustomer(ctx context.Context, email string) (*Customer, error)
	// ListCharges returns up to ChargePageSize charges with their invoices expanded.
	ListCharges(ctx context.Context, customerID string) ([]Charge, error)
	// ListSubscriptions returns subscriptions in every status.
	ListSubscriptions(ctx context.Context, customerID string) ([]Subscription, error)
	// GetAccountProfile resolves the company header for accountID.
	GetAccountProfile(ctx context.Context, accountID string) (model.CompanyInfo, error)
	// GetAccountSummary describes the account the credential belongs to.
	GetAccountSummary(ctx context.Context) (AccountSummary, error)
}

// GatewayFactory builds a fresh gateway for a plaintext API key.
type GatewayFactory interface {
	NewGateway(apiKey string) (PaymentGateway, error)
}

// GatewayFactoryFunc adapts a function to GatewayFactory.
type GatewayFactoryFunc func(apiKey string) (PaymentGateway, error)

func (f GatewayFactoryFunc) NewGateway(apiKey string) (PaymentGateway, error) { return f(apiKey) }
