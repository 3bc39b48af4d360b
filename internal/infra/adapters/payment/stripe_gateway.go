// File: internal/infra/adapters/payment/stripe_gateway.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"invoice-portal/internal/domain"
	"invoice-portal/internal/domain/model"
	"invoice-portal/internal/domain/ports/adapter"
	"invoice-portal/internal/infra/metrics"
)

var _ adapter.PaymentGateway = (*StripeGateway)(nil)

// StripeGateway implements adapter.PaymentGateway for one Stripe secret key.
// Each instance owns its own client.API so keys never leak between merchants.
type StripeGateway struct {
	sc *client.API
}

// NewStripeGateway builds a client for apiKey. backends may be nil for the live API.
func NewStripeGateway(apiKey string, backends *stripe.Backends) (*StripeGateway, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: empty api key", domain.ErrInvalidArgument)
	}
	sc := &client.API{}
	sc.Init(apiKey, backends)
	return &StripeGateway{sc: sc}, nil
}

// NewStripeGatewayFactory returns a factory building one StripeGateway per key.
func NewStripeGatewayFactory(backends *stripe.Backends) adapter.GatewayFactory {
	return adapter.GatewayFactoryFunc(func(apiKey string) (adapter.PaymentGateway, error) {
		return NewStripeGateway(apiKey, backends)
	})
}

func (g *StripeGateway) Name() string { return "stripe" }

// Probe lists at most one customer, the cheapest read that needs a valid key.
func (g *StripeGateway) Probe(ctx context.Context) error {
	params := &stripe.CustomerListParams{}
	params.Context = ctx
	params.Limit = stripe.Int64(1)
	params.Single = true
	it := g.sc.Customers.List(params)
	for it.Next() {
	}
	if err := it.Err(); err != nil {
		return gatewayErr("probe", err)
	}
	return nil
}

func (g *StripeGateway) FindCustomer(ctx context.Context, email string) (*adapter.Customer, error) {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)
	params.Single = true
	it := g.sc.Customers.List(params)
	if it.Next() {
		return customerFromStripe(it.Customer()), nil
	}
	if err := it.Err(); err != nil {
		return nil, gatewayErr("find_customer", err)
	}
	return nil, domain.ErrNotFound
}

func (g *StripeGateway) ListCharges(ctx context.Context, customerID string) ([]adapter.Charge, error) {
	params := &stripe.ChargeListParams{Customer: stripe.String(customerID)}
	params.Context = ctx
	params.Limit = stripe.Int64(adapter.ChargePageSize)
	params.Single = true
	params.AddExpand("data.invoice")

	out := make([]adapter.Charge, 0, 16)
	it := g.sc.Charges.List(params)
	for it.Next() && len(out) < adapter.ChargePageSize {
		out = append(out, chargeFromStripe(it.Charge()))
	}
	if err := it.Err(); err != nil {
		return nil, gatewayErr("list_charges", err)
	}
	return out, nil
}

func (g *StripeGateway) ListSubscriptions(ctx context.Context, customerID string) ([]adapter.Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(100)
	params.AddExpand("data.latest_invoice")

	var out []adapter.Subscription
	it := g.sc.Subscriptions.List(params)
	for it.Next() {
		out = append(out, subscriptionFromStripe(it.Subscription()))
	}
	if err := it.Err(); err != nil {
		return nil, gatewayErr("list_subscriptions", err)
	}
	return out, nil
}

func (g *StripeGateway) GetAccountProfile(ctx context.Context, accountID string) (model.CompanyInfo, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx
	acct, err := g.sc.Accounts.GetByID(accountID, params)
	if err != nil {
		return model.CompanyInfo{}, gatewayErr("get_account", err)
	}
	return companyInfoFromAccount(acct), nil
}

// GetAccountSummary reads the key's own account. Accounts.Get takes no params,
// so the call goes through the backend to carry ctx.
func (g *StripeGateway) GetAccountSummary(ctx context.Context) (adapter.AccountSummary, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx
	acct := &stripe.Account{}
	err := g.sc.Accounts.B.Call(http.MethodGet, "/v1/account", g.sc.Accounts.Key, params, acct)
	if err != nil {
		return adapter.AccountSummary{}, gatewayErr("get_account", err)
	}
	sum := summaryFromAccount(acct)

	// An unexpanded branding icon only carries the file id.
	if sum.IconURL == "" && acct.Settings != nil && acct.Settings.Branding != nil &&
		acct.Settings.Branding.Icon != nil && acct.Settings.Branding.Icon.ID != "" {
		fp := &stripe.FileParams{}
		fp.Context = ctx
		f, err := g.sc.Files.Get(acct.Settings.Branding.Icon.ID, fp)
		if err != nil {
			// the icon is cosmetic; keep the summary
			metrics.IncGatewayError("get_file", classify(err))
		} else {
			sum.IconURL = f.URL
		}
	}
	return sum, nil
}

// ---- mapping ----

func customerFromStripe(c *stripe.Customer) *adapter.Customer {
	return &adapter.Customer{
		ID:      c.ID,
		Name:    c.Name,
		Email:   c.Email,
		Phone:   c.Phone,
		Address: addressFromStripe(c.Address),
	}
}

func chargeFromStripe(ch *stripe.Charge) adapter.Charge {
	out := adapter.Charge{
		ID:       ch.ID,
		Amount:   ch.Amount,
		Currency: string(ch.Currency),
		Status:   string(ch.Status),
		Created:  ch.Created,
	}
	if bd := ch.BillingDetails; bd != nil {
		out.Billing = adapter.ChargeBilling{
			Name:    bd.Name,
			Email:   bd.Email,
			Phone:   bd.Phone,
			Address: addressFromStripe(bd.Address),
		}
	}
	if inv := ch.Invoice; inv != nil && inv.ID != "" {
		ref := &adapter.InvoiceRef{ID: inv.ID}
		if inv.Subscription != nil {
			ref.SubscriptionID = inv.Subscription.ID
		}
		out.Invoice = ref
	}
	return out
}

func subscriptionFromStripe(s *stripe.Subscription) adapter.Subscription {
	out := adapter.Subscription{
		ID:               s.ID,
		Status:           string(s.Status),
		CurrentPeriodEnd: s.CurrentPeriodEnd,
	}
	if s.Items != nil && len(s.Items.Data) > 0 && s.Items.Data[0].Plan != nil {
		out.PlanNickname = s.Items.Data[0].Plan.Nickname
		out.PlanInterval = string(s.Items.Data[0].Plan.Interval)
	}
	return out
}

func addressFromStripe(a *stripe.Address) *model.Address {
	if a == nil {
		return nil
	}
	out := &model.Address{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
	if out.IsZero() {
		return nil
	}
	return out
}

// companyInfoFromAccount prefers the public business profile, then the legal
// entity (individual before company), then the dashboard display name.
func companyInfoFromAccount(acct *stripe.Account) model.CompanyInfo {
	var (
		bpName, bpPhone       string
		bpAddress             *stripe.Address
		legalName, legalPhone string
		legalAddress          *stripe.Address
		dashboardName         string
	)
	if bp := acct.BusinessProfile; bp != nil {
		bpName, bpPhone, bpAddress = bp.Name, bp.SupportPhone, bp.SupportAddress
	}
	switch {
	case acct.Individual != nil:
		p := acct.Individual
		legalName = strings.TrimSpace(p.FirstName + " " + p.LastName)
		legalPhone, legalAddress = p.Phone, p.Address
	case acct.Company != nil:
		c := acct.Company
		legalName, legalPhone, legalAddress = c.Name, c.Phone, c.Address
	}
	if acct.Settings != nil && acct.Settings.Dashboard != nil {
		dashboardName = acct.Settings.Dashboard.DisplayName
	}
	return model.CompanyInfo{
		Name:    firstNonEmpty(bpName, legalName, dashboardName),
		Address: firstNonEmpty(formatAddress(bpAddress), formatAddress(legalAddress)),
		Phone:   firstNonEmpty(bpPhone, legalPhone),
	}
}

func summaryFromAccount(acct *stripe.Account) adapter.AccountSummary {
	sum := adapter.AccountSummary{ID: acct.ID}
	var dashboardName string
	if acct.Settings != nil {
		if acct.Settings.Dashboard != nil {
			dashboardName = acct.Settings.Dashboard.DisplayName
		}
		if b := acct.Settings.Branding; b != nil && b.Icon != nil {
			sum.IconURL = b.Icon.URL
		}
	}
	var bpName string
	if acct.BusinessProfile != nil {
		bpName = acct.BusinessProfile.Name
	}
	sum.DisplayName = firstNonEmpty(bpName, dashboardName, "Unknown")
	return sum
}

// formatAddress renders "line1, city, state, postal_code, country", skipping blanks.
func formatAddress(a *stripe.Address) string {
	if a == nil {
		return ""
	}
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Line1, a.City, a.State, a.PostalCode, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// ---- errors ----

func gatewayErr(op string, err error) error {
	metrics.IncGatewayError(op, classify(err))
	return fmt.Errorf("%w: %s: %v", domain.ErrGateway, op, err)
}

func classify(err error) string {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return "network"
	}
	switch {
	case se.HTTPStatusCode == http.StatusUnauthorized || se.HTTPStatusCode == http.StatusForbidden:
		return "auth"
	case se.HTTPStatusCode == http.StatusTooManyRequests:
		return "rate_limit"
	case se.Type == stripe.ErrorTypeInvalidRequest:
		return "invalid_request"
	default:
		return "api"
	}
}
