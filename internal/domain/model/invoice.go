package model

// InvoiceKind selects the document variant for an invoice.
type InvoiceKind string

const (
	InvoiceKindSinglePayment InvoiceKind = "single-payment"
	InvoiceKindSubscription  InvoiceKind = "subscription"
)

// Valid reports whether k is one of the known kinds.
func (k InvoiceKind) Valid() bool {
	return k == InvoiceKindSinglePayment || k == InvoiceKindSubscription
}

const (
	UnknownPlanName     = "Unknown Plan"
	UnknownPlanInterval = "unknown"
)

// Address is a postal address as reported by the payment provider.
type Address struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// IsZero reports whether no address field is set.
func (a *Address) IsZero() bool {
	return a == nil || *a == Address{}
}

// BillingDetails are charge-level billing fields with customer-level fallback.
// A nil field was missing from both sources.
type BillingDetails struct {
	Name    *string  `json:"name"`
	Email   *string  `json:"email"`
	Phone   *string  `json:"phone"`
	Address *Address `json:"address"`
}

// CompanyInfo is the merchant header printed on documents.
type CompanyInfo struct {
	Name    string `json:"company_name"`
	Address string `json:"company_address,omitempty"`
	Phone   string `json:"company_phone,omitempty"`
}

// AccountInfo ties an invoice to the merchant account it was read from.
type AccountInfo struct {
	StripeAccountID string `json:"stripe_account_id"`
	CompanyInfo
}

// Invoice is the provider-neutral view of one charge. It is built per request and never stored.
type Invoice struct {
	ID             string         `json:"id"` // provider charge id, unique per account only
	Amount         int64          `json:"amount"`
	Currency       string         `json:"currency"`
	Status         string         `json:"status"`
	Created        int64          `json:"created"` // unix seconds
	CustomerName   string         `json:"customer_name"`
	CustomerEmail  string         `json:"customer_email"`
	BillingDetails BillingDetails `json:"billing_details"`
	AdditionalInfo string         `json:"additional_info,omitempty"`
	AccountInfo    AccountInfo    `json:"account_info"`
}

// SubscriptionDetails describe the billing cycle a subscription charge paid for.
type SubscriptionDetails struct {
	Plan             string `json:"plan"`
	Interval         string `json:"interval"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
}

// SinglePayment is a charge with no subscription linkage.
type SinglePayment struct {
	Invoice
}

// SubscriptionPayment is a charge that settled a subscription invoice.
type SubscriptionPayment struct {
	Invoice
	SubscriptionDetails SubscriptionDetails `json:"subscription_details"`
}

// InvoiceSet is the aggregated result for one customer. The two lists are disjoint.
type InvoiceSet struct {
	SinglePayments []SinglePayment       `json:"single_payments"`
	Subscriptions  []SubscriptionPayment `json:"subscriptions"`
}

// NewInvoiceSet returns a set with non-nil empty lists.
func NewInvoiceSet() *InvoiceSet {
	return &InvoiceSet{
		SinglePayments: []SinglePayment{},
		Subscriptions:  []SubscriptionPayment{},
	}
}

// Append concatenates other onto s, preserving order.
func (s *InvoiceSet) Append(other *InvoiceSet) {
	if other == nil {
		return
	}
	s.SinglePayments = append(s.SinglePayments, other.SinglePayments...)
	s.Subscriptions = append(s.Subscriptions, other.Subscriptions...)
}

// Len is the total number of invoices in both lists.
func (s *InvoiceSet) Len() int {
	return len(s.SinglePayments) + len(s.Subscriptions)
}

// Find locates a charge in either list. Because charge ids are only unique per
// account, the first match in merge order wins.
func (s *InvoiceSet) Find(chargeID string) (*Invoice, InvoiceKind, bool) {
	for i := range s.SinglePayments {
		if s.SinglePayments[i].ID == chargeID {
			inv := s.SinglePayments[i].Invoice
			return &inv, InvoiceKindSinglePayment, true
		}
	}
	for i := range s.Subscriptions {
		if s.Subscriptions[i].ID == chargeID {
			inv := s.Subscriptions[i].Invoice
			return &inv, InvoiceKindSubscription, true
		}
	}
	return nil, "", false
}
