package adapter

import "invoice-portal/internal/domain/model"

// InvoiceRenderer turns one invoice into a downloadable document.
// It must be a pure function of its inputs.
type InvoiceRenderer interface {
	Render(inv *model.Invoice, kind model.InvoiceKind, company model.CompanyInfo) ([]byte, error)
	ContentType() string
}
