package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"invoice-portal/internal/domain"
	"invoice-portal/internal/domain/model"
	"invoice-portal/internal/domain/ports/adapter"
)

var _ adapter.InvoiceRenderer = (*InvoiceRenderer)(nil)

const (
	margin = 20.0 // mm

	// dueOffset is the fixed payment term printed as the due date.
	dueOffset = 2592000 // 30 days in seconds

	footerText = "Thank you for your business. Payment is due within 30 days."
)

// Option configures an InvoiceRenderer.
type Option func(*InvoiceRenderer)

// WithCompression toggles stream compression. Tests turn it off to inspect the text.
func WithCompression(on bool) Option {
	return func(r *InvoiceRenderer) { r.compress = on }
}

// InvoiceRenderer lays out one invoice on an A4 page. It does no I/O.
type InvoiceRenderer struct {
	compress bool
}

func NewInvoiceRenderer(opts ...Option) *InvoiceRenderer {
	r := &InvoiceRenderer{compress: true}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *InvoiceRenderer) ContentType() string { return "application/pdf" }

// Render returns the finished document or ErrRender; it never returns partial bytes.
func (r *InvoiceRenderer) Render(inv *model.Invoice, kind model.InvoiceKind, company model.CompanyInfo) (out []byte, err error) {
	switch {
	case inv == nil:
		return nil, fmt.Errorf("%w: nil invoice", domain.ErrRender)
	case strings.TrimSpace(inv.ID) == "":
		return nil, fmt.Errorf("%w: invoice without id", domain.ErrRender)
	case !kind.Valid():
		return nil, fmt.Errorf("%w: unknown kind %q", domain.ErrRender, kind)
	}
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, fmt.Errorf("%w: %v", domain.ErrRender, rec)
		}
	}()

	created := time.Unix(inv.Created, 0).UTC()
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCompression(r.compress)
	doc.SetCreationDate(created)
	doc.SetModificationDate(created)
	doc.SetTitle("Invoice "+inv.ID, true)
	doc.SetMargins(margin, margin, margin)
	doc.SetAutoPageBreak(true, margin)

	l := &layout{doc: doc, tr: doc.UnicodeTranslatorFromDescriptor("")}
	doc.AddPage()
	pageW, pageH := doc.GetPageSize()
	l.width = pageW - 2*margin

	doc.SetDrawColor(210, 210, 210)
	doc.Rect(margin/2, margin/2, pageW-margin, pageH-margin, "D")

	l.header(company)
	l.meta(inv, created)
	l.billTo(inv)
	l.billing(inv)
	l.note(inv.AdditionalInfo)
	l.table(inv, kind)
	l.status(inv.Status)
	l.footer(pageH)

	if doc.Err() {
		return nil, fmt.Errorf("%w: %v", domain.ErrRender, doc.Error())
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRender, err)
	}
	return buf.Bytes(), nil
}

type layout struct {
	doc   *fpdf.Fpdf
	tr    func(string) string
	width float64
}

func (l *layout) line(text string, h float64) {
	l.doc.CellFormat(l.width, h, l.tr(text), "", 1, "L", false, 0, "")
}

func (l *layout) header(c model.CompanyInfo) {
	top := l.doc.GetY()
	lines := 1
	if c.Address != "" {
		lines++
	}
	if c.Phone != "" {
		lines++
	}
	l.doc.SetFillColor(244, 246, 248)
	l.doc.Rect(margin, top, l.width, float64(10+6*lines), "F")

	l.doc.SetXY(margin+4, top+4)
	if c.Name != "" {
		l.doc.SetFont("Helvetica", "B", 16)
		l.doc.CellFormat(l.width-8, 8, l.tr(c.Name), "", 2, "L", false, 0, "")
	}
	l.doc.SetFont("Helvetica", "", 10)
	if c.Address != "" {
		l.doc.CellFormat(l.width-8, 6, l.tr(c.Address), "", 2, "L", false, 0, "")
	}
	if c.Phone != "" {
		l.doc.CellFormat(l.width-8, 6, l.tr(c.Phone), "", 2, "L", false, 0, "")
	}

	l.doc.SetXY(margin, top+4)
	l.doc.SetFont("Helvetica", "B", 22)
	l.doc.CellFormat(l.width-4, 10, "INVOICE", "", 0, "R", false, 0, "")
	l.doc.SetY(top + float64(10+6*lines) + 6)
}

func (l *layout) meta(inv *model.Invoice, created time.Time) {
	due := time.Unix(inv.Created+dueOffset, 0).UTC()
	l.doc.SetFont("Helvetica", "", 10)
	l.line("#"+inv.ID, 6)
	l.line("Date: "+formatDate(created), 6)
	l.line("Due: "+formatDate(due), 6)
	l.doc.Ln(4)
}

func (l *layout) billTo(inv *model.Invoice) {
	l.doc.SetFont("Helvetica", "B", 11)
	l.line("Bill To:", 7)
	l.doc.SetFont("Helvetica", "", 10)
	l.line(orNA(inv.CustomerName), 5)
	l.line(orNA(inv.CustomerEmail), 5)
	l.doc.Ln(4)
}

// billing prints only the billing fields that add something to the Bill To block.
// A name, email or phone equal to either the customer name or email is left out.
func (l *layout) billing(inv *model.Invoice) {
	bd := inv.BillingDetails
	var lines []string
	for _, f := range []struct{ label, value string }{
		{"Name", deref(bd.Name)},
		{"Email", deref(bd.Email)},
		{"Phone", deref(bd.Phone)},
	} {
		if f.value == "" || f.value == inv.CustomerName || f.value == inv.CustomerEmail {
			continue
		}
		lines = append(lines, f.label+": "+f.value)
	}
	if addr := addressLines(bd.Address); len(addr) > 0 {
		lines = append(lines, "Address:")
		lines = append(lines, addr...)
	}
	if len(lines) == 0 {
		return
	}
	l.doc.SetFont("Helvetica", "B", 11)
	l.line("Billing Details:", 7)
	l.doc.SetFont("Helvetica", "", 10)
	for _, s := range lines {
		l.line(s, 5)
	}
	l.doc.Ln(4)
}

func (l *layout) note(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	l.doc.SetFont("Helvetica", "B", 11)
	l.line("Additional Information:", 7)
	l.doc.SetFont("Helvetica", "", 10)
	for _, s := range l.doc.SplitText(l.tr(text), l.width) {
		l.doc.CellFormat(l.width, 5, s, "", 1, "L", false, 0, "")
	}
	l.doc.Ln(4)
}

func (l *layout) table(inv *model.Invoice, kind model.InvoiceKind) {
	cols := []float64{l.width * 0.4, l.width * 0.2, l.width * 0.2, l.width * 0.2}
	amount := l.money(inv.Amount, inv.Currency)

	l.doc.SetFont("Helvetica", "B", 10)
	l.doc.SetFillColor(230, 233, 237)
	for i, h := range []string{"Description", "Quantity", "Unit Price", "Amount"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		l.doc.CellFormat(cols[i], 8, h, "1", 0, align, true, 0, "")
	}
	l.doc.Ln(-1)

	desc := "One-time Payment"
	if kind == model.InvoiceKindSubscription {
		desc = "Subscription Fee"
	}
	l.doc.SetFont("Helvetica", "", 10)
	l.doc.CellFormat(cols[0], 8, desc, "1", 0, "L", false, 0, "")
	l.doc.CellFormat(cols[1], 8, "1", "1", 0, "R", false, 0, "")
	l.doc.CellFormat(cols[2], 8, amount, "1", 0, "R", false, 0, "")
	l.doc.CellFormat(cols[3], 8, amount, "1", 1, "R", false, 0, "")

	l.doc.SetFont("Helvetica", "B", 10)
	l.doc.CellFormat(cols[0]+cols[1]+cols[2], 8, "Total", "1", 0, "R", true, 0, "")
	l.doc.CellFormat(cols[3], 8, amount, "1", 1, "R", true, 0, "")
	l.doc.Ln(6)
}

func (l *layout) status(status string) {
	l.doc.SetFont("Helvetica", "", 10)
	l.line("Payment Status: "+orNA(status), 6)
}

// money formats an amount for the page. The core fonts are cp1252, so a symbol
// they cannot draw (₹, ₩, ₦) is replaced by the ISO code.
func (l *layout) money(minor int64, code string) string {
	s := FormatAmount(minor, code)
	for _, r := range s {
		if r >= 0x80 && l.tr(string(r)) == "." {
			return l.tr(formatISO(minor, code))
		}
	}
	return l.tr(s)
}

func (l *layout) footer(pageH float64) {
	l.doc.SetY(pageH - margin - 10)
	l.doc.SetFont("Helvetica", "I", 9)
	l.doc.SetTextColor(110, 110, 110)
	l.doc.CellFormat(l.width, 6, footerText, "", 1, "C", false, 0, "")
}

// FormatAmount renders minor units with the narrow currency symbol and two
// decimals, e.g. FormatAmount(4500, "usd") == "$45.00".
func FormatAmount(minor int64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return formatISO(minor, code)
	}
	sign, digits := splitMinor(minor)
	return sign + printer.Sprint(currency.NarrowSymbol(unit)) + digits
}

// formatISO is FormatAmount with the upper-cased code in place of the symbol: "INR 45.00".
func formatISO(minor int64, code string) string {
	sign, digits := splitMinor(minor)
	return sign + strings.ToUpper(strings.TrimSpace(code)) + " " + digits
}

var printer = message.NewPrinter(language.AmericanEnglish)

func splitMinor(minor int64) (sign, digits string) {
	if minor < 0 {
		sign, minor = "-", -minor
	}
	return sign, printer.Sprintf("%d", minor/100) + fmt.Sprintf(".%02d", minor%100)
}

func formatDate(t time.Time) string {
	return t.Format("January 2, 2006")
}

func addressLines(a *model.Address) []string {
	if a.IsZero() {
		return nil
	}
	var out []string
	for _, s := range []string{
		a.Line1,
		a.Line2,
		joinNonEmpty(", ", a.City, a.State),
		joinNonEmpty(" ", a.PostalCode, a.Country),
	} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
