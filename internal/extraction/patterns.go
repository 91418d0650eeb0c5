package extraction

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Field names a logical document field with its own ordered pattern list
type Field string

const (
	FieldPONumber          Field = "po_number"
	FieldInvoiceNumber     Field = "invoice_number"
	FieldProjectNumber     Field = "project_number"
	FieldSaleNumber        Field = "sale_number"
	FieldOpportunityNumber Field = "opportunity_number"
	FieldOrderDate         Field = "order_date"
	FieldInvoiceDate       Field = "invoice_date"
	FieldDueDate           Field = "due_date"
	FieldApprovedDate      Field = "approved_date"
	FieldTotal             Field = "total"
	FieldSubtotal          Field = "subtotal"
	FieldTax               Field = "tax"
	FieldEmail             Field = "email"
	FieldPhone             Field = "phone"
	FieldCreatedBy         Field = "created_by"
	FieldMarketSegment     Field = "market_segment"
	FieldProductCategory   Field = "product_category"
	FieldAddress           Field = "address"
)

// Pattern is one entry of a field's pattern list. Accept, when set, may reject
// a capture so the lookup moves on to the next pattern.
type Pattern struct {
	Expr   *regexp.Regexp
	Accept func(value string) bool
}

// Registry maps each field to its patterns in priority order. A Registry is
// read-only after construction and safe for concurrent use.
type Registry struct {
	fields map[Field][]Pattern
}

const datePart = `(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4})`
const amountPart = `([\d,]+\.?\d*)`

var invoiceNumberStopWords = map[string]bool{
	"invoice": true, "page": true, "order": true, "date": true, "number": true,
	"account": true, "bill": true, "custom": true, "shipping": true, "no": true,
	"si": true, "abc": true, "cut": true, "aqua": true,
}

var hasDigit = regexp.MustCompile(`\d`)

func acceptInvoiceNumber(value string) bool {
	if len(value) < 2 || !hasDigit.MatchString(value) {
		return false
	}
	return !invoiceNumberStopWords[strings.ToLower(value)]
}

func acceptHasDigit(value string) bool {
	return hasDigit.MatchString(value)
}

func patterns(accept func(string) bool, exprs ...string) []Pattern {
	out := make([]Pattern, 0, len(exprs))
	for _, expr := range exprs {
		out = append(out, Pattern{Expr: regexp.MustCompile(`(?im)` + expr), Accept: accept})
	}
	return out
}

// DefaultRegistry returns the built-in pattern table. More specific labels are
// listed before generic ones.
func DefaultRegistry() *Registry {
	fields := map[Field][]Pattern{
		FieldPONumber: patterns(nil,
			`^\s*(\d{8})\s*$`,
			`PO\s*#?\s*:?\s*(\d+)`,
			`Purchase\s+Order\s*#?\s*:?\s*(\d+)`,
			`Order\s*#?\s*:?\s*(\d+)`,
		),
		FieldInvoiceNumber: append(patterns(acceptInvoiceNumber,
			`invoice\s+number\s*:?\s*([A-Z0-9][A-Z0-9\-]+)`,
			`invoice\s+no\.?\s*:?\s*([A-Z0-9][A-Z0-9\-]+)`,
			`invoice\s*#\s*(?:page\s*#)?\s*[\n\r]+\s*([A-Z0-9][A-Z0-9\-]+)`,
			`invoice\s*#\s*:?\s*([A-Z0-9][A-Z0-9\-]+)`,
			`(?:^|[^\w])invoice\s+([A-Z0-9][A-Z0-9\-]{3,})`,
			`inv\s*#\s*:?\s*([A-Z0-9][A-Z0-9\-]+)`,
			`invoice\s+number\s+.+?[\n\r]+\s*([A-Z0-9][A-Z0-9\-]+)`,
			`order\s*#\s*:?\s*([A-Z0-9][A-Z0-9\-]+)`,
			`invoice\s*:\s*([A-Z0-9][A-Z0-9\-]+)`,
			`invoice\s+no\.?\s*invoice\s+date.*?[\n\r]+\s*([A-Z0-9][A-Z0-9\-]+)`,
			`(?:LLC|Inc|Corp|Co)\s+([A-Z0-9][A-Z0-9\-]{4,})\s+(?:Required|Ship|Order)`,
			`order\s+number[\n\r]+.*?([A-Z0-9][A-Z0-9\-]{4,})`,
		),
			// bare "#: ID" when nothing labelled matched
			patterns(acceptHasDigit, `#\s*:?\s*([A-Z0-9][A-Z0-9\-]{4,})`)...,
		),
		FieldProjectNumber:     patterns(nil, `Project\s+Number\s*:?\s*([A-Z]?\d+)`),
		FieldSaleNumber:        patterns(nil, `Sale\s+Number\s*:?\s*([A-Z]?\d+)`),
		FieldOpportunityNumber: patterns(nil, `Opportunity\s+Number\s*:?\s*([A-Z]?\d+)`),
		FieldOrderDate: patterns(nil,
			`Order\s+Date\s*[\n\r]+\s*(\d{1,2}/\d{1,2}/\d{2,4})`,
			`Order\s+Date\s*:?\s*(\d{1,2}/\d{1,2}/\d{2,4})`,
		),
		FieldInvoiceDate: patterns(nil,
			`date\s*:?\s*`+datePart,
			`invoice\s+date\s*:?\s*`+datePart,
			datePart,
		),
		FieldDueDate: patterns(nil,
			`due\s+date\s*:?\s*`+datePart,
			`Approved\s+Date\s*[\n\r]+\s*(\d{1,2}/\d{1,2}/\d{2,4})`,
			`payment\s+due\s*:?\s*`+datePart,
		),
		FieldApprovedDate: patterns(nil,
			`Approved\s+Date\s*[\n\r]+\s*(\d{1,2}/\d{1,2}/\d{2,4})`,
			`Approved\s+Date\s*:?\s*`+datePart,
		),
		FieldTotal: patterns(nil,
			`(?:Grand|Order)\s+Total\s*:?\s*\$?\s*`+amountPart,
			`Total\s+Amount\s+Due\s*:?\s*\$?\s*`+amountPart,
			`Total\s+Due\s*:?\s*\$?\s*`+amountPart,
			`Amount\s+Due\s*:?\s*\$?\s*`+amountPart,
			`Balance\s+Due\s*:?\s*\$?\s*`+amountPart,
			`Balance\s*:?\s*\$?\s*`+amountPart,
			`Total\s+Net\s*:?\s*\$?\s*`+amountPart,
			`Net\s+Invoice\s*(?:Amount)?\s*:?\s*\$?\s*`+amountPart,
			`Pay\s+This\s+Amount\s*:?\s*\$?\s*`+amountPart,
			`Total\s+Invoice\s+Amt\s*:?\s*\$?\s*`+amountPart,
			`Invoice\s+Total\s*:?\s*\$?\s*`+amountPart,
			`Original\s+Invoice\s+Total\s+Due\s*:?\s*\$?\s*`+amountPart,
			`(?:^|\n)\s*Total\s*:?\s*\$?\s*`+amountPart,
			`Total\s+Amount\s*:?\s*[\n\r]+\s*\$?\s*`+amountPart,
			`Total\s+Price\s*:?\s*\$\s*`+amountPart,
			`Extended\s+Net\s*:?\s*\(?\$?\s*`+amountPart+`\)?`,
			`Total\s*:?\s*\$\s+`+amountPart,
			`Sub\s+Total\s+([\d,]+\.\d{2})\s*$`,
			`TOTAL\s*:\s*\$?\s*`+amountPart,
			`BALANCE\s+-?\$?\s*`+amountPart,
			`SUBTOTAL\s*:\s*\$?\s*`+amountPart,
		),
		FieldSubtotal: patterns(nil,
			`subtotal\s*:?\s*\$?\s*`+amountPart,
			`sub\s*-?\s*total\s*:?\s*\$?\s*`+amountPart,
			`items?\s+shipped\s*:?\s*\d+\s*subtotal\s*\$?\s*`+amountPart,
		),
		FieldTax: patterns(nil,
			`(?:sales\s+)?tax\s*:?\s*\$?\s*`+amountPart,
			`vat\s*:?\s*\$?\s*`+amountPart,
			`(?:state|county|city)\s+tax\s*:?\s*\$?\s*`+amountPart,
			`tax\s+amount\s*:?\s*\$?\s*`+amountPart,
		),
		FieldEmail: patterns(nil, `([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
		FieldPhone: patterns(nil,
			`(?:phone|tel|fax)\s*:?\s*([\d\-\(\)\s\+]+)`,
			`(\+?1?\s*[\(\-]?\d{3}[\)\-\s]?\d{3}[\-\s]?\d{4})`,
		),
		FieldCreatedBy:       patterns(nil, `Created\s+By\s*:?\s*([A-Za-z\s]+?)(?:\n|$)`),
		FieldMarketSegment:   patterns(nil, `Market\s+Segment\s*:?\s*([A-Za-z\s]+?)(?:\n|$)`),
		FieldProductCategory: patterns(nil, `Product\s+Category\s*:?\s*([A-Za-z\s]+?)(?:\n|$)`),
		FieldAddress: patterns(func(v string) bool { return len(v) > 10 },
			`(?:address|location|ship\s*to|bill\s*to)\s*:?\s*\n?\s*(.+(?:\n.+){0,3}?\s*\d{5}(?:-\d{4})?)`,
			`(\d+\s+[A-Za-z][\w\s]+\b(?:St|Street|Ave|Avenue|Blvd|Dr|Drive|Rd|Road|Ln|Lane|Way|Ct|Court|Pl|Place|Cir|Hwy)\b\.?\s*(?:,\s*[A-Za-z\s]+,?\s*[A-Z]{2}\s*\d{5})?)`,
		),
	}
	return &Registry{fields: fields}
}

// Patterns returns the ordered pattern list of a field
func (r *Registry) Patterns(field Field) []Pattern {
	return r.fields[field]
}

// Find tries the field's patterns in declaration order and returns the first
// accepted capture, trimmed.
func (r *Registry) Find(text string, field Field) (string, bool) {
	for _, p := range r.fields[field] {
		m := p.Expr.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		value := strings.TrimSpace(m[1])
		if p.Accept != nil && !p.Accept(value) {
			continue
		}
		return value, true
	}
	return "", false
}

// Text is Find with the empty string meaning absent
func (r *Registry) Text(text string, field Field) string {
	value, _ := r.Find(text, field)
	return value
}

// Date finds a field and normalizes it into a calendar date
func (r *Registry) Date(text string, field Field) *time.Time {
	value, ok := r.Find(text, field)
	if !ok {
		return nil
	}
	return ParseDate(value)
}

// Amount finds a field and normalizes it into a decimal
func (r *Registry) Amount(text string, field Field) *decimal.Decimal {
	value, ok := r.Find(text, field)
	if !ok {
		return nil
	}
	return ParseAmount(value)
}
