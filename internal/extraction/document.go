package extraction

import (
	"time"

	"github.com/shopspring/decimal"
)

// MethodRegex tags documents produced by the pattern-based engine
const MethodRegex = "regex"

// StructuredDocument is the result of a single extraction call
type StructuredDocument struct {
	InvoiceNumber string           `json:"invoice_number,omitempty"`
	PONumber      string           `json:"po_number,omitempty"`
	Vendor        VendorInfo       `json:"vendor"`
	InvoiceDate   *time.Time       `json:"invoice_date,omitempty"`
	DueDate       *time.Time       `json:"due_date,omitempty"`
	ApprovedDate  *time.Time       `json:"approved_date,omitempty"`
	Subtotal      *decimal.Decimal `json:"subtotal,omitempty"`
	TaxAmount     *decimal.Decimal `json:"tax_amount,omitempty"`
	TotalAmount   *decimal.Decimal `json:"total_amount,omitempty"`
	LineItems     []LineItem       `json:"line_items"`

	// Project metadata found on purchase orders
	Project         string `json:"project,omitempty"`
	SaleNumber      string `json:"sale_number,omitempty"`
	CreatedBy       string `json:"created_by,omitempty"`
	MarketSegment   string `json:"market_segment,omitempty"`
	ProductCategory string `json:"product_category,omitempty"`

	ConfidenceScore      float64  `json:"confidence_score"`
	RequiresManualReview bool     `json:"requires_manual_review"`
	ReviewReasons        []string `json:"review_reasons,omitempty"`
	Warnings             []string `json:"warnings,omitempty"`
	ExtractionMethod     string   `json:"extraction_method"`
	LineItemStrategy     string   `json:"line_item_strategy,omitempty"`
	RawText              string   `json:"raw_text"`
}

// VendorInfo identifies the issuing vendor
type VendorInfo struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// LineItem is one row of the itemized table
type LineItem struct {
	LineNumber  int              `json:"line_number"`
	Description string           `json:"description,omitempty"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	LineTotal   *decimal.Decimal `json:"line_total,omitempty"`
}

// Complete reports whether the item carries both a quantity and a line total.
// Zero values count as missing.
func (li LineItem) Complete() bool {
	return li.Quantity != nil && !li.Quantity.IsZero() &&
		li.LineTotal != nil && !li.LineTotal.IsZero()
}

// SumLineTotals adds every non-nil line total. The second return value is false
// when no item carries a total.
func SumLineTotals(items []LineItem) (decimal.Decimal, bool) {
	sum := decimal.Zero
	found := false
	for _, item := range items {
		if item.LineTotal == nil {
			continue
		}
		sum = sum.Add(*item.LineTotal)
		found = true
	}
	return sum, found
}
