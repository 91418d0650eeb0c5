// Package aitier is the optional LLM extraction tier. Its output is
// cross-checked against the regex engine before it is trusted.
package aitier

import (
	"context"
	"errors"
	"strings"

	"github.com/garyjia/docextract/internal/extraction"
	"github.com/garyjia/docextract/pkg/utils"
	"github.com/shopspring/decimal"
)

// MethodAIText tags documents whose fields came from the text LLM
const MethodAIText = "ai_text"

var (
	// ErrAITierDisabled is returned when no API key is configured
	ErrAITierDisabled = errors.New("ai extraction tier disabled")

	// ErrInvalidResponse is returned when the model output is unusable
	ErrInvalidResponse = errors.New("invalid ai extraction response")
)

// Extractor extracts structured fields from document text with a language model
type Extractor interface {
	Extract(ctx context.Context, text string) (*Extraction, error)
}

// Extraction is the model's view of a document
type Extraction struct {
	InvoiceNumber string           `json:"invoice_number"`
	PONumber      string           `json:"po_number"`
	VendorName    string           `json:"vendor_name"`
	VendorEmail   string           `json:"vendor_email"`
	VendorPhone   string           `json:"vendor_phone"`
	VendorAddress string           `json:"vendor_address"`
	InvoiceDate   string           `json:"invoice_date"`
	DueDate       string           `json:"due_date"`
	Subtotal      *decimal.Decimal `json:"subtotal"`
	TaxAmount     *decimal.Decimal `json:"tax_amount"`
	TotalAmount   *decimal.Decimal `json:"total_amount"`
	LineItems     []ExtractedItem  `json:"line_items"`
	Confidence    *float64         `json:"confidence"`
}

// ExtractedItem is one line item as reported by the model
type ExtractedItem struct {
	LineNumber  int              `json:"line_number"`
	Description string           `json:"description"`
	Quantity    *decimal.Decimal `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	LineTotal   *decimal.Decimal `json:"line_total"`
}

// Usable reports whether the extraction carries enough to stand in for the
// regex result: an identifier with a total or vendor, or a total with a vendor.
func (e *Extraction) Usable() bool {
	hasID := e.InvoiceNumber != "" || e.PONumber != ""
	hasTotal := e.TotalAmount != nil
	hasVendor := e.VendorName != ""
	return (hasID && (hasTotal || hasVendor)) || (hasTotal && hasVendor)
}

// ToDocument converts the extraction into the engine's document shape.
// A malformed vendor email is dropped. Scoring and triage fields are left
// for the caller.
func (e *Extraction) ToDocument(rawText string) *extraction.StructuredDocument {
	email := strings.TrimSpace(e.VendorEmail)
	if email != "" && utils.ValidateEmail(email) != nil {
		email = ""
	}
	doc := &extraction.StructuredDocument{
		InvoiceNumber: e.InvoiceNumber,
		PONumber:      e.PONumber,
		Vendor: extraction.VendorInfo{
			Name:    e.VendorName,
			Email:   email,
			Phone:   e.VendorPhone,
			Address: e.VendorAddress,
		},
		InvoiceDate:      extraction.ParseDate(e.InvoiceDate),
		DueDate:          extraction.ParseDate(e.DueDate),
		Subtotal:         e.Subtotal,
		TaxAmount:        e.TaxAmount,
		TotalAmount:      e.TotalAmount,
		LineItems:        make([]extraction.LineItem, 0, len(e.LineItems)),
		ExtractionMethod: MethodAIText,
		RawText:          rawText,
	}
	for i, item := range e.LineItems {
		doc.LineItems = append(doc.LineItems, extraction.LineItem{
			LineNumber:  i + 1,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		})
	}
	return doc
}
