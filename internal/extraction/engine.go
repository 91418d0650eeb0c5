// Package extraction turns layout-stripped purchase-order and invoice text into
// a StructuredDocument with a confidence score and a review decision.
//
// The engine is deterministic and holds no mutable state: an Engine may be
// shared by any number of goroutines.
package extraction

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Options configures an Engine
type Options struct {
	KnownVendors    []string
	HeuristicWindow int
	Triage          TriagePolicy
	Weights         ScoreWeights
	Strategies      []Strategy
}

// DefaultOptions returns the built-in configuration
func DefaultOptions() Options {
	return Options{
		KnownVendors:    DefaultKnownVendors,
		HeuristicWindow: DefaultHeuristicWindow,
		Triage:          DefaultTriagePolicy(),
		Weights:         DefaultScoreWeights(),
		Strategies:      DefaultStrategies,
	}
}

// Engine extracts structured fields from raw document text
type Engine struct {
	registry   *Registry
	vendors    *VendorResolver
	calculator *ConfidenceCalculator
	triage     TriagePolicy
	strategies []Strategy
	logger     *zap.Logger
}

// NewEngine creates an engine. Invalid triage settings fall back to the default policy.
func NewEngine(opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := opts.Triage.Validate(); err != nil {
		logger.Warn("Invalid triage policy, using default", zap.Error(err))
		opts.Triage = DefaultTriagePolicy()
	}
	if len(opts.Strategies) == 0 {
		opts.Strategies = DefaultStrategies
	}
	if opts.Weights == (ScoreWeights{}) {
		opts.Weights = DefaultScoreWeights()
	}
	registry := DefaultRegistry()
	return &Engine{
		registry:   registry,
		vendors:    NewVendorResolver(opts.KnownVendors, opts.HeuristicWindow, registry),
		calculator: NewConfidenceCalculator(opts.Weights),
		triage:     opts.Triage,
		strategies: opts.Strategies,
		logger:     logger,
	}
}

var eightDigits = regexp.MustCompile(`^\d{8}$`)

// Extract runs the full pipeline over one document. It never fails: missing
// fields are left empty and lower the confidence score.
func (e *Engine) Extract(text string) *StructuredDocument {
	raw := text
	text = strings.ToValidUTF8(strings.ReplaceAll(text, "\r\n", "\n"), "\uFFFD")

	doc := &StructuredDocument{
		ExtractionMethod: MethodRegex,
		RawText:          raw,
	}

	doc.PONumber = e.poNumber(text)
	doc.InvoiceNumber = e.registry.Text(text, FieldInvoiceNumber)
	if doc.InvoiceNumber == "" && doc.PONumber != "" {
		doc.InvoiceNumber = "PO-" + doc.PONumber
	}

	doc.InvoiceDate = e.date(text, FieldOrderDate)
	if doc.InvoiceDate == nil {
		doc.InvoiceDate = e.date(text, FieldInvoiceDate)
	}
	doc.DueDate = e.date(text, FieldDueDate)
	doc.ApprovedDate = e.date(text, FieldApprovedDate)

	doc.TotalAmount = e.amount(text, FieldTotal)
	doc.Subtotal = e.amount(text, FieldSubtotal)
	doc.TaxAmount = e.amount(text, FieldTax)
	if doc.Subtotal == nil && doc.TotalAmount != nil && doc.TaxAmount == nil {
		doc.Subtotal = decimalPtr(*doc.TotalAmount)
	}

	doc.Vendor = e.vendors.Resolve(text)

	doc.Project = e.registry.Text(text, FieldOpportunityNumber)
	if doc.Project == "" {
		doc.Project = e.registry.Text(text, FieldProjectNumber)
	}
	doc.SaleNumber = e.registry.Text(text, FieldSaleNumber)
	doc.CreatedBy = e.registry.Text(text, FieldCreatedBy)
	doc.MarketSegment = e.registry.Text(text, FieldMarketSegment)
	doc.ProductCategory = e.registry.Text(text, FieldProductCategory)

	doc.LineItems, doc.LineItemStrategy = ReconstructLineItems(text, e.strategies)
	if doc.LineItems == nil {
		doc.LineItems = []LineItem{}
	}
	if doc.TotalAmount == nil && len(doc.LineItems) > 0 {
		if sum, ok := SumLineTotals(doc.LineItems); ok {
			doc.TotalAmount = decimalPtr(sum)
		}
	}

	doc.ConfidenceScore = e.calculator.Calculate(doc)
	decision := e.triage.Decide(doc)
	doc.RequiresManualReview = decision.RequiresReview
	doc.ReviewReasons = decision.Reasons
	doc.Warnings = consistencyWarnings(doc)

	e.logger.Info("Extraction completed",
		zap.String("po_number", doc.PONumber),
		zap.String("invoice_number", doc.InvoiceNumber),
		zap.String("vendor", doc.Vendor.Name),
		zap.Int("line_items", len(doc.LineItems)),
		zap.String("line_item_strategy", doc.LineItemStrategy),
		zap.Float64("confidence", doc.ConfidenceScore),
		zap.Bool("requires_review", doc.RequiresManualReview))

	return doc
}

// Triage exposes the engine's review policy
func (e *Engine) Triage() TriagePolicy {
	return e.triage
}

// poNumber prefers a bare eight-digit line near the top of the document
func (e *Engine) poNumber(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > 5 {
		lines = lines[:5]
	}
	for _, line := range lines {
		if line = strings.TrimSpace(line); eightDigits.MatchString(line) {
			return line
		}
	}
	return e.registry.Text(text, FieldPONumber)
}

func (e *Engine) date(text string, field Field) *time.Time {
	value, ok := e.registry.Find(text, field)
	if !ok {
		return nil
	}
	parsed := ParseDate(value)
	if parsed == nil {
		e.logger.Debug("Unparsable date", zap.String("field", string(field)), zap.String("value", value))
	}
	return parsed
}

func (e *Engine) amount(text string, field Field) *decimal.Decimal {
	value, ok := e.registry.Find(text, field)
	if !ok {
		return nil
	}
	parsed := ParseAmount(value)
	if parsed == nil {
		e.logger.Debug("Unparsable amount", zap.String("field", string(field)), zap.String("value", value))
	}
	return parsed
}
