package extraction

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultReviewThreshold is the confidence below which a document is queued for review
const DefaultReviewThreshold = 0.70

// TriagePolicy decides whether a document may proceed without a reviewer
type TriagePolicy struct {
	ReviewThreshold float64
}

// TriageDecision is the outcome of applying a TriagePolicy
type TriageDecision struct {
	RequiresReview bool
	Reasons        []string
}

// DefaultTriagePolicy returns the standard policy
func DefaultTriagePolicy() TriagePolicy {
	return TriagePolicy{ReviewThreshold: DefaultReviewThreshold}
}

// Validate ensures the threshold is within (0.0, 1.0]
func (tp TriagePolicy) Validate() error {
	if tp.ReviewThreshold <= 0.0 || tp.ReviewThreshold > 1.0 {
		return fmt.Errorf("ReviewThreshold must be within (0.0, 1.0], got %.2f", tp.ReviewThreshold)
	}
	return nil
}

// Decide applies the policy. Invoice number and total are required regardless
// of the aggregate score.
func (tp TriagePolicy) Decide(doc *StructuredDocument) TriageDecision {
	var reasons []string
	if doc.ConfidenceScore < tp.ReviewThreshold {
		reasons = append(reasons, fmt.Sprintf("confidence %.2f below threshold %.2f",
			doc.ConfidenceScore, tp.ReviewThreshold))
	}
	if doc.InvoiceNumber == "" {
		reasons = append(reasons, "invoice number missing")
	}
	if doc.TotalAmount == nil {
		reasons = append(reasons, "total amount missing")
	}
	return TriageDecision{
		RequiresReview: len(reasons) > 0,
		Reasons:        reasons,
	}
}

// String returns a human-readable representation of the decision
func (td TriageDecision) String() string {
	if !td.RequiresReview {
		return "TriageDecision{auto}"
	}
	return fmt.Sprintf("TriageDecision{review: %s}", strings.Join(td.Reasons, "; "))
}

var consistencyTolerance = decimal.RequireFromString("0.02")

// consistencyWarnings reports advisory arithmetic mismatches. They never change
// the score or the triage outcome.
func consistencyWarnings(doc *StructuredDocument) []string {
	var warnings []string
	if doc.TotalAmount != nil && doc.Subtotal != nil {
		expected := *doc.Subtotal
		if doc.TaxAmount != nil {
			expected = expected.Add(*doc.TaxAmount)
		}
		if expected.Sub(*doc.TotalAmount).Abs().GreaterThan(consistencyTolerance) {
			warnings = append(warnings, fmt.Sprintf("subtotal plus tax %s does not match total %s",
				expected.StringFixed(2), doc.TotalAmount.StringFixed(2)))
		}
	}
	for _, item := range doc.LineItems {
		if item.Quantity == nil || item.UnitPrice == nil || item.LineTotal == nil {
			continue
		}
		product := item.Quantity.Mul(*item.UnitPrice)
		if product.Sub(*item.LineTotal).Abs().GreaterThan(consistencyTolerance) {
			warnings = append(warnings, fmt.Sprintf("line %d: quantity x unit price %s does not match line total %s",
				item.LineNumber, product.StringFixed(2), item.LineTotal.StringFixed(2)))
		}
	}
	return warnings
}
