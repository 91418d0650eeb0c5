package extraction

import (
	"math"

	"github.com/shopspring/decimal"
)

// ScoreWeights holds the contribution of each completeness check
type ScoreWeights struct {
	InvoiceNumber float64
	InvoiceDate   float64
	TotalAmount   float64
	VendorName    float64
	LineItems     float64
	SumMatchBonus float64
}

// DefaultScoreWeights returns the standard weighting; the five checks sum to 1.0
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		InvoiceNumber: 0.25,
		InvoiceDate:   0.15,
		TotalAmount:   0.25,
		VendorName:    0.15,
		LineItems:     0.20,
		SumMatchBonus: 0.05,
	}
}

var sumTolerance = decimal.RequireFromString("0.01")

// ConfidenceCalculator computes the weighted completeness score of a document
type ConfidenceCalculator struct {
	weights ScoreWeights
}

// NewConfidenceCalculator creates a calculator with the given weights
func NewConfidenceCalculator(weights ScoreWeights) *ConfidenceCalculator {
	return &ConfidenceCalculator{weights: weights}
}

// Calculate scores a document. The result is in [0, 1], rounded to two decimals.
func (cc *ConfidenceCalculator) Calculate(doc *StructuredDocument) float64 {
	w := cc.weights
	var score float64

	if doc.InvoiceNumber != "" {
		score += w.InvoiceNumber
	}
	if doc.InvoiceDate != nil {
		score += w.InvoiceDate
	}
	if doc.TotalAmount != nil {
		score += w.TotalAmount
	}
	if doc.Vendor.Name != "" {
		score += w.VendorName
	}
	if n := len(doc.LineItems); n > 0 {
		complete := 0
		for _, item := range doc.LineItems {
			if item.Complete() {
				complete++
			}
		}
		score += w.LineItems * float64(complete) / float64(n)
	}

	if doc.TotalAmount != nil && len(doc.LineItems) > 0 {
		if sum, ok := SumLineTotals(doc.LineItems); ok && !sum.IsZero() &&
			sum.Sub(*doc.TotalAmount).Abs().LessThan(sumTolerance) {
			score += w.SumMatchBonus
		}
	}

	score = math.Min(math.Max(score, 0), 1)
	return math.Round(score*100) / 100
}
