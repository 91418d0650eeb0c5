package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriagePolicy_Validate(t *testing.T) {
	tests := []struct {
		threshold float64
		wantErr   bool
	}{
		{0, true},
		{-0.1, true},
		{0.5, false},
		{1.0, false},
		{1.01, true},
	}

	for _, tt := range tests {
		err := TriagePolicy{ReviewThreshold: tt.threshold}.Validate()
		if tt.wantErr {
			assert.Error(t, err, "threshold %.2f", tt.threshold)
		} else {
			assert.NoError(t, err, "threshold %.2f", tt.threshold)
		}
	}
}

func TestTriagePolicy_Decide(t *testing.T) {
	policy := DefaultTriagePolicy()

	tests := []struct {
		name    string
		doc     *StructuredDocument
		review  bool
		reasons []string
	}{
		{
			name:   "confident and complete",
			doc:    &StructuredDocument{ConfidenceScore: 0.90, InvoiceNumber: "INV-1", TotalAmount: dec("10")},
			review: false,
		},
		{
			name:    "exactly at threshold passes",
			doc:     &StructuredDocument{ConfidenceScore: 0.70, InvoiceNumber: "INV-1", TotalAmount: dec("10")},
			review:  false,
			reasons: nil,
		},
		{
			name:    "low confidence",
			doc:     &StructuredDocument{ConfidenceScore: 0.50, InvoiceNumber: "INV-1", TotalAmount: dec("10")},
			review:  true,
			reasons: []string{"confidence 0.50 below threshold 0.70"},
		},
		{
			name:    "missing invoice number",
			doc:     &StructuredDocument{ConfidenceScore: 0.95, TotalAmount: dec("10")},
			review:  true,
			reasons: []string{"invoice number missing"},
		},
		{
			name:    "missing total",
			doc:     &StructuredDocument{ConfidenceScore: 0.95, InvoiceNumber: "INV-1"},
			review:  true,
			reasons: []string{"total amount missing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := policy.Decide(tt.doc)
			assert.Equal(t, tt.review, decision.RequiresReview)
			assert.Equal(t, tt.reasons, decision.Reasons)
		})
	}
}

func TestTriageDecision_String(t *testing.T) {
	assert.Equal(t, "TriageDecision{auto}", TriageDecision{}.String())
	assert.Equal(t, "TriageDecision{review: a; b}",
		TriageDecision{RequiresReview: true, Reasons: []string{"a", "b"}}.String())
}

func TestConsistencyWarnings_LineItems(t *testing.T) {
	doc := &StructuredDocument{
		LineItems: []LineItem{
			{LineNumber: 1, Quantity: dec("2"), UnitPrice: dec("5"), LineTotal: dec("10")},
			{LineNumber: 2, Quantity: dec("3"), UnitPrice: dec("5"), LineTotal: dec("20")},
		},
	}

	warnings := consistencyWarnings(doc)

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "line 2")
}
