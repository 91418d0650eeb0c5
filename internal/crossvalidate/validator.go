// Package crossvalidate compares an AI extraction with the regex engine's
// result field by field and blends both into a final confidence.
package crossvalidate

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/garyjia/docextract/internal/aitier"
	"github.com/garyjia/docextract/internal/extraction"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Field weights. Critical fields also force review when they disagree.
var (
	criticalFields = []weightedField{
		{"invoice_number", 0.20, kindText},
		{"total_amount", 0.25, kindAmount},
		{"vendor_name", 0.15, kindText},
		{"invoice_date", 0.10, kindDate},
	}
	importantFields = []weightedField{
		{"subtotal", 0.08, kindAmount},
		{"tax_amount", 0.05, kindAmount},
		{"due_date", 0.05, kindDate},
		{"po_number", 0.05, kindText},
		{"vendor_email", 0.03, kindText},
		{"vendor_phone", 0.02, kindText},
		{"vendor_address", 0.02, kindText},
	}
)

const (
	// ReviewThreshold is the final confidence below which review is recommended
	ReviewThreshold = 0.70

	defaultAIConfidence = 0.70
	allMatchBonus       = 0.05
	aiOnlyBonus         = 0.02
	aiOnlyBonusCap      = 0.06
	amountRelTolerance  = 0.005
)

var amountAbsTolerance = decimal.RequireFromString("0.02")

type valueKind int

const (
	kindText valueKind = iota
	kindAmount
	kindDate
)

type weightedField struct {
	name   string
	weight float64
	kind   valueKind
}

// FieldResult is the comparison of one field
type FieldResult struct {
	Field      string  `json:"field"`
	AIValue    string  `json:"ai_value,omitempty"`
	RegexValue string  `json:"regex_value,omitempty"`
	Match      bool    `json:"match"`
	Critical   bool    `json:"critical"`
	Adjustment float64 `json:"adjustment"`
	Note       string  `json:"note"`
}

// Result summarizes a cross-validation run
type Result struct {
	Compared        int           `json:"compared"`
	Matching        int           `json:"matching"`
	Mismatched      int           `json:"mismatched"`
	AIOnly          int           `json:"ai_only"`
	RegexOnly       int           `json:"regex_only"`
	ValidationScore float64       `json:"validation_score"`
	FinalConfidence float64       `json:"final_confidence"`
	RecommendReview bool          `json:"recommend_review"`
	Fields          []FieldResult `json:"fields"`
	Notes           []string      `json:"notes,omitempty"`
}

// Validator cross-checks AI and regex extractions
type Validator struct {
	logger *zap.Logger
}

// NewValidator creates a validator
func NewValidator(logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{logger: logger}
}

// Validate compares ai against the regex document
func (v *Validator) Validate(ai *aitier.Extraction, doc *extraction.StructuredDocument) Result {
	aiValues := aiComparable(ai)
	regexValues := regexComparable(doc)

	var res Result
	var matchedWeight, presentWeight float64
	var criticalMismatches []string

	compare := func(f weightedField, critical bool) {
		fr := compareField(f, aiValues[f.name], regexValues[f.name])
		fr.Critical = critical
		res.Fields = append(res.Fields, fr)

		aiHas, regexHas := fr.AIValue != "", fr.RegexValue != ""
		if !aiHas && !regexHas {
			return
		}
		res.Compared++
		presentWeight += f.weight
		switch {
		case aiHas && regexHas && fr.Match:
			res.Matching++
			matchedWeight += fr.Adjustment
		case aiHas && regexHas:
			res.Mismatched++
			if critical {
				criticalMismatches = append(criticalMismatches, f.name)
			}
		case aiHas:
			res.AIOnly++
		default:
			res.RegexOnly++
		}
	}
	for _, f := range criticalFields {
		compare(f, true)
	}
	for _, f := range importantFields {
		compare(f, false)
	}

	res.Notes = lineItemNotes(ai, doc)

	res.ValidationScore = 0.5
	if presentWeight > 0 {
		res.ValidationScore = matchedWeight / presentWeight
	}

	aiConfidence := defaultAIConfidence
	if ai.Confidence != nil && *ai.Confidence > 0 {
		aiConfidence = *ai.Confidence
	}
	res.FinalConfidence = finalConfidence(aiConfidence, res)
	res.ValidationScore = round3(res.ValidationScore)

	res.RecommendReview = res.FinalConfidence < ReviewThreshold || len(criticalMismatches) > 0
	if len(criticalMismatches) > 0 {
		res.Notes = append(res.Notes, fmt.Sprintf("critical field disagreement on %s",
			strings.Join(criticalMismatches, ", ")))
	}

	v.logger.Info("Cross-validation complete",
		zap.Int("compared", res.Compared),
		zap.Int("matching", res.Matching),
		zap.Int("mismatched", res.Mismatched),
		zap.Int("ai_only", res.AIOnly),
		zap.Float64("validation_score", res.ValidationScore),
		zap.Float64("final_confidence", res.FinalConfidence),
		zap.Bool("recommend_review", res.RecommendReview))

	return res
}

func finalConfidence(aiConfidence float64, res Result) float64 {
	if res.Compared == 0 {
		return round3(aiConfidence)
	}
	score := aiConfidence*0.6 + res.ValidationScore*0.4
	if res.Mismatched == 0 && res.Matching > 0 {
		score += allMatchBonus
	}
	if res.AIOnly > 0 {
		score += math.Min(float64(res.AIOnly)*aiOnlyBonus, aiOnlyBonusCap)
	}
	return round3(math.Max(0, math.Min(1, score)))
}

func compareField(f weightedField, aiValue, regexValue string) FieldResult {
	fr := FieldResult{Field: f.name, AIValue: aiValue, RegexValue: regexValue}
	switch {
	case aiValue == "" && regexValue == "":
		fr.Match = true
		fr.Note = "both sources empty"
	case regexValue == "":
		fr.Adjustment = f.weight * 0.5
		fr.Note = "found by AI only"
	case aiValue == "":
		fr.Note = "found by regex only"
	case valuesMatch(f.kind, aiValue, regexValue):
		fr.Match = true
		fr.Adjustment = f.weight
		fr.Note = "values match"
	default:
		fr.Adjustment = -f.weight * 0.5
		fr.Note = fmt.Sprintf("mismatch: AI=%q regex=%q", aiValue, regexValue)
	}
	return fr
}

func valuesMatch(kind valueKind, a, b string) bool {
	switch kind {
	case kindAmount:
		return amountsMatch(a, b)
	case kindDate:
		return datesMatch(a, b)
	default:
		return stringsMatch(a, b)
	}
}

// amountsMatch accepts a two-cent absolute or half-percent relative difference
func amountsMatch(a, b string) bool {
	da := extraction.ParseAmount(a)
	db := extraction.ParseAmount(b)
	if da == nil || db == nil {
		return strings.TrimSpace(a) == strings.TrimSpace(b)
	}
	diff := da.Sub(*db).Abs()
	if diff.LessThanOrEqual(amountAbsTolerance) {
		return true
	}
	largest := decimal.Max(da.Abs(), db.Abs())
	if largest.IsZero() {
		return false
	}
	rel, _ := diff.Div(largest).Float64()
	return rel <= amountRelTolerance
}

func datesMatch(a, b string) bool {
	da := extraction.ParseDate(a)
	db := extraction.ParseDate(b)
	if da == nil || db == nil {
		return stringsMatch(a, b)
	}
	return da.Equal(*db)
}

var whitespace = regexp.MustCompile(`\s+`)

// stringsMatch compares case- and whitespace-insensitively, allowing one value
// to contain the other and ignoring punctuation differences.
func stringsMatch(a, b string) bool {
	na := whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(a)), " ")
	nb := whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(b)), " ")
	if na == nb {
		return true
	}
	if len(na) > 3 && len(nb) > 3 && (strings.Contains(na, nb) || strings.Contains(nb, na)) {
		return true
	}
	strip := strings.NewReplacer(".", "", ",", "")
	return strip.Replace(na) == strip.Replace(nb)
}

func lineItemNotes(ai *aitier.Extraction, doc *extraction.StructuredDocument) []string {
	var notes []string
	aiCount, regexCount := len(ai.LineItems), len(doc.LineItems)
	switch {
	case aiCount > 0 && regexCount > 0 && aiCount == regexCount:
		notes = append(notes, fmt.Sprintf("line item count matches: %d", aiCount))
	case aiCount > 0 && regexCount > 0:
		notes = append(notes, fmt.Sprintf("line item count mismatch: AI=%d regex=%d", aiCount, regexCount))
	case aiCount > 0:
		notes = append(notes, fmt.Sprintf("AI found %d line items, regex found none", aiCount))
	case regexCount > 0:
		notes = append(notes, fmt.Sprintf("regex found %d line items, AI found none", regexCount))
	}

	if ai.TotalAmount != nil && aiCount > 0 {
		sum := decimal.Zero
		for _, item := range ai.LineItems {
			if item.LineTotal != nil {
				sum = sum.Add(*item.LineTotal)
			}
		}
		if sum.IsPositive() {
			matchesTotal := sum.Sub(*ai.TotalAmount).Abs().LessThan(amountAbsTolerance)
			matchesSubtotal := ai.Subtotal != nil && ai.TaxAmount != nil &&
				sum.Sub(*ai.Subtotal).Abs().LessThan(amountAbsTolerance)
			if matchesTotal || matchesSubtotal {
				notes = append(notes, "AI line items sum matches total")
			} else {
				notes = append(notes, fmt.Sprintf("AI line items sum %s differs from total %s",
					sum.StringFixed(2), ai.TotalAmount.StringFixed(2)))
			}
		}
	}
	return notes
}

func aiComparable(ai *aitier.Extraction) map[string]string {
	return map[string]string{
		"invoice_number": strings.TrimSpace(ai.InvoiceNumber),
		"po_number":      strings.TrimSpace(ai.PONumber),
		"vendor_name":    strings.TrimSpace(ai.VendorName),
		"vendor_email":   strings.TrimSpace(ai.VendorEmail),
		"vendor_phone":   strings.TrimSpace(ai.VendorPhone),
		"vendor_address": strings.TrimSpace(ai.VendorAddress),
		"invoice_date":   strings.TrimSpace(ai.InvoiceDate),
		"due_date":       strings.TrimSpace(ai.DueDate),
		"total_amount":   amountString(ai.TotalAmount),
		"subtotal":       amountString(ai.Subtotal),
		"tax_amount":     amountString(ai.TaxAmount),
	}
}

func regexComparable(doc *extraction.StructuredDocument) map[string]string {
	return map[string]string{
		"invoice_number": doc.InvoiceNumber,
		"po_number":      doc.PONumber,
		"vendor_name":    doc.Vendor.Name,
		"vendor_email":   doc.Vendor.Email,
		"vendor_phone":   doc.Vendor.Phone,
		"vendor_address": doc.Vendor.Address,
		"invoice_date":   dateString(doc.InvoiceDate),
		"due_date":       dateString(doc.DueDate),
		"total_amount":   amountString(doc.TotalAmount),
		"subtotal":       amountString(doc.Subtotal),
		"tax_amount":     amountString(doc.TaxAmount),
	}
}

func amountString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func dateString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
