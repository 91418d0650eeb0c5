package extraction

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/shopspring/decimal"
)

var (
	amountReplacer = strings.NewReplacer(",", "", "$", "", "(", "", ")", "", " ", "", "\t", "")
	numericDate    = regexp.MustCompile(`^\d{1,2}[./\-]\d{1,2}[./\-]\d{2,4}$`)
	dateSeparators = strings.NewReplacer(".", "/", "-", "/")
)

// ParseAmount converts a matched monetary string into a decimal.
// Returns nil when the string cannot be coerced.
func ParseAmount(raw string) *decimal.Decimal {
	cleaned := amountReplacer.Replace(strings.TrimSpace(raw))
	cleaned = strings.TrimLeft(cleaned, "-")
	if cleaned == "" {
		return nil
	}
	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil
	}
	return &value
}

// ParseDate parses a loosely formatted date string in UTC and truncates it to
// the calendar day. Numeric dates are read month first and fall back to day
// first when that is not a valid date. Returns nil on failure.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if numericDate.MatchString(raw) {
		raw = dateSeparators.Replace(raw)
	}
	parsed, err := dateparse.ParseIn(raw, time.UTC, dateparse.RetryAmbiguousDateWithSwap(true))
	if err != nil {
		return nil
	}
	day := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
	return &day
}

func decimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
