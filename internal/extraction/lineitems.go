package extraction

import (
	"regexp"
	"strings"
)

// Strategy rebuilds line items from the lines of a document
type Strategy struct {
	Name    string
	Extract func(lines []string) []LineItem
}

const (
	StrategyInlineTable    = "inline_table"
	StrategyHeaderAnchored = "header_anchored"
	StrategyBackwardScan   = "backward_scan"
	StrategySingleLine     = "single_line"
)

// DefaultStrategies is the cascade tried in order until one yields items
var DefaultStrategies = []Strategy{
	{Name: StrategyInlineTable, Extract: inlineTableItems},
	{Name: StrategyHeaderAnchored, Extract: headerAnchoredItems},
	{Name: StrategyBackwardScan, Extract: backwardScanItems},
	{Name: StrategySingleLine, Extract: singleLineItems},
}

var (
	bareNumber      = regexp.MustCompile(`^[\d,]+\.?\d*$`)
	currencyAmount  = regexp.MustCompile(`^\$[\d,]+\.?\d*$`)
	productHeader   = regexp.MustCompile(`(?i)product\s+name|description\s+price|line\s+unit\s+total`)
	captionOnly     = regexp.MustCompile(`(?i)^(?:price|quantity|description|product\s+name)$`)
	tableEnd        = regexp.MustCompile(`(?i)^\s*total\s*:`)
	inlineTriple    = regexp.MustCompile(`([\d,]+\.?\d*)\s+\$([\d,]+\.?\d*)\s+\$([\d,]+\.?\d*)`)
	singleLineItem  = regexp.MustCompile(`([A-Za-z][^\n]{5,50}?)\s+([\d,]+\.?\d*)\s+\$?([\d,]+\.?\d+)\s+\$?([\d,]+\.?\d+)`)
	dashFragment    = regexp.MustCompile(`(?s)^(-\s*[\d/.\-\s]+?)\s+([A-Z][A-Za-z].*)$`)
	lowerFragment   = regexp.MustCompile(`(?s)^([a-z][^.]+?)\s+([A-Z][A-Za-z].+)$`)
	noiseLabels     = []string{"notes", "special", "instructions"}
	structuralWords = []string{"Product Name", "Quantity", "Price", "Total:"}
)

// ReconstructLineItems runs the strategies in order and returns the first
// non-empty result along with the name of the strategy that produced it.
func ReconstructLineItems(text string, strategies []Strategy) ([]LineItem, string) {
	lines := strings.Split(text, "\n")
	for _, s := range strategies {
		if items := s.Extract(lines); len(items) > 0 {
			return repairContinuations(items), s.Name
		}
	}
	return nil, ""
}

// findHeader returns the index of the last table header before the first
// line starting with "Total:", or -1.
func findHeader(lines []string) int {
	header := -1
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if tableEnd.MatchString(line) {
			break
		}
		switch {
		case productHeader.MatchString(line):
			header = i
		case strings.EqualFold(line, "price") && quantityAbove(lines, i, 3):
			header = i
		case strings.Contains(line, "Total") && strings.Contains(line, "Price"):
			header = i
		}
	}
	return header
}

func quantityAbove(lines []string, i, distance int) bool {
	for j := i - 1; j >= 0 && j >= i-distance; j-- {
		if strings.Contains(strings.ToLower(lines[j]), "quantity") {
			return true
		}
	}
	return false
}

// tableStart returns the first line after the header and its caption lines, or -1
func tableStart(lines []string, header int) int {
	if header < 0 {
		return -1
	}
	start := header + 1
	for start < len(lines) && captionOnly.MatchString(strings.TrimSpace(lines[start])) {
		start++
	}
	return start
}

// inlineTableItems reads tables where quantity, unit price and total share a
// line ("13.16 $130.00 $1,710.80") under a product table header. Text before
// the numbers belongs to the current item and text after them starts the
// next one. Leftover text is appended to the last item.
func inlineTableItems(lines []string) []LineItem {
	header := -1
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if tableEnd.MatchString(line) {
			break
		}
		if productHeader.MatchString(line) {
			header = i
		}
	}
	start := tableStart(lines, header)
	if start < 0 {
		return nil
	}

	var items []LineItem
	var buffer []string
	for i := start; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || isNoise(line) {
			continue
		}
		if tableEnd.MatchString(line) {
			break
		}
		loc := inlineTriple.FindStringSubmatchIndex(line)
		if loc == nil {
			buffer = append(buffer, line)
			continue
		}
		if prefix := strings.TrimSpace(line[:loc[0]]); prefix != "" {
			buffer = append(buffer, prefix)
		}
		item, ok := newLineItem(len(items)+1, strings.Join(buffer, " "),
			line[loc[2]:loc[3]], line[loc[4]:loc[5]], line[loc[6]:loc[7]])
		if !ok {
			buffer = append(buffer, line)
			continue
		}
		items = append(items, item)
		buffer = nil
		if suffix := strings.TrimSpace(line[loc[1]:]); suffix != "" {
			buffer = append(buffer, suffix)
		}
	}

	if len(items) > 0 && len(buffer) > 0 {
		last := &items[len(items)-1]
		last.Description = strings.TrimSpace(last.Description + " " + strings.Join(buffer, " "))
	}
	return items
}

// headerAnchoredItems walks the table that follows a header row. A price line
// followed by a second price line closes an item; the quantity is the closest
// bare number above the price.
func headerAnchoredItems(lines []string) []LineItem {
	start := tableStart(lines, findHeader(lines))
	if start < 0 {
		return nil
	}

	var items []LineItem
	var buffer []string
	for i := start; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if tableEnd.MatchString(line) {
			break
		}
		if currencyAmount.MatchString(line) {
			if i+1 >= len(lines) {
				continue
			}
			next := strings.TrimSpace(lines[i+1])
			if !currencyAmount.MatchString(next) {
				continue
			}
			qtyIdx := -1
			for j := i - 1; j >= start; j-- {
				if bareNumber.MatchString(strings.TrimSpace(lines[j])) {
					qtyIdx = j
					break
				}
			}
			if qtyIdx < 0 {
				continue
			}
			item, ok := newLineItem(len(items)+1, strings.Join(buffer, " "),
				strings.TrimSpace(lines[qtyIdx]), line, next)
			if !ok {
				continue
			}
			items = append(items, item)
			buffer = nil
			i++
			continue
		}
		if bareNumber.MatchString(line) {
			continue
		}
		if isNoise(line) {
			continue
		}
		buffer = append(buffer, line)
	}
	return items
}

// backwardScanItems looks for quantity, unit price and total on three
// consecutive lines and rebuilds the description from the lines above.
func backwardScanItems(lines []string) []LineItem {
	compact := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			compact = append(compact, l)
		}
	}

	var items []LineItem
	for i := 2; i < len(compact); i++ {
		if !currencyAmount.MatchString(compact[i]) ||
			!currencyAmount.MatchString(compact[i-1]) ||
			!bareNumber.MatchString(compact[i-2]) {
			continue
		}
		var desc []string
		for j := i - 3; j >= 0; j-- {
			prev := compact[j]
			if currencyAmount.MatchString(prev) || bareNumber.MatchString(prev) || containsStructural(prev) {
				break
			}
			desc = append(desc, prev)
		}
		reverse(desc)
		item, ok := newLineItem(len(items)+1, strings.Join(desc, " "), compact[i-2], compact[i-1], compact[i])
		if ok {
			items = append(items, item)
		}
	}
	return items
}

// singleLineItems handles layouts that keep a whole row on one physical line
func singleLineItems(lines []string) []LineItem {
	var items []LineItem
	for _, line := range lines {
		for _, m := range singleLineItem.FindAllStringSubmatch(line, -1) {
			desc := strings.TrimSpace(m[1])
			lower := strings.ToLower(desc)
			if strings.Contains(lower, "quantity") || strings.Contains(lower, "price") {
				continue
			}
			item, ok := newLineItem(len(items)+1, desc, m[2], m[3], m[4])
			if ok {
				items = append(items, item)
			}
		}
	}
	return items
}

func newLineItem(number int, description, qty, price, total string) (LineItem, bool) {
	quantity := ParseAmount(qty)
	unitPrice := ParseAmount(price)
	lineTotal := ParseAmount(total)
	if quantity == nil || unitPrice == nil || lineTotal == nil {
		return LineItem{}, false
	}
	return LineItem{
		LineNumber:  number,
		Description: strings.TrimSpace(description),
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		LineTotal:   lineTotal,
	}, true
}

// repairContinuations moves wrapped text that spilled into the start of the
// next item's description back onto the previous item.
func repairContinuations(items []LineItem) []LineItem {
	for i := 1; i < len(items); i++ {
		desc := items[i].Description
		if desc == "" {
			continue
		}
		m := dashFragment.FindStringSubmatch(desc)
		if m == nil {
			m = lowerFragment.FindStringSubmatch(desc)
		}
		if m == nil {
			continue
		}
		continuation := strings.TrimSpace(m[1])
		if items[i-1].Description == "" {
			items[i-1].Description = continuation
		} else {
			items[i-1].Description += " " + continuation
		}
		items[i].Description = strings.TrimSpace(m[2])
	}
	return items
}

func isNoise(line string) bool {
	lower := strings.ToLower(line)
	for _, label := range noiseLabels {
		if strings.Contains(lower, label) {
			return true
		}
	}
	return false
}

func containsStructural(line string) bool {
	for _, kw := range structuralWords {
		if strings.Contains(line, kw) {
			return true
		}
	}
	return false
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
