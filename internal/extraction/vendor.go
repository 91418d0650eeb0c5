package extraction

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultKnownVendors lists vendors seen often enough to trust a plain substring hit
var DefaultKnownVendors = []string{
	"MGD Construction Services",
	"Master Gutters Installation Service",
	"Mayan's Construction Corp",
}

// DefaultHeuristicWindow is how many leading non-empty lines the indicator scan reads
const DefaultHeuristicWindow = 15

var companyIndicators = []string{
	"Inc", "Corp", "LLC", "LLP", "LLLP", "LP", "L.P.",
	"Ltd", "Co", "Company",
	"Services", "Service", "Construction", "Mfg",
	"Manufacturing", "Products", "Product", "Wholesale",
	"Systems", "Supply", "Supplies", "Solutions",
	"Industries", "Industrial", "IND",
	"Enterprises", "Enterprise", "Group", "International",
	"Associates", "Association", "Partners",
	"Technologies", "Technology", "Tech",
	"Distributors", "Distribution", "Imaging",
}

var headerLine = regexp.MustCompile(`(?i)\b(?:purchase order|invoice|project|sale|opportunity|created by|bill to|ship to|sold to|total|balance|amount due|page)\b`)

var firstLineSkips = compileAll(
	`^\d+$`,
	`^\$`,
	`^[\d/\-.]+$`,
	`^invoice$`,
	`^purchase\s+order`,
	`^page\s`,
	`^\*`,
	`^bill\s+to`,
	`^ship\s+to`,
	`^sold\s+to`,
	`^service\s+chg`,
	`^date\s+invoice`,
	`^this\s+is\s+an`,
	`^<+`,
	`^terms`,
	`^account`,
)

var remitPatterns = compileAll(
	`(?im)(?:remit|pay(?:able)?|make\s+check\s+payable)\s+to\s*:?[ \t]*[\n\r]*[ \t]*([A-Z][A-Za-z0-9 \t.,'&\-]+?)(?:\n|\r|\d|$)`,
)

var (
	indicatorPattern = buildIndicatorPattern()
	approvedAnchor   = regexp.MustCompile(`(?i)^approved\s+date\b`)
	companyShape     = regexp.MustCompile(`^[A-Z][A-Za-z'&.,\-]*(?:\s+[A-Za-z0-9'&.,\-]+)*$`)
	dateOnly         = regexp.MustCompile(`^[\d/\-.\s]+$`)
	numericOnly      = regexp.MustCompile(`^[\d$.,/\-\s]+$`)
	upperWord        = regexp.MustCompile(`^[A-Z]+$`)
	addressLike      = regexp.MustCompile(`(?i)^(?:\d|the order|po box|p\.?o\.?)`)
	customerSuffix   = regexp.MustCompile(`(?i)\s*-\s*Customer\s*#.*$`)
	trailingPhone    = regexp.MustCompile(`\s+\(?\d{3}\)?[\s\-]?\d{3}[\s\-]?\d{4}\s*$`)
	trailingEmail    = regexp.MustCompile(`\s+[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\s*$`)
	wideGap          = regexp.MustCompile(`\s{2,}|\t`)
	stateZip         = regexp.MustCompile(`\b([A-Z]{2})\s+(\d{5})\b`)
)

var usStates = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true, "CO": true, "CT": true, "DE": true,
	"FL": true, "GA": true, "HI": true, "ID": true, "IL": true, "IN": true, "IA": true, "KS": true,
	"KY": true, "LA": true, "ME": true, "MD": true, "MA": true, "MI": true, "MN": true, "MS": true,
	"MO": true, "MT": true, "NE": true, "NV": true, "NH": true, "NJ": true, "NM": true, "NY": true,
	"NC": true, "ND": true, "OH": true, "OK": true, "OR": true, "PA": true, "RI": true, "SC": true,
	"SD": true, "TN": true, "TX": true, "UT": true, "VT": true, "VA": true, "WA": true, "WV": true,
	"WI": true, "WY": true, "DC": true,
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, expr := range exprs {
		out[i] = regexp.MustCompile(expr)
	}
	return out
}

func buildIndicatorPattern() *regexp.Regexp {
	alts := make([]string, len(companyIndicators))
	for i, ind := range companyIndicators {
		alts[i] = strings.ReplaceAll(regexp.QuoteMeta(strings.TrimSuffix(ind, ".")), `\.`, `\.?`)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)
}

// VendorResolver identifies the issuing vendor. It holds only read-only state.
type VendorResolver struct {
	known    []string
	window   int
	registry *Registry
}

// NewVendorResolver creates a resolver over the given known-vendor table
func NewVendorResolver(known []string, window int, registry *Registry) *VendorResolver {
	if window <= 0 {
		window = DefaultHeuristicWindow
	}
	table := make([]string, 0, len(known))
	for _, name := range known {
		if name = strings.TrimSpace(name); name != "" {
			table = append(table, name)
		}
	}
	return &VendorResolver{known: table, window: window, registry: registry}
}

// Resolve builds the VendorInfo for a document
func (vr *VendorResolver) Resolve(text string) VendorInfo {
	info := VendorInfo{
		Email:   vr.registry.Text(text, FieldEmail),
		Phone:   vr.registry.Text(text, FieldPhone),
		Address: vr.resolveAddress(text),
	}
	if name := vr.resolveName(text); name != "" {
		info.Name = cleanVendorName(name)
	}
	return info
}

func (vr *VendorResolver) resolveName(text string) string {
	lines := nonEmptyLines(text)
	tiers := []func() string{
		func() string { return vr.fromKnownVendors(text) },
		func() string { return fromRemitBlock(text) },
		func() string { return fromApprovedDateAnchor(lines) },
		func() string { return vr.fromIndicators(lines) },
		func() string { return fromFirstLine(lines) },
	}
	for _, tier := range tiers {
		if name := tier(); name != "" {
			return name
		}
	}
	return ""
}

func (vr *VendorResolver) fromKnownVendors(text string) string {
	lower := strings.ToLower(text)
	for _, name := range vr.known {
		if strings.Contains(lower, strings.ToLower(name)) {
			return name
		}
	}
	return ""
}

func fromRemitBlock(text string) string {
	for _, p := range remitPatterns {
		m := p.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		name := strings.TrimSpace(m[1])
		if len(name) > 3 && len(name) < 80 && !addressLike.MatchString(name) {
			return name
		}
	}
	return ""
}

// fromApprovedDateAnchor takes the block after an "Approved Date" label. The
// label's own date value may sit on the next line and is skipped.
func fromApprovedDateAnchor(lines []string) string {
	for i, line := range lines {
		if !approvedAnchor.MatchString(line) {
			continue
		}
		for j := i + 1; j < len(lines) && j <= i+2; j++ {
			candidate := lines[j]
			if dateOnly.MatchString(candidate) {
				continue
			}
			if companyShape.MatchString(candidate) {
				return candidate
			}
			break
		}
	}
	return ""
}

func (vr *VendorResolver) fromIndicators(lines []string) string {
	limit := vr.window
	if len(lines) < limit {
		limit = len(lines)
	}
	for _, line := range lines[:limit] {
		if headerLine.MatchString(line) {
			continue
		}
		if len(line) < 4 || numericOnly.MatchString(line) {
			continue
		}
		if indicatorPattern.MatchString(line) {
			return line
		}
	}
	return ""
}

func fromFirstLine(lines []string) string {
	limit := 10
	if len(lines) < limit {
		limit = len(lines)
	}
	for _, line := range lines[:limit] {
		length := utf8.RuneCountInString(line)
		if length < 4 {
			continue
		}
		lower := strings.ToLower(line)
		skip := false
		for _, p := range firstLineSkips {
			if p.MatchString(lower) {
				skip = true
				break
			}
		}
		if skip || (upperWord.MatchString(line) && length < 15) {
			continue
		}
		letters := 0
		for _, r := range line {
			if unicode.IsLetter(r) {
				letters++
			}
		}
		if len(strings.Fields(line)) >= 2 && float64(letters) > float64(length)*0.5 {
			return line
		}
	}
	return ""
}

func (vr *VendorResolver) resolveAddress(text string) string {
	if addr := vr.registry.Text(text, FieldAddress); addr != "" {
		return addr
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		m := stateZip.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil || !usStates[m[1]] {
			continue
		}
		var parts []string
		start := i - 2
		if start < 0 {
			start = 0
		}
		for j := start; j <= i; j++ {
			if part := strings.TrimSpace(lines[j]); len(part) > 3 {
				parts = append(parts, part)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, ", ")
		}
	}
	return ""
}

func cleanVendorName(name string) string {
	name = strings.TrimSpace(name)
	name = customerSuffix.ReplaceAllString(name, "")
	name = trailingPhone.ReplaceAllString(name, "")
	name = trailingEmail.ReplaceAllString(name, "")
	name = strings.Trim(name, " ,.-")
	if len(name) > 60 {
		name = strings.TrimSpace(wideGap.Split(name, 2)[0])
	}
	return name
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
