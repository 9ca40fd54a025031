package receipt

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UnknownMerchant is the merchant fallback when no candidate line is found.
const UnknownMerchant = "Unknown Merchant"

// maxItems caps the number of line items kept from a receipt.
const maxItems = 10

// ParsedReceipt is the best-effort structured form of OCR output. Every
// field carries an explicit fallback, so parsing always yields a usable
// value.
type ParsedReceipt struct {
	Merchant string          `json:"merchant"`
	Amount   decimal.Decimal `json:"amount"`
	Date     time.Time       `json:"date"`
	Items    []string        `json:"items"`
	RawText  string          `json:"raw_text"`
}

var (
	// currency symbol followed by a number, or a bare number with cents
	amountPattern = regexp.MustCompile(`[$€£¥₹]\s*\d+(?:,\d{3})*(?:\.\d{1,2})?|\d+(?:,\d{3})*\.\d{1,2}`)

	// MM/DD/YYYY style, two or four digit year, slash or dash separated
	dateMDY = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{2}|\d{4})\b`)
	// ISO style YYYY/MM/DD or YYYY-MM-DD
	dateYMD = regexp.MustCompile(`\b(\d{4})[/-](\d{1,2})[/-](\d{1,2})\b`)

	// lines that describe the receipt itself rather than a purchased item
	nonItemPrefixes = []string{
		"total", "subtotal", "tax", "discount", "amount",
		"date", "time", "receipt", "thank", "you",
	}

	merchantKeywords = []string{
		"restaurant", "cafe", "store", "shop", "market",
		"pharmacy", "gas", "station",
	}
)

// Parser turns raw OCR text into a ParsedReceipt. It is pure and never
// fails: malformed input still produces a receipt built from fallbacks.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse extracts merchant, total amount, date and line items from raw text.
// extractedAt is the fallback date when the text carries no recognizable one.
func (p *Parser) Parse(rawText string, extractedAt time.Time) ParsedReceipt {
	lines := splitLines(rawText)

	return ParsedReceipt{
		Merchant: parseMerchant(lines),
		Amount:   parseAmount(lines),
		Date:     parseDate(lines, extractedAt),
		Items:    parseItems(lines),
		RawText:  rawText,
	}
}

func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// parseMerchant scans the first five lines for one that names a business,
// either via a business-type keyword or a plausible name length.
func parseMerchant(lines []string) string {
	limit := len(lines)
	if limit > 5 {
		limit = 5
	}

	for _, line := range lines[:limit] {
		lower := strings.ToLower(line)
		for _, kw := range merchantKeywords {
			if strings.Contains(lower, kw) {
				return line
			}
		}
		if n := len(line); n >= 6 && n <= 49 {
			return line
		}
	}
	return UnknownMerchant
}

// parseAmount collects every currency-looking token in the document and
// returns the largest. Receipts put the grand total among the largest
// numbers present; tax-rate percentages and quantities can defeat this
// heuristic, which is accepted.
func parseAmount(lines []string) decimal.Decimal {
	best := decimal.Zero

	for _, line := range lines {
		for _, token := range amountPattern.FindAllString(line, -1) {
			cleaned := strings.NewReplacer(
				"$", "", "€", "", "£", "", "¥", "", "₹", "",
				",", "", " ", "",
			).Replace(token)

			value, err := decimal.NewFromString(cleaned)
			if err != nil {
				continue
			}
			if value.GreaterThan(best) {
				best = value
			}
		}
	}
	return best
}

// parseDate returns the first recognizable date token, trying ISO order
// before MM/DD/YYYY so a YYYY-MM-DD token is never read as month/day, or
// the extraction date when none parses.
func parseDate(lines []string, fallback time.Time) time.Time {
	for _, line := range lines {
		if m := dateYMD.FindStringSubmatch(line); m != nil {
			if d, ok := buildDate(m[1], m[2], m[3]); ok {
				return d
			}
		}
		if m := dateMDY.FindStringSubmatch(line); m != nil {
			if d, ok := buildDate(m[3], m[1], m[2]); ok {
				return d
			}
		}
	}
	return fallback
}

func buildDate(year, month, day string) (time.Time, bool) {
	y := atoi(year)
	if y < 100 {
		y += 2000
	}
	m := atoi(month)
	d := atoi(day)

	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC), true
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

// parseItems keeps lines that plausibly describe purchased items, in
// document order, capped at ten.
func parseItems(lines []string) []string {
	items := make([]string, 0, maxItems)

	for _, line := range lines {
		if len(items) == maxItems {
			break
		}
		if isItemLine(line) {
			items = append(items, line)
		}
	}
	return items
}

func isItemLine(line string) bool {
	if len(line) < 3 || len(line) > 99 {
		return false
	}

	lower := strings.ToLower(line)
	for _, prefix := range nonItemPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}

	// skip lines that are only numbers, currency symbols and punctuation
	return strings.ContainsFunc(line, func(r rune) bool {
		if r >= '0' && r <= '9' {
			return false
		}
		switch r {
		case '$', '€', '£', '¥', '₹', '.', ',', ' ', '\t':
			return false
		}
		return true
	})
}
