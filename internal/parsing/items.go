package parsing

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Item is one purchasable line entry parsed from a check row
type Item struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

var (
	// priceAtEnd matches a trailing price with exactly two fraction digits,
	// optionally preceded by a currency marker
	priceAtEnd = regexp.MustCompile(`(?i)(?:[$€₴₽]|PLN|USD|EUR)?\s*(\d+[.,]\d{2})\s*$`)

	// qtyPrefix matches a leading quantity multiplier such as "2x" or "3 X"
	qtyPrefix = regexp.MustCompile(`^\s*(\d+)\s*[xX]\s*`)

	currencyStripper = strings.NewReplacer("$", "", "€", "", "₴", "", "₽", "")
)

// ignoreWords marks rows that are part of the check's bookkeeping rather than
// purchasable items. Checked as case-insensitive substrings.
var ignoreWords = []string{
	"total", "subtotal", "tax", "change", "cash", "card", "thank", "approval",
	"terminal", "receipt", "order", "server", "table",
}

// Extractor turns check rows into structured items.
//
// With BufferNames enabled, a row without a price is held as the candidate
// name for the next priced row. Some checks print the item name and its price
// on separate physical lines; enabling this changes output for the same
// input, so it is an explicit choice rather than a default.
type Extractor struct {
	BufferNames bool
}

// ExtractItems parses each row independently and keeps the ones that look
// like purchasable items. Rows that don't are dropped, never errors: noisy
// OCR text is expected input here.
func (e Extractor) ExtractItems(rows []string) []Item {
	items := make([]Item, 0, len(rows))

	var buffer string

	for _, raw := range rows {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if containsIgnoreWord(line) {
			continue
		}

		pm := priceAtEnd.FindStringSubmatchIndex(line)
		if pm == nil {
			if e.BufferNames {
				buffer = line
			}
			continue
		}

		price, err := decimal.NewFromString(strings.Replace(line[pm[2]:pm[3]], ",", ".", 1))
		if err != nil {
			continue
		}

		quantity := 1
		rest := line[:pm[0]]
		if qm := qtyPrefix.FindStringSubmatch(rest); qm != nil {
			if q, err := strconv.Atoi(qm[1]); err == nil && q >= 1 {
				quantity = q
			}
			rest = qtyPrefix.ReplaceAllString(rest, "")
		}

		name := strings.TrimSpace(currencyStripper.Replace(rest))
		if e.BufferNames && buffer != "" {
			name = buffer
		}
		if utf8.RuneCountInString(name) < 2 {
			continue
		}

		items = append(items, Item{
			Name:     name,
			Quantity: quantity,
			Price:    price,
		})

		buffer = ""
	}

	return items
}

// ExtractItemsFromText is the fallback path for callers that have a raw OCR
// text dump instead of reconstructed rows: split on newlines, trim, drop
// blanks, then parse as usual.
func (e Extractor) ExtractItemsFromText(text string) []Item {
	rawLines := strings.Split(text, "\n")

	rows := make([]string, 0, len(rawLines))
	for _, l := range rawLines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		rows = append(rows, l)
	}

	return e.ExtractItems(rows)
}

func containsIgnoreWord(line string) bool {
	lower := strings.ToLower(line)
	for _, w := range ignoreWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
