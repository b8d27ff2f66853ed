// Package extract pulls price, currency and size out of free-form listing text.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/blockedby/tgstore-scraper/internal/models"
)

const (
	currencyToken = `(грн|uah\b|usd\b|\$)`
	numberToken   = `(\d{1,3}(?:[ \x{00A0}\x{202F}]\d{3})+(?:[.,]\d+)?|\d+(?:[.,]\d+)?)`
)

var (
	// labeled: "Ціна: 1500 грн", "Price - $50", "Ціна 800"
	labeledRe = regexp.MustCompile(`(?i)(?:ціна|price)\s*[:\-–—]?\s*` + currencyToken + `?\s*` + numberToken + `(?:\s*` + currencyToken + `)?`)

	// bare: "1200 UAH", "$50"
	bareAfterRe  = regexp.MustCompile(`(?i)` + numberToken + `\s*` + currencyToken)
	bareBeforeRe = regexp.MustCompile(`(?i)` + currencyToken + `\s*` + numberToken)

	currencyRe = regexp.MustCompile(`(?i)` + currencyToken)
)

// Price is a price found in a block of text.
type Price struct {
	Amount   float64
	Currency models.Currency
	Labeled  bool // matched the "Ціна:"/"Price:" form

	// position of the match: Line indexes Lines(text), Start/End are byte offsets within that line
	Line  int
	Start int
	End   int
}

// Integer returns the integer part of the amount.
func (p Price) Integer() int64 {
	return int64(p.Amount)
}

type priceMatch struct {
	start, end int
	amount     string
	currency   string
}

// ExtractPrice finds the authoritative price in text.
// Labeled lines take precedence over bare number+currency lines; within a form
// the earliest line wins. ok is false when the text carries no price.
func ExtractPrice(text string) (Price, bool) {
	lines := Lines(text)

	for _, labeled := range []bool{true, false} {
		for i, line := range lines {
			m, found := matchLine(line, labeled)
			if !found {
				continue
			}
			amount, err := parseAmount(m.amount)
			if err != nil || amount <= 0 {
				continue
			}
			cur := parseCurrency(m.currency)
			if cur == models.CurrencyUnspecified {
				cur = firstCurrency(text)
			}
			return Price{
				Amount:   amount,
				Currency: cur,
				Labeled:  labeled,
				Line:     i,
				Start:    m.start,
				End:      m.end,
			}, true
		}
	}

	return Price{}, false
}

// matchLine returns the earliest match of the requested form in a single line.
func matchLine(line string, labeled bool) (priceMatch, bool) {
	if labeled {
		idx := labeledRe.FindStringSubmatchIndex(line)
		if idx == nil {
			return priceMatch{}, false
		}
		cur := group(line, idx, 1)
		if cur == "" {
			cur = group(line, idx, 3)
		}
		return priceMatch{start: idx[0], end: idx[1], amount: group(line, idx, 2), currency: cur}, true
	}

	after := bareAfterRe.FindStringSubmatchIndex(line)
	before := bareBeforeRe.FindStringSubmatchIndex(line)

	switch {
	case after == nil && before == nil:
		return priceMatch{}, false
	case before == nil || (after != nil && after[0] <= before[0]):
		return priceMatch{start: after[0], end: after[1], amount: group(line, after, 1), currency: group(line, after, 2)}, true
	default:
		return priceMatch{start: before[0], end: before[1], amount: group(line, before, 2), currency: group(line, before, 1)}, true
	}
}

// HasPrice reports whether s contains a price-looking expression.
func HasPrice(s string) bool {
	return len(priceSpans(s)) > 0
}

// priceSpans returns byte ranges of every price-looking expression in line.
func priceSpans(line string) [][]int {
	var spans [][]int
	for _, re := range []*regexp.Regexp{labeledRe, bareAfterRe, bareBeforeRe} {
		for _, idx := range re.FindAllStringIndex(line, -1) {
			spans = append(spans, idx)
		}
	}
	return spans
}

func group(s string, idx []int, n int) string {
	if 2*n+1 >= len(idx) || idx[2*n] < 0 {
		return ""
	}
	return s[idx[2*n]:idx[2*n+1]]
}

func parseAmount(raw string) (float64, error) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f':
			return -1
		case ',':
			return '.'
		}
		return r
	}, raw)
	return strconv.ParseFloat(s, 64)
}

func parseCurrency(token string) models.Currency {
	switch strings.ToLower(token) {
	case "грн", "uah":
		return models.CurrencyUAH
	case "usd", "$":
		return models.CurrencyUSD
	}
	return models.CurrencyUnspecified
}

func firstCurrency(text string) models.Currency {
	m := currencyRe.FindStringSubmatch(text)
	if m == nil {
		return models.CurrencyUnspecified
	}
	return parseCurrency(m[1])
}

// Lines splits text into lines, normalizing CRLF and CR line endings.
func Lines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}
