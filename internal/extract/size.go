package extract

import (
	"regexp"
	"strings"
)

var (
	sizeRe = regexp.MustCompile(`(?i)\b(XXXL|XXL|XL|XS|S|M|L|2[6-9]|[3-5]\d|60)\b`)

	// "Розмір: M", "Size - XL"
	sizeLabelRe = regexp.MustCompile(`(?i)^(?:розміри?|size)\s*[:\-–—]?\s*`)
)

// SizeMatch is a size token and the index of the line it was found on.
type SizeMatch struct {
	Token string
	Line  int
}

// FindSize returns the first size token in text, upper-cased, with its line.
// Numeric tokens that are part of a price expression, a decimal number or a
// clock time are ignored.
func FindSize(text string) (SizeMatch, bool) {
	for i, line := range Lines(text) {
		if token, ok := sizeInLine(line); ok {
			return SizeMatch{Token: token, Line: i}, true
		}
	}
	return SizeMatch{Line: -1}, false
}

// ExtractSize returns the first size token in text, upper-cased.
func ExtractSize(text string) (string, bool) {
	m, ok := FindSize(text)
	return m.Token, ok
}

func sizeInLine(line string) (string, bool) {
	spans := priceSpans(line)

	for _, idx := range sizeRe.FindAllStringSubmatchIndex(line, -1) {
		start, end := idx[2], idx[3]
		token := line[start:end]

		if isDigit(token[0]) {
			if insideAny(start, end, spans) || partOfNumber(line, start, end) {
				continue
			}
		} else if afterApostrophe(line, start) {
			// "Levi's"
			continue
		}
		return strings.ToUpper(token), true
	}
	return "", false
}

// IsSizeLine reports whether line carries nothing but the size token, optionally labeled.
func IsSizeLine(line, size string) bool {
	if size == "" {
		return false
	}
	rest := sizeLabelRe.ReplaceAllString(strings.TrimSpace(line), "")
	return strings.EqualFold(strings.TrimSpace(rest), size)
}

func insideAny(start, end int, spans [][]int) bool {
	for _, s := range spans {
		if start >= s[0] && end <= s[1] {
			return true
		}
	}
	return false
}

// partOfNumber reports whether line[start:end] is one side of "12.50" or "10:45".
func partOfNumber(line string, start, end int) bool {
	if start > 1 && isNumberSep(line[start-1]) && isDigit(line[start-2]) {
		return true
	}
	if end+1 < len(line) && isNumberSep(line[end]) && isDigit(line[end+1]) {
		return true
	}
	return false
}

func isNumberSep(b byte) bool {
	return b == '.' || b == ':'
}

func afterApostrophe(line string, start int) bool {
	head := line[:start]
	return strings.HasSuffix(head, "'") || strings.HasSuffix(head, "’")
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
