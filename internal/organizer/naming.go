package organizer

import (
	"fmt"
	"strings"
	"unicode"
)

const maxNameRunes = 50

// SanitizeName makes a product name safe to use as a folder name: characters
// that are invalid in paths are dropped, the name is cut to 50 runes and
// whitespace runs become underscores.
func SanitizeName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`<>:"/\|?*`, r) || unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	runes := []rune(strings.TrimSpace(cleaned))
	if len(runes) > maxNameRunes {
		runes = runes[:maxNameRunes]
	}

	return strings.Join(strings.Fields(string(runes)), "_")
}

// FolderBase returns "{sanitized name}_{integer price}".
func FolderBase(name string, price float64) string {
	s := SanitizeName(name)
	if s == "" {
		s = "product"
	}
	return fmt.Sprintf("%s_%d", s, int64(price))
}
