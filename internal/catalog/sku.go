package catalog

import (
	"fmt"
	"strings"
	"unicode"
)

// GenerateSKU builds a human readable SKU of the form INV-{CAT}-{SEQ}.
// The category code falls back to GEN when empty; seq is the caller's
// next counter value. Pure formatting, no side effects.
func GenerateSKU(categoryCode string, seq int64) string {
	code := normalizeCategoryCode(categoryCode)
	return fmt.Sprintf("INV-%s-%04d", code, seq)
}

func normalizeCategoryCode(code string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToUpper(r)
		}
		return -1
	}, code)
	if cleaned == "" {
		return "GEN"
	}
	if len(cleaned) > 4 {
		cleaned = cleaned[:4]
	}
	return cleaned
}
