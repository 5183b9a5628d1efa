package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer decomposes characters and strips combining marks, turning
// accented characters into their ASCII base form.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldDiacritics converts accented characters to their unaccented
// equivalents. Input that cannot be transformed is returned unchanged.
func FoldDiacritics(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		return s
	}
	return folded
}

// NormalizeKey canonicalizes a provider or source name for lookup: fold
// diacritics, lowercase, and strip separators and whitespace.
func NormalizeKey(s string) string {
	folded := strings.ToLower(FoldDiacritics(strings.TrimSpace(s)))
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CleanQuery prepares free text for a provider search call: fold diacritics
// and collapse runs of whitespace.
func CleanQuery(s string) string {
	return strings.Join(strings.Fields(FoldDiacritics(s)), " ")
}

// StripBracketed removes a trailing parenthesized or bracketed qualifier
// ("Album (Deluxe Edition)" -> "Album"). Titles that start with a bracket
// are left alone.
func StripBracketed(s string) string {
	trimmed := strings.TrimSpace(s)
	idx := strings.IndexAny(trimmed, "([")
	if idx <= 0 {
		return trimmed
	}
	return strings.TrimSpace(trimmed[:idx])
}
