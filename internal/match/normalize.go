package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// punctuation is the set of marks stripped from tokens before comparison.
const punctuation = ".,¡!¿?"

// Normalize canonicalises a raw word token for comparison. The steps are
// applied in order:
//
//  1. lowercase
//  2. strip diacritical marks, keeping the base letter (ó → o)
//  3. fold ñ → n
//  4. strip punctuation (. , ¡ ! ¿ ?)
//  5. strip a single trailing "s" (naive depluralisation)
//
// Normalize is pure and total: "Niños" and "niño" both yield "nino", and
// "¿Dónde?" yields "donde".
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))

	// transform.Chain keeps internal state, so a fresh chain is built per call
	// to stay safe under concurrent sessions.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	s = strings.ReplaceAll(s, "ñ", "n")
	s = StripPunctuation(s)
	return strings.TrimSuffix(s, "s")
}

// StripPunctuation removes every occurrence of the marks . , ¡ ! ¿ ? from s
// and leaves casing and accents untouched.
func StripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return -1
		}
		return r
	}, s)
}
