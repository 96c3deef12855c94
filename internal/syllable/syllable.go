// Package syllable maps words of the song vocabulary to hyphen-joined
// syllables for display and to a paused form for slow pronunciation.
//
// Known words come from a fixed, hand-authored dictionary. Any other word
// falls back to one "syllable" per character, which is a crude placeholder
// rather than real syllabification.
package syllable

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MrWong99/leeconmigo/internal/match"
)

// dictionary holds the syllable breaks of the song vocabulary, keyed by the
// lowercase word with punctuation removed and accents kept.
var dictionary = map[string][]string{
	"canten":   {"can", "ten"},
	"niños":    {"ni", "ños"},
	"alcancen": {"al", "can", "cen"},
	"cielo":    {"cie", "lo"},
	"viven":    {"vi", "ven"},
	"aquellos": {"a", "que", "llos"},
	"sufren":   {"su", "fren"},
	"dolor":    {"do", "lor"},
	"cantarán": {"can", "ta", "rán"},
	"esos":     {"e", "sos"},
	"paz":      {"paz"},
}

// Split returns the syllables of word. Punctuation is dropped; a leading
// capital letter is preserved on the first syllable.
func Split(word string) []string {
	clean := match.StripPunctuation(strings.TrimSpace(word))
	if clean == "" {
		return nil
	}
	if parts, ok := dictionary[strings.ToLower(clean)]; ok {
		out := make([]string, len(parts))
		copy(out, parts)
		if r, _ := utf8.DecodeRuneInString(clean); unicode.IsUpper(r) {
			out[0] = capitalize(out[0])
		}
		return out
	}

	out := make([]string, 0, utf8.RuneCountInString(clean))
	for _, r := range clean {
		out = append(out, string(r))
	}
	return out
}

// Syllabify returns word as hyphen-joined syllables, e.g. "cielo" → "cie-lo"
// and "xyz" → "x-y-z".
func Syllabify(word string) string {
	return strings.Join(Split(word), "-")
}

// Known reports whether word has a dictionary entry.
func Known(word string) bool {
	_, ok := dictionary[strings.ToLower(match.StripPunctuation(strings.TrimSpace(word)))]
	return ok
}

// SlowText returns the text to pronounce when modelling word slowly: the
// dictionary syllables separated by pauses ("can... ten...") for known
// words, the word itself otherwise.
func SlowText(word string) string {
	if !Known(word) {
		return word
	}
	return strings.Join(Split(word), "... ") + "..."
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
