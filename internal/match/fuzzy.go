package match

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// Strategy selects how two normalised tokens that are neither equal nor
// prefix-related are compared.
type Strategy string

const (
	// StrategyPositional counts position-aligned character mismatches over the
	// shorter token and accepts at most one, provided the lengths differ by at
	// most one. It is the default and the cheapest strategy.
	StrategyPositional Strategy = "positional"

	// StrategyLevenshtein accepts tokens within edit distance one.
	StrategyLevenshtein Strategy = "levenshtein"

	// StrategyPhonetic accepts tokens whose Double Metaphone codes overlap and
	// whose Jaro-Winkler similarity reaches phoneticThreshold, or whose
	// similarity alone reaches fuzzyThreshold.
	StrategyPhonetic Strategy = "phonetic"
)

const (
	phoneticThreshold = 0.70
	fuzzyThreshold    = 0.85
)

// IsValid reports whether s is a recognised strategy.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyPositional, StrategyLevenshtein, StrategyPhonetic:
		return true
	}
	return false
}

// IsCloseEnough reports whether spoken is close enough to target using the
// default positional strategy. Both tokens are normalised internally.
func IsCloseEnough(spoken, target string) bool {
	return StrategyPositional.CloseEnough(spoken, target)
}

// CloseEnough reports whether spoken is close enough to target under s. Both
// tokens are normalised internally.
//
// The policy short-circuits in order: exact match, then prefix in either
// direction, then the strategy-specific comparison.
func (s Strategy) CloseEnough(spoken, target string) bool {
	return s.closeNormalized(Normalize(spoken), Normalize(target))
}

func (s Strategy) closeNormalized(spoken, target string) bool {
	if spoken == target {
		return true
	}
	// A token that normalises to nothing (a lone "¿") would otherwise be a
	// prefix of every target.
	if spoken == "" || target == "" {
		return false
	}
	if strings.HasPrefix(spoken, target) || strings.HasPrefix(target, spoken) {
		return true
	}

	switch s {
	case StrategyLevenshtein:
		return matchr.Levenshtein(spoken, target) <= 1
	case StrategyPhonetic:
		return phoneticClose(spoken, target)
	default:
		return positionalClose(spoken, target)
	}
}

// positionalClose compares runes by index from position 0 up to the length of
// the shorter token. Tokens whose lengths differ by more than one never match.
func positionalClose(spoken, target string) bool {
	a, b := []rune(spoken), []rune(target)
	diff := len(a) - len(b)
	if diff < -1 || diff > 1 {
		return false
	}
	n := min(len(a), len(b))
	mismatches := 0
	for i := range n {
		if a[i] != b[i] {
			mismatches++
			if mismatches > 1 {
				return false
			}
		}
	}
	return true
}

func phoneticClose(spoken, target string) bool {
	score := matchr.JaroWinkler(spoken, target, false)
	if score >= fuzzyThreshold {
		return true
	}
	sp, ss := matchr.DoubleMetaphone(spoken)
	tp, ts := matchr.DoubleMetaphone(target)
	overlap := false
	for _, a := range []string{sp, ss} {
		if a == "" {
			continue
		}
		if a == tp || a == ts {
			overlap = true
			break
		}
	}
	return overlap && score >= phoneticThreshold
}
