package match

// keywordMinLength is the normalised length a token must exceed to count as
// a keyword.
const keywordMinLength = 2

// stopWordList holds the function words excluded from keyword scoring:
// articles, conjunctions, common prepositions, pronoun clitics and negation.
var stopWordList = []string{
	"el", "la", "los", "las", "lo", "un", "una", "unos", "unas",
	"y", "e", "o", "u", "ni", "que", "pero",
	"a", "al", "de", "del", "en", "por", "para", "con", "sin",
	"se", "le", "les", "me", "te", "nos", "mi", "tu", "su",
	"no",
}

// stopWords is stopWordList keyed by normalised form, so that "unos" and
// "uno" are both recognised after depluralisation.
var stopWords = func() map[string]struct{} {
	m := make(map[string]struct{}, len(stopWordList))
	for _, w := range stopWordList {
		m[Normalize(w)] = struct{}{}
	}
	return m
}()

// IsKeyword reports whether token is a content word: its normalised form is
// longer than two characters and is not a stop word.
func IsKeyword(token string) bool {
	return isKeywordNormalized(Normalize(token))
}

func isKeywordNormalized(n string) bool {
	if len([]rune(n)) <= keywordMinLength {
		return false
	}
	_, stop := stopWords[n]
	return !stop
}
