// Package match implements the phrase-matching engine of the read-along
// tutor: token normalisation, fuzzy word comparison, keyword classification
// and the success decision for one spoken attempt against a target phrase.
//
// Everything in this package is pure and safe for concurrent use. No
// operation fails: every input, including an empty transcript, maps to a
// defined [Outcome].
package match

import (
	"slices"
	"strings"
)

// SuccessThreshold is the fraction of keywords that must be matched for an
// attempt to succeed.
const SuccessThreshold = 0.7

// NoIndex marks the absence of a word position.
const NoIndex = -1

// Word is a single target token of a [Phrase].
type Word struct {
	// Text is the token as written, with original casing and accents.
	Text string

	// Normalized is the comparison form produced by [Normalize].
	Normalized string

	// Keyword reports whether the token is a content word (see [IsKeyword]).
	Keyword bool

	// Index is the token's position within its phrase.
	Index int
}

// Phrase is an immutable, ordered sequence of target words.
type Phrase struct {
	text  string
	words []Word
}

// NewPhrase splits text on whitespace and derives the comparison properties
// of every token.
func NewPhrase(text string) Phrase {
	fields := strings.Fields(text)
	words := make([]Word, len(fields))
	for i, f := range fields {
		n := Normalize(f)
		words[i] = Word{
			Text:       f,
			Normalized: n,
			Keyword:    isKeywordNormalized(n),
			Index:      i,
		}
	}
	return Phrase{text: text, words: words}
}

// Text returns the phrase as originally written.
func (p Phrase) Text() string { return p.text }

// Len returns the number of words in the phrase.
func (p Phrase) Len() int { return len(p.words) }

// Words returns a copy of the phrase's words.
func (p Phrase) Words() []Word { return slices.Clone(p.words) }

// Word returns the word at position i. It panics when i is out of range.
func (p Phrase) Word(i int) Word { return p.words[i] }

// Display returns the original text of every word, in order.
func (p Phrase) Display() []string {
	out := make([]string, len(p.words))
	for i, w := range p.words {
		out[i] = w.Text
	}
	return out
}

// Keywords returns the phrase's keywords in phrase order.
func (p Phrase) Keywords() []Word {
	var kws []Word
	for _, w := range p.words {
		if w.Keyword {
			kws = append(kws, w)
		}
	}
	return kws
}

// Outcome is the result of evaluating one transcript against a phrase.
type Outcome struct {
	// Success reports whether enough keywords were matched.
	Success bool

	// Matched is the number of scored words found in the transcript.
	Matched int

	// Total is the number of scored words in the phrase. These are the
	// keywords, or every word when the phrase has none.
	Total int

	// FirstUnmatched is the phrase position of the first scored word that
	// found no match, or [NoIndex] when every scored word matched. It is never
	// NoIndex on failure.
	FirstUnmatched int
}

// Ratio returns Matched/Total, or 0 for a phrase without scored words.
func (o Outcome) Ratio() float64 {
	if o.Total == 0 {
		return 0
	}
	return float64(o.Matched) / float64(o.Total)
}

// Option configures an [Evaluator].
type Option func(*Evaluator)

// WithStrategy selects the fuzzy comparison strategy. Invalid strategies are
// ignored and the positional default is kept.
func WithStrategy(s Strategy) Option {
	return func(e *Evaluator) {
		if s.IsValid() {
			e.strategy = s
		}
	}
}

// Evaluator scores transcripts against phrases. It is read-only after
// construction and safe for concurrent use.
type Evaluator struct {
	strategy Strategy
}

// NewEvaluator returns an [Evaluator] using [StrategyPositional] unless
// overridden by opts.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{strategy: StrategyPositional}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Strategy returns the evaluator's fuzzy comparison strategy.
func (e *Evaluator) Strategy() Strategy { return e.strategy }

// Evaluate scores transcript against target with the default evaluator.
func Evaluate(target Phrase, transcript string) Outcome {
	return defaultEvaluator.Evaluate(target, transcript)
}

var defaultEvaluator = NewEvaluator()

// Evaluate scores transcript against target.
//
// Each keyword of target is tested, in phrase order, against every spoken
// token; word order in the transcript is not enforced. The attempt succeeds
// when at least [SuccessThreshold] of the keywords are matched. A phrase
// without keywords scores all of its words instead, so a lone non-keyword
// word succeeds iff any spoken token is close enough to it.
//
// An empty or whitespace-only transcript fails immediately with
// FirstUnmatched 0.
func (e *Evaluator) Evaluate(target Phrase, transcript string) Outcome {
	scored := target.Keywords()
	if len(scored) == 0 {
		scored = target.words
	}
	if len(scored) == 0 {
		return Outcome{FirstUnmatched: 0}
	}

	fields := strings.Fields(transcript)
	if len(fields) == 0 {
		return Outcome{Total: len(scored), FirstUnmatched: 0}
	}
	spoken := make([]string, len(fields))
	for i, f := range fields {
		spoken[i] = Normalize(f)
	}

	out := Outcome{Total: len(scored), FirstUnmatched: NoIndex}
	for _, w := range scored {
		if e.anyClose(spoken, w.Normalized) {
			out.Matched++
			continue
		}
		if out.FirstUnmatched == NoIndex {
			out.FirstUnmatched = w.Index
		}
	}

	out.Success = out.Ratio() >= SuccessThreshold
	if !out.Success && out.FirstUnmatched == NoIndex {
		out.FirstUnmatched = scored[0].Index
	}
	return out
}

func (e *Evaluator) anyClose(spoken []string, target string) bool {
	for _, s := range spoken {
		if e.strategy.closeNormalized(s, target) {
			return true
		}
	}
	return false
}
