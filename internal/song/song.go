// Package song holds the fixed, ordered list of phrases a learner reads
// through. A song is loaded once at startup and never changes afterwards.
package song

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrWong99/leeconmigo/internal/match"
)

// DefaultTitle is the title of the built-in song.
const DefaultTitle = "Que canten los niños"

// defaultLines are the phrases of the built-in song.
var defaultLines = []string{
	"Que canten los niños",
	"que alcancen el cielo",
	"que canten los niños",
	"que viven en paz",
	"y aquellos que sufren",
	"dolor",
	"que canten por esos",
	"que no cantarán",
}

// ErrEmpty is returned by [New] when no phrases are supplied.
var ErrEmpty = errors.New("song: no phrases")

// Song is an immutable titled sequence of phrases, addressed by index.
type Song struct {
	title   string
	phrases []match.Phrase
}

// New builds a song from its phrase lines. Every line must contain at least
// one word.
func New(title string, lines []string) (Song, error) {
	if len(lines) == 0 {
		return Song{}, ErrEmpty
	}
	phrases := make([]match.Phrase, 0, len(lines))
	for i, l := range lines {
		if strings.TrimSpace(l) == "" {
			return Song{}, fmt.Errorf("song: phrase %d is blank", i)
		}
		phrases = append(phrases, match.NewPhrase(strings.TrimSpace(l)))
	}
	return Song{title: title, phrases: phrases}, nil
}

// Default returns the built-in song "Que canten los niños".
func Default() Song {
	s, err := New(DefaultTitle, defaultLines)
	if err != nil {
		panic("song: built-in song is invalid: " + err.Error())
	}
	return s
}

// Title returns the song title.
func (s Song) Title() string { return s.title }

// Len returns the number of phrases.
func (s Song) Len() int { return len(s.phrases) }

// Phrase returns the phrase at index i. An out-of-range index is a
// programming error and panics.
func (s Song) Phrase(i int) match.Phrase {
	if i < 0 || i >= len(s.phrases) {
		panic(fmt.Sprintf("song: phrase index %d out of range [0, %d)", i, len(s.phrases)))
	}
	return s.phrases[i]
}
