package tutor

// Learner-facing prompts shown alongside directives.
const (
	PromptStart      = "Vamos a leer"
	PromptListening  = "Te escucho..."
	PromptNoResult   = "No te escuché bien, ¿probamos de nuevo?"
	PromptSuccess    = "¡Muy bien! 🌟"
	PromptCompletion = "¡Muy bien! 🎉 Terminaste la canción."
)

// HintLevel is one of the escalating remediation presentations applied after
// a failed attempt.
type HintLevel int

const (
	// HintNone means no hint is applied.
	HintNone HintLevel = iota

	// HintHighlight highlights the problematic word only.
	HintHighlight

	// HintIsolate highlights the problematic word and dims all others.
	HintIsolate

	// HintSyllables replaces the problematic word with its syllables, dims
	// all others and requests slow pronunciation of the word.
	HintSyllables
)

// MaxHintLevel is the hint ceiling. Further failures repeat this level.
const MaxHintLevel = HintSyllables

// hintForAttempt maps a failed attempt count to its hint level.
func hintForAttempt(attempts int) HintLevel {
	switch {
	case attempts <= 0:
		return HintNone
	case attempts >= int(MaxHintLevel):
		return MaxHintLevel
	default:
		return HintLevel(attempts)
	}
}

// Prompt returns the learner-facing prompt for l.
func (l HintLevel) Prompt() string {
	switch l {
	case HintHighlight:
		return "¡Casi! Fíjate en esta palabra"
	case HintIsolate:
		return "Vamos despacito, solo esta palabra"
	case HintSyllables:
		return "Repite conmigo sílaba por sílaba"
	}
	return ""
}

// Directive is a display instruction for the renderer. Exactly one directive
// is emitted per state transition. The concrete types are [ShowPhrase],
// [Listening], [ApplyHint], [FlashSuccess] and [ShowCompletion].
type Directive interface {
	// Kind returns a short stable name for the directive, used on the wire.
	Kind() string
}

// ShowPhrase presents a freshly loaded phrase.
type ShowPhrase struct {
	Index  int      `json:"index"`
	Total  int      `json:"total"`
	Words  []string `json:"words"`
	Prompt string   `json:"prompt"`
}

// Listening reports that a listening attempt has begun.
type Listening struct {
	Prompt string `json:"prompt"`
}

// ApplyHint presents a hint for the problematic word after a failed attempt.
type ApplyHint struct {
	Level HintLevel `json:"level"`

	// Target is the phrase position of the problematic word.
	Target int `json:"target"`

	// Syllabified replaces the target's text at [HintSyllables]; empty
	// otherwise.
	Syllabified string `json:"syllabified,omitempty"`

	// Dimmed lists the positions to hide or dim (level 2 and above).
	Dimmed []int `json:"dimmed,omitempty"`

	Prompt string `json:"prompt"`
}

// FlashSuccess celebrates a successful attempt. The next phrase is loaded
// once the caller acknowledges the success with [Session.Advance].
type FlashSuccess struct {
	Prompt string `json:"prompt"`
}

// ShowCompletion reports that the song is finished.
type ShowCompletion struct {
	Prompt string `json:"prompt"`
}

func (ShowPhrase) Kind() string     { return "show_phrase" }
func (Listening) Kind() string      { return "listening" }
func (ApplyHint) Kind() string      { return "apply_hint" }
func (FlashSuccess) Kind() string   { return "flash_success" }
func (ShowCompletion) Kind() string { return "show_completion" }

// Cue is an audio cue played as a side effect of an attempt outcome.
type Cue string

const (
	CueSuccess Cue = "success"
	CueGentle  Cue = "gentle"
)
