package web

import "github.com/MrWong99/leeconmigo/internal/tutor"

// Client → server message types. Audio for server-side recognition is sent
// as a binary frame holding one WAV recording per attempt.
const (
	msgStart   = "start"   // present the first phrase
	msgRestart = "restart" // start the song over
	msgBegin   = "begin"   // a listening attempt has started
	msgResult  = "result"  // browser-side recognition finished
)

// Server → client message types.
const (
	msgHello     = "hello"
	msgDirective = "directive"
	msgCue       = "cue"
	msgHeard     = "heard"
	msgSpeak     = "speak"
	msgAudio     = "audio" // followed by one binary frame
	msgError     = "error"
)

// Capture modes announced in the hello message.
const (
	captureBrowser = "browser"
	captureServer  = "server"
)

// clientMessage is the JSON envelope of every client text frame.
type clientMessage struct {
	Type string `json:"type"`

	// Transcript is the recognised text of a result message. Null or absent
	// means recognition produced nothing.
	Transcript *string `json:"transcript,omitempty"`
}

// helloMessage is sent once after the websocket is accepted.
type helloMessage struct {
	Type     string `json:"type"`
	Session  string `json:"session"`
	Song     string `json:"song"`
	Phrases  int    `json:"phrases"`
	Language string `json:"language"`

	// Capture tells the client whether to recognise speech itself
	// ("browser") or upload recordings ("server").
	Capture string `json:"capture"`

	// ServerSpeech reports that slow pronunciation arrives as audio frames
	// instead of speak instructions.
	ServerSpeech bool `json:"server_speech"`
}

type directiveMessage struct {
	Type string          `json:"type"`
	Kind string          `json:"kind"`
	Data tutor.Directive `json:"data"`
}

type cueMessage struct {
	Type string    `json:"type"`
	Cue  tutor.Cue `json:"cue"`
}

// speakMessage asks the browser to synthesise text itself.
type speakMessage struct {
	Type     string  `json:"type"`
	Text     string  `json:"text"`
	Rate     float64 `json:"rate"`
	Language string  `json:"language"`
}

// audioMessage announces the binary frame that follows it.
type audioMessage struct {
	Type     string `json:"type"`
	MIMEType string `json:"mime_type"`
	Text     string `json:"text"`
}

// heardMessage echoes what server-side recognition understood.
type heardMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
