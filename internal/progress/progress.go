// Package progress keeps a journal of reading attempts so that a teacher or
// parent can review how a learner got on with each phrase. Records are
// stored as append-only JSON lines in a local file.
package progress

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Record is one evaluated attempt.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	Song      string    `json:"song"`
	Phrase    int       `json:"phrase"`

	// Heard is the transcript that was evaluated; empty for an attempt that
	// produced no result.
	Heard string `json:"heard"`

	Success bool `json:"success"`
	Matched int  `json:"matched"`
	Total   int  `json:"total"`

	// Failures is the number of failed attempts on this phrase so far,
	// including this one.
	Failures int `json:"failures"`

	// Hint is the hint level applied after this attempt.
	Hint int `json:"hint,omitempty"`
}

// Recorder stores attempt records.
type Recorder interface {
	Record(ctx context.Context, r Record) error
}

// FileStore appends records to a JSON lines file. Safe for concurrent use.
type FileStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

var _ Recorder = (*FileStore)(nil)

// NewFileStore returns a store writing to path. The file is created on the
// first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Path returns the journal file path.
func (fs *FileStore) Path() string { return fs.path }

// Record appends r, stamping it with the current time when r.Timestamp is
// zero.
func (fs *FileStore) Record(_ context.Context, r Record) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = fs.now().UTC()
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("progress: marshal: %w", err)
	}
	data = append(data, '\n')

	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.OpenFile(fs.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("progress: open file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("progress: write: %w", err)
	}
	return nil
}

// ReadFile returns every record in the journal at path, oldest first.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("progress: open file: %w", err)
	}
	defer f.Close()

	var out []Record
	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			return nil, fmt.Errorf("progress: line %d: %w", line, err)
		}
		out = append(out, r)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("progress: read: %w", err)
	}
	return out, nil
}

// PhraseSummary aggregates the attempts made on one phrase of one song.
type PhraseSummary struct {
	Song     string
	Phrase   int
	Attempts int
	Failures int
	Read     bool
}

// Summarize groups records by song and phrase, in order of first
// appearance.
func Summarize(records []Record) []PhraseSummary {
	type key struct {
		song   string
		phrase int
	}
	idx := make(map[key]int)
	var out []PhraseSummary
	for _, r := range records {
		k := key{r.Song, r.Phrase}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, PhraseSummary{Song: r.Song, Phrase: r.Phrase})
		}
		out[i].Attempts++
		if r.Success {
			out[i].Read = true
		} else {
			out[i].Failures++
		}
	}
	return out
}
