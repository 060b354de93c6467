/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package logtest provides a recording logger for asserting on log output in tests.
package logtest

import (
	"sync"
	"time"

	"github.com/ssgreg/logf"

	"github.com/blackeyesartisan/shopkit/log"
)

// RecordedEntry represents recorded entry which was logged.
type RecordedEntry struct {
	Fields []log.Field
	Level  log.Level
	Time   time.Time
	Text   string
}

// FindField tries to find field in logging entry by key.
func (re *RecordedEntry) FindField(key string) (*log.Field, bool) {
	for i := range re.Fields {
		if re.Fields[i].Key == key {
			return &re.Fields[i], true
		}
	}
	return nil, false
}

// FieldString returns the value of a string field or an empty string if there is no such field.
func (re *RecordedEntry) FieldString(key string) string {
	f, ok := re.FindField(key)
	if !ok || f.Type != logf.FieldTypeBytesToString {
		return ""
	}
	return string(f.Bytes)
}

type entryWriter struct {
	mu      sync.RWMutex
	entries []RecordedEntry
}

//nolint:gocritic
func (ew *entryWriter) WriteEntry(e logf.Entry) {
	fields := append(append([]log.Field{}, e.DerivedFields...), e.Fields...)
	ew.mu.Lock()
	ew.entries = append(ew.entries, RecordedEntry{Fields: fields, Level: fromLogfLevel(e.Level), Time: e.Time, Text: e.Text})
	ew.mu.Unlock()
}

// Recorder is an implementation of log.FieldLogger that
// records all logged entries for later inspection in tests.
type Recorder struct {
	*log.LogfAdapter
	ew *entryWriter
}

// NewRecorder returns an initialized Recorder.
func NewRecorder() *Recorder {
	ew := &entryWriter{}
	return &Recorder{&log.LogfAdapter{Logger: logf.NewLogger(logf.LevelDebug, ew)}, ew}
}

// With returns a new Recorder with the given additional fields.
func (r *Recorder) With(fs ...log.Field) log.FieldLogger {
	return &Recorder{r.LogfAdapter.With(fs...).(*log.LogfAdapter), r.ew}
}

// WithLevel returns a new Recorder with the given additional level check.
func (r *Recorder) WithLevel(level log.Level) log.FieldLogger {
	return &Recorder{r.LogfAdapter.WithLevel(level).(*log.LogfAdapter), r.ew}
}

// Entries returns all recorded logging entries.
func (r *Recorder) Entries() []RecordedEntry {
	r.ew.mu.RLock()
	defer r.ew.mu.RUnlock()
	return append([]RecordedEntry{}, r.ew.entries...)
}

// FindEntry tries to find recorded logging entry by message.
func (r *Recorder) FindEntry(msg string) (RecordedEntry, bool) {
	for _, e := range r.Entries() {
		if e.Text == msg {
			return e, true
		}
	}
	return RecordedEntry{}, false
}

// FindAllEntries returns all entries logged with the given message.
func (r *Recorder) FindAllEntries(msg string) []RecordedEntry {
	var res []RecordedEntry
	for _, e := range r.Entries() {
		if e.Text == msg {
			res = append(res, e)
		}
	}
	return res
}

// EntriesAtLevel returns all entries logged at the given level.
func (r *Recorder) EntriesAtLevel(level log.Level) []RecordedEntry {
	var res []RecordedEntry
	for _, e := range r.Entries() {
		if e.Level == level {
			res = append(res, e)
		}
	}
	return res
}

// Reset resets all recorded logs.
func (r *Recorder) Reset() {
	r.ew.mu.Lock()
	r.ew.entries = nil
	r.ew.mu.Unlock()
}

func fromLogfLevel(value logf.Level) log.Level {
	switch value {
	case logf.LevelError:
		return log.LevelError
	case logf.LevelWarn:
		return log.LevelWarn
	case logf.LevelDebug:
		return log.LevelDebug
	}
	return log.LevelInfo
}
