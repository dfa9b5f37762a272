package cliutil

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"golang.org/x/term"
)

// Record represents a structured log event ready for JSON encoding.
type Record struct {
	Timestamp time.Time `json:"ts"`
	Level     string    `json:"level"`
	Message   string    `json:"msg"`
	Source    string    `json:"source"`
}

// NewRecord builds a record for a diagnostic message, inferring the level
// from well-known tokens in the text.
func NewRecord(source, message string) Record {
	level := inferLogLevel(message)
	if level == "" {
		level = "info"
	}
	return Record{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		Source:    source,
	}
}

var levelTokenPattern = regexp.MustCompile(`(?i)\b(fatal|error|warn|info)\b`)

func inferLogLevel(message string) string {
	matches := levelTokenPattern.FindStringSubmatch(message)
	if len(matches) < 2 {
		return ""
	}
	switch strings.ToLower(matches[1]) {
	case "fatal", "error":
		return "error"
	case "warn":
		return "warn"
	case "info":
		return "info"
	default:
		return ""
	}
}

// Encode writes the record as one JSON line, reporting encoding failures to
// stderr.
func Encode(enc *json.Encoder, stderr io.Writer, rec Record) {
	if enc == nil {
		return
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if err := enc.Encode(&rec); err != nil {
		fmt.Fprintf(stderr, "error: encode log: %v\n", err)
	}
}

// HumanFormat renders the record for interactive terminals.
func HumanFormat(rec Record) string {
	return fmt.Sprintf("%s %-5s [%s] %s",
		rec.Timestamp.Format("15:04:05.000"), rec.Level, rec.Source, rec.Message)
}

// IsTerminal reports whether the file is attached to an interactive
// terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
