package cliutil

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNewRecordInfersLevel(t *testing.T) {
	cases := []struct {
		message string
		want    string
	}{
		{"started worker pid=42", "info"},
		{"terminate worker pid=42: permission denied error", "error"},
		{"fatal: start worker spec=0: no such file", "error"},
		{"warn: consumer falling behind", "warn"},
		{"info: pool stopped", "info"},
	}

	for _, tc := range cases {
		rec := NewRecord("supervisor", tc.message)
		if rec.Level != tc.want {
			t.Errorf("level for %q = %q, want %q", tc.message, rec.Level, tc.want)
		}
		if rec.Source != "supervisor" {
			t.Errorf("source = %q, want supervisor", rec.Source)
		}
		if rec.Timestamp.IsZero() {
			t.Errorf("record for %q missing timestamp", tc.message)
		}
	}
}

func TestEncodeWritesOneJSONLine(t *testing.T) {
	var buf bytes.Buffer
	var errBuf bytes.Buffer
	enc := json.NewEncoder(&buf)

	Encode(enc, &errBuf, Record{
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Level:     "info",
		Message:   "started worker pid=42",
		Source:    "supervisor",
	})

	if errBuf.Len() != 0 {
		t.Fatalf("unexpected stderr output: %s", errBuf.String())
	}
	line := strings.TrimSpace(buf.String())
	if strings.Count(line, "\n") != 0 {
		t.Fatalf("expected one line, got %q", buf.String())
	}

	var decoded Record
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Message != "started worker pid=42" || decoded.Level != "info" {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestEncodeFillsMissingTimestamp(t *testing.T) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	Encode(enc, &bytes.Buffer{}, Record{Level: "info", Message: "m", Source: "s"})

	var decoded Record
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Timestamp.IsZero() {
		t.Fatalf("timestamp not filled in")
	}
}

func TestHumanFormat(t *testing.T) {
	rec := Record{
		Timestamp: time.Date(2024, 5, 1, 12, 30, 45, 123e6, time.UTC),
		Level:     "warn",
		Message:   "worker pid=42 exited status=1",
		Source:    "supervisor",
	}
	got := HumanFormat(rec)
	if !strings.HasPrefix(got, "12:30:45.123 warn ") {
		t.Fatalf("formatted = %q", got)
	}
	if !strings.Contains(got, "[supervisor] worker pid=42 exited status=1") {
		t.Fatalf("formatted = %q", got)
	}
}
