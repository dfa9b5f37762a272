package pool

import (
	"strings"
	"testing"
	"time"
)

func TestOutputMuxDeliversLines(t *testing.T) {
	m := newOutputMux(8)
	m.add(42, 1, SourceStdout, strings.NewReader("one\ntwo\n"))

	var lines []OutputLine
	timeout := time.After(2 * time.Second)
	for len(lines) < 2 {
		select {
		case line := <-m.out:
			lines = append(lines, line)
		case <-timeout:
			t.Fatalf("received %d lines, want 2", len(lines))
		}
	}

	if lines[0].Text != "one" || lines[1].Text != "two" {
		t.Fatalf("lines = %q, %q; want %q, %q", lines[0].Text, lines[1].Text, "one", "two")
	}
	for _, line := range lines {
		if line.PID != 42 || line.Spec != 1 || line.Source != SourceStdout {
			t.Fatalf("line metadata = %+v", line)
		}
	}

	m.close()
	if _, ok := <-m.out; ok {
		t.Fatalf("output channel not closed after close")
	}
}

func TestOutputMuxAccountsForDrops(t *testing.T) {
	m := newOutputMux(2)

	// Fill the buffer, then overflow it twice.
	m.deliver(OutputLine{PID: 7, Spec: 0, Source: SourceStdout, Text: "kept-1"})
	m.deliver(OutputLine{PID: 7, Spec: 0, Source: SourceStdout, Text: "kept-2"})
	m.deliver(OutputLine{PID: 7, Spec: 0, Source: SourceStdout, Text: "lost-1"})
	m.deliver(OutputLine{PID: 7, Spec: 0, Source: SourceStdout, Text: "lost-2"})

	if got := (<-m.out).Text; got != "kept-1" {
		t.Fatalf("first line = %q, want %q", got, "kept-1")
	}
	if got := (<-m.out).Text; got != "kept-2" {
		t.Fatalf("second line = %q, want %q", got, "kept-2")
	}

	// With room again, the next delivery is preceded by the drop count.
	m.deliver(OutputLine{PID: 7, Spec: 0, Source: SourceStdout, Text: "after"})

	meta := <-m.out
	if meta.Source != SourceSystem || meta.Text != "dropped=2" {
		t.Fatalf("drop record = %+v, want dropped=2 from %s", meta, SourceSystem)
	}
	if got := (<-m.out).Text; got != "after" {
		t.Fatalf("line after drops = %q, want %q", got, "after")
	}
}
