package pool

import (
	"bufio"
	"fmt"
	"io"
	"sync"
	"time"
)

// Output line sources.
const (
	SourceStdout = "stdout"
	SourceStderr = "stderr"
	SourceSystem = "system"
)

// OutputLine is one captured line of worker output.
type OutputLine struct {
	Time   time.Time
	PID    int
	Spec   SpecID
	Source string
	Text   string
}

// outputMux fans in stdout/stderr lines from every worker and delivers them
// via a bounded channel. When the consumer cannot keep up the mux drops
// lines and later synthesizes a warning line carrying the drop count, so
// backpressure from a slow consumer never stalls the supervision loop.
type outputMux struct {
	out chan OutputLine

	mu     sync.Mutex
	drops  map[int]int
	inputs sync.WaitGroup
}

func newOutputMux(size int) *outputMux {
	if size <= 0 {
		size = 1
	}
	return &outputMux{
		out:   make(chan OutputLine, size),
		drops: make(map[int]int),
	}
}

// add registers one worker stream. The mux consumes lines until the reader
// is exhausted, which happens when the worker exits and the pipe closes.
func (m *outputMux) add(pid int, spec SpecID, source string, r io.Reader) {
	m.inputs.Add(1)
	go func() {
		defer m.inputs.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			m.deliver(OutputLine{
				Time:   time.Now(),
				PID:    pid,
				Spec:   spec,
				Source: source,
				Text:   scanner.Text(),
			})
		}
	}()
}

func (m *outputMux) deliver(line OutputLine) {
	if !m.flushPending(line.PID, line.Spec) {
		m.recordDrop(line.PID)
		return
	}
	select {
	case m.out <- line:
	default:
		m.recordDrop(line.PID)
	}
}

// flushPending emits any accumulated drop count for the worker before new
// lines, preserving the order in which data was lost.
func (m *outputMux) flushPending(pid int, spec SpecID) bool {
	m.mu.Lock()
	count := m.drops[pid]
	delete(m.drops, pid)
	m.mu.Unlock()
	if count == 0 {
		return true
	}

	meta := OutputLine{
		Time:   time.Now(),
		PID:    pid,
		Spec:   spec,
		Source: SourceSystem,
		Text:   fmt.Sprintf("dropped=%d", count),
	}
	select {
	case m.out <- meta:
		return true
	default:
		m.mu.Lock()
		m.drops[pid] += count
		m.mu.Unlock()
		return false
	}
}

func (m *outputMux) recordDrop(pid int) {
	m.mu.Lock()
	m.drops[pid]++
	m.mu.Unlock()
}

// close waits for all worker streams to drain and closes the output channel.
func (m *outputMux) close() {
	m.inputs.Wait()
	close(m.out)
}
