package telemetry

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// DefaultCSVPath is where the result log is written unless configured.
const DefaultCSVPath = "/tmp/output.txt"

// CSVSink writes the semicolon separated result log to a file and echoes
// every line to a second writer (normally stdout).
type CSVSink struct {
	mu    sync.Mutex
	group string
	file  io.WriteCloser
	echo  io.Writer
}

// NewCSVSink truncates path and writes the header. echo may be nil.
func NewCSVSink(path, group string, echo io.Writer) (*CSVSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open result log: %w", err)
	}
	return newCSVSink(f, group, echo)
}

func newCSVSink(w io.WriteCloser, group string, echo io.Writer) (*CSVSink, error) {
	if group == "" {
		group = DefaultGroup
	}
	if _, err := io.WriteString(w, Header(group)+"\n"); err != nil {
		w.Close()
		return nil, fmt.Errorf("write result log header: %w", err)
	}
	return &CSVSink{group: group, file: w, echo: echo}, nil
}

// Write appends one line.
func (c *CSVSink) Write(s Sample) error {
	line := Line(c.group, s.TimestampUS, s.Angle) + "\n"

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := io.WriteString(c.file, line); err != nil {
		return fmt.Errorf("write result log: %w", err)
	}
	if c.echo != nil {
		if _, err := io.WriteString(c.echo, line); err != nil {
			return fmt.Errorf("echo result: %w", err)
		}
	}
	return nil
}

// Close closes the file.
func (c *CSVSink) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.file.Close()
}
