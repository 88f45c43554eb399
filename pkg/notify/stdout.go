package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// StdoutChannel writes messages as JSON lines. Useful in development
// and as the decide command's default notifier.
type StdoutChannel struct {
	name string
	mu   sync.Mutex
	w    io.Writer
}

// NewStdoutChannel creates a channel writing to stdout.
func NewStdoutChannel(name string) *StdoutChannel {
	return NewWriterChannel(name, os.Stdout)
}

// NewWriterChannel creates a channel writing to an arbitrary writer.
func NewWriterChannel(name string, w io.Writer) *StdoutChannel {
	return &StdoutChannel{name: name, w: w}
}

// Name returns the channel's identifier.
func (c *StdoutChannel) Name() string {
	return c.name
}

// Send writes one JSON line.
func (c *StdoutChannel) Send(ctx context.Context, msg Message) error {
	encoded, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notify: encode message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintln(c.w, string(encoded)); err != nil {
		return fmt.Errorf("notify: write message: %w", err)
	}
	return nil
}
