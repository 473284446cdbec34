// Package source reads chat messages from transcript files for batch parsing.
package source

import "context"

// Message is one message read from a transcript.
type Message struct {
	// Text is the raw message text, envelope included.
	Text string

	// Source is the file path (or stream name) this message came from.
	Source string

	// LineNum is the 1-based line number where the message starts.
	LineNum int
}

// MessageSource provides an iterator over messages.
// Implementations must be safe for sequential access (not concurrent).
type MessageSource interface {
	// Next returns the next message, or io.EOF when none remain.
	// Blank lines are skipped.
	Next(ctx context.Context) (*Message, error)

	// Close releases any resources held by the source.
	Close() error
}
