package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/normalizer"
)

// maxLineSize bounds a single transcript line.
const maxLineSize = 1024 * 1024

// Option configures a FileSource.
type Option func(*FileSource)

// WithJoinContinuations folds lines that carry no chat envelope into the
// preceding message, the way exports wrap multi-line messages.
func WithJoinContinuations() Option {
	return func(s *FileSource) {
		s.join = true
	}
}

// FileSource implements MessageSource over files or a single reader.
type FileSource struct {
	files  []string
	reader io.Reader
	name   string
	join   bool

	current        io.Closer
	currentScanner *bufio.Scanner
	currentSource  string
	currentLine    int
	fileIndex      int

	pending *Message
}

// NewFileSource creates a MessageSource that reads the given files in order.
func NewFileSource(files []string, opts ...Option) *FileSource {
	s := &FileSource{files: files, fileIndex: -1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewReaderSource reads messages from r, reporting name as their source.
// Close does not close r.
func NewReaderSource(r io.Reader, name string, opts ...Option) *FileSource {
	s := &FileSource{reader: r, name: name, fileIndex: -1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next returns the next message.
// Returns io.EOF when all inputs have been exhausted.
func (s *FileSource) Next(ctx context.Context) (*Message, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if s.currentScanner == nil {
			if err := s.openNext(); err != nil {
				if errors.Is(err, io.EOF) && s.pending != nil {
					return s.flush(), nil
				}
				return nil, err
			}
		}

		if s.currentScanner.Scan() {
			s.currentLine++
			line := strings.TrimRight(s.currentScanner.Text(), "\r")
			if strings.TrimSpace(line) == "" {
				continue
			}

			msg := &Message{Text: line, Source: s.currentSource, LineNum: s.currentLine}
			if !s.join {
				return msg, nil
			}

			if s.pending != nil {
				if _, ok := normalizer.MatchEnvelope(line); !ok {
					s.pending.Text += "\n" + line
					continue
				}
				out := s.pending
				s.pending = msg
				return out, nil
			}
			s.pending = msg
			continue
		}

		if err := s.currentScanner.Err(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", s.currentSource, err)
		}

		// Messages never span files.
		if err := s.closeCurrent(); err != nil {
			return nil, err
		}
		if s.pending != nil {
			return s.flush(), nil
		}
	}
}

// Close releases resources.
func (s *FileSource) Close() error {
	return s.closeCurrent()
}

func (s *FileSource) flush() *Message {
	out := s.pending
	s.pending = nil
	return out
}

func (s *FileSource) openNext() error {
	s.fileIndex++

	var r io.Reader
	switch {
	case s.reader != nil:
		if s.fileIndex > 0 {
			return io.EOF
		}
		r = s.reader
		s.currentSource = s.name
	case s.fileIndex >= len(s.files):
		return io.EOF
	default:
		path := s.files[s.fileIndex]
		f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
		if err != nil {
			return fmt.Errorf("opening transcript %s: %w", path, err)
		}
		s.current = f
		r = f
		s.currentSource = path
	}

	s.currentScanner = bufio.NewScanner(r)
	s.currentScanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	s.currentLine = 0

	return nil
}

func (s *FileSource) closeCurrent() error {
	s.currentScanner = nil
	if s.current != nil {
		err := s.current.Close()
		s.current = nil
		return err
	}
	return nil
}

// ReadAll drains src into a slice.
func ReadAll(ctx context.Context, src MessageSource) ([]Message, error) {
	var out []Message
	for {
		msg, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, *msg)
	}
}
