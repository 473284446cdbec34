package pipeline

import (
	"errors"

	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/extractor"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/resolver"
)

// Error taxonomy. Only the message of a failure reaches ParseResult.Error;
// the wrapped chain is available through ParseResult.Err.
var (
	// ErrInvalidInput marks empty or non-string input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrExtraction marks a faulted extractor stage. The stage's field is
	// left empty and the other stages still run.
	ErrExtraction = extractor.ErrExtraction

	// ErrResolution marks a faulted date-resolution strategy or ladder.
	ErrResolution = resolver.ErrResolution

	// ErrPipelineFault marks an unexpected fault outside any stage.
	ErrPipelineFault = errors.New("unexpected error parsing text")
)

// InputError describes why input was rejected. It matches ErrInvalidInput
// under errors.Is while keeping a short message for the result record.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string { return e.Reason }

func (e *InputError) Unwrap() error { return ErrInvalidInput }

var errEmptyInput = &InputError{Reason: "empty input text"}
