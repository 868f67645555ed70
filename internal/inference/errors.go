package inference

import (
	"context"
	"errors"
)

// ErrCancelled is the terminal outcome of a generation stopped by its caller
// (explicit cancel, context cancellation or deadline).
var ErrCancelled = errors.New("inference cancelled")

// ModelLoadError reports that the engine could not resolve or load a model.
type ModelLoadError struct {
	Model string
	Err   error
}

func (e *ModelLoadError) Error() string { return "load model " + e.Model + ": " + e.Err.Error() }

func (e *ModelLoadError) Unwrap() error { return e.Err }

// GenerationError reports an engine failure while producing fragments.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return "generation failed: " + e.Err.Error() }

func (e *GenerationError) Unwrap() error { return e.Err }

// IsModelLoadFailure reports whether err is a model load failure.
func IsModelLoadFailure(err error) bool {
	var le *ModelLoadError
	return errors.As(err, &le)
}

// IsGenerationFailure reports whether err is a mid-stream engine failure.
func IsGenerationFailure(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}

// IsCancelled reports whether err is a cancellation outcome. Context errors
// count, so callers that layer a deadline see the same outcome.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
