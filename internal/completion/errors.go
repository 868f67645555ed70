package completion

import (
	"errors"

	"llamachat/internal/hooks"
	"llamachat/internal/inference"
)

// ErrCancelled is returned when the caller's context ends a call.
var ErrCancelled = inference.ErrCancelled

// ErrNoModel is wrapped in a *inference.ModelLoadError when no model name
// could be resolved.
var ErrNoModel = errors.New("no model selected and no default configured")

// IsModelLoadFailure reports whether the engine could not load the model.
func IsModelLoadFailure(err error) bool { return inference.IsModelLoadFailure(err) }

// IsGenerationFailure reports whether the engine failed while generating.
func IsGenerationFailure(err error) bool { return inference.IsGenerationFailure(err) }

// IsHookFailure reports whether a before or after hook aborted the call.
func IsHookFailure(err error) bool { return hooks.IsHookFailure(err) }

// IsCancelled reports whether the call ended by cancellation.
func IsCancelled(err error) bool { return inference.IsCancelled(err) }

// outcome labels err for metrics and spans.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsCancelled(err):
		return "cancelled"
	case IsHookFailure(err):
		return "hook_failure"
	case IsModelLoadFailure(err):
		return "model_load_failure"
	case IsGenerationFailure(err):
		return "generation_failure"
	default:
		return "error"
	}
}
