package inference

import "context"

// Open loads model on eng and starts a generation for prompt. Load errors
// come back as *ModelLoadError, refusals to start as *GenerationError, and
// a done ctx as ErrCancelled.
func Open(ctx context.Context, eng Engine, model, prompt string, p Params) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrCancelled
	}
	h, err := eng.LoadModel(ctx, model)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrCancelled
		}
		return nil, &ModelLoadError{Model: model, Err: err}
	}
	s, err := eng.Infer(ctx, h, prompt, p)
	if err != nil {
		if ctx.Err() != nil || IsCancelled(err) {
			return nil, ErrCancelled
		}
		return nil, &GenerationError{Err: err}
	}
	return s, nil
}
