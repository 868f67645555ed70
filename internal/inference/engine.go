package inference

import "context"

// Handle identifies a resident model returned by Engine.LoadModel.
type Handle struct {
	Model string
	Path  string
}

// Params captures generation parameters passed to the engine.
type Params struct {
	MaxTokens     int
	Stop          []string
	Temperature   float32
	TopP          float32
	TopK          int
	Seed          int
	RepeatPenalty float32
}

// Engine is the token-generation capability.
type Engine interface {
	// LoadModel makes the named model resident. It is idempotent for a model
	// that is already loaded.
	LoadModel(ctx context.Context, model string) (Handle, error)
	// Infer starts a generation for prompt on the model behind h.
	Infer(ctx context.Context, h Handle, prompt string, p Params) (*Stream, error)
	// IsLoaded reports whether model is resident, without loading it.
	IsLoaded(model string) bool
}
