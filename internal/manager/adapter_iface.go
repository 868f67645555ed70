package manager

import (
	"context"

	"llamachat/internal/inference"
	"llamachat/pkg/types"
)

// InferenceAdapter abstracts the model runtime used by the Manager.
// Concrete implementations (e.g., llama.cpp) should satisfy this interface.
type InferenceAdapter interface {
	// Load reads the model at modelPath into memory. It is called at most
	// once per resident instance.
	Load(modelPath string) (LoadedModel, error)
}

// LoadedModel is a resident model able to run generations.
type LoadedModel interface {
	// Generate streams tokens for prompt through onToken. Implementations must
	// stop when onToken returns an error or ctx is cancelled.
	Generate(ctx context.Context, prompt string, params inference.Params, onToken func(string) error) (FinalResult, error)
	// Close releases the model.
	Close() error
}

// FinalResult summarizes the generation after streaming.
type FinalResult struct {
	Content      string
	Usage        types.Usage
	FinishReason string
}
