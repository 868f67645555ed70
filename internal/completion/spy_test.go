package completion

import (
	"context"
	"errors"
	"sync"

	"llamachat/internal/inference"
	"llamachat/pkg/types"
)

// spyEngine records calls and replays fragments.
type spyEngine struct {
	mu        sync.Mutex
	loads     []string
	prompts   []string
	params    []inference.Params
	fragments []string
	loadErr   error
	inferErr  error
	// genErr is raised after all fragments were produced.
	genErr error
	// block, when set, makes the producer wait after the first fragment.
	block chan struct{}
}

func (s *spyEngine) LoadModel(_ context.Context, model string) (inference.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads = append(s.loads, model)
	if s.loadErr != nil {
		return inference.Handle{}, s.loadErr
	}
	return inference.Handle{Model: model}, nil
}

func (s *spyEngine) Infer(ctx context.Context, h inference.Handle, prompt string, p inference.Params) (*inference.Stream, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.params = append(s.params, p)
	s.mu.Unlock()
	if s.inferErr != nil {
		return nil, s.inferErr
	}
	return inference.NewStream(ctx, func(ctx context.Context, emit func(string) error) (types.Usage, error) {
		for i, f := range s.fragments {
			if err := emit(f); err != nil {
				return types.Usage{}, err
			}
			if i == 0 && s.block != nil {
				select {
				case <-s.block:
				case <-ctx.Done():
					return types.Usage{}, ctx.Err()
				}
			}
		}
		if s.genErr != nil {
			return types.Usage{}, s.genErr
		}
		n := len(s.fragments)
		return types.Usage{CompletionTokens: n, TotalTokens: n}, nil
	}), nil
}

func (s *spyEngine) IsLoaded(model string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.loads {
		if m == model {
			return true
		}
	}
	return false
}

func (s *spyEngine) inferCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func (s *spyEngine) loadedModels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.loads...)
}

var errBoom = errors.New("boom")
