//go:build llama

package manager

import (
	"context"
	"errors"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"

	"llamachat/internal/inference"
	"llamachat/pkg/types"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// llamaAdapter holds global config used to initialize a model instance
type llamaAdapter struct {
	ctxSize   int
	threads   int
	gpuLayers int
}

func NewLlamaAdapter(ctxSize, threads, gpuLayers int) InferenceAdapter {
	return &llamaAdapter{ctxSize: ctxSize, threads: threads, gpuLayers: gpuLayers}
}

// llamaModel owns the loaded model. go-llama.cpp keeps one token callback per
// model, so generations on the same model are serialized.
type llamaModel struct {
	mu      sync.Mutex
	model   *llama.LLama
	threads int
}

func (a *llamaAdapter) Load(modelPath string) (LoadedModel, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	mo := []llama.ModelOption{
		llama.SetContext(a.ctxSize),
	}
	if a.gpuLayers > 0 {
		mo = append(mo, llama.SetGPULayers(a.gpuLayers))
	}
	m, err := llama.New(modelPath, mo...)
	if err != nil {
		return nil, err
	}
	return &llamaModel{model: m, threads: a.threads}, nil
}

func (s *llamaModel) Generate(ctx context.Context, prompt string, params inference.Params, onToken func(string) error) (FinalResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model == nil {
		return FinalResult{}, errors.New("llama model not initialized")
	}

	var (
		tokens  int
		sinkErr error
	)
	s.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if err := onToken(tok); err != nil {
			sinkErr = err
			return false
		}
		tokens++
		return true
	})
	defer s.model.SetTokenCallback(nil)

	po := mapParamsToPredictOptions(params, s.threads)
	text, err := s.model.Predict(prompt, po...)
	if ctx.Err() != nil {
		return FinalResult{}, ctx.Err()
	}
	if sinkErr != nil {
		return FinalResult{}, sinkErr
	}
	if err != nil {
		return FinalResult{}, err
	}
	finish := "stop"
	if params.MaxTokens > 0 && tokens >= params.MaxTokens {
		finish = "length"
	}
	return FinalResult{
		Content:      text,
		Usage:        types.Usage{CompletionTokens: tokens, TotalTokens: tokens},
		FinishReason: finish,
	}, nil
}

func (s *llamaModel) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model != nil {
		s.model.Free()
		s.model = nil
	}
	return nil
}

func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// mapParamsToPredictOptions converts generation params into go-llama.cpp options
func mapParamsToPredictOptions(params inference.Params, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(max(1, params.MaxTokens)),
		llama.SetThreads(max(1, threads)),
		llama.SetTopP(zf(params.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(zn(params.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(zf(params.Temperature, llama.DefaultOptions.Temperature)),
		llama.SetPenalty(zf(params.RepeatPenalty, llama.DefaultOptions.Penalty)),
	}
	if params.Seed != 0 {
		po = append(po, llama.SetSeed(params.Seed))
	}
	if len(params.Stop) > 0 {
		po = append(po, llama.SetStopWords(params.Stop...))
	}
	return po
}
