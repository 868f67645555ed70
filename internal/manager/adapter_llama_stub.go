//go:build !llama

package manager

// No-CGO stub for the llama adapter, compiled when the 'llama' build tag is
// NOT set so default builds and CI stay CGO-free. The real adapter lives in
// adapter_llama.go.

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = false

type llamaAdapter struct {
	ctxSize   int
	threads   int
	gpuLayers int
}

func NewLlamaAdapter(ctxSize, threads, gpuLayers int) InferenceAdapter {
	return &llamaAdapter{ctxSize: ctxSize, threads: threads, gpuLayers: gpuLayers}
}

// Load fails fast: the llama runtime is not available in this build.
func (a *llamaAdapter) Load(modelPath string) (LoadedModel, error) {
	return nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}
