package manager

import "llamachat/internal/common/fsutil"

// SanityReport describes runtime checks for the inference backend.
type SanityReport struct {
	LlamaBuilt    bool     `json:"llama_built"`
	ModelsChecked int      `json:"models_checked"`
	MissingModels []string `json:"missing_models,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// OK reports whether the backend can serve every registered model.
func (r SanityReport) OK() bool { return r.Error == "" && len(r.MissingModels) == 0 }

// SanityCheck validates that llama support is compiled in and that every
// registered model file exists. It does not mutate state.
func (m *Manager) SanityCheck() SanityReport {
	r := SanityReport{LlamaBuilt: llamaBuilt}
	if !llamaBuilt {
		if _, usesLlama := m.adapter.(*llamaAdapter); usesLlama {
			r.Error = "llama support not built (missing 'llama' build tag)"
		}
	}
	for _, mdl := range m.ListModels() {
		r.ModelsChecked++
		if !fsutil.IsRegularFile(mdl.Path) {
			r.MissingModels = append(r.MissingModels, mdl.ID)
		}
	}
	return r
}
