package manager

import (
	"llamachat/internal/common/fsutil"
	"llamachat/pkg/types"
)

// Helper: find model in registry by id.
func (m *Manager) getModelByID(id string) (types.Model, bool) {
	for _, mdl := range m.registry {
		if mdl.ID == id {
			return mdl, true
		}
	}
	return types.Model{}, false
}

// Helper: estimate VRAM based on file size (MB). Unknown sizes count as 1MB so
// budget checks are never bypassed.
func (m *Manager) estimateVRAMMB(mdl types.Model) int {
	if mdl.SizeMB > 0 {
		return mdl.SizeMB
	}
	mb, _ := fsutil.SizeMB(mdl.Path)
	return mb
}

// setError records a failed load of modelID. The manager only enters
// StateError when no other instance is left serving.
func (m *Manager) setError(modelID string, err error) {
	m.mu.Lock()
	m.err = err.Error()
	m.loadErrs[modelID] = err.Error()
	if m.anyReadyLocked() {
		m.state = StateReady
	} else {
		m.state = StateError
	}
	m.mu.Unlock()
}
