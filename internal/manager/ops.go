package manager

import "context"

// Preload validates modelID and loads it in the background. Callers can poll
// Status() to observe state transitions.
func (m *Manager) Preload(modelID string) error {
	if modelID == "" {
		modelID = m.defaultModel
	}
	if _, ok := m.getModelByID(modelID); !ok {
		return ErrModelNotFound(modelID)
	}
	go func() {
		// Detached: preloading must not be tied to a request lifetime.
		if _, err := m.LoadModel(context.Background(), modelID); err != nil {
			m.log.Warn().Err(err).Str("model", modelID).Msg("preload failed")
		}
	}()
	return nil
}
