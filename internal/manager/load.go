package manager

import (
	"context"
	"time"

	"llamachat/internal/inference"
)

// LoadModel makes modelID resident. Concurrent callers for the same id share
// one load; a caller whose ctx ends stops waiting but the load carries on for
// the others. An empty id falls back to the configured default model.
func (m *Manager) LoadModel(ctx context.Context, modelID string) (inference.Handle, error) {
	if modelID == "" {
		modelID = m.defaultModel
		if modelID == "" {
			return inference.Handle{}, ErrModelNotFound("(unspecified)")
		}
	}
	if err := ctx.Err(); err != nil {
		return inference.Handle{}, err
	}
	if h, ok := m.touch(modelID); ok {
		return h, nil
	}
	ch := m.loads.DoChan(modelID, func() (any, error) {
		return m.load(modelID)
	})
	select {
	case <-ctx.Done():
		return inference.Handle{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return inference.Handle{}, res.Err
		}
		return res.Val.(inference.Handle), nil
	}
}

// touch refreshes LastUsed of a ready instance and returns its handle.
func (m *Manager) touch(modelID string) (inference.Handle, bool) {
	m.mu.Lock()
	inst := m.instances[modelID]
	if inst == nil || inst.State != StateReady || inst.model == nil {
		m.mu.Unlock()
		return inference.Handle{}, false
	}
	inst.LastUsed = time.Now()
	h := inference.Handle{Model: inst.ID, Path: inst.Path}
	m.mu.Unlock()
	m.idle.touch(modelID)
	return h, true
}

func (m *Manager) load(modelID string) (inference.Handle, error) {
	m.swapMu.Lock()
	defer m.swapMu.Unlock()
	// Another load may have committed while we waited for the swap lock.
	if h, ok := m.touch(modelID); ok {
		return h, nil
	}
	mdl, ok := m.getModelByID(modelID)
	if !ok {
		m.log.Warn().Str("model", modelID).Msg("model not in registry")
		m.publisher.Publish(Event{Name: EventLoadError, ModelID: modelID, Fields: map[string]any{"error": "not found"}})
		return inference.Handle{}, ErrModelNotFound(modelID)
	}
	start := time.Now()
	m.log.Info().Str("model", modelID).Str("path", mdl.Path).Msg("loading model")
	m.publisher.Publish(Event{Name: EventLoadStart, ModelID: modelID, Fields: map[string]any{"path": mdl.Path}})

	if m.singleResident {
		for _, id := range m.residentIDs() {
			if id == modelID {
				continue
			}
			if err := m.unloadLocked(id); err != nil && !IsModelNotFound(err) {
				m.failLoad(modelID, err)
				return inference.Handle{}, err
			}
		}
	}

	reqMB := m.estimateVRAMMB(mdl)
	if m.budgetMB > 0 {
		if err := m.evictUntilFits(modelID, reqMB); err != nil {
			m.failLoad(modelID, err)
			return inference.Handle{}, err
		}
	}

	inst := &Instance{
		ID:        modelID,
		Path:      mdl.Path,
		State:     StateLoading,
		LastUsed:  time.Now(),
		EstVRAMMB: reqMB,
		genCh:     make(chan struct{}, 1),
		queueCh:   make(chan struct{}, m.maxQueueDepth),
	}
	m.mu.Lock()
	m.instances[modelID] = inst
	m.usedEstMB += reqMB
	m.state = StateLoading
	m.err = ""
	m.mu.Unlock()

	lm, err := m.adapter.Load(mdl.Path)
	if err != nil {
		m.mu.Lock()
		delete(m.instances, modelID)
		m.usedEstMB -= reqMB
		m.mu.Unlock()
		m.failLoad(modelID, err)
		return inference.Handle{}, err
	}

	m.mu.Lock()
	inst.model = lm
	inst.State = StateReady
	inst.LastUsed = time.Now()
	m.cur = &ModelInfo{ID: modelID, Path: mdl.Path}
	m.state = StateReady
	m.err = ""
	delete(m.loadErrs, modelID)
	m.loadsTotal++
	m.mu.Unlock()
	m.idle.touch(modelID)

	dur := time.Since(start)
	m.log.Info().Str("model", modelID).Dur("took", dur).Int("est_vram_mb", reqMB).Msg("model ready")
	m.publisher.Publish(Event{Name: EventLoadReady, ModelID: modelID, Fields: map[string]any{"dur_ms": int(dur / time.Millisecond)}})
	return inference.Handle{Model: modelID, Path: mdl.Path}, nil
}

func (m *Manager) failLoad(modelID string, err error) {
	m.setError(modelID, err)
	m.log.Error().Err(err).Str("model", modelID).Msg("model load failed")
	m.publisher.Publish(Event{Name: EventLoadError, ModelID: modelID, Fields: map[string]any{"error": err.Error()}})
}

func (m *Manager) residentIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.instances))
	for id := range m.instances {
		ids = append(ids, id)
	}
	return ids
}
