package manager

import (
	"errors"
	"time"
)

// Unload initiates a graceful drain of a model instance and removes it.
//   - Sets instance state to draining to reject new enqueues.
//   - Waits up to drainTimeout for in-flight and queued requests to finish.
//   - Closes the model and removes the instance entry.
//
// When the drain times out the instance goes back to ready and a too-busy
// error is returned.
func (m *Manager) Unload(modelID string) error {
	if modelID == "" {
		return ErrModelNotFound("(unspecified)")
	}
	m.swapMu.Lock()
	defer m.swapMu.Unlock()
	return m.unloadLocked(modelID)
}

func (m *Manager) unloadLocked(modelID string) error {
	m.mu.Lock()
	inst := m.instances[modelID]
	if inst == nil {
		m.mu.Unlock()
		return ErrModelNotFound(modelID)
	}
	inst.State = StateDraining
	m.mu.Unlock()
	m.publisher.Publish(Event{Name: EventUnloadStart, ModelID: modelID, Fields: map[string]any{}})

	held, ok := m.drain(inst)
	if !ok {
		m.mu.Lock()
		inst.State = StateReady
		m.mu.Unlock()
		m.log.Warn().Str("model", modelID).Dur("timeout", m.drainTimeout).Msg("unload drain timed out")
		m.publisher.Publish(Event{Name: EventUnloadTimeout, ModelID: modelID, Fields: map[string]any{"inflight": len(inst.genCh), "queue": len(inst.queueCh)}})
		return tooBusyError{modelID: modelID}
	}

	m.mu.Lock()
	if m.instances[modelID] == inst {
		delete(m.instances, modelID)
		m.usedEstMB -= inst.EstVRAMMB
		if m.usedEstMB < 0 {
			m.usedEstMB = 0
		}
	}
	if m.cur != nil && m.cur.ID == modelID {
		m.cur = nil
	}
	m.mu.Unlock()
	// Waiters that raced the drain see the instance gone and reload.
	for ; held > 0; held-- {
		<-inst.queueCh
	}

	m.idle.forget(modelID)
	m.closeModel(inst)
	m.log.Info().Str("model", modelID).Msg("model unloaded")
	m.publisher.Publish(Event{Name: EventUnloadDone, ModelID: modelID, Fields: map[string]any{}})
	return nil
}

// drain takes every queue slot of inst. Each queued or running generation
// holds one, so owning all of them means the instance is idle.
func (m *Manager) drain(inst *Instance) (int, bool) {
	timer := time.NewTimer(m.drainTimeout)
	defer timer.Stop()
	held := 0
	for held < cap(inst.queueCh) {
		select {
		case inst.queueCh <- struct{}{}:
			held++
		case <-timer.C:
			for ; held > 0; held-- {
				<-inst.queueCh
			}
			return 0, false
		}
	}
	return held, true
}

// Close unloads every resident model and stops idle tracking.
func (m *Manager) Close() error {
	m.idle.stop()
	m.swapMu.Lock()
	defer m.swapMu.Unlock()
	var errs []error
	for _, id := range m.residentIDs() {
		if err := m.unloadLocked(id); err != nil && !IsModelNotFound(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
