package manager

// evictUntilFits closes LRU idle instances until requiredMB fits budget +
// margin. Instances with queued or in-flight work are never evicted; when only
// those remain the load fails with a budget error. Caller holds swapMu.
func (m *Manager) evictUntilFits(modelID string, requiredMB int) error {
	for {
		m.mu.Lock()
		free := m.budgetMB - m.marginMB - m.usedEstMB
		if requiredMB <= free {
			m.mu.Unlock()
			return nil
		}
		var lru *Instance
		for _, inst := range m.instances {
			if inst.ID == modelID || inst.State != StateReady || !inst.idle() {
				continue
			}
			if lru == nil || inst.LastUsed.Before(lru.LastUsed) {
				lru = inst
			}
		}
		if lru == nil {
			m.mu.Unlock()
			return budgetExceededError{modelID: modelID, requiredMB: requiredMB, freeMB: free}
		}
		delete(m.instances, lru.ID)
		m.usedEstMB -= lru.EstVRAMMB
		if m.cur != nil && m.cur.ID == lru.ID {
			m.cur = nil
		}
		m.evictionsTotal++
		m.mu.Unlock()

		m.idle.forget(lru.ID)
		m.closeModel(lru)
		m.log.Info().Str("model", lru.ID).Str("for", modelID).Int("freed_mb", lru.EstVRAMMB).Msg("evicted idle model")
		m.publisher.Publish(Event{Name: EventEvict, ModelID: lru.ID, Fields: map[string]any{"for": modelID, "freed_mb": lru.EstVRAMMB}})
	}
}

func (m *Manager) closeModel(inst *Instance) {
	if inst.model == nil {
		return
	}
	if err := inst.model.Close(); err != nil {
		m.log.Warn().Err(err).Str("model", inst.ID).Msg("closing model")
	}
}
