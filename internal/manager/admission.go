package manager

import (
	"context"
	"errors"
	"time"
)

// errInstanceGone means the instance was unloaded or evicted while a request
// waited for it; the caller may load it again.
var errInstanceGone = errors.New("instance no longer resident")

// beginGeneration reserves a queue slot and then the single in-flight slot.
// Returns a release func to be deferred.
func (m *Manager) beginGeneration(ctx context.Context, modelID string) (*Instance, func(), error) {
	m.mu.RLock()
	inst := m.instances[modelID]
	m.mu.RUnlock()
	if inst == nil {
		return nil, func() {}, errInstanceGone
	}
	m.mu.RLock()
	draining := inst.State == StateDraining
	m.mu.RUnlock()
	// If draining, reject new work to allow graceful unload
	if draining {
		return nil, func() {}, tooBusyError{modelID: modelID}
	}
	if err := ctx.Err(); err != nil {
		return nil, func() {}, err
	}

	timer := time.NewTimer(m.maxWait)
	defer timer.Stop()
	select {
	case inst.queueCh <- struct{}{}:
	case <-ctx.Done():
		return nil, func() {}, ctx.Err()
	case <-timer.C:
		return nil, func() {}, tooBusyError{modelID: modelID}
	}

	// Wait to acquire the single in-flight slot
	acquired := false
	defer func() {
		if !acquired {
			<-inst.queueCh
		}
	}()
	select {
	case inst.genCh <- struct{}{}:
	case <-ctx.Done():
		return nil, func() {}, ctx.Err()
	case <-timer.C:
		return nil, func() {}, tooBusyError{modelID: modelID}
	}

	// Eviction and unload check idleness under m.mu, so re-checking here
	// after taking the slots sees any removal that raced with us.
	m.mu.Lock()
	switch {
	case m.instances[modelID] != inst:
		m.mu.Unlock()
		<-inst.genCh
		return nil, func() {}, errInstanceGone
	case inst.State != StateReady || inst.model == nil:
		m.mu.Unlock()
		<-inst.genCh
		return nil, func() {}, tooBusyError{modelID: modelID}
	}
	acquired = true
	inst.LastUsed = time.Now()
	m.mu.Unlock()
	m.idle.touch(modelID)

	return inst, func() {
		m.mu.Lock()
		inst.LastUsed = time.Now()
		m.mu.Unlock()
		<-inst.genCh
		<-inst.queueCh
		m.idle.touch(modelID)
	}, nil
}
