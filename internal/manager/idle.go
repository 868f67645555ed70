package manager

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// idleTracker expires model ids that were not touched for ttl. A nil tracker
// (ttl <= 0) is valid and does nothing.
type idleTracker struct {
	cache *ttlcache.Cache[string, struct{}]
}

func newIdleTracker(ttl time.Duration, onExpire func(modelID string)) *idleTracker {
	if ttl <= 0 {
		return nil
	}
	c := ttlcache.New[string, struct{}](
		ttlcache.WithTTL[string, struct{}](ttl),
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)
	c.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, struct{}]) {
		if reason == ttlcache.EvictionReasonExpired {
			onExpire(item.Key())
		}
	})
	go c.Start()
	return &idleTracker{cache: c}
}

func (t *idleTracker) touch(modelID string) {
	if t == nil {
		return
	}
	t.cache.Set(modelID, struct{}{}, ttlcache.DefaultTTL)
}

func (t *idleTracker) forget(modelID string) {
	if t == nil {
		return
	}
	t.cache.Delete(modelID)
}

func (t *idleTracker) stop() {
	if t == nil {
		return
	}
	t.cache.Stop()
}

// expire unloads an instance whose idle TTL elapsed. Busy instances are
// re-armed instead.
func (m *Manager) expire(modelID string) {
	m.mu.RLock()
	inst := m.instances[modelID]
	busy := inst != nil && !inst.idle()
	m.mu.RUnlock()
	if inst == nil {
		return
	}
	if busy {
		m.idle.touch(modelID)
		return
	}
	m.publisher.Publish(Event{Name: EventIdleExpired, ModelID: modelID, Fields: map[string]any{}})
	if err := m.Unload(modelID); err != nil && !IsModelNotFound(err) {
		m.log.Warn().Err(err).Str("model", modelID).Msg("idle unload failed")
	}
}
