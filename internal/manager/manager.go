package manager

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"llamachat/internal/inference"
	"llamachat/pkg/types"
)

var _ inference.Engine = (*Manager)(nil)

type Manager struct {
	mu    sync.RWMutex
	state State
	cur   *ModelInfo
	err   string
	// loadErrs holds the last load failure per model id until it loads.
	loadErrs     map[string]string
	registry     []types.Model
	budgetMB     int
	marginMB     int
	defaultModel string
	// Multi-instance fields
	instances map[string]*Instance
	usedEstMB int

	// loads deduplicates concurrent LoadModel calls per model id.
	loads singleflight.Group
	// swapMu serializes load, evict and unload of resident models.
	swapMu         sync.Mutex
	singleResident bool

	adapter   InferenceAdapter
	publisher EventPublisher
	log       zerolog.Logger
	idle      *idleTracker

	// Queue config
	maxQueueDepth int
	maxWait       time.Duration
	drainTimeout  time.Duration

	startTime      time.Time
	loadsTotal     uint64
	evictionsTotal uint64
}

// New builds a Manager with package defaults for queueing and runtime options.
func New(reg []types.Model, budgetMB, marginMB int, defaultModel string) *Manager {
	return NewWithConfig(ManagerConfig{
		Registry:     reg,
		BudgetMB:     budgetMB,
		MarginMB:     marginMB,
		DefaultModel: defaultModel,
	})
}

// Ready reports whether at least one instance can serve generations. A
// failed load of one model does not affect the others.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.anyReadyLocked()
}

func (m *Manager) anyReadyLocked() bool {
	for _, inst := range m.instances {
		if inst.State == StateReady {
			return true
		}
	}
	return false
}

func (m *Manager) ListModels() []types.Model {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Model, len(m.registry))
	copy(out, m.registry)
	return out
}

// DefaultModel returns the configured fallback model id.
func (m *Manager) DefaultModel() string { return m.defaultModel }

// IsLoaded reports whether modelID is resident and ready.
func (m *Manager) IsLoaded(modelID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst := m.instances[modelID]
	return inst != nil && inst.State == StateReady && inst.model != nil
}
