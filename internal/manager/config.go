package manager

import (
	"time"

	"github.com/rs/zerolog"

	"llamachat/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
	defaultDrainTimeout  = 5 * time.Second
	defaultLlamaCtx      = 2048
	defaultLlamaThreads  = 4
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Registry      []types.Model
	BudgetMB      int
	MarginMB      int
	DefaultModel  string
	MaxQueueDepth int
	MaxWait       time.Duration
	DrainTimeout  time.Duration
	// SingleResident unloads every other model before loading a new one.
	SingleResident bool
	// IdleTTL unloads instances unused for this long. Zero disables expiry.
	IdleTTL time.Duration
	// llama.cpp runtime options, used when Adapter is nil.
	LlamaCtx       int
	LlamaThreads   int
	LlamaGPULayers int
	// Adapter overrides the runtime (tests, alternative engines).
	Adapter   InferenceAdapter
	Publisher EventPublisher
	// Logger receives lifecycle logs; the zero value discards them.
	Logger zerolog.Logger
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		state:          StateLoading,
		registry:       append([]types.Model(nil), cfg.Registry...),
		budgetMB:       cfg.BudgetMB,
		marginMB:       cfg.MarginMB,
		defaultModel:   cfg.DefaultModel,
		singleResident: cfg.SingleResident,
		instances:      make(map[string]*Instance),
		loadErrs:       make(map[string]string),
		adapter:        cfg.Adapter,
		publisher:      cfg.Publisher,
		log:            cfg.Logger.With().Str("component", "manager").Logger(),
		startTime:      time.Now(),
	}
	// Apply defaults if unset
	if cfg.MaxQueueDepth <= 0 {
		m.maxQueueDepth = defaultMaxQueueDepth
	} else {
		m.maxQueueDepth = cfg.MaxQueueDepth
	}
	if cfg.MaxWait <= 0 {
		m.maxWait = defaultMaxWait
	} else {
		m.maxWait = cfg.MaxWait
	}
	if cfg.DrainTimeout <= 0 {
		m.drainTimeout = defaultDrainTimeout
	} else {
		m.drainTimeout = cfg.DrainTimeout
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if m.adapter == nil {
		ctxSize, threads := cfg.LlamaCtx, cfg.LlamaThreads
		if ctxSize <= 0 {
			ctxSize = defaultLlamaCtx
		}
		if threads <= 0 {
			threads = defaultLlamaThreads
		}
		m.adapter = NewLlamaAdapter(ctxSize, threads, cfg.LlamaGPULayers)
	}
	m.idle = newIdleTracker(cfg.IdleTTL, m.expire)
	return m
}
