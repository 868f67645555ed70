package manager

import "time"

// State represents lifecycle state of the manager/instances.
type State string

const (
	StateReady    State = "ready"
	StateLoading  State = "loading"
	StateError    State = "error"
	StateDraining State = "draining"
)

// ModelInfo is a minimal view of the most recently loaded model.
type ModelInfo struct {
	ID   string
	Path string
}

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	State        State
	CurrentModel *ModelInfo
	Err          string
}

// Instance is one resident model (one per model id).
type Instance struct {
	ID        string
	Path      string
	State     State
	LastUsed  time.Time
	EstVRAMMB int
	// Queueing primitives
	genCh   chan struct{} // size 1: single in-flight generation
	queueCh chan struct{} // buffered: queue slots
	// model is nil until the adapter finished loading.
	model LoadedModel
}

func (inst *Instance) idle() bool { return len(inst.genCh) == 0 && len(inst.queueCh) == 0 }
