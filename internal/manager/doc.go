// Package manager is the engine integration layer: it owns loaded models and
// implements inference.Engine on top of a runtime adapter. It is structured
// into small files by concern:
//
//   - manager.go: core Manager type, simple getters, IsLoaded.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: internal state types (State, ModelInfo, Instance, Snapshot).
//   - errors.go: error types and helpers (IsTooBusy, IsModelNotFound, ...).
//   - helpers.go: small utilities (model lookup, VRAM estimation).
//   - load.go: LoadModel behind a single-flight gate keyed by model id.
//   - admission.go: per-instance queueing and generation admission.
//   - evict.go: eviction logic to fit within VRAM budget.
//   - infer.go: Infer, which turns a generation into an inference.Stream.
//   - idle.go: idle expiry of unused instances.
//   - unload.go: Unload (graceful drain) and Close.
//   - status.go: Status/Snapshot reporting helpers.
//   - ops.go: Preload (background load).
//   - events.go: lifecycle events and publishers (log, memory, fan-out).
//   - sanity.go: SanityCheck of the runtime build and model files.
//
// Concurrent LoadModel calls for one model share a single load. Loads, swaps
// and evictions are serialized by a swap mutex so an engine that holds one
// model at a time (SingleResident) never thrashes.
//
// Build tags and runtimes:
//
//   - In-process llama: go-llama.cpp adapter enabled with `-tags=llama`.
//     Files: adapter_llama.go, llama_cgo.go (linker rpath hints).
//     A no-CGO stub is compiled when the tag is not set: adapter_llama_stub.go.
package manager
