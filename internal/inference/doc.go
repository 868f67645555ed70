// Package inference defines the capability the orchestrator consumes from a
// token-generation engine and the fragment stream one generation produces.
//
//   - engine.go: Engine, Handle, Params.
//   - stream.go: Stream, a cancellable single-consumer fragment sequence.
//   - session.go: Open, which loads a model and starts one generation.
//   - errors.go: ModelLoadError, GenerationError, ErrCancelled and Is helpers.
//
// Streams block the consumer on a channel until the next fragment is ready;
// there is no polling. A cancelled stream ends with ErrCancelled rather than a
// generation failure.
package inference
