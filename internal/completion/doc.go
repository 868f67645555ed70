// Package completion turns an agent and its conversation history into one
// assistant message using the local inference engine.
//
// A Provider exposes three call shapes that share one pipeline:
//
//   - Complete: before/after hooks, history prompt, returns the message.
//   - CompleteWithCallback: no hooks, history prompt, delivers the message once.
//   - CompleteStreaming: no hooks, raw instruction prompt, delivers a partial
//     message per fragment and then the final one.
//
// The model is chosen in the same order for every shape: the agent's selected
// model, then the call-scoped state key "model", then the configured default.
// Failures are reported as the inference error kinds plus hook failures; none
// are retried.
package completion
