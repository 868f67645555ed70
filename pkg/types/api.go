package types

// CompleteRequest is the payload of POST /v1/complete and /v1/complete/stream.
type CompleteRequest struct {
	// Identifier of the agent the reply is attributed to.
	// example: support-bot
	AgentID string `json:"agent_id" example:"support-bot"`
	// Fully rendered agent instruction placed at the top of the prompt.
	// example: You are helpful.
	Instruction string `json:"instruction" example:"You are helpful."`
	// Optional model identifier. If empty, conversation state and then the server default are used.
	// example: tinyllama-q4.gguf
	Model string `json:"model,omitempty" example:"tinyllama-q4.gguf"`
	// Optional conversation id used to read call-scoped state (e.g. the "model" key).
	// example: conv-42
	ConversationID string `json:"conversation_id,omitempty" example:"conv-42"`
	// Conversation history, oldest first.
	History []ConversationTurn `json:"history"`
}

// CompleteResponse is returned by POST /v1/complete.
type CompleteResponse struct {
	Message GeneratedMessage `json:"message"`
	// Set when an after-generation hook failed; the message is still returned.
	// example: hook 0 (audit) failed after generate: sink unavailable
	HookError string `json:"hook_error,omitempty"`
}

// StreamEvent is one NDJSON line of POST /v1/complete/stream.
type StreamEvent struct {
	Message *GeneratedMessage `json:"message,omitempty"`
	Done    bool              `json:"done,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of available models.
	Models []Model `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// InstanceStatus summarizes a loaded instance for /status.
type InstanceStatus struct {
	// ID of the model this instance serves.
	// example: tinyllama-q4.gguf
	ModelID string `json:"model_id" example:"tinyllama-q4.gguf"`
	// Current lifecycle state of the instance (loading, ready, draining).
	// example: ready
	State string `json:"state" example:"ready"`
	// Last time this instance served a request (unix seconds).
	// example: 1700000000
	LastUsed int64 `json:"last_used_unix" example:"1700000000"`
	// Estimated VRAM usage in MB.
	// example: 1200
	EstVRAMMB int `json:"est_vram_mb" example:"1200"`
	// Current queue length for incoming requests.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// Number of in-flight generations.
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Maximum queued requests allowed before backpressure triggers.
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Loaded/managed instances.
	Instances []InstanceStatus `json:"instances"`
	// VRAM budget in MB across all instances.
	// example: 8192
	BudgetMB int `json:"budget_mb" example:"8192"`
	// Estimated used VRAM in MB.
	// example: 2048
	UsedMB int `json:"used_est_mb" example:"2048"`
	// Reserved VRAM margin in MB.
	// example: 512
	MarginMB int `json:"margin_mb" example:"512"`
	// Last error observed by the manager (if any).
	Error string `json:"error,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Total number of evictions performed.
	// example: 5
	EvictionsTotal uint64 `json:"evictions_total" example:"5"`
	// Total number of model loads.
	// example: 12
	LoadsTotal uint64 `json:"loads_total" example:"12"`
	// Overall manager state (loading, ready, error).
	// example: ready
	State string `json:"state" example:"ready"`
	// Whether the engine keeps at most one model resident.
	SingleResident bool `json:"single_resident"`
	// Last load failure per model id, cleared once that model loads.
	LoadErrors map[string]string `json:"load_errors,omitempty"`
}
