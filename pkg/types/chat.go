package types

import "fmt"

// Role identifies the speaker of a conversation turn. Values are rendered
// verbatim into prompts ("User: Hello").
type Role string

const (
	RoleSystem    Role = "System"
	RoleUser      Role = "User"
	RoleAssistant Role = "Assistant"
	RoleFunction  Role = "Function"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleFunction:
		return true
	}
	return false
}

// ConversationTurn is one entry of a conversation history.
type ConversationTurn struct {
	// Speaker of this turn.
	// example: User
	Role Role `json:"role" yaml:"role" toml:"role" example:"User"`
	// Text of this turn.
	// example: Hello
	Content string `json:"content" yaml:"content" toml:"content" example:"Hello"`
}

// ConversationHistory is ordered oldest first.
type ConversationHistory []ConversationTurn

// AgentContext carries the agent identity and its already-rendered instruction.
type AgentContext struct {
	ID            string `json:"id"`
	Instruction   string `json:"instruction"`
	SelectedModel string `json:"selected_model,omitempty"`
}

// GenerationConfig bounds a single generation.
type GenerationConfig struct {
	StopSequences []string `json:"stop_sequences,omitempty"`
	MaxTokens     int      `json:"max_tokens"`
}

// Validate rejects a non-positive token budget.
func (c GenerationConfig) Validate() error {
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be > 0, got %d", c.MaxTokens)
	}
	return nil
}

// GeneratedMessage is the assistant reply produced by one completion call.
type GeneratedMessage struct {
	MessageID           string `json:"message_id"`
	Role                Role   `json:"role"`
	Content             string `json:"content"`
	SourceAgentID       string `json:"source_agent_id"`
	RenderedInstruction string `json:"rendered_instruction"`
	Model               string `json:"model,omitempty"`
	// Partial marks incremental deliveries of a streaming call; the final
	// delivery has Partial=false.
	Partial bool `json:"partial,omitempty"`
}

// Usage contains token accounting reported by the engine, zero when unknown.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// TelemetryRecord is handed to after-generation hooks. It is not persisted.
type TelemetryRecord struct {
	Prompt       string
	ProviderName string
	ModelName    string
	Usage        Usage
}
