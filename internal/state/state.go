// Package state provides the call-scoped key/value lookup used to resolve
// per-conversation settings such as the model name.
package state

import (
	"context"
	"sync"
)

// KeyModel is the state key holding the model name for a conversation.
const KeyModel = "model"

// Lookup reads call-scoped state. Implementations return def when the key is
// unset or the value cannot be read; they never fail the call.
type Lookup interface {
	GetState(ctx context.Context, key, def string) string
}

type conversationKey struct{}

// WithConversationID scopes lookups made with the returned context to id.
func WithConversationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, conversationKey{}, id)
}

// ConversationID returns the id set by WithConversationID, or "".
func ConversationID(ctx context.Context) string {
	id, _ := ctx.Value(conversationKey{}).(string)
	return id
}

// Map is a concurrency-safe in-memory Lookup. Values set with an empty
// conversation id are visible to every conversation that has no own value.
type Map struct {
	mu   sync.RWMutex
	vals map[string]map[string]string
}

func NewMap() *Map {
	return &Map{vals: make(map[string]map[string]string)}
}

// Set stores value under key for conversation id ("" for the global scope).
func (m *Map) Set(conversationID, key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	scope := m.vals[conversationID]
	if scope == nil {
		scope = make(map[string]string)
		m.vals[conversationID] = scope
	}
	scope[key] = value
}

func (m *Map) GetState(ctx context.Context, key, def string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id := ConversationID(ctx); id != "" {
		if v, ok := m.vals[id][key]; ok && v != "" {
			return v
		}
	}
	if v, ok := m.vals[""][key]; ok && v != "" {
		return v
	}
	return def
}

// Static is a Lookup that always returns def.
type Static struct{}

func (Static) GetState(_ context.Context, _ string, def string) string { return def }
