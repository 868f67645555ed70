package httpapi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"llamachat/internal/completion"
	"llamachat/internal/inference"
	"llamachat/pkg/types"
)

type mockService struct {
	ready      bool
	models     []types.Model
	status     types.StatusResponse
	preloadErr error
	unloadErr  error
	preloaded  []string
	unloaded   []string
}

func (m *mockService) ListModels() []types.Model    { return m.models }
func (m *mockService) Status() types.StatusResponse { return m.status }
func (m *mockService) Ready() bool                  { return m.ready }
func (m *mockService) Preload(id string) error {
	m.preloaded = append(m.preloaded, id)
	return m.preloadErr
}
func (m *mockService) Unload(id string) error {
	m.unloaded = append(m.unloaded, id)
	return m.unloadErr
}

// mockCompleter returns canned results and records what it was called with.
type mockCompleter struct {
	msg      *types.GeneratedMessage
	err      error
	partials []string
	// streamErrAfter fails the stream after delivering partials.
	streamErrAfter error

	gotAgent types.AgentContext
	gotHist  types.ConversationHistory
	gotCtx   context.Context
}

func (m *mockCompleter) Complete(ctx context.Context, agent types.AgentContext, history types.ConversationHistory) (*types.GeneratedMessage, error) {
	m.gotCtx, m.gotAgent, m.gotHist = ctx, agent, history
	return m.msg, m.err
}

func (m *mockCompleter) CompleteStreaming(ctx context.Context, agent types.AgentContext, history types.ConversationHistory, onMessage completion.MessageHandler) (bool, error) {
	m.gotCtx, m.gotAgent, m.gotHist = ctx, agent, history
	if m.err != nil {
		return false, m.err
	}
	acc := ""
	for _, p := range m.partials {
		acc += p
		if err := onMessage(types.GeneratedMessage{MessageID: "m1", Role: types.RoleAssistant, Content: acc, Partial: true}); err != nil {
			return false, err
		}
	}
	if m.streamErrAfter != nil {
		return false, m.streamErrAfter
	}
	if err := onMessage(types.GeneratedMessage{MessageID: "m1", Role: types.RoleAssistant, Content: acc}); err != nil {
		return false, err
	}
	return true, nil
}

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(w, req)
	return w
}

// fragmentEngine is an inference.Engine replaying fixed fragments.
type fragmentEngine struct {
	fragments []string
}

func (e *fragmentEngine) LoadModel(_ context.Context, model string) (inference.Handle, error) {
	return inference.Handle{Model: model}, nil
}

func (e *fragmentEngine) Infer(ctx context.Context, _ inference.Handle, _ string, _ inference.Params) (*inference.Stream, error) {
	return inference.NewStream(ctx, func(ctx context.Context, emit func(string) error) (types.Usage, error) {
		for _, f := range e.fragments {
			if err := emit(f); err != nil {
				return types.Usage{}, err
			}
		}
		return types.Usage{}, nil
	}), nil
}

func (e *fragmentEngine) IsLoaded(string) bool { return true }
