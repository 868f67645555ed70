package completion

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llamachat/internal/hooks"
	"llamachat/internal/state"
	"llamachat/pkg/types"
)

var (
	helpful = types.AgentContext{ID: "helper", Instruction: "You are helpful."}
	hello   = types.ConversationHistory{{Role: types.RoleUser, Content: "Hello"}}
)

func newProvider(t *testing.T, cfg Config) *Provider {
	t.Helper()
	p, err := NewWithConfig(cfg)
	require.NoError(t, err)
	return p
}

func TestCompleteTrimsStopSequences(t *testing.T) {
	eng := &spyEngine{fragments: []string{"Hi", " there", "User:"}}
	p := newProvider(t, Config{Engine: eng, DefaultModel: "tiny", StopSequences: []string{"User:"}})

	msg, err := p.Complete(context.Background(), helpful, hello)
	require.NoError(t, err)
	assert.Equal(t, "Hi there", msg.Content)
	assert.Equal(t, types.RoleAssistant, msg.Role)
	assert.Equal(t, "helper", msg.SourceAgentID)
	assert.Equal(t, "You are helpful.", msg.RenderedInstruction)
	assert.Equal(t, "tiny", msg.Model)
	assert.False(t, msg.Partial)
	assert.Len(t, msg.MessageID, 36)

	require.Len(t, eng.prompts, 1)
	assert.Equal(t, "You are helpful.\nUser: Hello\nAssistant: ", eng.prompts[0])
	assert.Equal(t, DefaultMaxTokens, eng.params[0].MaxTokens)
	assert.Equal(t, []string{"User:"}, eng.params[0].Stop)
}

func TestModelPrecedence(t *testing.T) {
	st := state.NewMap()
	eng := &spyEngine{fragments: []string{"ok"}}
	p := newProvider(t, Config{Engine: eng, State: st, DefaultModel: "model-X"})
	ctx := context.Background()

	_, err := p.Complete(ctx, helpful, hello)
	require.NoError(t, err)

	st.Set("", state.KeyModel, "from-state")
	_, err = p.Complete(ctx, helpful, hello)
	require.NoError(t, err)

	explicit := helpful
	explicit.SelectedModel = "explicit"
	_, err = p.Complete(ctx, explicit, hello)
	require.NoError(t, err)

	assert.Equal(t, []string{"model-X", "from-state", "explicit"}, eng.loadedModels())
}

func TestNoModelIsLoadFailure(t *testing.T) {
	eng := &spyEngine{}
	p := newProvider(t, Config{Engine: eng})
	_, err := p.Complete(context.Background(), helpful, hello)
	require.Error(t, err)
	assert.True(t, IsModelLoadFailure(err))
	assert.ErrorIs(t, err, ErrNoModel)
	assert.Empty(t, eng.loadedModels())
}

func TestBeforeHookFailureOpensNoSession(t *testing.T) {
	eng := &spyEngine{fragments: []string{"x"}}
	failing := hooks.Funcs{HookName: "guard", Before: func(context.Context, *types.AgentContext, types.ConversationHistory) error {
		return errBoom
	}}
	p := newProvider(t, Config{Engine: eng, DefaultModel: "tiny", Hooks: hooks.NewPipeline(failing)})

	msg, err := p.Complete(context.Background(), helpful, hello)
	assert.Nil(t, msg)
	assert.True(t, IsHookFailure(err))
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 0, eng.inferCalls())
	assert.Empty(t, eng.loadedModels())
}

func TestAfterHookFailureReturnsMessage(t *testing.T) {
	eng := &spyEngine{fragments: []string{"done"}}
	var rec types.TelemetryRecord
	after := hooks.Funcs{HookName: "audit", After: func(_ context.Context, _ *types.GeneratedMessage, r types.TelemetryRecord) error {
		rec = r
		return errBoom
	}}
	p := newProvider(t, Config{Engine: eng, DefaultModel: "tiny", Hooks: hooks.NewPipeline(after)})

	msg, err := p.Complete(context.Background(), helpful, hello)
	require.NotNil(t, msg)
	assert.Equal(t, "done", msg.Content)
	assert.True(t, IsHookFailure(err))
	assert.Equal(t, "You are helpful.\nUser: Hello\nAssistant: ", rec.Prompt)
	assert.Equal(t, DefaultProviderName, rec.ProviderName)
	assert.Equal(t, "tiny", rec.ModelName)
	assert.Equal(t, 1, rec.Usage.CompletionTokens)
}

func TestBeforeHookCanSelectModelAndInstruction(t *testing.T) {
	eng := &spyEngine{fragments: []string{"ok"}}
	rewrite := hooks.Funcs{Before: func(_ context.Context, a *types.AgentContext, _ types.ConversationHistory) error {
		a.SelectedModel = "hooked"
		a.Instruction = "Be brief."
		return nil
	}}
	p := newProvider(t, Config{Engine: eng, DefaultModel: "tiny", Hooks: hooks.NewPipeline(rewrite)})

	msg, err := p.Complete(context.Background(), helpful, hello)
	require.NoError(t, err)
	assert.Equal(t, "hooked", msg.Model)
	assert.Equal(t, "Be brief.", msg.RenderedInstruction)
	assert.Equal(t, "Be brief.\nUser: Hello\nAssistant: ", eng.prompts[0])
	assert.Equal(t, "You are helpful.", helpful.Instruction, "caller's agent must not change")
}

func TestGenerationFailureDiscardsText(t *testing.T) {
	eng := &spyEngine{fragments: []string{"par", "tial"}, genErr: errBoom}
	afterRan := false
	after := hooks.Funcs{After: func(context.Context, *types.GeneratedMessage, types.TelemetryRecord) error {
		afterRan = true
		return nil
	}}
	p := newProvider(t, Config{Engine: eng, DefaultModel: "tiny", Hooks: hooks.NewPipeline(after)})

	msg, err := p.Complete(context.Background(), helpful, hello)
	assert.Nil(t, msg)
	assert.True(t, IsGenerationFailure(err))
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, afterRan)
}

func TestLoadFailure(t *testing.T) {
	eng := &spyEngine{loadErr: errBoom}
	p := newProvider(t, Config{Engine: eng, DefaultModel: "tiny"})
	ok, err := p.CompleteWithCallback(context.Background(), helpful, hello, func(types.GeneratedMessage) error {
		t.Fatal("onMessage must not be called")
		return nil
	}, nil)
	assert.False(t, ok)
	assert.True(t, IsModelLoadFailure(err))
	assert.Equal(t, 0, eng.inferCalls())
}

func TestCancelMidStreamSkipsAfterHooks(t *testing.T) {
	eng := &spyEngine{fragments: []string{"a", "b", "c"}, block: make(chan struct{})}
	defer close(eng.block)
	afterRan := false
	after := hooks.Funcs{After: func(context.Context, *types.GeneratedMessage, types.TelemetryRecord) error {
		afterRan = true
		return nil
	}}
	p := newProvider(t, Config{Engine: eng, DefaultModel: "tiny", Hooks: hooks.NewPipeline(after)})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	msg, err := p.Complete(ctx, helpful, hello)
	assert.Nil(t, msg)
	assert.True(t, IsCancelled(err))
	assert.ErrorIs(t, err, ErrCancelled)
	assert.False(t, afterRan)
}

func TestCancelledBeforeStart(t *testing.T) {
	eng := &spyEngine{fragments: []string{"a"}}
	p := newProvider(t, Config{Engine: eng, DefaultModel: "tiny"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Complete(ctx, helpful, hello)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, 0, eng.inferCalls())
}

func TestCompleteWithCallbackDeliversOnce(t *testing.T) {
	eng := &spyEngine{fragments: []string{"Sure", "[/INST]"}}
	hookRan := false
	h := hooks.Funcs{Before: func(context.Context, *types.AgentContext, types.ConversationHistory) error {
		hookRan = true
		return nil
	}}
	p := newProvider(t, Config{Engine: eng, DefaultModel: "tiny", Hooks: hooks.NewPipeline(h)})

	var got []types.GeneratedMessage
	fnCalled := false
	ok, err := p.CompleteWithCallback(context.Background(), helpful, hello,
		func(m types.GeneratedMessage) error { got = append(got, m); return nil },
		func(types.GeneratedMessage) error { fnCalled = true; return nil })
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "Sure", got[0].Content)
	assert.False(t, hookRan, "callback mode runs no hooks")
	assert.False(t, fnCalled)
	assert.Equal(t, DefaultCallbackMaxTokens, eng.params[0].MaxTokens)
}

func TestCompleteWithCallbackHandlerError(t *testing.T) {
	p := newProvider(t, Config{Engine: &spyEngine{fragments: []string{"x"}}, DefaultModel: "tiny"})
	ok, err := p.CompleteWithCallback(context.Background(), helpful, hello,
		func(types.GeneratedMessage) error { return errBoom }, nil)
	assert.False(t, ok)
	assert.ErrorIs(t, err, errBoom)

	ok, err = p.CompleteWithCallback(context.Background(), helpful, hello, nil, nil)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestCompleteStreamingDeliversPartials(t *testing.T) {
	eng := &spyEngine{fragments: []string{"Hi", " there", " User:"}}
	p := newProvider(t, Config{Engine: eng, DefaultModel: "tiny"})

	var got []types.GeneratedMessage
	ok, err := p.CompleteStreaming(context.Background(), helpful, hello, func(m types.GeneratedMessage) error {
		got = append(got, m)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, got, 4)
	assert.Equal(t, []string{"Hi", "Hi there", "Hi there", "Hi there"},
		[]string{got[0].Content, got[1].Content, got[2].Content, got[3].Content})
	for _, m := range got[:3] {
		assert.True(t, m.Partial)
	}
	assert.False(t, got[3].Partial)
	assert.Equal(t, got[0].MessageID, got[3].MessageID)

	assert.Equal(t, "You are helpful.", eng.prompts[0], "streaming uses the raw instruction")
	assert.Equal(t, DefaultStreamMaxTokens, eng.params[0].MaxTokens)
	assert.Equal(t, []string{"User:"}, eng.params[0].Stop)
}

func TestCompleteStreamingHandlerErrorCancels(t *testing.T) {
	eng := &spyEngine{fragments: []string{"a", "b"}, block: make(chan struct{})}
	defer close(eng.block)
	p := newProvider(t, Config{Engine: eng, DefaultModel: "tiny"})
	ok, err := p.CompleteStreaming(context.Background(), helpful, nil, func(types.GeneratedMessage) error {
		return errBoom
	})
	assert.False(t, ok)
	assert.ErrorIs(t, err, errBoom)
}

func TestEchoAndVerboseDiagnostics(t *testing.T) {
	var echo, logs bytes.Buffer
	diag := make(chan string, 1)
	eng := &spyEngine{fragments: []string{"Hi", " there"}}
	p := newProvider(t, Config{
		Engine:       eng,
		DefaultModel: "tiny",
		Echo:         &echo,
		Logger:       zerolog.New(&logs).Level(zerolog.DebugLevel),
		Verbose:      true,
		Diagnostics:  func(prompt string) { diag <- prompt },
	})

	_, err := p.Complete(context.Background(), helpful, hello)
	require.NoError(t, err)
	assert.Equal(t, "Hi there\n", echo.String())
	select {
	case got := <-diag:
		assert.Equal(t, "You are helpful.\nUser: Hello\nAssistant: ", got)
	case <-time.After(time.Second):
		t.Fatal("diagnostic sink not called")
	}
	assert.Contains(t, logs.String(), `"fragment":" there"`)
}

func TestDiagnosticPanicDoesNotFailCall(t *testing.T) {
	eng := &spyEngine{fragments: []string{"ok"}}
	p := newProvider(t, Config{Engine: eng, DefaultModel: "tiny", Verbose: true,
		Diagnostics: func(string) { panic("sink exploded") }})
	msg, err := p.Complete(context.Background(), helpful, hello)
	require.NoError(t, err)
	assert.Equal(t, "ok", msg.Content)
}

func TestSlowDiagnosticSinkDoesNotStallCalls(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	eng := &spyEngine{fragments: []string{"ok"}}
	p := newProvider(t, Config{Engine: eng, DefaultModel: "tiny", Verbose: true,
		Diagnostics: func(string) { <-release }})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < maxPendingDiagnostics+4; i++ {
			_, err := p.Complete(context.Background(), helpful, hello)
			assert.NoError(t, err)
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("completions blocked on the diagnostic sink")
	}
}

func TestAfterHookCannotRewriteMessage(t *testing.T) {
	eng := &spyEngine{fragments: []string{"Hi", " User:"}}
	rewrite := hooks.Funcs{After: func(_ context.Context, m *types.GeneratedMessage, _ types.TelemetryRecord) error {
		m.Content = "Hi User: injected"
		m.RenderedInstruction = "something else"
		return nil
	}}
	p := newProvider(t, Config{Engine: eng, DefaultModel: "tiny", Hooks: hooks.NewPipeline(rewrite)})

	msg, err := p.Complete(context.Background(), helpful, hello)
	require.NoError(t, err)
	assert.Equal(t, "Hi", msg.Content)
	assert.Equal(t, "You are helpful.", msg.RenderedInstruction)
}

func TestNewWithConfigValidation(t *testing.T) {
	_, err := NewWithConfig(Config{})
	assert.Error(t, err)

	_, err = NewWithConfig(Config{Engine: &spyEngine{}, MaxTokens: -1})
	assert.Error(t, err)

	p := newProvider(t, Config{Engine: &spyEngine{}})
	assert.Equal(t, DefaultProviderName, p.Name())
	assert.Equal(t, []string{"User:", "[/INST]"}, p.complete.gen.StopSequences)
}

func TestWithModelLeavesOriginal(t *testing.T) {
	eng := &spyEngine{fragments: []string{"ok"}}
	p := newProvider(t, Config{Engine: eng, DefaultModel: "a"})
	q := p.WithModel("b")
	assert.Equal(t, "a", p.DefaultModel())
	assert.Equal(t, "b", q.DefaultModel())

	_, err := q.Complete(context.Background(), helpful, hello)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, eng.loadedModels())
}

func TestConcurrentCallsAreIndependent(t *testing.T) {
	eng := &spyEngine{fragments: []string{"x"}}
	p := newProvider(t, Config{Engine: eng, DefaultModel: "tiny"})
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			_, err := p.Complete(context.Background(), helpful, hello)
			errs <- err
		}()
	}
	for i := 0; i < 10; i++ {
		require.NoError(t, <-errs)
	}
	assert.Equal(t, 10, eng.inferCalls())
}

func TestOutcomeLabels(t *testing.T) {
	assert.Equal(t, "ok", outcome(nil))
	assert.Equal(t, "cancelled", outcome(ErrCancelled))
	assert.Equal(t, "error", outcome(errors.New("x")))
	assert.Equal(t, "hook_failure", outcome(&hooks.HookError{Err: errBoom}))
}
