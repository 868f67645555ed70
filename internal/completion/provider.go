package completion

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"

	"llamachat/internal/hooks"
	"llamachat/internal/inference"
	"llamachat/internal/state"
	"llamachat/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	DefaultProviderName      = "llama-cpp"
	DefaultMaxTokens         = 128
	DefaultCallbackMaxTokens = 64
	DefaultStreamMaxTokens   = 64

	maxPendingDiagnostics = 16
)

// DefaultStopSequences are the markers trimmed from Complete and
// CompleteWithCallback output.
func DefaultStopSequences() []string { return []string{"User:", "[/INST]"} }

// DefaultStreamStopSequences are the markers trimmed from CompleteStreaming output.
func DefaultStreamStopSequences() []string { return []string{"User:"} }

// DiagnosticSink receives the final prompt when verbose diagnostics are on.
// It runs on its own goroutine; its outcome never affects the call.
type DiagnosticSink func(prompt string)

// MessageHandler receives generated messages.
type MessageHandler func(msg types.GeneratedMessage) error

// FunctionCallHandler is accepted for symmetry with function-calling
// providers. The llama engine has no function calling, so it is never invoked.
type FunctionCallHandler func(msg types.GeneratedMessage) error

// Config holds the collaborators and settings of a Provider.
type Config struct {
	Engine inference.Engine
	// State resolves the "model" key; nil means always use the default.
	State state.Lookup
	// Hooks run around Complete; nil means none.
	Hooks *hooks.Pipeline
	// Logger receives per-fragment debug lines; the zero value discards them.
	Logger      zerolog.Logger
	Diagnostics DiagnosticSink
	// Echo, when set, receives every fragment as it is produced.
	Echo io.Writer

	ProviderName        string
	DefaultModel        string
	MaxTokens           int
	CallbackMaxTokens   int
	StreamMaxTokens     int
	StopSequences       []string
	StreamStopSequences []string
	// Verbose logs the final prompt and hands it to Diagnostics.
	Verbose bool
}

// Provider orchestrates completions. It is immutable after construction and
// safe for concurrent use.
type Provider struct {
	engine       inference.Engine
	state        state.Lookup
	hooks        *hooks.Pipeline
	log          zerolog.Logger
	diag         DiagnosticSink
	diagSlots    chan struct{}
	echo         *echoWriter
	name         string
	defaultModel string
	verbose      bool

	complete plan
	callback plan
	stream   plan
}

// NewWithConfig validates cfg and applies defaults.
func NewWithConfig(cfg Config) (*Provider, error) {
	if cfg.Engine == nil {
		return nil, errors.New("completion: engine is required")
	}
	if cfg.ProviderName == "" {
		cfg.ProviderName = DefaultProviderName
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.CallbackMaxTokens == 0 {
		cfg.CallbackMaxTokens = DefaultCallbackMaxTokens
	}
	if cfg.StreamMaxTokens == 0 {
		cfg.StreamMaxTokens = DefaultStreamMaxTokens
	}
	if cfg.StopSequences == nil {
		cfg.StopSequences = DefaultStopSequences()
	}
	if cfg.StreamStopSequences == nil {
		cfg.StreamStopSequences = DefaultStreamStopSequences()
	}
	if cfg.State == nil {
		cfg.State = state.Static{}
	}
	p := &Provider{
		engine:       cfg.Engine,
		state:        cfg.State,
		hooks:        cfg.Hooks,
		log:          cfg.Logger.With().Str("component", "completion").Str("provider", cfg.ProviderName).Logger(),
		diag:         cfg.Diagnostics,
		diagSlots:    make(chan struct{}, maxPendingDiagnostics),
		name:         cfg.ProviderName,
		defaultModel: cfg.DefaultModel,
		verbose:      cfg.Verbose,
		complete: plan{
			mode:       ModeComplete,
			useHooks:   true,
			useHistory: true,
			gen:        types.GenerationConfig{MaxTokens: cfg.MaxTokens, StopSequences: clone(cfg.StopSequences)},
		},
		callback: plan{
			mode:       ModeCallback,
			useHistory: true,
			gen:        types.GenerationConfig{MaxTokens: cfg.CallbackMaxTokens, StopSequences: clone(cfg.StopSequences)},
		},
		stream: plan{
			mode:        ModeStream,
			incremental: true,
			gen:         types.GenerationConfig{MaxTokens: cfg.StreamMaxTokens, StopSequences: clone(cfg.StreamStopSequences)},
		},
	}
	for _, pl := range []plan{p.complete, p.callback, p.stream} {
		if err := pl.gen.Validate(); err != nil {
			return nil, errors.New("completion: " + string(pl.mode) + ": " + err.Error())
		}
	}
	if cfg.Echo != nil {
		p.echo = &echoWriter{w: cfg.Echo}
	}
	return p, nil
}

func clone(s []string) []string { return append([]string(nil), s...) }

// Name returns the provider name reported in telemetry.
func (p *Provider) Name() string { return p.name }

// DefaultModel returns the fallback model name.
func (p *Provider) DefaultModel() string { return p.defaultModel }

// WithModel returns a copy of p whose default model is model.
func (p *Provider) WithModel(model string) *Provider {
	cp := *p
	cp.defaultModel = model
	return &cp
}

// Complete runs the before hooks, generates a reply for history and runs the
// after hooks. When an after hook fails the message is returned together
// with the *hooks.HookError so the caller can decide whether to use it.
func (p *Provider) Complete(ctx context.Context, agent types.AgentContext, history types.ConversationHistory) (*types.GeneratedMessage, error) {
	return p.run(ctx, p.complete, agent, history, nil)
}

// CompleteWithCallback generates a reply without hooks and hands it to
// onMessage once. onFunctionCall is never invoked. It reports false with the
// error when the call fails or onMessage returns an error.
func (p *Provider) CompleteWithCallback(ctx context.Context, agent types.AgentContext, history types.ConversationHistory, onMessage MessageHandler, onFunctionCall FunctionCallHandler) (bool, error) {
	if onMessage == nil {
		return false, errors.New("completion: onMessage is required")
	}
	_ = onFunctionCall
	if _, err := p.run(ctx, p.callback, agent, history, onMessage); err != nil {
		return false, err
	}
	return true, nil
}

// CompleteStreaming generates from agent.Instruction alone; history is not
// rendered into the prompt. Every fragment delivers a Partial message holding
// the trimmed text so far, then the final message is delivered with
// Partial=false.
func (p *Provider) CompleteStreaming(ctx context.Context, agent types.AgentContext, history types.ConversationHistory, onMessage MessageHandler) (bool, error) {
	if onMessage == nil {
		return false, errors.New("completion: onMessage is required")
	}
	if _, err := p.run(ctx, p.stream, agent, history, onMessage); err != nil {
		return false, err
	}
	return true, nil
}

// ResolveModel applies the model precedence for agent.
func (p *Provider) ResolveModel(ctx context.Context, agent types.AgentContext) string {
	if agent.SelectedModel != "" {
		return agent.SelectedModel
	}
	return p.state.GetState(ctx, state.KeyModel, p.defaultModel)
}
