package completion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"llamachat/internal/inference"
	"llamachat/internal/prompt"
	"llamachat/pkg/types"
)

// Mode names a delivery shape in metrics, spans and logs.
type Mode string

const (
	ModeComplete Mode = "complete"
	ModeCallback Mode = "callback"
	ModeStream   Mode = "stream"
)

const tracerName = "llamachat/internal/completion"

// plan parameterizes the shared pipeline.
type plan struct {
	mode       Mode
	useHooks   bool
	useHistory bool
	// incremental delivers a partial message per fragment before the final one.
	incremental bool
	gen         types.GenerationConfig
}

func (p *Provider) run(ctx context.Context, pl plan, agent types.AgentContext, history types.ConversationHistory, deliver MessageHandler) (msg *types.GeneratedMessage, err error) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "completion."+string(pl.mode))
	span.SetAttributes(
		attribute.String("completion.provider", p.name),
		attribute.String("completion.agent", agent.ID),
		attribute.Int("completion.max_tokens", pl.gen.MaxTokens),
	)
	defer func() {
		out := outcome(err)
		requestsTotal.WithLabelValues(string(pl.mode), out).Inc()
		requestDuration.WithLabelValues(string(pl.mode)).Observe(time.Since(start).Seconds())
		span.SetAttributes(attribute.String("completion.outcome", out))
		if err != nil && !IsCancelled(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, out)
		}
		span.End()
	}()

	if ctx.Err() != nil {
		return nil, ErrCancelled
	}

	// Hooks see a copy: their changes apply to this call only.
	a := agent
	if pl.useHooks {
		if err := p.hooks.RunBefore(ctx, &a, history); err != nil {
			return nil, err
		}
	}
	instruction := a.Instruction

	text := instruction
	if pl.useHistory {
		text = prompt.Build(history, instruction)
	}
	if p.verbose {
		p.log.Info().Str("mode", string(pl.mode)).Str("prompt", text).Msg("prompt")
		p.diagnose(text)
	}

	model := p.ResolveModel(ctx, a)
	span.SetAttributes(attribute.String("completion.model", model))
	if model == "" {
		return nil, &inference.ModelLoadError{Model: model, Err: ErrNoModel}
	}

	stream, err := inference.Open(ctx, p.engine, model, text, inference.Params{
		MaxTokens: pl.gen.MaxTokens,
		Stop:      pl.gen.StopSequences,
	})
	if err != nil {
		p.log.Warn().Err(err).Str("mode", string(pl.mode)).Str("model", model).Msg("open inference session")
		return nil, err
	}
	defer stream.Close()

	base := types.GeneratedMessage{
		MessageID:           uuid.NewString(),
		Role:                types.RoleAssistant,
		SourceAgentID:       a.ID,
		RenderedInstruction: instruction,
		Model:               model,
	}

	var acc strings.Builder
	for {
		frag, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Partial text is discarded on failure.
			return nil, err
		}
		acc.WriteString(frag)
		fragmentsTotal.WithLabelValues(string(pl.mode)).Inc()
		p.log.Debug().Str("mode", string(pl.mode)).Str("message_id", base.MessageID).Str("fragment", frag).Msg("fragment")
		p.echo.write(frag)

		if pl.incremental {
			partial := base
			partial.Content = prompt.Trim(acc.String(), pl.gen.StopSequences)
			partial.Partial = true
			if err := deliver(partial); err != nil {
				stream.Cancel()
				return nil, fmt.Errorf("deliver partial message: %w", err)
			}
		}
	}
	p.echo.end()

	final := base
	final.Content = prompt.Trim(acc.String(), pl.gen.StopSequences)
	if ctx.Err() != nil {
		return nil, ErrCancelled
	}

	if pl.useHooks {
		rec := types.TelemetryRecord{
			Prompt:       text,
			ProviderName: p.name,
			ModelName:    model,
			Usage:        stream.Usage(),
		}
		// After hooks observe a copy; the delivered message stays trimmed.
		seen := final
		if err := p.hooks.RunAfter(ctx, &seen, rec); err != nil {
			if IsCancelled(err) {
				return nil, err
			}
			return &final, err
		}
	}

	if deliver != nil {
		if err := deliver(final); err != nil {
			return nil, fmt.Errorf("deliver message: %w", err)
		}
	}
	return &final, nil
}

// diagnose hands text to the sink without waiting for it. At most
// maxPendingDiagnostics deliveries run at once; beyond that text is dropped.
func (p *Provider) diagnose(text string) {
	if p.diag == nil {
		return
	}
	select {
	case p.diagSlots <- struct{}{}:
	default:
		p.log.Debug().Msg("diagnostic sink busy, prompt dropped")
		return
	}
	go func() {
		defer func() {
			<-p.diagSlots
			if r := recover(); r != nil {
				p.log.Warn().Interface("panic", r).Msg("diagnostic sink panicked")
			}
		}()
		p.diag(text)
	}()
}

// echoWriter mirrors fragments to an io.Writer, e.g. a terminal. Concurrent
// calls may share it, so writes are serialized per fragment.
type echoWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (e *echoWriter) write(frag string) {
	if e == nil {
		return
	}
	e.mu.Lock()
	_, _ = io.WriteString(e.w, frag)
	e.mu.Unlock()
}

func (e *echoWriter) end() { e.write("\n") }
