package hooks

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"llamachat/pkg/types"
)

// LogHook writes one structured line per phase.
type LogHook struct {
	Log zerolog.Logger
}

func (LogHook) Name() string { return "log" }

func (h LogHook) BeforeGenerate(_ context.Context, agent *types.AgentContext, history types.ConversationHistory) error {
	h.Log.Debug().
		Str("agent", agent.ID).
		Int("turns", len(history)).
		Str("selected_model", agent.SelectedModel).
		Msg("before generate")
	return nil
}

func (h LogHook) AfterGenerate(_ context.Context, msg *types.GeneratedMessage, rec types.TelemetryRecord) error {
	h.Log.Info().
		Str("agent", msg.SourceAgentID).
		Str("message_id", msg.MessageID).
		Str("provider", rec.ProviderName).
		Str("model", rec.ModelName).
		Int("prompt_chars", len(rec.Prompt)).
		Int("completion_tokens", rec.Usage.CompletionTokens).
		Msg("generated")
	return nil
}

// MetricsHook counts generations and records prompt sizes.
type MetricsHook struct {
	generations *prometheus.CounterVec
	promptChars prometheus.Histogram
}

// NewMetricsHook creates the hook's collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetricsHook(reg prometheus.Registerer) (*MetricsHook, error) {
	h := &MetricsHook{
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "llamachat",
				Subsystem: "hooks",
				Name:      "generations_total",
				Help:      "Completed generations seen by after-generate hooks",
			},
			[]string{"provider", "model"},
		),
		promptChars: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "llamachat",
				Subsystem: "hooks",
				Name:      "prompt_chars",
				Help:      "Size of generation prompts in characters",
				Buckets:   prometheus.ExponentialBuckets(64, 2, 10),
			},
		),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{h.generations, h.promptChars} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return h, nil
}

func (*MetricsHook) Name() string { return "metrics" }

func (*MetricsHook) BeforeGenerate(context.Context, *types.AgentContext, types.ConversationHistory) error {
	return nil
}

func (h *MetricsHook) AfterGenerate(_ context.Context, _ *types.GeneratedMessage, rec types.TelemetryRecord) error {
	h.generations.WithLabelValues(rec.ProviderName, rec.ModelName).Inc()
	h.promptChars.Observe(float64(len(rec.Prompt)))
	return nil
}
