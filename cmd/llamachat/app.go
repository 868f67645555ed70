package main

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"llamachat/internal/completion"
	"llamachat/internal/config"
	"llamachat/internal/hooks"
	"llamachat/internal/manager"
	"llamachat/internal/registry"
	"llamachat/internal/state"
)

// app is the wired engine, state store and orchestrator.
type app struct {
	mgr      *manager.Manager
	provider *completion.Provider
	closers  []func() error
}

func (a *app) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type appOptions struct {
	echo io.Writer
	// registerer receives hook and manager event metrics; nil skips both.
	registerer prometheus.Registerer
}

func buildApp(ctx context.Context, cfg config.Config, log zerolog.Logger, o appOptions) (*app, error) {
	reg, err := registry.LoadDir(cfg.ModelsDir)
	if err != nil {
		return nil, fmt.Errorf("load models: %w", err)
	}
	mcfg := manager.ManagerConfig{
		Registry:       reg,
		BudgetMB:       cfg.VRAMBudgetMB,
		MarginMB:       cfg.VRAMMarginMB,
		DefaultModel:   cfg.DefaultModel,
		MaxQueueDepth:  cfg.MaxQueueDepth,
		MaxWait:        cfg.MaxWait(),
		DrainTimeout:   cfg.DrainTimeout(),
		SingleResident: cfg.SingleResident,
		IdleTTL:        cfg.IdleTTL(),
		LlamaCtx:       cfg.LlamaCtx,
		LlamaThreads:   cfg.LlamaThreads,
		LlamaGPULayers: cfg.LlamaGPULayers,
		Logger:         log,
	}
	pubs := manager.MultiPublisher{manager.LogPublisher{Log: log.With().Str("component", "manager").Logger()}}
	if o.registerer != nil {
		mp, err := manager.NewMetricsPublisher(o.registerer)
		if err != nil {
			return nil, fmt.Errorf("register manager metrics: %w", err)
		}
		pubs = append(pubs, mp)
	}
	mcfg.Publisher = pubs
	if newAdapter != nil {
		mcfg.Adapter = newAdapter(cfg)
	}
	a := &app{mgr: manager.NewWithConfig(mcfg)}
	a.closers = append(a.closers, a.mgr.Close)

	if rep := a.mgr.SanityCheck(); !rep.OK() {
		log.Warn().
			Bool("llama_built", rep.LlamaBuilt).
			Strs("missing", rep.MissingModels).
			Str("error", rep.Error).
			Msg("sanity check failed")
	}

	var lookup state.Lookup = state.NewMap()
	if cfg.RedisAddr != "" {
		rs := state.NewRedis(cfg.RedisAddr, "", 0,
			state.WithPrefix(cfg.StatePrefix),
			state.WithTTL(cfg.StateTTL()),
			state.WithLogger(log),
		)
		if err := rs.Ping(ctx); err != nil {
			// Lookups fall back to the default model while Redis is away.
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable")
		}
		a.closers = append(a.closers, rs.Close)
		lookup = rs
	}

	hs := []hooks.Hook{hooks.LogHook{Log: log}}
	if o.registerer != nil {
		mh, err := hooks.NewMetricsHook(o.registerer)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("metrics hook: %w", err)
		}
		hs = append(hs, mh)
	}

	p, err := completion.NewWithConfig(completion.Config{
		Engine:              a.mgr,
		State:               lookup,
		Hooks:               hooks.NewPipeline(hs...),
		Logger:              log,
		Diagnostics:         func(prompt string) { log.Debug().Str("prompt", prompt).Msg("diagnostics") },
		Echo:                o.echo,
		ProviderName:        cfg.ProviderName,
		DefaultModel:        cfg.DefaultModel,
		MaxTokens:           cfg.MaxTokens,
		CallbackMaxTokens:   cfg.CallbackMaxTokens,
		StreamMaxTokens:     cfg.StreamMaxTokens,
		StopSequences:       cfg.StopSequences,
		StreamStopSequences: cfg.StreamStopSequences,
		Verbose:             cfg.Verbose,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.provider = p
	return a, nil
}
