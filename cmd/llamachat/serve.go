package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"llamachat/internal/config"
	"llamachat/internal/httpapi"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			log := newLogger(os.Stderr, opts.cfg.LogLevel, opts.cfg.LogFormat)
			return serve(ctx, opts.cfg, log)
		},
	}
	f := cmd.Flags()
	f.String("addr", "", "HTTP listen address, e.g. :8080 (defaults LLAMACHAT_ADDR)")
	f.Int("request-timeout-seconds", 0, "Wall-clock limit for one completion request (0 = none)")
	f.String("cors-origins", "", "Comma-separated allowed CORS origins (enables CORS)")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	a, err := buildApp(ctx, cfg, log, appOptions{registerer: prometheus.DefaultRegisterer})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("shutdown")
		}
	}()

	httpapi.SetLogger(log)
	httpapi.SetBaseContext(ctx)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetRequestTimeout(cfg.RequestTimeout())
	httpapi.SetDefaultLogLevel(cfg.RequestLog)
	httpapi.SetSwaggerEnabled(!cfg.DisableSwagger)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSAllowedOrigins, cfg.CORSAllowedMethods, cfg.CORSAllowedHeaders)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(a.mgr, a.provider),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if cfg.DefaultModel != "" {
		if err := a.mgr.Preload(cfg.DefaultModel); err != nil {
			log.Warn().Err(err).Str("model", cfg.DefaultModel).Msg("preload default model")
		}
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("models_dir", cfg.ModelsDir).Msg("llamachat listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown")
	}
	return nil
}
