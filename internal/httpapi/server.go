package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"llamachat/internal/completion"
	"llamachat/internal/state"
	"llamachat/pkg/types"
)

// Service defines the engine methods required by the HTTP API layer.
type Service interface {
	ListModels() []types.Model
	Status() types.StatusResponse
	Ready() bool
	Preload(modelID string) error
	Unload(modelID string) error
}

// Completer is the completion orchestrator.
type Completer interface {
	Complete(ctx context.Context, agent types.AgentContext, history types.ConversationHistory) (*types.GeneratedMessage, error)
	CompleteStreaming(ctx context.Context, agent types.AgentContext, history types.ConversationHistory, onMessage completion.MessageHandler) (bool, error)
}

func NewMux(svc Service, c Completer) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsOptions != nil {
		r.Use(cors.Handler(*corsOptions))
	}
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	h := &handlers{svc: svc, c: c}
	r.Group(func(r chi.Router) {
		r.Use(inflightMiddleware)
		r.Post("/v1/complete", h.complete)
		r.Post("/v1/complete/stream", h.completeStream)
		r.Get("/models", h.models)
		r.Post("/models/{id}/preload", h.preload)
		r.Delete("/models/{id}", h.unload)
		r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, svc.Status())
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)

	return r
}

type handlers struct {
	svc Service
	c   Completer
}

func (h *handlers) models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.ModelsResponse{Models: h.svc.ListModels()})
}

func (h *handlers) preload(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Preload(chi.URLParam(r, "id")); err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *handlers) unload(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Unload(chi.URLParam(r, "id")); err != nil {
		status := statusFor(err)
		if status == http.StatusTooManyRequests {
			IncrementBackpressure("drain_timeout")
		}
		writeJSONError(w, status, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeCompleteRequest validates the content type and body of a completion request.
func decodeCompleteRequest(w http.ResponseWriter, r *http.Request) (types.CompleteRequest, bool) {
	var req types.CompleteRequest
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return req, false
	}
	// Limit body size (configurable, default 1MiB)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Oversized bodies also land here; the size limit is not disclosed.
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	if strings.TrimSpace(req.Instruction) == "" {
		writeJSONError(w, http.StatusBadRequest, "instruction is required")
		return req, false
	}
	for i, turn := range req.History {
		if !turn.Role.Valid() {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("history[%d]: unknown role %q", i, turn.Role))
			return req, false
		}
	}
	return req, true
}

func agentOf(req types.CompleteRequest) types.AgentContext {
	return types.AgentContext{ID: req.AgentID, Instruction: req.Instruction, SelectedModel: req.Model}
}

func requestLogger(r *http.Request, lvl zerolog.Level, req types.CompleteRequest) zerolog.Logger {
	if !logsAt(lvl, zerolog.InfoLevel) {
		return zerolog.Nop()
	}
	return zlog.With().
		Str("path", r.URL.Path).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("agent", req.AgentID).
		Str("model", req.Model).
		Logger()
}

func (h *handlers) complete(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCompleteRequest(w, r)
	if !ok {
		return
	}
	lvl := requestLogLevel(r)
	lg := requestLogger(r, lvl, req)
	start := time.Now()
	lg.Info().Msg("complete start")

	ctx, cancel := callContext(r.Context())
	defer cancel()
	ctx = state.WithConversationID(ctx, req.ConversationID)

	msg, err := h.c.Complete(ctx, agentOf(req), req.History)
	if err != nil && msg == nil {
		if clientGone(r.Context()) {
			return
		}
		status := statusFor(err)
		if status == http.StatusTooManyRequests {
			IncrementBackpressure("queue")
		}
		writeJSONError(w, status, err.Error())
		lg.Info().Int("status", status).Dur("dur", time.Since(start)).Err(err).Msg("complete end")
		return
	}
	resp := types.CompleteResponse{Message: *msg}
	if err != nil {
		// After-generate hook failed: the reply is still usable.
		resp.HookError = err.Error()
		lg.Warn().Err(err).Msg("after-generate hook failed")
	}
	writeJSON(w, http.StatusOK, resp)
	lg.Info().Int("status", http.StatusOK).Dur("dur", time.Since(start)).Msg("complete end")
}

// completeStream writes one StreamEvent per line. Errors before the first
// line get a regular JSON error response; later ones an error event.
func (h *handlers) completeStream(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCompleteRequest(w, r)
	if !ok {
		return
	}
	lvl := requestLogLevel(r)
	lg := requestLogger(r, lvl, req)
	start := time.Now()
	lg.Info().Msg("stream start")

	ctx, cancel := callContext(r.Context())
	defer cancel()
	ctx = state.WithConversationID(ctx, req.ConversationID)

	var flush func()
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}
	out := io.Writer(w)
	if logsAt(lvl, zerolog.DebugLevel) {
		out = io.MultiWriter(w, &streamLogWriter{requestID: middleware.GetReqID(r.Context())})
	}
	enc := json.NewEncoder(out)
	started := false
	send := func(ev types.StreamEvent) error {
		if !started {
			w.Header().Set("Content-Type", "application/x-ndjson")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if err := enc.Encode(ev); err != nil {
			return err
		}
		if flush != nil {
			flush()
		}
		return nil
	}

	var final *types.GeneratedMessage
	_, err := h.c.CompleteStreaming(ctx, agentOf(req), req.History, func(m types.GeneratedMessage) error {
		if !m.Partial {
			final = &m
			return nil
		}
		return send(types.StreamEvent{Message: &m})
	})
	if err != nil {
		if clientGone(r.Context()) {
			return
		}
		status := statusFor(err)
		lg.Info().Int("status", status).Dur("dur", time.Since(start)).Err(err).Msg("stream end")
		if !started {
			if status == http.StatusTooManyRequests {
				IncrementBackpressure("queue")
			}
			writeJSONError(w, status, err.Error())
			return
		}
		_ = send(types.StreamEvent{Error: err.Error()})
		return
	}
	if final == nil {
		_ = send(types.StreamEvent{Error: "no final message"})
		return
	}
	_ = send(types.StreamEvent{Message: final, Done: true})
	lg.Info().Int("status", http.StatusOK).Dur("dur", time.Since(start)).Msg("stream end")
}
