package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"llamachat/internal/completion"
	"llamachat/internal/manager"
	"llamachat/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusFor maps completion and manager errors to HTTP status codes. Manager
// errors are checked first since the completion kinds wrap them.
func statusFor(err error) int {
	var he HTTPError
	switch {
	case manager.IsModelNotFound(err):
		return http.StatusNotFound
	case manager.IsTooBusy(err):
		return http.StatusTooManyRequests
	case manager.IsDependencyUnavailable(err), manager.IsBudgetExceeded(err):
		return http.StatusServiceUnavailable
	case completion.IsCancelled(err):
		return http.StatusGatewayTimeout
	case completion.IsHookFailure(err):
		return http.StatusUnprocessableEntity
	case completion.IsModelLoadFailure(err):
		return http.StatusServiceUnavailable
	case completion.IsGenerationFailure(err):
		return http.StatusBadGateway
	case errors.As(err, &he):
		return he.StatusCode()
	default:
		return http.StatusInternalServerError
	}
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Error().Err(err).Msg("encode response")
	}
}
