package httpapi

import (
	"time"

	"github.com/go-chi/cors"
)

const defaultMaxBodyBytes int64 = 1 << 20

// Package-level knobs set once at startup, before NewMux.
var (
	maxBodyBytes   = defaultMaxBodyBytes
	requestTimeout time.Duration
	corsOptions    *cors.Options
)

// SetMaxBodyBytes caps JSON request bodies; n <= 0 restores the 1MiB default.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		n = defaultMaxBodyBytes
	}
	maxBodyBytes = n
}

// SetRequestTimeout bounds one completion request; d <= 0 disables the limit.
func SetRequestTimeout(d time.Duration) {
	requestTimeout = max(d, 0)
}

// SetCORSOptions enables CORS for the given origins. Empty methods and
// headers fall back to what the API uses.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	if !enabled {
		corsOptions = nil
		return
	}
	if len(methods) == 0 {
		methods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	}
	if len(headers) == 0 {
		headers = []string{"Content-Type", "X-Log-Level", "X-Request-Id"}
	}
	corsOptions = &cors.Options{
		AllowedOrigins: append([]string(nil), origins...),
		AllowedMethods: append([]string(nil), methods...),
		AllowedHeaders: append([]string(nil), headers...),
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}
}
