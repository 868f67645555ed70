package httpapi

import (
	"bytes"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// zlog is the structured logger of the HTTP layer. It discards until SetLogger.
var zlog = zerolog.Nop()

// SetLogger installs the logger used for request and stream logs.
func SetLogger(l zerolog.Logger) { zlog = l.With().Str("component", "httpapi").Logger() }

// streamLogWriter mirrors NDJSON output into the debug log, one entry per line.
type streamLogWriter struct {
	requestID string
	pending   []byte
}

func (w *streamLogWriter) Write(p []byte) (int, error) {
	w.pending = append(w.pending, p...)
	for {
		line, rest, ok := bytes.Cut(w.pending, []byte{'\n'})
		if !ok {
			break
		}
		if len(line) > 0 {
			zlog.Debug().Str("request_id", w.requestID).RawJSON("line", line).Msg("stream>")
		}
		w.pending = rest
	}
	return len(p), nil
}

// parseRequestLevel maps a level name to a zerolog level. "off" and ""
// disable request logs; unknown names mean info.
func parseRequestLevel(s string) zerolog.Level {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case "", "off":
		return zerolog.Disabled
	case "1":
		return zerolog.DebugLevel
	}
	if lvl, err := zerolog.ParseLevel(s); err == nil && lvl != zerolog.NoLevel {
		return lvl
	}
	return zerolog.InfoLevel
}

var defaultRequestLevel = parseRequestLevel(os.Getenv("LLAMACHAT_REQUEST_LOG"))

// SetDefaultLogLevel sets the request log level used when a request carries no override.
func SetDefaultLogLevel(s string) { defaultRequestLevel = parseRequestLevel(s) }

// requestLogLevel honours ?log= then the X-Log-Level header.
func requestLogLevel(r *http.Request) zerolog.Level {
	if v := r.URL.Query().Get("log"); v != "" {
		return parseRequestLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseRequestLevel(v)
	}
	return defaultRequestLevel
}

// logsAt reports whether a request at level lvl should log entries at want.
func logsAt(lvl, want zerolog.Level) bool {
	return lvl != zerolog.Disabled && lvl <= want
}
