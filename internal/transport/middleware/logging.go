package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// sensitiveFields are field names that should be filtered from logs
var sensitiveFields = []string{
	"password",
	"token",
	"access_token",
	"accesstoken",
	"authorization",
	"secret",
	"api_key",
	"credential",
}

func LoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			traceID := w.Header().Get("X-Trace-ID")
			if traceID == "" {
				traceID = r.Header.Get("X-Trace-ID")
			}

			logRequest(logger, r, traceID)

			ww := &responseWriter{
				ResponseWriter: w,
				body:           &bytes.Buffer{},
			}

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			logResponse(logger, ww, duration, traceID)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture response body
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

func logRequest(logger *slog.Logger, r *http.Request, traceID string) {
	var bodyBytes []byte
	if r.Body != nil {
		bodyBytes, _ = io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	}

	logger.Info("incoming request",
		"trace_id", traceID,
		"method", r.Method,
		"path", r.URL.Path,
		"query", r.URL.RawQuery,
		"remote_addr", r.RemoteAddr,
		"user_agent", r.UserAgent(),
		"headers", filterSensitiveHeaders(r.Header),
		"body", filterSensitiveBody(bodyBytes),
	)
}

func logResponse(logger *slog.Logger, rw *responseWriter, duration time.Duration, traceID string) {
	statusCode := rw.statusCode
	if statusCode == 0 {
		statusCode = http.StatusOK
	}

	logLevel := slog.LevelInfo
	if statusCode >= 400 && statusCode < 500 {
		logLevel = slog.LevelWarn
	} else if statusCode >= 500 {
		logLevel = slog.LevelError
	}

	logger.Log(nil, logLevel, "response",
		"trace_id", traceID,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
		"response_size", rw.body.Len(),
		"body", filterSensitiveBody(rw.body.Bytes()),
	)
}

func filterSensitiveHeaders(headers http.Header) map[string]string {
	filtered := make(map[string]string, len(headers))
	for name, values := range headers {
		if isSensitiveField(name) {
			filtered[name] = "[FILTERED]"
			continue
		}
		filtered[name] = strings.Join(values, ", ")
	}
	return filtered
}

// filterSensitiveBody masks sensitive JSON fields; non-JSON bodies are
// logged as-is up to a small cap.
func filterSensitiveBody(body []byte) string {
	const maxLogged = 2048

	if len(body) == 0 {
		return ""
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		if len(body) > maxLogged {
			return string(body[:maxLogged]) + "...[truncated]"
		}
		return string(body)
	}

	for key := range parsed {
		if isSensitiveField(key) {
			parsed[key] = "[FILTERED]"
		}
	}

	filtered, err := json.Marshal(parsed)
	if err != nil {
		return "[unloggable body]"
	}
	if len(filtered) > maxLogged {
		return string(filtered[:maxLogged]) + "...[truncated]"
	}
	return string(filtered)
}

func isSensitiveField(name string) bool {
	lowered := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lowered, field) {
			return true
		}
	}
	return false
}
