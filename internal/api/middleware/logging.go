// logging.go — журнал HTTP-запросов и идентификатор запроса (X-Request-ID).
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader — заголовок с идентификатором запроса.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen ограничивает чужой идентификатор, попадающий в журнал.
const maxRequestIDLen = 128

type requestIDKey struct{}

// RequestIDFromContext возвращает идентификатор запроса или пустую строку.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// statusRecorder запоминает код и объём ответа.
type statusRecorder struct {
	http.ResponseWriter
	statusCode  int
	written     int64
	wroteHeader bool
}

func newResponseWriter(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Unwrap нужен http.ResponseController.
func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// requestID берёт идентификатор из заголовка, если он печатный и не длиннее
// maxRequestIDLen, иначе выдаёт новый UUID.
func requestID(r *http.Request) string {
	id := r.Header.Get(RequestIDHeader)
	if id == "" || len(id) > maxRequestIDLen {
		return uuid.NewString()
	}
	for _, c := range id {
		if c < 0x21 || c > 0x7e {
			return uuid.NewString()
		}
	}
	return id
}

// levelFor: 5xx — ERROR, 4xx — WARN. Успешные health probe и /metrics
// опрашиваются постоянно и пишутся на DEBUG.
func levelFor(path string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case strings.HasPrefix(path, "/health/") || path == "/metrics":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// RequestLogger пишет строку журнала на каждый запрос и помещает
// идентификатор запроса в контекст и в заголовок ответа.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := requestID(r)
			w.Header().Set(RequestIDHeader, id)
			r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))

			rec := newResponseWriter(w)
			next.ServeHTTP(rec, r)

			logger.LogAttrs(r.Context(), levelFor(r.URL.Path, rec.statusCode), "HTTP запрос",
				slog.String("request_id", id),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("route", routeLabel(r)),
				slog.Int("status", rec.statusCode),
				slog.Int64("bytes", rec.written),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}
