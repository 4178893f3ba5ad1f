package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bigkaa/regportal/internal/api/openapi"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/health/ready", "/health/ready"},
		{"/api/extension/register", "/api/extension/register"},
		{"/admin/", "/admin/"},
		{"/admin/registrations/42", "/admin/registrations/{id}"},
		{"/admin/registrations/42/groups", "/admin/registrations/{id}/groups"},
		{"/admin/static/css/app.css", "/admin/static/*"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := normalizePath(tt.input); got != tt.expected {
				t.Errorf("normalizePath(%q) = %q, ожидалось %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestMetricsMiddleware_PassesStatus(t *testing.T) {
	h := MetricsMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/registrations/7", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("статус = %d, ожидался 418", rec.Code)
	}
}

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware())
	r.Get("/admin/registrations/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/admin/registrations/{id}", "200")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/registrations/abc", nil))

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("счётчик по шаблону маршрута увеличился на %v, ожидалось 1", got)
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	var seen string
	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("nope"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	id := rec.Header().Get(RequestIDHeader)
	if id == "" || id != seen {
		t.Fatalf("X-Request-ID = %q, в контексте %q", id, seen)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("запись лога не JSON: %v", err)
	}
	if entry["level"] != "WARN" || entry["status"] != float64(404) || entry["bytes"] != float64(4) {
		t.Errorf("запись лога = %v", entry)
	}
	if entry["request_id"] != id {
		t.Errorf("request_id = %v, ожидался %q", entry["request_id"], id)
	}

	// Входящий идентификатор сохраняется
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "ext-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "ext-123" {
		t.Errorf("X-Request-ID = %q, ожидался ext-123", got)
	}
}

func TestRequestID_RejectsUnsafeHeader(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"перевод строки", "abc\ninjected"},
		{"пробел", "a b"},
		{"слишком длинный", strings.Repeat("x", maxRequestIDLen+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(RequestIDHeader, tt.value)
			if got := requestID(req); got == tt.value {
				t.Errorf("requestID() сохранил небезопасное значение %q", got)
			}
		})
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		path   string
		status int
		want   slog.Level
	}{
		{"/health/ready", http.StatusOK, slog.LevelDebug},
		{"/metrics", http.StatusOK, slog.LevelDebug},
		{"/health/ready", http.StatusServiceUnavailable, slog.LevelError},
		{"/api/extension/register", http.StatusOK, slog.LevelInfo},
		{"/api/extension/register", http.StatusBadRequest, slog.LevelWarn},
	}
	for _, tt := range tests {
		if got := levelFor(tt.path, tt.status); got != tt.want {
			t.Errorf("levelFor(%s, %d) = %v, ожидался %v", tt.path, tt.status, got, tt.want)
		}
	}
}

func newValidated(t *testing.T) http.Handler {
	t.Helper()
	doc, err := openapi.Load(context.Background())
	if err != nil {
		t.Fatalf("openapi.Load() ошибка: %v", err)
	}
	mw, err := RequestValidator(doc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("RequestValidator() ошибка: %v", err)
	}
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}))
}

func TestRequestValidator(t *testing.T) {
	h := newValidated(t)

	tests := []struct {
		name        string
		method      string
		path        string
		contentType string
		body        string
		wantCode    int
	}{
		{"корректная заявка", http.MethodPost, "/api/extension/register", "application/json", `{"email":"a@b.c"}`, http.StatusOK},
		{"пустой email проходит до обработчика", http.MethodPost, "/api/extension/register", "application/json", `{"email":""}`, http.StatusOK},
		{"email не строка", http.MethodPost, "/api/extension/register", "application/json", `{"email":42}`, http.StatusBadRequest},
		{"неподдерживаемый Content-Type", http.MethodPost, "/api/extension/register", "text/plain", `email=a@b.c`, http.StatusBadRequest},
		{"путь вне контракта", http.MethodGet, "/api/extension/other", "", ``, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("статус = %d, ожидался %d; тело %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode == http.StatusOK && rec.Body.String() != tt.body {
				t.Errorf("тело запроса не передано обработчику: %q", rec.Body.String())
			}
			if tt.wantCode == http.StatusBadRequest && !strings.Contains(rec.Body.String(), `"error"`) {
				t.Errorf("тело ошибки = %s", rec.Body.String())
			}
		})
	}
}
