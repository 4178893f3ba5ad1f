// metrics.go — Prometheus HTTP метрики портала.
// Регистрирует метрики: rp_http_requests_total, rp_http_request_duration_seconds.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rp_http_requests_total",
			Help: "Общее количество HTTP-запросов к порталу",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rp_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к порталу в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware считает запросы и их длительность по маршрутам.
// Лейбл path — шаблон маршрута chi; вне роутера или для
// несопоставленных запросов — путь после normalizePath.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			path := routeLabel(r)
			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// routeLabel читается после обработки: шаблон заполняется по ходу маршрутизации.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" && !strings.HasSuffix(pattern, "/*") {
			return pattern
		}
	}
	return normalizePath(r.URL.Path)
}

// normalizePath заменяет числовые сегменты пути на {id} и сводит
// статику к одному лейблу, чтобы ограничить кардинальность метрик.
// /admin/registrations/42/groups → /admin/registrations/{id}/groups
func normalizePath(path string) string {
	if strings.HasPrefix(path, "/admin/static/") {
		return "/admin/static/*"
	}

	segments := strings.Split(path, "/")
	for i, s := range segments {
		if s == "" {
			continue
		}
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}
