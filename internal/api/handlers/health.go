// Пакет handlers — обработчики HTTP API: заявки браузерного расширения
// и служебные endpoints.
//
// /health/live — процесс жив
// /health/ready — PostgreSQL и каталог отвечают
// /metrics — Prometheus
package handlers

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	apierrors "github.com/bigkaa/regportal/internal/api/errors"
	"github.com/bigkaa/regportal/internal/config"
)

const serviceName = "regportal"

// Статусы проверок.
const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusFail     = "fail"
)

// ReadinessChecker — зависимость, способная сообщить о готовности.
type ReadinessChecker interface {
	// CheckReady возвращает статус ("ok", "degraded", "fail") и сообщение.
	CheckReady() (status string, message string)
}

// DependencyReporter — состояние зависимостей из фонового мониторинга
// (service.DephealthService).
type DependencyReporter interface {
	Health() map[string]bool
}

type namedChecker struct {
	name    string
	checker ReadinessChecker
}

// HealthHandler — health endpoints и /metrics.
type HealthHandler struct {
	checks      []namedChecker
	deps        DependencyReporter
	promHandler http.Handler
}

// NewHealthHandler создаёт обработчик. Непереданная (nil) проверка
// считается проваленной; deps может быть nil.
func NewHealthHandler(pgChecker, dirChecker ReadinessChecker, deps DependencyReporter) *HealthHandler {
	return &HealthHandler{
		checks: []namedChecker{
			{name: "postgresql", checker: pgChecker},
			{name: "directory", checker: dirChecker},
		},
		deps:        deps,
		promHandler: promhttp.Handler(),
	}
}

type healthCheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// probeInfo — общие поля ответов обоих probe.
type probeInfo struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
}

type healthLiveResponse struct {
	probeInfo
}

type healthReadyResponse struct {
	probeInfo
	Checks       map[string]healthCheckResult `json:"checks"`
	Dependencies map[string]bool              `json:"dependencies,omitempty"`
}

func newProbeInfo(status string) probeInfo {
	return probeInfo{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
	}
}

// HealthLive всегда отвечает 200.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	apierrors.WriteJSON(w, http.StatusOK, healthLiveResponse{probeInfo: newProbeInfo(statusOK)})
}

// HealthReady опрашивает зависимости синхронно. 503 — если хотя бы одна
// проверка fail. Зависимость, которую фоновый мониторинг считает
// недоступной, понижает итог до degraded (200).
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	resp := healthReadyResponse{Checks: make(map[string]healthCheckResult, len(h.checks))}

	statuses := make([]string, 0, len(h.checks)+1)
	for _, c := range h.checks {
		res := runCheck(c.checker)
		resp.Checks[c.name] = res
		statuses = append(statuses, res.Status)
	}

	if h.deps != nil {
		resp.Dependencies = h.deps.Health()
		for _, healthy := range resp.Dependencies {
			if !healthy {
				statuses = append(statuses, statusDegraded)
				break
			}
		}
	}

	resp.probeInfo = newProbeInfo(overallStatus(statuses...))

	code := http.StatusOK
	if resp.Status == statusFail {
		code = http.StatusServiceUnavailable
	}
	apierrors.WriteJSON(w, code, resp)
}

// GetMetrics отдаёт метрики процесса в формате Prometheus.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}

func runCheck(c ReadinessChecker) healthCheckResult {
	if c == nil {
		return healthCheckResult{Status: statusFail, Message: "проверка не настроена"}
	}
	status, msg := c.CheckReady()
	return healthCheckResult{Status: status, Message: msg}
}

// overallStatus: fail важнее degraded, degraded важнее ok.
func overallStatus(statuses ...string) string {
	result := statusOK
	for _, s := range statuses {
		switch s {
		case statusFail:
			return statusFail
		case statusDegraded:
			result = statusDegraded
		}
	}
	return result
}
