// metrics.go — Prometheus метрики операций с каталогом.
package directory

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rp_directory_operations_total",
			Help: "Количество операций с каталогом по результату",
		},
		[]string{"operation", "result"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rp_directory_operation_duration_seconds",
			Help:    "Длительность операций с каталогом в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// observe записывает результат и длительность операции.
func observe(op string, err error, start time.Time) {
	operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	operationsTotal.WithLabelValues(op, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
