// dephealth.go — мониторинг зависимостей через topologymetrics SDK.
//
// Портал — входная вершина графа (isentry=yes). Зависимость одна:
// PostgreSQL, проверяется pgcheck поверх *sql.DB из того же pgxpool,
// поэтому исчерпание пула видно в метриках. Каталог SDK не проверяет,
// его доступность отражает /health/ready (bind сервисной учётной записи).
//
// Метрики отдаются на /metrics:
//   - app_dependency_health — 1 = ok, 0 = fail
//   - app_dependency_latency_seconds
//   - app_dependency_status, app_dependency_status_detail
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// Имя зависимости PostgreSQL в графе.
const postgresDependency = "postgresql"

// DephealthConfig — параметры мониторинга.
type DephealthConfig struct {
	// ServiceID — имя вершины портала ("regportal")
	ServiceID string
	// Group — группа в метриках (RP_DEPHEALTH_GROUP)
	Group string
	// DB — адаптер pgxpool (stdlib.OpenDBFromPool)
	DB *sql.DB
	// PostgresURL — URL для лейблов, без пароля (Config.DatabaseURL)
	PostgresURL string
	// CheckInterval — RP_DEPHEALTH_CHECK_INTERVAL
	CheckInterval time.Duration
	// Registerer — nil означает глобальный Prometheus registry
	Registerer prometheus.Registerer
}

// DephealthService — фоновые проверки зависимостей.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга. Проверки не запускаются до Start.
func NewDephealthService(cfg DephealthConfig, logger *slog.Logger) (*DephealthService, error) {
	if cfg.DB == nil {
		return nil, errors.New("dephealth: не задан *sql.DB для PostgreSQL")
	}

	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
		dephealth.AddDependency(postgresDependency, dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(cfg.DB)),
			dephealth.FromURL(cfg.PostgresURL),
			dephealth.CheckInterval(cfg.CheckInterval),
			dephealth.Critical(true),
			dephealth.WithLabel("isentry", "yes"),
		),
	}
	if cfg.Registerer != nil {
		opts = append(opts, dephealth.WithRegisterer(cfg.Registerer))
	}

	dh, err := dephealth.New(cfg.ServiceID, cfg.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодические проверки.
func (ds *DephealthService) Start(ctx context.Context) error {
	if err := ds.dh.Start(ctx); err != nil {
		return err
	}
	ds.logger.Info("Мониторинг зависимостей запущен", slog.String("dependency", postgresDependency))
	return nil
}

// Stop останавливает проверки.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health — последнее состояние зависимостей, ключ "имя:host:port".
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
