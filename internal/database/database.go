// Пакет database — пул подключений PostgreSQL (pgxpool), встроенные
// миграции таблицы заявок (golang-migrate) и readiness-проверка.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigkaa/regportal/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Параметры пула. Нагрузка портала — единицы запросов в секунду.
const (
	maxConns          = 8
	minConns          = 1
	healthCheckPeriod = 30 * time.Second
	pingTimeout       = 5 * time.Second
	readinessTimeout  = 3 * time.Second
	applicationName   = "regportal"
)

// Connect открывает пул и ждёт ответа сервера не дольше pingTimeout.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("разбор DSN PostgreSQL: %w", err)
	}
	poolCfg.MaxConns = maxConns
	poolCfg.MinConns = minConns
	poolCfg.HealthCheckPeriod = healthCheckPeriod
	poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("создание пула PostgreSQL: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("PostgreSQL %s:%d не отвечает: %w", cfg.DBHost, cfg.DBPort, err)
	}

	logger.Info("Подключение к PostgreSQL установлено",
		slog.String("host", cfg.DBHost),
		slog.Int("port", cfg.DBPort),
		slog.String("database", cfg.DBName),
		slog.Int("max_conns", maxConns),
	)
	return pool, nil
}

// Migrate доводит схему до последней встроенной версии.
// Повторный запуск без новых миграций — не ошибка.
func Migrate(cfg *config.Config, logger *slog.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("источник миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.MigrateURL())
	if err != nil {
		return fmt.Errorf("инициализация миграций: %w", err)
	}
	defer m.Close()

	before, _, _ := m.Version()

	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("применение миграций: %w", err)
		}
		logger.Info("Схема БД актуальна", slog.Uint64("version", uint64(before)))
		return nil
	}

	after, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("чтение версии схемы: %w", err)
	}
	if dirty {
		return fmt.Errorf("схема БД в состоянии dirty на версии %d", after)
	}
	logger.Info("Миграции применены",
		slog.Uint64("from", uint64(before)),
		slog.Uint64("to", uint64(after)),
	)
	return nil
}

// ReadinessChecker — готовность хранилища заявок для /health/ready.
type ReadinessChecker struct {
	pool *pgxpool.Pool
}

// NewReadinessChecker создаёт проверку готовности PostgreSQL.
func NewReadinessChecker(pool *pgxpool.Pool) *ReadinessChecker {
	return &ReadinessChecker{pool: pool}
}

// CheckReady проверяет, что сервер отвечает и таблица заявок доступна.
func (c *ReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), readinessTimeout)
	defer cancel()

	if err := c.pool.Ping(ctx); err != nil {
		return "fail", fmt.Sprintf("PostgreSQL недоступен: %v", err)
	}

	var one int
	if err := c.pool.QueryRow(ctx, `SELECT 1 FROM registrations LIMIT 1`).Scan(&one); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "fail", fmt.Sprintf("таблица registrations недоступна: %v", err)
	}
	return "ok", "подключение активно"
}
