// Пакет dbtest — запуск PostgreSQL в Docker для интеграционных тестов.
// Тесты выполняются только при установленной переменной TEST_INTEGRATION.
package dbtest

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/regportal/internal/config"
)

const (
	testDatabase = "regportal_test"
	testUser     = "regportal"
	testPassword = "test-password"
)

// Integration пропускает тест, если интеграционные тесты не включены.
func Integration(t *testing.T) {
	t.Helper()
	if testing.Short() || os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}
}

// StartPostgres запускает контейнер PostgreSQL и возвращает конфигурацию
// для подключения к нему. Контейнер останавливается в t.Cleanup.
func StartPostgres(t *testing.T) *config.Config {
	t.Helper()
	Integration(t)

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase(testDatabase),
		postgres.WithUsername(testUser),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}
	portNum, err := strconv.Atoi(port.Port())
	if err != nil {
		t.Fatalf("Некорректный порт контейнера %q: %v", port.Port(), err)
	}

	return &config.Config{
		DBHost:     host,
		DBPort:     portNum,
		DBName:     testDatabase,
		DBUser:     testUser,
		DBPassword: testPassword,
		DBSSLMode:  "disable",
	}
}
