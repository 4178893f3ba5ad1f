package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/bigkaa/regportal/internal/api/handlers"
	"github.com/bigkaa/regportal/internal/config"
	"github.com/bigkaa/regportal/internal/database"
	"github.com/bigkaa/regportal/internal/repository"
	"github.com/bigkaa/regportal/internal/server"
	"github.com/bigkaa/regportal/internal/service"
	"github.com/bigkaa/regportal/internal/ui/auth"
	uihandlers "github.com/bigkaa/regportal/internal/ui/handlers"
	"github.com/bigkaa/regportal/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/regportal/internal/ui/middleware"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP-сервер (API расширения и Admin UI)",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return serve()
		},
	}
}

// serve загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// собирает сервисный слой и handlers, запускает HTTP-сервер с graceful shutdown.
func serve() error {
	// 1. Конфигурация и логирование
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("загрузка конфигурации: %w", err)
	}
	logger := config.SetupLogger(cfg)
	logger.Info("Портал регистрации запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv("RP_DEPHEALTH_GROUP") == "" {
		logger.Warn("RP_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 2. Миграции БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		return fmt.Errorf("миграции БД: %w", err)
	}

	// 3. PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("подключение к PostgreSQL: %w", err)
	}
	defer pool.Close()

	// Адаптер pgxpool → *sql.DB для topologymetrics: проверка идёт
	// через тот же пул соединений.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 4. Клиент каталога
	dir, err := newDirectoryClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("настройка TLS каталога: %w", err)
	}
	logger.Info("Клиент каталога создан",
		slog.String("url", cfg.LDAPURL),
		slog.String("base_dn", cfg.LDAPBaseDN),
		slog.Bool("start_tls", cfg.LDAPStartTLS),
	)

	// 5. Repositories и services
	regRepo := repository.NewRegistrationRepository(pool)
	registrationSvc := service.NewRegistrationService(regRepo, dir, logger)
	authSvc := service.NewAuthService(dir, cfg.LDAPDomain, cfg.LDAPAdminGroup, logger)

	// 6. topologymetrics — мониторинг PostgreSQL
	dephealthSvc, err := service.NewDephealthService(service.DephealthConfig{
		ServiceID:     "regportal",
		Group:         cfg.DephealthGroup,
		DB:            pgDB,
		PostgresURL:   cfg.DatabaseURL(),
		CheckInterval: cfg.DephealthCheckInterval,
	}, logger)
	var deps handlers.DependencyReporter
	if err != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
		dephealthSvc = nil
	} else if err := dephealthSvc.Start(ctx); err != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", err.Error()))
		dephealthSvc = nil
	} else {
		deps = dephealthSvc
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 7. API handlers
	api := server.API{
		Health:    handlers.NewHealthHandler(database.NewReadinessChecker(pool), dir, deps),
		Extension: handlers.NewExtensionHandler(registrationSvc, logger),
	}

	// 8. Admin UI
	ui, err := newUIComponents(cfg, authSvc, registrationSvc, logger)
	if err != nil {
		return err
	}

	// 9. HTTP-сервер
	srv, err := server.New(cfg, logger, api, ui)
	if err != nil {
		return fmt.Errorf("создание HTTP-сервера: %w", err)
	}
	runErr := srv.Run()

	logger.Info("Останавливаем фоновые задачи...")
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	if runErr != nil {
		return runErr
	}
	logger.Info("Портал регистрации остановлен")
	return nil
}

// newUIComponents собирает сессии, CSRF, переводы и обработчики Admin UI.
func newUIComponents(
	cfg *config.Config,
	authenticator uihandlers.Authenticator,
	registrations uihandlers.RegistrationManager,
	logger *slog.Logger,
) (*server.UIComponents, error) {
	// Session Manager — шифрование UI-сессий и flash (AES-256-GCM)
	sessionMgr, err := auth.NewSessionManager(cfg.SessionSecret, cfg.SecureCookies, cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("создание Session Manager: %w", err)
	}
	if cfg.SessionSecret == "" {
		logger.Warn("RP_SESSION_SECRET не задан, UI-сессии не сохраняются между рестартами")
	}

	bundle := i18n.Init(logger)
	if err := i18n.LoadFromEmbedFS(bundle, logger); err != nil {
		return nil, fmt.Errorf("загрузка переводов: %w", err)
	}

	ui := &server.UIComponents{
		AuthHandler:         uihandlers.NewAuthHandler(authenticator, sessionMgr, logger),
		DashboardHandler:    uihandlers.NewDashboardHandler(registrations, sessionMgr, logger),
		RegistrationHandler: uihandlers.NewRegistrationHandler(registrations, sessionMgr, logger),
		AuthMiddleware:      uimiddleware.NewUIAuth(sessionMgr, logger),
		CSRF:                uimiddleware.NewCSRF(cfg.SecureCookies, uihandlers.HandleCSRFFailure),
	}

	logger.Info("Admin UI инициализирован",
		slog.Bool("secure_cookie", cfg.SecureCookies),
		slog.String("session_ttl", cfg.SessionTTL.String()),
	)
	return ui, nil
}
