// Пакет server — HTTP-сервер портала регистрации с graceful shutdown.
// Без TLS — TLS termination на ingress.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	apierrors "github.com/bigkaa/regportal/internal/api/errors"
	"github.com/bigkaa/regportal/internal/api/handlers"
	"github.com/bigkaa/regportal/internal/api/middleware"
	"github.com/bigkaa/regportal/internal/api/openapi"
	"github.com/bigkaa/regportal/internal/config"
	uihandlers "github.com/bigkaa/regportal/internal/ui/handlers"
	"github.com/bigkaa/regportal/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/regportal/internal/ui/middleware"
	"github.com/bigkaa/regportal/internal/ui/static"
)

// API — обработчики health endpoints и API расширения.
type API struct {
	Health    *handlers.HealthHandler
	Extension *handlers.ExtensionHandler
}

// UIComponents — компоненты Admin UI.
type UIComponents struct {
	AuthHandler         *uihandlers.AuthHandler
	DashboardHandler    *uihandlers.DashboardHandler
	RegistrationHandler *uihandlers.RegistrationHandler
	AuthMiddleware      *uimiddleware.UIAuth
	CSRF                *uimiddleware.CSRF
}

// Server — HTTP-сервер портала.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
// ui == nil — сервер без Admin UI (только API и health).
func New(cfg *config.Config, logger *slog.Logger, api API, ui *UIComponents) (*Server, error) {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	router.Get("/health/live", api.Health.HealthLive)
	router.Get("/health/ready", api.Health.HealthReady)
	router.Get("/metrics", api.Health.GetMetrics)

	extensionMiddlewares, err := extensionMiddlewares(cfg, logger)
	if err != nil {
		return nil, err
	}
	router.Route("/api/extension", func(r chi.Router) {
		r.Use(extensionMiddlewares...)
		r.Post("/register", api.Extension.Register)
		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			apierrors.NotFound(w, "Not found")
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
			apierrors.MethodNotAllowed(w, "Method not allowed")
		})
	})

	if ui != nil {
		router.Route("/admin", func(r chi.Router) {
			mountUI(r, ui)
		})
		router.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/admin/", http.StatusFound)
		})
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger.With(slog.String("component", "http_server")),
		cfg:        cfg,
	}, nil
}

// extensionMiddlewares — CORS для расширения и, если включено,
// валидация запросов по встроенному OpenAPI-контракту.
func extensionMiddlewares(cfg *config.Config, logger *slog.Logger) ([]func(http.Handler) http.Handler, error) {
	mws := []func(http.Handler) http.Handler{
		cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader},
			ExposedHeaders: []string{middleware.RequestIDHeader},
			MaxAge:         300,
		}),
	}

	if !cfg.APIValidation {
		logger.Info("Валидация запросов API по OpenAPI отключена")
		return mws, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	doc, err := openapi.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("загрузка OpenAPI-спецификации: %w", err)
	}
	validator, err := middleware.RequestValidator(doc, logger)
	if err != nil {
		return nil, fmt.Errorf("создание валидатора запросов: %w", err)
	}
	return append(mws, validator), nil
}

// mountUI регистрирует маршруты /admin/*.
// Язык и CSRF-токен нужны всем страницам, сессия — всем, кроме входа и статики.
func mountUI(r chi.Router, ui *UIComponents) {
	r.Use(i18n.Middleware())
	r.Use(ui.CSRF.EnsureToken)
	r.Use(ui.CSRF.Require)

	r.Handle("/static/*", static.Handler("/admin/static/"))
	r.Get("/login", ui.AuthHandler.HandleLoginPage)
	r.Post("/login", ui.AuthHandler.HandleLogin)
	r.Post("/set-language", uihandlers.HandleSetLanguage)

	r.Group(func(r chi.Router) {
		r.Use(ui.AuthMiddleware.Middleware())
		r.Get("/", ui.DashboardHandler.HandleDashboard)
		r.Post("/logout", ui.AuthHandler.HandleLogout)
		r.Get("/registrations/{id}", ui.RegistrationHandler.HandleDetail)
		r.Post("/registrations/{id}/register", ui.RegistrationHandler.HandleRegister)
		r.Post("/registrations/{id}/groups", ui.RegistrationHandler.HandleUpdateGroups)
		r.Post("/registrations/{id}/reset-password", ui.RegistrationHandler.HandleResetPassword)
		r.Post("/registrations/{id}/delete", ui.RegistrationHandler.HandleDelete)
	})

	r.NotFound(uihandlers.HandleNotFound)
}

// Handler возвращает корневой http.Handler (для тестов).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
