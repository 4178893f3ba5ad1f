// auth.go — вход администратора по учётной записи каталога и выход.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bigkaa/regportal/internal/service"
	"github.com/bigkaa/regportal/internal/ui/auth"
	"github.com/bigkaa/regportal/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/regportal/internal/ui/middleware"
	"github.com/bigkaa/regportal/internal/ui/views"
)

// AuthHandler — обработчики входа и выхода Admin UI.
type AuthHandler struct {
	authenticator  Authenticator
	sessionManager *auth.SessionManager
	logger         *slog.Logger
}

// NewAuthHandler создаёт новый AuthHandler.
func NewAuthHandler(authenticator Authenticator, sessionManager *auth.SessionManager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authenticator:  authenticator,
		sessionManager: sessionManager,
		logger:         logger.With(slog.String("component", "ui_auth")),
	}
}

// HandleLoginPage — GET /admin/login.
// С действующей сессией сразу уводит на список заявок.
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s, err := h.sessionManager.GetSessionFromRequest(r); err == nil && s != nil && !s.IsExpired() && s.IsAdmin {
		http.Redirect(w, r, "/admin/", http.StatusFound)
		return
	}
	renderHTML(w, http.StatusOK, views.LoginPage(r.Context(), views.LoginData{
		Chrome: chrome(w, r, h.sessionManager),
	}))
}

// HandleLogin — POST /admin/login.
// Проверяет пароль bind-ом в каталоге и членство в группе администраторов.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Некорректная форма", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	username := strings.TrimSpace(r.PostForm.Get(views.FieldUsername))
	password := r.PostForm.Get(views.FieldPassword)

	fail := func(status int, key string) {
		renderHTML(w, status, views.LoginPage(ctx, views.LoginData{
			Chrome:   views.Chrome{CSRFToken: uimiddleware.CSRFToken(r)},
			Username: username,
			Error:    i18n.T(ctx, key),
		}))
	}

	if username == "" || password == "" {
		fail(http.StatusBadRequest, "login.error.required")
		return
	}

	principal, err := h.authenticator.Login(ctx, username, password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			h.logger.Info("Неудачная попытка входа", slog.String("username", username))
			fail(http.StatusUnauthorized, "login.error.invalid")
		case errors.Is(err, service.ErrForbidden):
			h.logger.Warn("Вход отклонён: нет членства в группе администраторов",
				slog.String("username", username),
			)
			fail(http.StatusForbidden, "login.error.forbidden")
		case errors.Is(err, service.ErrDirectoryUnavailable):
			h.logger.Error("Вход невозможен: каталог недоступен", slog.String("error", err.Error()))
			fail(http.StatusServiceUnavailable, "login.error.unavailable")
		default:
			h.logger.Error("Ошибка входа",
				slog.String("username", username),
				slog.String("error", err.Error()),
			)
			fail(http.StatusInternalServerError, "login.error.internal")
		}
		return
	}

	session := h.sessionManager.NewSession(principal.Username, principal.DisplayName, principal.IsAdmin)
	if err := h.sessionManager.SetSessionCookie(w, session); err != nil {
		h.logger.Error("Ошибка создания session cookie", slog.String("error", err.Error()))
		fail(http.StatusInternalServerError, "login.error.internal")
		return
	}

	h.logger.Info("Администратор вошёл в систему",
		slog.String("username", principal.Username),
	)
	http.Redirect(w, r, "/admin/", http.StatusSeeOther)
}

// HandleLogout — POST /admin/logout. Удаляет session cookie.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if s := uimiddleware.SessionFromContext(r.Context()); s != nil {
		h.logger.Info("Администратор вышел из системы", slog.String("username", s.Username))
	}
	h.sessionManager.ClearSessionCookie(w)
	http.Redirect(w, r, uimiddleware.LoginPath, http.StatusSeeOther)
}
