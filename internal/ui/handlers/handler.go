// Пакет handlers — HTTP-обработчики Admin UI.
// Все страницы рендерятся на сервере (internal/ui/views), действия — POST-формы
// с redirect и flash-сообщением.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"maragu.dev/gomponents"

	"github.com/bigkaa/regportal/internal/domain/model"
	"github.com/bigkaa/regportal/internal/service"
	"github.com/bigkaa/regportal/internal/ui/auth"
	"github.com/bigkaa/regportal/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/regportal/internal/ui/middleware"
	"github.com/bigkaa/regportal/internal/ui/views"
)

// Authenticator — вход администратора (service.AuthService).
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*model.Principal, error)
}

// RegistrationManager — операции над заявками (service.RegistrationService).
type RegistrationManager interface {
	List(ctx context.Context) ([]*model.Registration, error)
	ListByStatus(ctx context.Context, status model.RegistrationStatus) ([]*model.Registration, error)
	Counts(ctx context.Context) (map[model.RegistrationStatus]int, error)
	GetDetail(ctx context.Context, id int64) (*model.RegistrationDetail, error)
	ListAvailableGroups(ctx context.Context) ([]model.DirectoryGroup, error)
	RegisterSelected(ctx context.Context, id int64, principalName string, selected []string) (*model.Registration, error)
	SaveGroupSelection(ctx context.Context, id int64, selected []string) error
	ResetPassword(ctx context.Context, id int64) (string, error)
	Delete(ctx context.Context, id int64) error
}

func renderHTML(w http.ResponseWriter, status int, node gomponents.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = node.Render(w)
}

// chrome собирает общие данные страницы; flash-сообщение при этом расходуется.
func chrome(w http.ResponseWriter, r *http.Request, sessions *auth.SessionManager) views.Chrome {
	ch := views.Chrome{
		CSRFToken: uimiddleware.CSRFToken(r),
		Flash:     sessions.PopFlash(w, r),
	}
	if s := uimiddleware.SessionFromContext(r.Context()); s != nil {
		ch.User = s.DisplayName
		if ch.User == "" {
			ch.User = s.Username
		}
	}
	return ch
}

// registrationID разбирает {id} из пути.
func registrationID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// errorMessage переводит ошибку сервисного слоя в текст для flash.
func errorMessage(ctx context.Context, err error) string {
	var groupErr *service.GroupOperationError
	switch {
	case errors.As(err, &groupErr):
		key := "flash.error.group_add"
		if groupErr.Op == "remove" {
			key = "flash.error.group_remove"
		}
		return i18n.Tf(ctx, key, groupErr.GroupDN, len(groupErr.Applied))
	case errors.Is(err, service.ErrDirectoryUnavailable):
		return i18n.T(ctx, "flash.error.unavailable")
	case errors.Is(err, service.ErrNotFound):
		return i18n.T(ctx, "flash.error.not_found")
	case errors.Is(err, service.ErrConflict):
		return i18n.T(ctx, "flash.error.conflict")
	case errors.Is(err, service.ErrPrecondition):
		return i18n.T(ctx, "flash.error.precondition")
	case errors.Is(err, service.ErrValidation):
		return i18n.T(ctx, "flash.error.validation")
	case errors.Is(err, service.ErrDirectoryOperation):
		return i18n.T(ctx, "flash.error.directory")
	default:
		return i18n.T(ctx, "flash.error.internal")
	}
}

// isExpected — ошибки, вызванные данными или состоянием, а не сбоем.
func isExpected(err error) bool {
	return errors.Is(err, service.ErrNotFound) ||
		errors.Is(err, service.ErrConflict) ||
		errors.Is(err, service.ErrPrecondition) ||
		errors.Is(err, service.ErrValidation)
}

func logActionError(ctx context.Context, logger *slog.Logger, action string, id int64, err error) {
	level := slog.LevelError
	if isExpected(err) {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "Действие над заявкой не выполнено",
		slog.String("action", action),
		slog.Int64("registration_id", id),
		slog.String("error", err.Error()),
	)
}

// HandleNotFound — 404 для неизвестных маршрутов /admin/*.
func HandleNotFound(w http.ResponseWriter, r *http.Request) {
	renderHTML(w, http.StatusNotFound, views.ErrorPage(r.Context(), views.Chrome{CSRFToken: uimiddleware.CSRFToken(r)},
		i18n.T(r.Context(), "error.not_found")))
}

// HandleCSRFFailure — ответ на форму без действительного CSRF-токена.
func HandleCSRFFailure(w http.ResponseWriter, r *http.Request) {
	renderHTML(w, http.StatusForbidden, views.ErrorPage(r.Context(), views.Chrome{CSRFToken: uimiddleware.CSRFToken(r)},
		i18n.T(r.Context(), "error.csrf")))
}
