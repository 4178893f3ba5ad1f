// registrations.go — страница заявки и действия над ней.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/bigkaa/regportal/internal/domain/model"
	"github.com/bigkaa/regportal/internal/service"
	"github.com/bigkaa/regportal/internal/ui/auth"
	"github.com/bigkaa/regportal/internal/ui/i18n"
	"github.com/bigkaa/regportal/internal/ui/views"
)

// RegistrationHandler — обработчики /admin/registrations/{id}.
type RegistrationHandler struct {
	registrations  RegistrationManager
	sessionManager *auth.SessionManager
	logger         *slog.Logger
}

// NewRegistrationHandler создаёт новый RegistrationHandler.
func NewRegistrationHandler(registrations RegistrationManager, sessionManager *auth.SessionManager, logger *slog.Logger) *RegistrationHandler {
	return &RegistrationHandler{
		registrations:  registrations,
		sessionManager: sessionManager,
		logger:         logger.With(slog.String("component", "ui.registrations")),
	}
}

// HandleDetail — GET /admin/registrations/{id}.
// Недоступный каталог не скрывает страницу: показываются данные из БД.
func (h *RegistrationHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := registrationID(r)
	if !ok {
		HandleNotFound(w, r)
		return
	}
	ctx := r.Context()
	ch := chrome(w, r, h.sessionManager)

	detail, err := h.registrations.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			renderHTML(w, http.StatusNotFound, views.ErrorPage(ctx, ch, i18n.T(ctx, "flash.error.not_found")))
			return
		}
		h.logger.Error("Ошибка получения заявки",
			slog.Int64("registration_id", id),
			slog.String("error", err.Error()),
		)
		renderHTML(w, http.StatusInternalServerError, views.ErrorPage(ctx, ch, errorMessage(ctx, err)))
		return
	}

	data := views.DetailData{Chrome: ch, Detail: detail}
	if detail.DirectoryUnavailable {
		data.GroupsUnavailable = true
	} else {
		groups, err := h.registrations.ListAvailableGroups(ctx)
		if err != nil {
			h.logger.Warn("Список групп недоступен",
				slog.Int64("registration_id", id),
				slog.String("error", err.Error()),
			)
			data.GroupsUnavailable = true
		}
		data.Groups = groups
	}

	renderHTML(w, http.StatusOK, views.DetailPage(ctx, data))
}

// HandleRegister — POST /admin/registrations/{id}/register.
// Поля: principalName и отмеченные groups (DN).
func (h *RegistrationHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseAction(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	principalName := r.PostForm.Get(views.FieldPrincipalName)
	if _, err := h.registrations.RegisterSelected(ctx, id, principalName, r.PostForm[views.FieldGroups]); err != nil {
		logActionError(ctx, h.logger, "register", id, err)
		h.redirectWithFlash(w, r, views.RegistrationPath(id, ""), auth.FlashError, errorMessage(ctx, err))
		return
	}
	h.redirectWithFlash(w, r, views.RegistrationPath(id, ""), auth.FlashSuccess, i18n.T(ctx, "flash.registered"))
}

// HandleUpdateGroups — POST /admin/registrations/{id}/groups.
// Членство приводится к отмеченному набору.
func (h *RegistrationHandler) HandleUpdateGroups(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseAction(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	if err := h.registrations.SaveGroupSelection(ctx, id, r.PostForm[views.FieldGroups]); err != nil {
		logActionError(ctx, h.logger, "update_groups", id, err)
		h.redirectWithFlash(w, r, views.RegistrationPath(id, ""), auth.FlashError, errorMessage(ctx, err))
		return
	}
	h.redirectWithFlash(w, r, views.RegistrationPath(id, ""), auth.FlashSuccess, i18n.T(ctx, "flash.groups_updated"))
}

// HandleResetPassword — POST /admin/registrations/{id}/reset-password.
// Пароль отдаётся один раз в теле ответа, без redirect и кэширования.
func (h *RegistrationHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseAction(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	password, err := h.registrations.ResetPassword(ctx, id)
	if err != nil {
		logActionError(ctx, h.logger, "reset_password", id, err)
		h.redirectWithFlash(w, r, views.RegistrationPath(id, ""), auth.FlashError, errorMessage(ctx, err))
		return
	}

	reg := &model.Registration{ID: id}
	if detail, err := h.registrations.GetDetail(ctx, id); err == nil {
		reg = detail.Registration
	} else {
		// Пароль уже сменён: показываем его и без свежих данных заявки.
		h.logger.Warn("Не удалось перечитать заявку после сброса пароля",
			slog.Int64("registration_id", id),
			slog.String("error", err.Error()),
		)
	}
	data := views.PasswordData{Chrome: chrome(w, r, h.sessionManager), Registration: reg, Password: password}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	renderHTML(w, http.StatusOK, views.PasswordPage(ctx, data))
}

// HandleDelete — POST /admin/registrations/{id}/delete.
func (h *RegistrationHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseAction(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	if err := h.registrations.Delete(ctx, id); err != nil {
		logActionError(ctx, h.logger, "delete", id, err)
		h.redirectWithFlash(w, r, "/admin/", auth.FlashError, errorMessage(ctx, err))
		return
	}
	h.redirectWithFlash(w, r, "/admin/", auth.FlashSuccess, i18n.T(ctx, "flash.deleted"))
}

// parseAction разбирает {id} и тело формы; при ошибке ответ уже записан.
func (h *RegistrationHandler) parseAction(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := registrationID(r)
	if !ok {
		HandleNotFound(w, r)
		return 0, false
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Некорректная форма", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *RegistrationHandler) redirectWithFlash(w http.ResponseWriter, r *http.Request, to, kind, message string) {
	if err := h.sessionManager.SetFlash(w, kind, message); err != nil {
		h.logger.Error("Ошибка установки flash cookie", slog.String("error", err.Error()))
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}
