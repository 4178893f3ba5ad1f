package handlers

import (
	"log/slog"
	"net/http"

	"github.com/bigkaa/regportal/internal/domain/model"
	"github.com/bigkaa/regportal/internal/ui/auth"
	"github.com/bigkaa/regportal/internal/ui/i18n"
	"github.com/bigkaa/regportal/internal/ui/views"
)

// DashboardHandler — обработчик списка заявок.
type DashboardHandler struct {
	registrations  RegistrationManager
	sessionManager *auth.SessionManager
	logger         *slog.Logger
}

// NewDashboardHandler создаёт новый DashboardHandler.
func NewDashboardHandler(registrations RegistrationManager, sessionManager *auth.SessionManager, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		registrations:  registrations,
		sessionManager: sessionManager,
		logger:         logger.With(slog.String("component", "ui.dashboard")),
	}
}

// HandleDashboard обрабатывает GET /admin/ — список заявок.
// ?status=pending|registered фильтрует по статусу, неизвестное значение игнорируется.
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ch := chrome(w, r, h.sessionManager)

	filter, ok := model.ParseRegistrationStatus(r.URL.Query().Get("status"))
	var (
		regs []*model.Registration
		err  error
	)
	if ok {
		regs, err = h.registrations.ListByStatus(ctx, filter)
	} else {
		filter = ""
		regs, err = h.registrations.List(ctx)
	}
	if err != nil {
		h.logger.Error("Ошибка получения списка заявок", slog.String("error", err.Error()))
		renderHTML(w, http.StatusInternalServerError, views.ErrorPage(ctx, ch, i18n.T(ctx, "flash.error.internal")))
		return
	}

	counts, err := h.registrations.Counts(ctx)
	if err != nil {
		h.logger.Error("Ошибка подсчёта заявок", slog.String("error", err.Error()))
		renderHTML(w, http.StatusInternalServerError, views.ErrorPage(ctx, ch, i18n.T(ctx, "flash.error.internal")))
		return
	}

	renderHTML(w, http.StatusOK, views.DashboardPage(ctx, views.DashboardData{
		Chrome:        ch,
		Registrations: regs,
		Counts:        counts,
		Filter:        filter,
	}))
}
