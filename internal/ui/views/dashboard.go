package views

import (
	"context"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"github.com/bigkaa/regportal/internal/domain/model"
	"github.com/bigkaa/regportal/internal/ui/i18n"
)

// DashboardData — данные списка заявок.
type DashboardData struct {
	Chrome
	Registrations []*model.Registration
	Counts        map[model.RegistrationStatus]int
	// Filter — выбранный статус, пусто для всех
	Filter model.RegistrationStatus
}

// DashboardPage — список заявок с фильтром по статусу.
func DashboardPage(ctx context.Context, data DashboardData) Node {
	title := i18n.T(ctx, "dashboard.title")

	var body Node
	if len(data.Registrations) == 0 {
		body = P(Class("panel hint"), Text(i18n.T(ctx, "dashboard.empty")))
	} else {
		body = Table(
			THead(Tr(
				Th(Text(i18n.T(ctx, "dashboard.col.email"))),
				Th(Text(i18n.T(ctx, "dashboard.col.principal"))),
				Th(Text(i18n.T(ctx, "dashboard.col.status"))),
				Th(Text(i18n.T(ctx, "dashboard.col.created"))),
				Th(Text(i18n.T(ctx, "dashboard.col.updated"))),
				Th(),
			)),
			TBody(Map(data.Registrations, func(reg *model.Registration) Node {
				return Tr(
					Td(Text(reg.GoogleEmail)),
					Td(Text(orDash(reg.PrincipalName()))),
					Td(statusBadge(ctx, reg.Status)),
					Td(Text(formatTime(reg.CreatedAt))),
					Td(Text(formatTimePtr(reg.UpdatedAt))),
					Td(A(Href(RegistrationPath(reg.ID, "")), Text(i18n.T(ctx, "dashboard.open")))),
				)
			})),
		)
	}

	return page(ctx, title, data.Chrome,
		H1(Class("page-title"), Text(title)),
		statusFilters(ctx, data),
		body,
	)
}

func statusFilters(ctx context.Context, data DashboardData) Node {
	total := data.Counts[model.StatusPending] + data.Counts[model.StatusRegistered]
	link := func(status model.RegistrationStatus, href, label string) Node {
		return A(
			Href(href),
			If(data.Filter == status, Class("active")),
			Text(label),
		)
	}
	return Nav(
		Class("filters"),
		link("", "/admin/", i18n.Tf(ctx, "dashboard.filter.all", total)),
		link(model.StatusPending, "/admin/?status=pending",
			i18n.Tf(ctx, "dashboard.filter.pending", data.Counts[model.StatusPending])),
		link(model.StatusRegistered, "/admin/?status=registered",
			i18n.Tf(ctx, "dashboard.filter.registered", data.Counts[model.StatusRegistered])),
	)
}

func statusBadge(ctx context.Context, status model.RegistrationStatus) Node {
	return Span(
		Class("badge badge-"+string(status)),
		Text(i18n.T(ctx, "status."+string(status))),
	)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
