package views

import (
	"context"
	"strconv"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"github.com/bigkaa/regportal/internal/domain/model"
	"github.com/bigkaa/regportal/internal/ui/i18n"
)

// DetailData — данные страницы заявки.
type DetailData struct {
	Chrome
	Detail *model.RegistrationDetail
	// Groups — группы контейнера групп, доступные для назначения
	Groups []model.DirectoryGroup
	// GroupsUnavailable — список групп не получен из каталога
	GroupsUnavailable bool
}

// DetailPage — заявка, её учётная запись в каталоге и действия над ней.
func DetailPage(ctx context.Context, data DetailData) Node {
	reg := data.Detail.Registration
	title := i18n.Tf(ctx, "detail.title", reg.ID)

	sections := []Node{
		P(A(Href("/admin/"), Text(i18n.T(ctx, "detail.back")))),
		H1(Class("page-title"), Text(title)),
		registrationProps(ctx, reg),
	}

	if reg.IsRegistered() {
		sections = append(sections,
			accountPanel(ctx, data.Detail),
			groupsPanel(ctx, data),
			resetPanel(ctx, reg, data.CSRFToken),
		)
	} else {
		sections = append(sections, registerPanel(ctx, data))
	}
	sections = append(sections, deletePanel(ctx, reg, data.CSRFToken))

	return page(ctx, title, data.Chrome, sections...)
}

func registrationProps(ctx context.Context, reg *model.Registration) Node {
	return Section(
		Class("panel"),
		Dl(
			Class("props"),
			Dt(Text(i18n.T(ctx, "detail.email"))), Dd(Text(reg.GoogleEmail)),
			Dt(Text(i18n.T(ctx, "detail.principal"))), Dd(Text(orDash(reg.PrincipalName()))),
			Dt(Text(i18n.T(ctx, "detail.status"))), Dd(statusBadge(ctx, reg.Status)),
			Dt(Text(i18n.T(ctx, "detail.created"))), Dd(Text(formatTime(reg.CreatedAt))),
			Dt(Text(i18n.T(ctx, "detail.updated"))), Dd(Text(formatTimePtr(reg.UpdatedAt))),
		),
	)
}

func accountPanel(ctx context.Context, detail *model.RegistrationDetail) Node {
	heading := H2(Text(i18n.T(ctx, "detail.account")))

	switch {
	case detail.DirectoryUnavailable:
		return Section(Class("panel"), heading,
			Div(Class("notice"), Text(i18n.T(ctx, "detail.directory_unavailable"))))
	case detail.Account == nil:
		return Section(Class("panel"), heading,
			Div(Class("notice"), Text(i18n.T(ctx, "detail.account.missing"))))
	}

	acc := detail.Account
	state := i18n.T(ctx, "detail.account.enabled")
	if !acc.Enabled {
		state = i18n.T(ctx, "detail.account.disabled")
	}
	return Section(
		Class("panel"),
		heading,
		Dl(
			Class("props"),
			Dt(Text(i18n.T(ctx, "detail.account.display_name"))), Dd(Text(orDash(acc.DisplayName))),
			Dt(Text(i18n.T(ctx, "detail.account.sam"))), Dd(Text(orDash(acc.SAMAccountName))),
			Dt(Text(i18n.T(ctx, "detail.account.dn"))), Dd(Text(acc.DistinguishedName)),
			Dt(Text(i18n.T(ctx, "detail.account.state"))), Dd(Text(state)),
		),
	)
}

// groupChecklist рисует чекбоксы групп; checked и member берутся из детали заявки.
func groupChecklist(ctx context.Context, groups []model.DirectoryGroup, detail *model.RegistrationDetail) Node {
	if len(groups) == 0 {
		return P(Class("hint"), Text(i18n.T(ctx, "detail.groups.empty")))
	}
	items := make([]Node, 0, len(groups))
	for i, g := range groups {
		member := detail != nil && detail.IsMemberOf(g.DistinguishedName)
		// id уникален в пределах списка, CN групп может повторяться
		id := "group-" + strconv.Itoa(i)
		items = append(items, Li(
			Input(
				Type("checkbox"),
				ID(id),
				Name(FieldGroups),
				Value(g.DistinguishedName),
				If(member, Checked()),
			),
			Label(For(id), Text(" "+g.Name)),
			If(member, Span(Class("badge badge-member"), Text(i18n.T(ctx, "detail.member")))),
			If(g.Description != "", Span(Class("desc"), Text(g.Description))),
		))
	}
	return Ul(Class("groups"), Group(items))
}

func registerPanel(ctx context.Context, data DetailData) Node {
	reg := data.Detail.Registration
	return Section(
		Class("panel"),
		H2(Text(i18n.T(ctx, "detail.register.title"))),
		Form(
			Method("post"),
			Action(RegistrationPath(reg.ID, "register")),
			csrfInput(data.CSRFToken),
			Label(For(FieldPrincipalName), Text(i18n.T(ctx, "detail.register.principal"))),
			Input(
				Type("text"),
				ID(FieldPrincipalName),
				Name(FieldPrincipalName),
				Value(reg.GoogleEmail),
				Placeholder(i18n.T(ctx, "detail.register.principal.placeholder")),
				Required(),
				MaxLength("256"),
			),
			H2(Text(i18n.T(ctx, "detail.groups"))),
			groupsOrNotice(ctx, data, nil),
			Button(Type("submit"), Class("btn btn-primary"), Text(i18n.T(ctx, "detail.register.submit"))),
		),
	)
}

func groupsPanel(ctx context.Context, data DetailData) Node {
	reg := data.Detail.Registration
	heading := H2(Text(i18n.T(ctx, "detail.groups")))

	// Без текущего членства форма сняла бы все группы.
	if data.Detail.DirectoryUnavailable || data.Detail.Account == nil {
		return Section(Class("panel"), heading,
			P(Class("hint"), Text(i18n.T(ctx, "detail.groups.unavailable"))))
	}

	return Section(
		Class("panel"),
		heading,
		Form(
			Method("post"),
			Action(RegistrationPath(reg.ID, "groups")),
			csrfInput(data.CSRFToken),
			groupsOrNotice(ctx, data, data.Detail),
			If(!data.GroupsUnavailable, Button(Type("submit"), Class("btn btn-primary"), Text(i18n.T(ctx, "detail.groups.submit")))),
		),
	)
}

func groupsOrNotice(ctx context.Context, data DetailData, detail *model.RegistrationDetail) Node {
	if data.GroupsUnavailable {
		return P(Class("hint"), Text(i18n.T(ctx, "detail.groups.unavailable")))
	}
	return groupChecklist(ctx, data.Groups, detail)
}

func resetPanel(ctx context.Context, reg *model.Registration, token string) Node {
	return Section(
		Class("panel"),
		H2(Text(i18n.T(ctx, "detail.reset.title"))),
		P(Class("hint"), Text(i18n.T(ctx, "detail.reset.hint"))),
		Form(
			Method("post"),
			Action(RegistrationPath(reg.ID, "reset-password")),
			csrfInput(token),
			Button(Type("submit"), Class("btn"), Text(i18n.T(ctx, "detail.reset.submit"))),
		),
	)
}

func deletePanel(ctx context.Context, reg *model.Registration, token string) Node {
	return Section(
		Class("panel"),
		H2(Text(i18n.T(ctx, "detail.delete.title"))),
		P(Class("hint"), Text(i18n.T(ctx, "detail.delete.hint"))),
		Form(
			Method("post"),
			Action(RegistrationPath(reg.ID, "delete")),
			csrfInput(token),
			Button(Type("submit"), Class("btn btn-danger"), Text(i18n.T(ctx, "detail.delete.submit"))),
		),
	)
}
