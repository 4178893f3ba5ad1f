// Пакет views — HTML-страницы Admin UI на gomponents.
// Строки берутся из i18n по языку из контекста запроса.
package views

import (
	"context"
	"fmt"
	"time"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"github.com/bigkaa/regportal/internal/ui/auth"
	"github.com/bigkaa/regportal/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/regportal/internal/ui/middleware"
)

// Имена полей форм.
const (
	FieldUsername      = "username"
	FieldPassword      = "password"
	FieldPrincipalName = "principalName"
	FieldGroups        = "groups"
	FieldLang          = "lang"
)

// Chrome — общие для всех страниц данные: пользователь, CSRF-токен, flash.
type Chrome struct {
	// User — отображаемое имя администратора (пусто до входа)
	User      string
	CSRFToken string
	Flash     *auth.Flash
}

// RegistrationPath возвращает путь страницы заявки или её действия.
func RegistrationPath(id int64, action string) string {
	if action == "" {
		return fmt.Sprintf("/admin/registrations/%d", id)
	}
	return fmt.Sprintf("/admin/registrations/%d/%s", id, action)
}

func page(ctx context.Context, title string, ch Chrome, body ...Node) Node {
	return Doctype(
		HTML(
			Lang(i18n.LangFromContext(ctx)),
			Head(
				Meta(Charset("utf-8")),
				Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
				TitleEl(Text(title+" | "+i18n.T(ctx, "app.title"))),
				Link(Rel("icon"), Href("data:,")),
				Link(Rel("stylesheet"), Href("/admin/static/css/app.css")),
			),
			Body(
				topbar(ctx, ch),
				Main(
					Class("layout"),
					flashBanner(ch.Flash),
					Group(body),
				),
			),
		),
	)
}

func topbar(ctx context.Context, ch Chrome) Node {
	return Header(
		Class("topbar"),
		A(Class("brand"), Href("/admin/"), Text(i18n.T(ctx, "app.title"))),
		Div(
			Class("user"),
			languageSwitch(ctx, ch.CSRFToken),
			If(ch.User != "", Span(Text(i18n.Tf(ctx, "nav.signed_in_as", ch.User)))),
			If(ch.User != "", Form(
				Method("post"),
				Action("/admin/logout"),
				csrfInput(ch.CSRFToken),
				Button(Type("submit"), Class("btn btn-link"), Text(i18n.T(ctx, "nav.logout"))),
			)),
		),
	)
}

func languageSwitch(ctx context.Context, token string) Node {
	current := i18n.LangFromContext(ctx)
	buttons := make([]Node, 0, len(i18n.Languages()))
	for _, lang := range i18n.Languages() {
		cls := "btn btn-link"
		if lang == current {
			cls += " active"
		}
		buttons = append(buttons, Button(
			Type("submit"),
			Name(FieldLang),
			Value(lang),
			Class(cls),
			Text(i18n.T(ctx, "lang."+lang)),
		))
	}
	return Form(
		Method("post"),
		Action("/admin/set-language"),
		Class("lang-switch"),
		csrfInput(token),
		Group(buttons),
	)
}

func flashBanner(flash *auth.Flash) Node {
	if flash == nil || flash.Message == "" {
		return nil
	}
	cls := "flash flash-success"
	if flash.Kind == auth.FlashError {
		cls = "flash flash-error"
	}
	return Div(Class(cls), Attr("role", "status"), Text(flash.Message))
}

func csrfInput(token string) Node {
	return Input(Type("hidden"), Name(uimiddleware.CSRFFormField), Value(token))
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.UTC().Format("2006-01-02 15:04")
}

func formatTimePtr(ts *time.Time) string {
	if ts == nil {
		return "-"
	}
	return formatTime(*ts)
}

// ErrorPage — страница ошибки со ссылкой на список заявок.
func ErrorPage(ctx context.Context, ch Chrome, message string) Node {
	title := i18n.T(ctx, "error.title")
	return page(ctx, title, ch,
		H1(Class("page-title"), Text(title)),
		P(Text(message)),
		P(A(Href("/admin/"), Text(i18n.T(ctx, "error.back")))),
	)
}
