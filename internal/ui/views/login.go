package views

import (
	"context"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"github.com/bigkaa/regportal/internal/ui/i18n"
)

// LoginData — данные страницы входа.
type LoginData struct {
	Chrome
	// Username — введённое имя, возвращается в форму после ошибки
	Username string
	// Error — переведённое сообщение об ошибке
	Error string
}

// LoginPage — форма входа по учётной записи каталога.
func LoginPage(ctx context.Context, data LoginData) Node {
	title := i18n.T(ctx, "login.title")
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
				Class("login-body"),
				Main(
					Class("login-wrap panel"),
					H1(Class("page-title"), Text(i18n.T(ctx, "app.title"))),
					P(Class("hint"), Text(i18n.T(ctx, "login.subtitle"))),
					If(data.Error != "", P(Class("error"), Attr("role", "alert"), Text(data.Error))),
					flashBanner(data.Flash),
					Form(
						Method("post"),
						Action("/admin/login"),
						Class("login-form"),
						csrfInput(data.CSRFToken),
						Label(For(FieldUsername), Text(i18n.T(ctx, "login.username"))),
						Input(
							Type("text"),
							ID(FieldUsername),
							Name(FieldUsername),
							Value(data.Username),
							Placeholder(i18n.T(ctx, "login.username.placeholder")),
							AutoComplete("username"),
							AutoFocus(),
						),
						Label(For(FieldPassword), Text(i18n.T(ctx, "login.password"))),
						Input(
							Type("password"),
							ID(FieldPassword),
							Name(FieldPassword),
							AutoComplete("current-password"),
						),
						Button(Type("submit"), Class("btn btn-primary"), Text(i18n.T(ctx, "login.submit"))),
					),
					languageSwitch(ctx, data.CSRFToken),
				),
			),
		),
	)
}
