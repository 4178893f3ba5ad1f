package views

import (
	"context"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"github.com/bigkaa/regportal/internal/domain/model"
	"github.com/bigkaa/regportal/internal/ui/i18n"
)

// PasswordData — результат сброса пароля.
type PasswordData struct {
	Chrome
	Registration *model.Registration
	Password     string
}

// PasswordPage показывает новый пароль один раз.
func PasswordPage(ctx context.Context, data PasswordData) Node {
	title := i18n.T(ctx, "password.title")
	return page(ctx, title, data.Chrome,
		P(A(Href("/admin/"), Text(i18n.T(ctx, "detail.back")))),
		H1(Class("page-title"), Text(i18n.Tf(ctx, "password.for", data.Registration.PrincipalName()))),
		Div(Class("notice"), Text(i18n.T(ctx, "password.notice"))),
		Section(
			Class("panel"),
			Div(Class("password"), Text(data.Password)),
		),
	)
}
