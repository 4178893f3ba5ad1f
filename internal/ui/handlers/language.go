// language.go — обработчик переключения языка UI.
package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bigkaa/regportal/internal/ui/auth"
	"github.com/bigkaa/regportal/internal/ui/i18n"
	"github.com/bigkaa/regportal/internal/ui/views"
)

// HandleSetLanguage обрабатывает POST /admin/set-language.
// Устанавливает cookie "lang" и перенаправляет обратно на страницу /admin.
func HandleSetLanguage(w http.ResponseWriter, r *http.Request) {
	lang := r.FormValue(views.FieldLang)
	if !i18n.IsSupported(lang) {
		lang = i18n.DefaultLanguage
	}

	http.SetCookie(w, &http.Cookie{
		Name:     i18n.LangCookieName,
		Value:    lang,
		Path:     auth.CookiePath,
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(365 * 24 * time.Hour),
	})

	http.Redirect(w, r, backTo(r.Header.Get("Referer")), http.StatusSeeOther)
}

// backTo оставляет из Referer только путь внутри /admin.
func backTo(referer string) string {
	u, err := url.Parse(referer)
	if err != nil || !strings.HasPrefix(u.Path, "/admin") {
		return "/admin/"
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}
