// middleware.go — выбор языка страницы Admin UI.
package i18n

import (
	"net/http"
)

// LangCookieName — cookie с выбранным языком (ставит POST /admin/set-language).
const LangCookieName = "lang"

// Middleware кладёт язык в контекст запроса.
// Приоритет: cookie "lang", затем Accept-Language, затем DefaultLanguage.
// Ответ зависит от обоих источников, отсюда Vary.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := detectLanguage(r)
			w.Header().Set("Content-Language", lang)
			w.Header().Add("Vary", "Accept-Language")
			w.Header().Add("Vary", "Cookie")
			next.ServeHTTP(w, r.WithContext(WithLang(r.Context(), lang)))
		})
	}
}

func detectLanguage(r *http.Request) string {
	if cookie, err := r.Cookie(LangCookieName); err == nil && IsSupported(cookie.Value) {
		return cookie.Value
	}
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		return MatchLanguage(accept)
	}
	return DefaultLanguage
}
