// csrf.go — защита форм Admin UI по схеме double-submit cookie.
package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
)

const (
	// CSRFCookieName — cookie со случайным токеном.
	CSRFCookieName = "regportal_csrf"
	// CSRFFormField — скрытое поле формы с копией токена.
	CSRFFormField = "csrf_token"
	// CSRFHeader — альтернатива полю формы для fetch-запросов.
	CSRFHeader = "X-CSRF-Token"
)

type csrfContextKey struct{}

// CSRFFailureFunc отвечает на запрос, не прошедший проверку токена.
type CSRFFailureFunc func(w http.ResponseWriter, r *http.Request)

// CSRF выдаёт токен и проверяет его на изменяющих запросах.
type CSRF struct {
	secure  bool
	failure CSRFFailureFunc
}

// NewCSRF создаёт CSRF middleware. failure == nil — ответ 403 text/plain.
func NewCSRF(secure bool, failure CSRFFailureFunc) *CSRF {
	if failure == nil {
		failure = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "CSRF validation failed", http.StatusForbidden)
		}
	}
	return &CSRF{secure: secure, failure: failure}
}

// EnsureToken выставляет cookie с токеном, если его нет, и кладёт токен в контекст.
func (c *CSRF) EnsureToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := readCSRFCookie(r)
		if token == "" {
			token = randomToken(32)
			http.SetCookie(w, &http.Cookie{
				Name:     CSRFCookieName,
				Value:    token,
				Path:     "/admin",
				HttpOnly: true,
				Secure:   c.secure,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx := context.WithValue(r.Context(), csrfContextKey{}, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require отклоняет изменяющие запросы без совпадающего токена.
func (c *CSRF) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		cookieToken := readCSRFCookie(r)
		if cookieToken == "" {
			c.failure(w, r)
			return
		}

		formToken := strings.TrimSpace(r.Header.Get(CSRFHeader))
		if formToken == "" {
			_ = r.ParseForm()
			formToken = strings.TrimSpace(r.Form.Get(CSRFFormField))
		}

		if subtle.ConstantTimeCompare([]byte(cookieToken), []byte(formToken)) != 1 {
			c.failure(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// CSRFToken возвращает токен текущего запроса для скрытого поля формы.
func CSRFToken(r *http.Request) string {
	if token, _ := r.Context().Value(csrfContextKey{}).(string); token != "" {
		return token
	}
	return readCSRFCookie(r)
}

func readCSRFCookie(r *http.Request) string {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

func randomToken(size int) string {
	if size < 16 {
		size = 16
	}
	b := make([]byte, size)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
