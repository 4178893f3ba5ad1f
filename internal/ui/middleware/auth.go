// Пакет middleware — HTTP middleware для Admin UI: сессия администратора и CSRF.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/bigkaa/regportal/internal/ui/auth"
)

// LoginPath — страница входа, на которую уходят запросы без сессии.
const LoginPath = "/admin/login"

type sessionContextKey struct{}

// UIAuth пропускает только запросы с действующей сессией администратора.
// Членство в группе проверяется при входе; по истечении сессии нужен повторный вход.
type UIAuth struct {
	sessionManager *auth.SessionManager
	logger         *slog.Logger
}

// NewUIAuth создаёт новый UIAuth middleware.
func NewUIAuth(sessionManager *auth.SessionManager, logger *slog.Logger) *UIAuth {
	return &UIAuth{
		sessionManager: sessionManager,
		logger:         logger.With(slog.String("component", "ui_auth_middleware")),
	}
}

// Middleware проверяет cookie сессии. Без сессии — redirect на LoginPath
// (302 для GET, 303 для форм). Страницы с сессией не кэшируются:
// на них email заявок и имена учётных записей.
func (ua *UIAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := ua.sessionManager.GetSessionFromRequest(r)
			switch {
			case err != nil:
				ua.logger.Debug("Cookie сессии не расшифровывается",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				ua.reject(w, r, true)
				return
			case session == nil:
				ua.reject(w, r, false)
				return
			case session.IsExpired() || !session.IsAdmin:
				ua.logger.Info("Сессия недействительна",
					slog.String("username", session.Username),
					slog.Bool("expired", session.IsExpired()),
					slog.Bool("is_admin", session.IsAdmin),
				)
				ua.reject(w, r, true)
				return
			}

			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

func (ua *UIAuth) reject(w http.ResponseWriter, r *http.Request, clearCookie bool) {
	if clearCookie {
		ua.sessionManager.ClearSessionCookie(w)
	}
	status := http.StatusSeeOther
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		status = http.StatusFound
	}
	http.Redirect(w, r, LoginPath, status)
}

// SessionFromContext возвращает сессию, положенную UIAuth, или nil.
func SessionFromContext(ctx context.Context) *auth.SessionData {
	session, _ := ctx.Value(sessionContextKey{}).(*auth.SessionData)
	return session
}

// WithSession помещает сессию в контекст.
func WithSession(ctx context.Context, session *auth.SessionData) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}
