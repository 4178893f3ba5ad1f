// validation.go — проверка входящих запросов по OpenAPI контракту (kin-openapi).
package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"

	apierrors "github.com/bigkaa/regportal/internal/api/errors"
)

// RequestValidator возвращает middleware, отклоняющий с 400 запросы,
// не соответствующие контракту. Запросы к путям вне контракта
// передаются дальше без проверки.
func RequestValidator(doc *openapi3.T, logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, err
	}
	logger = logger.With(slog.String("component", "openapi_validator"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, err := router.FindRoute(r)
			if err != nil {
				var routeErr *routers.RouteError
				if errors.As(err, &routeErr) {
					next.ServeHTTP(w, r)
					return
				}
				apierrors.InternalError(w, "Internal server error")
				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options: &openapi3filter.Options{
					AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
				},
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				logger.Debug("Запрос не соответствует контракту",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				apierrors.BadRequest(w, "Invalid request: "+validationMessage(err))
				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

// validationMessage возвращает краткое описание ошибки без дампа схемы.
func validationMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		var schemaErr *openapi3.SchemaError
		if errors.As(reqErr.Err, &schemaErr) {
			return schemaErr.Reason
		}
		if reqErr.Reason != "" {
			return reqErr.Reason
		}
		if reqErr.Err != nil {
			return reqErr.Err.Error()
		}
	}
	return "request does not match API contract"
}
