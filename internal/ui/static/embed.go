// Пакет static — стили Admin UI, встроенные в бинарник.
package static

import (
	"embed"
	"net/http"
	"strings"
)

//go:embed css/*.css
var content embed.FS

// cacheControl — ресурсы меняются только вместе с бинарником.
const cacheControl = "public, max-age=3600"

// Handler раздаёт встроенные файлы по prefix (например, "/admin/static/").
// Запросы к каталогам получают 404 вместо листинга.
func Handler(prefix string) http.Handler {
	files := http.StripPrefix(prefix, http.FileServer(http.FS(content)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", cacheControl)
		files.ServeHTTP(w, r)
	})
}
