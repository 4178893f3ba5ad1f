// loader.go — встроенные каталоги переводов locales/<lang>.json.
package i18n

import (
	"embed"
	"fmt"
	"log/slog"
	"sort"
)

//go:embed locales/*.json
var localeFS embed.FS

// LoadFromEmbedFS загружает каталоги всех поддерживаемых языков.
// Ключи, которых нет в каталоге языка, но есть в DefaultLanguage,
// попадают в лог: такие строки покажутся на английском.
func LoadFromEmbedFS(bundle *Bundle, logger *slog.Logger) error {
	for _, lang := range Languages() {
		path := fmt.Sprintf("locales/%s.json", lang)
		data, err := localeFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("i18n: чтение %s: %w", path, err)
		}
		if err := bundle.LoadMessages(lang, data); err != nil {
			return err
		}
	}

	for _, lang := range Languages() {
		if missing := MissingKeys(bundle, lang); len(missing) > 0 {
			logger.Warn("В каталоге переводов не хватает ключей",
				slog.String("lang", lang),
				slog.Any("keys", missing),
			)
		}
	}

	logger.Info("Каталоги переводов загружены", slog.Int("languages", len(Languages())))
	return nil
}

// MissingKeys возвращает отсортированные ключи DefaultLanguage, которых нет в lang.
func MissingKeys(bundle *Bundle, lang string) []string {
	have := make(map[string]struct{})
	for _, k := range bundle.Keys(lang) {
		have[k] = struct{}{}
	}

	var missing []string
	for _, k := range bundle.Keys(DefaultLanguage) {
		if _, ok := have[k]; !ok {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return missing
}
