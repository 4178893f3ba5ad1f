// Пакет i18n — переводы страниц портала (en, ru).
// T(ctx, key) и Tf(ctx, key, args...) берут язык из контекста запроса,
// его выставляет Middleware.
package i18n

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/text/language"
)

// DefaultLanguage — язык, если ни cookie, ни Accept-Language не подошли.
// Его каталог служит запасным для остальных языков.
const DefaultLanguage = "en"

// tags — теги в порядке Languages(); первый совпадает с DefaultLanguage.
var tags = []language.Tag{language.English, language.Russian}

var (
	matcher   = language.NewMatcher(tags)
	languages = func() []string {
		codes := make([]string, len(tags))
		for i, tag := range tags {
			base, _ := tag.Base()
			codes[i] = base.String()
		}
		return codes
	}()
)

// Languages возвращает коды поддерживаемых языков.
func Languages() []string {
	return append([]string(nil), languages...)
}

// IsSupported проверяет код языка из cookie или формы.
func IsSupported(lang string) bool {
	for _, code := range languages {
		if code == lang {
			return true
		}
	}
	return false
}

// MatchLanguage выбирает язык по заголовку Accept-Language.
func MatchLanguage(acceptLanguage string) string {
	wanted, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(wanted) == 0 {
		return DefaultLanguage
	}
	_, idx, confidence := matcher.Match(wanted...)
	if confidence == language.No {
		return DefaultLanguage
	}
	return languages[idx]
}

// catalog — ключ → перевод (плоский JSON).
type catalog map[string]string

// Bundle — каталоги переводов всех языков.
type Bundle struct {
	mu       sync.RWMutex
	catalogs map[string]catalog
	logger   *slog.Logger
}

// NewBundle создаёт пустой Bundle. logger может быть nil.
func NewBundle(logger *slog.Logger) *Bundle {
	return &Bundle{
		catalogs: make(map[string]catalog),
		logger:   logger,
	}
}

// LoadMessages заменяет каталог языка содержимым JSON {"key": "text"}.
// Пустой перевод считается ошибкой каталога.
func (b *Bundle) LoadMessages(lang string, data []byte) error {
	var messages catalog
	if err := json.Unmarshal(data, &messages); err != nil {
		return fmt.Errorf("i18n: разбор каталога %s: %w", lang, err)
	}
	for key, text := range messages {
		if text == "" {
			return fmt.Errorf("i18n: каталог %s: пустой перевод для %q", lang, key)
		}
	}

	b.mu.Lock()
	b.catalogs[lang] = messages
	b.mu.Unlock()

	if b.logger != nil {
		b.logger.Debug("Каталог переводов загружен",
			slog.String("lang", lang),
			slog.Int("keys", len(messages)),
		)
	}
	return nil
}

// Translate ищет ключ в каталоге lang, затем в DefaultLanguage.
// Ненайденный ключ возвращается как есть.
func (b *Bundle) Translate(lang, key string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, l := range [...]string{lang, DefaultLanguage} {
		if text, ok := b.catalogs[l][key]; ok {
			return text
		}
	}
	return key
}

// Translatef — Translate с подстановкой аргументов.
func (b *Bundle) Translatef(lang, key string, args ...any) string {
	return format(b.Translate(lang, key), args)
}

// Keys возвращает ключи каталога языка.
func (b *Bundle) Keys(lang string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, len(b.catalogs[lang]))
	for k := range b.catalogs[lang] {
		keys = append(keys, k)
	}
	return keys
}

// format подставляет аргументы; формат-строки приходят из каталогов.
func format(template string, args []any) string {
	if len(args) == 0 {
		return template
	}
	return fmt.Sprintf(template, args...) //nolint:govet // формат из каталога
}

// --- Общий Bundle процесса ---

var global atomic.Pointer[Bundle]

// Init создаёт общий Bundle при первом вызове и возвращает его.
func Init(logger *slog.Logger) *Bundle {
	global.CompareAndSwap(nil, NewBundle(logger))
	return global.Load()
}

type contextKey struct{}

// WithLang помещает язык в контекст.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, contextKey{}, lang)
}

// LangFromContext возвращает язык запроса или DefaultLanguage.
func LangFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(contextKey{}).(string); ok && lang != "" {
		return lang
	}
	return DefaultLanguage
}

// T переводит ключ на язык запроса. До Init возвращает сам ключ.
func T(ctx context.Context, key string) string {
	b := global.Load()
	if b == nil {
		return key
	}
	return b.Translate(LangFromContext(ctx), key)
}

// Tf — T с подстановкой аргументов.
func Tf(ctx context.Context, key string, args ...any) string {
	b := global.Load()
	if b == nil {
		return format(key, args)
	}
	return b.Translatef(LangFromContext(ctx), key, args...)
}
