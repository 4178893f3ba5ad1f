// Пакет openapi — встроенный OpenAPI контракт API браузерного расширения.
package openapi

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var specYAML []byte

// Spec возвращает исходный YAML контракта.
func Spec() []byte {
	return specYAML
}

// Load разбирает и валидирует встроенный контракт.
func Load(ctx context.Context) (*openapi3.T, error) {
	doc, err := openapi3.NewLoader().LoadFromData(specYAML)
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора OpenAPI контракта: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("некорректный OpenAPI контракт: %w", err)
	}
	return doc, nil
}
