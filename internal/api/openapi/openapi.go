// Пакет openapi — встроенное описание HTTP API.
// Документ загружается и валидируется kin-openapi при старте,
// отдаётся клиентам как JSON на /api/openapi.json.
package openapi

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var rawDoc []byte

// Load разбирает и валидирует встроенный документ.
func Load() (*openapi3.T, error) {
	loader := openapi3.NewLoader()

	doc, err := loader.LoadFromData(rawDoc)
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора OpenAPI: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("OpenAPI документ некорректен: %w", err)
	}
	return doc, nil
}

// JSON возвращает валидированный документ в JSON с версией version.
func JSON(version string) ([]byte, error) {
	doc, err := Load()
	if err != nil {
		return nil, err
	}
	if version != "" {
		doc.Info.Version = version
	}
	return json.Marshal(doc)
}
