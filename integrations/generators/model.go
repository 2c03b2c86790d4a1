package generators

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// TextModel returns a JSON document matching schema for the given instructions.
type TextModel interface {
	CompleteJSON(ctx context.Context, system, prompt, schemaName string, schema map[string]any) (string, error)
}

// GeneratedImage viene como bytes (b64) o como URL temporal, segun el proveedor
type GeneratedImage struct {
	Data []byte
	URL  string
}

type ImageModel interface {
	GenerateImages(ctx context.Context, prompt string, n int) ([]GeneratedImage, error)
}

// decodeJSON tolera respuestas envueltas en un bloque ```json
func decodeJSON(raw string, dest any) error {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	if err := json.Unmarshal([]byte(text), dest); err != nil {
		return fmt.Errorf("failed to parse model JSON: %w", err)
	}
	return nil
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func objectSchema(props map[string]any) map[string]any {
	required := make([]string, 0, len(props))
	for k := range props {
		required = append(required, k)
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}
