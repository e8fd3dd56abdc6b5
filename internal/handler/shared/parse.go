package shared

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

type noEscapeHTMLJSON struct{}

func (noEscapeHTMLJSON) Marshal(v any) ([]byte, error) {
	var builder strings.Builder
	enc := json.NewEncoder(&builder)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return []byte(strings.TrimRight(builder.String(), "\n")), nil
}

var jsonNoEscapeHTML = noEscapeHTMLJSON{}

// ParseStringSlice reads a string-slice field from a map.
func ParseStringSlice(payload map[string]any, field string) ([]string, error) {
	raw, ok := payload[field]
	if !ok {
		return nil, fmt.Errorf("missing field %s", field)
	}
	switch value := raw.(type) {
	case []string:
		return value, nil
	case []any:
		items := make([]string, 0, len(value))
		for _, item := range value {
			text, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("invalid element in %s", field)
			}
			items = append(items, text)
		}
		return items, nil
	default:
		return nil, fmt.Errorf("invalid field type for %s", field)
	}
}

// ParseStringField reads a string field from a map.
func ParseStringField(payload map[string]any, field string) (string, error) {
	raw, ok := payload[field]
	if !ok {
		return "", fmt.Errorf("missing field %s", field)
	}
	text, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("invalid field type for %s", field)
	}
	return text, nil
}

// SerializeDetails serializes a details map to a JSON string.
func SerializeDetails(details map[string]any) (string, error) {
	if len(details) == 0 {
		return "", nil
	}
	data, err := jsonNoEscapeHTML.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("encode details: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// TrimRunes truncates a string to at most maxRunes runes.
func TrimRunes(value string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(value)
	if len(runes) <= maxRunes {
		return value
	}
	return string(runes[:maxRunes])
}
