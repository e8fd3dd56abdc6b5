package models

// RequiredStringFieldSchema builds a schema requiring one string field.
func RequiredStringFieldSchema(field string) map[string]any {
	return requiredObjectSchema(map[string]any{
		field: map[string]any{
			"type": "string",
		},
	}, []string{field})
}

// RequiredStringFieldsSchema builds a schema requiring several string
// fields.
func RequiredStringFieldsSchema(fields ...string) map[string]any {
	properties := make(map[string]any, len(fields))
	for _, field := range fields {
		properties[field] = map[string]any{
			"type": "string",
		}
	}
	return requiredObjectSchema(properties, fields)
}

// RequiredStringArrayFieldSchema builds a schema requiring one string
// array field.
func RequiredStringArrayFieldSchema(field string) map[string]any {
	return requiredObjectSchema(map[string]any{
		field: map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "string",
			},
		},
	}, []string{field})
}

func requiredObjectSchema(properties map[string]any, required []string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
