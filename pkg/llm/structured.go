package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// GenerateSchema derives a JSON schema from a struct's json and description tags.
// Fields tagged omitempty are optional; all others are required.
func GenerateSchema(v any) (map[string]any, error) {
	if v == nil {
		return nil, errors.New("llm: schema value cannot be nil")
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("llm: schema must be a struct, got %s", t.Kind())
	}
	return schemaFor(t), nil
}

// SchemaJSON renders GenerateSchema as compact JSON for embedding in a prompt.
func SchemaJSON(v any) (string, error) {
	schema, err := GenerateSchema(v)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("llm: marshal schema: %w", err)
	}
	return string(b), nil
}

// ExtractJSONObject returns the outermost {...} span of text. Models often
// wrap JSON in prose or code fences.
func ExtractJSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// ParseStructured decodes the JSON object embedded in text into target.
func ParseStructured(text string, target any) error {
	if target == nil || reflect.ValueOf(target).Kind() != reflect.Pointer {
		return errors.New("llm: structured target must be a pointer")
	}
	obj, ok := ExtractJSONObject(text)
	if !ok {
		return errors.New("llm: no JSON object in response")
	}
	if err := json.Unmarshal([]byte(obj), target); err != nil {
		return fmt.Errorf("llm: decode structured response: %w", err)
	}
	return nil
}

func schemaFor(t reflect.Type) map[string]any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return map[string]any{"type": "string", "format": "date-time"}
	}

	switch t.Kind() {
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Slice, reflect.Array:
		return map[string]any{"type": "array", "items": schemaFor(t.Elem())}
	case reflect.Map:
		return map[string]any{"type": "object", "additionalProperties": schemaFor(t.Elem())}
	case reflect.Struct:
		props := make(map[string]any, t.NumField())
		required := make([]string, 0, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			name, optional, skip := jsonField(field)
			if skip {
				continue
			}
			prop := schemaFor(field.Type)
			if desc := field.Tag.Get("description"); desc != "" {
				prop["description"] = desc
			}
			if enum := field.Tag.Get("enum"); enum != "" {
				prop["enum"] = strings.Split(enum, "|")
			}
			props[name] = prop
			if !optional {
				required = append(required, name)
			}
		}
		schema := map[string]any{"type": "object", "properties": props}
		if len(required) > 0 {
			schema["required"] = required
		}
		return schema
	default:
		return map[string]any{"type": "string"}
	}
}

func jsonField(field reflect.StructField) (name string, optional, skip bool) {
	if !field.IsExported() {
		return "", false, true
	}
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	parts := strings.Split(tag, ",")
	name = parts[0]
	if name == "" {
		name = field.Name
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" || opt == "omitzero" {
			optional = true
		}
	}
	return name, optional, false
}
