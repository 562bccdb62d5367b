// Package structured implements schema-constrained output handling: a
// declarative Schema model, a Validator producing field-level errors, and a
// RetryHandler that drives a generate -> validate -> repair loop against a
// response-generating callable (typically a model call).
package structured

// FieldType enumerates the supported schema value types.
type FieldType string

// Supported field types.
const (
	TypeObject  FieldType = "object"
	TypeArray   FieldType = "array"
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeInteger FieldType = "integer"
	TypeBoolean FieldType = "boolean"
)

// Schema declares the expected shape of structured output. Schemas nest
// arbitrarily: objects carry Properties (with per-field Required flags held
// on the parent), arrays carry an Items schema.
type Schema struct {
	Type        FieldType          `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Nullable    bool               `json:"nullable,omitempty"`
	Enum        []any              `json:"enum,omitempty"`
}

// Object builds an object schema with the given properties and required field names.
func Object(properties map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: TypeObject, Properties: properties, Required: required}
}

// Array builds an array schema with the given item schema.
func Array(items *Schema) *Schema { return &Schema{Type: TypeArray, Items: items} }

// String builds a string schema.
func String() *Schema { return &Schema{Type: TypeString} }

// Number builds a number schema (integers accepted).
func Number() *Schema { return &Schema{Type: TypeNumber} }

// Integer builds an integer schema.
func Integer() *Schema { return &Schema{Type: TypeInteger} }

// Boolean builds a boolean schema.
func Boolean() *Schema { return &Schema{Type: TypeBoolean} }

// Enum builds a string schema restricted to the allowed values.
func Enum(values ...any) *Schema { return &Schema{Type: TypeString, Enum: values} }

// WithDescription returns the schema with its description set.
func (s *Schema) WithDescription(d string) *Schema {
	s.Description = d
	return s
}

// AsNullable returns the schema with null explicitly allowed.
func (s *Schema) AsNullable() *Schema {
	s.Nullable = true
	return s
}

// isRequired reports whether field is listed in the schema's Required set.
func (s *Schema) isRequired(field string) bool {
	for _, r := range s.Required {
		if r == field {
			return true
		}
	}
	return false
}

// ToJSONSchema renders the schema as a minimal JSON-Schema-like map for
// inclusion in model prompts and tool definitions.
func (s *Schema) ToJSONSchema() map[string]any {
	out := map[string]any{"type": string(s.Type)}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if s.Nullable {
		out["nullable"] = true
	}
	if s.Items != nil {
		out["items"] = s.Items.ToJSONSchema()
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, prop := range s.Properties {
			props[name] = prop.ToJSONSchema()
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}
