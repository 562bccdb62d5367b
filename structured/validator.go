package structured

import (
	"fmt"
	"strings"
)

// Error kinds reported by the Validator.
const (
	ErrorKindRequired = "required"
	ErrorKindType     = "type"
	ErrorKindEnum     = "enum"
)

// FieldError describes one validation failure. Field uses dotted paths for
// nested objects (parent.child) and index notation for arrays (items[2].name).
type FieldError struct {
	Field   string `json:"field"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// Error implements the error interface.
func (e FieldError) Error() string {
	return fmt.Sprintf("field '%s': %s", e.Field, e.Message)
}

// ValidationResult aggregates the outcome of validating one value against a
// schema. Validation failures are data, not errors: the retry loop consumes
// the flat error list to build repair prompts.
type ValidationResult struct {
	errors []FieldError
}

// IsValid reports whether no errors were recorded.
func (r *ValidationResult) IsValid() bool { return len(r.errors) == 0 }

// Errors returns the flat list of field errors.
func (r *ValidationResult) Errors() []FieldError { return r.errors }

// Messages returns human-readable messages, one per error.
func (r *ValidationResult) Messages() []string {
	msgs := make([]string, len(r.errors))
	for i, e := range r.errors {
		msgs[i] = e.Error()
	}
	return msgs
}

// ErrorsByField groups errors by field path.
func (r *ValidationResult) ErrorsByField() map[string][]FieldError {
	grouped := make(map[string][]FieldError)
	for _, e := range r.errors {
		grouped[e.Field] = append(grouped[e.Field], e)
	}
	return grouped
}

func (r *ValidationResult) add(field, kind, message string, value any) {
	r.errors = append(r.errors, FieldError{Field: field, Kind: kind, Message: message, Value: value})
}

// Validator checks decoded data (maps, slices, primitives as produced by
// encoding/json) against a Schema. It is stateless and safe for concurrent use.
type Validator struct{}

// NewValidator constructs a Validator.
func NewValidator() *Validator { return &Validator{} }

// Validate checks data against schema and returns the aggregated result.
// A top-level value of the wrong kind yields a single type error rather than
// a panic.
func (v *Validator) Validate(data any, schema *Schema) *ValidationResult {
	res := &ValidationResult{}
	v.validateValue("", data, schema, res)
	return res
}

func (v *Validator) validateValue(path string, value any, schema *Schema, res *ValidationResult) {
	if schema == nil {
		return
	}

	if value == nil {
		if schema.Nullable {
			return
		}
		res.add(path, ErrorKindType, fmt.Sprintf("expected %s, got null", schema.Type), nil)
		return
	}

	switch schema.Type {
	case TypeObject:
		obj, ok := value.(map[string]any)
		if !ok {
			res.add(path, ErrorKindType, fmt.Sprintf("expected object, got %T", value), value)
			return
		}
		for _, required := range schema.Required {
			if _, present := obj[required]; !present {
				res.add(joinPath(path, required), ErrorKindRequired, "required field is missing", nil)
			}
		}
		for name, propSchema := range schema.Properties {
			propValue, present := obj[name]
			if !present {
				continue
			}
			v.validateValue(joinPath(path, name), propValue, propSchema, res)
		}

	case TypeArray:
		arr, ok := value.([]any)
		if !ok {
			res.add(path, ErrorKindType, fmt.Sprintf("expected array, got %T", value), value)
			return
		}
		if schema.Items == nil {
			return
		}
		for i, item := range arr {
			v.validateValue(fmt.Sprintf("%s[%d]", path, i), item, schema.Items, res)
		}

	case TypeString:
		s, ok := value.(string)
		if !ok {
			res.add(path, ErrorKindType, fmt.Sprintf("expected string, got %T", value), value)
			return
		}
		v.checkEnum(path, s, schema, res)

	case TypeNumber:
		if !isNumeric(value) {
			res.add(path, ErrorKindType, fmt.Sprintf("expected number, got %T", value), value)
			return
		}
		v.checkEnum(path, value, schema, res)

	case TypeInteger:
		if !isInteger(value) {
			res.add(path, ErrorKindType, fmt.Sprintf("expected integer, got %T", value), value)
			return
		}
		v.checkEnum(path, value, schema, res)

	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			res.add(path, ErrorKindType, fmt.Sprintf("expected boolean, got %T", value), value)
		}

	default:
		// Unknown schema types are accepted.
	}
}

// checkEnum records an enum error when the schema restricts values and the
// provided value is outside the allowed set.
func (v *Validator) checkEnum(path string, value any, schema *Schema, res *ValidationResult) {
	if len(schema.Enum) == 0 {
		return
	}
	for _, allowed := range schema.Enum {
		if fmt.Sprintf("%v", allowed) == fmt.Sprintf("%v", value) {
			return
		}
	}
	res.add(path, ErrorKindEnum,
		fmt.Sprintf("value %v is not allowed; allowed values: %s", value, formatEnum(schema.Enum)), value)
}

func formatEnum(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%v", v)
	}
	return strings.Join(parts, ", ")
}

func joinPath(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}

// isNumeric accepts any Go numeric type; integers satisfy number schemas.
func isNumeric(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// isInteger accepts Go integer types plus whole-valued floats, which is what
// encoding/json produces for integral JSON numbers.
func isInteger(value any) bool {
	switch n := value.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		return n == float64(int64(n))
	case float32:
		return n == float32(int32(n))
	default:
		return false
	}
}
