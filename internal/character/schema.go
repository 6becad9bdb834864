package character

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// FieldError reports an interchange field that is missing, has the wrong
// JSON type, or holds a value the model cannot represent. Path is dotted
// with bracketed indexes, e.g. "items[3].socketed_items[0].type".
type FieldError struct {
	Path string
	Msg  string
}

func (e *FieldError) Error() string {
	path := e.Path
	if path == "" {
		path = "(root)"
	}
	return path + ": " + e.Msg
}

func fieldErrorf(path, format string, args ...any) *FieldError {
	return &FieldError{Path: path, Msg: fmt.Sprintf(format, args...)}
}

func joinField(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func joinIndex(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

var textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

// checkShape walks a generic JSON value (decoded with UseNumber) against the
// Go type it will be unmarshalled into. Struct fields whose json tag lacks
// omitempty are required; a required field that is absent or null fails.
// Leaf values must have a JSON type and range the target can hold.
func checkShape(v any, t reflect.Type, path string) error {
	if t.Kind() == reflect.Pointer {
		if v == nil {
			return nil
		}
		return checkShape(v, t.Elem(), path)
	}

	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		s, ok := v.(string)
		if !ok {
			return fieldErrorf(path, "expected string, got %s", jsonType(v))
		}
		u := reflect.New(t).Interface().(encoding.TextUnmarshaler)
		if err := u.UnmarshalText([]byte(s)); err != nil {
			return fieldErrorf(path, "%v", err)
		}
		return nil
	}

	switch t.Kind() {
	case reflect.Struct:
		obj, ok := v.(map[string]any)
		if !ok {
			return fieldErrorf(path, "expected object, got %s", jsonType(v))
		}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name, optional := jsonField(f)
			if name == "-" {
				continue
			}
			fieldPath := joinField(path, name)
			val, present := obj[name]
			if !present || val == nil {
				if optional || f.Type.Kind() == reflect.Pointer {
					continue
				}
				return fieldErrorf(fieldPath, "missing required field")
			}
			if err := checkShape(val, f.Type, fieldPath); err != nil {
				return err
			}
		}
		return nil

	case reflect.Slice:
		arr, ok := v.([]any)
		if !ok {
			return fieldErrorf(path, "expected array, got %s", jsonType(v))
		}
		for i, elem := range arr {
			if err := checkShape(elem, t.Elem(), joinIndex(path, i)); err != nil {
				return err
			}
		}
		return nil

	case reflect.Map:
		obj, ok := v.(map[string]any)
		if !ok {
			return fieldErrorf(path, "expected object, got %s", jsonType(v))
		}
		for k, elem := range obj {
			if err := checkShape(elem, t.Elem(), joinField(path, k)); err != nil {
				return err
			}
		}
		return nil

	case reflect.String:
		if _, ok := v.(string); !ok {
			return fieldErrorf(path, "expected string, got %s", jsonType(v))
		}
		return nil

	case reflect.Bool:
		if _, ok := v.(bool); !ok {
			return fieldErrorf(path, "expected boolean, got %s", jsonType(v))
		}
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := v.(json.Number)
		if !ok {
			return fieldErrorf(path, "expected number, got %s", jsonType(v))
		}
		if _, err := strconv.ParseInt(n.String(), 10, t.Bits()); err != nil {
			return fieldErrorf(path, "%s does not fit in %s", n, t.Kind())
		}
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := v.(json.Number)
		if !ok {
			return fieldErrorf(path, "expected number, got %s", jsonType(v))
		}
		if _, err := strconv.ParseUint(n.String(), 10, t.Bits()); err != nil {
			return fieldErrorf(path, "%s does not fit in %s", n, t.Kind())
		}
		return nil

	case reflect.Float32, reflect.Float64:
		if _, ok := v.(json.Number); !ok {
			return fieldErrorf(path, "expected number, got %s", jsonType(v))
		}
		return nil
	}

	return nil
}

// jsonField returns the JSON name of a struct field and whether it is
// tagged omitempty.
func jsonField(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name, false
	}
	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}
	for _, opt := range strings.Split(opts, ",") {
		if opt == "omitempty" {
			return name, true
		}
	}
	return name, false
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
