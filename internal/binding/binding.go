// Package binding resolves dot-path references against a render context tree.
package binding

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Resolve walks data following the dot separated path and returns the value
// found there. A missing, nil or non-traversable segment anywhere along the
// way yields nil. Resolve never panics and never mutates data.
//
// Numeric segments index into slices, so "items.0.name" reaches the name of
// the first item. Structs are traversed by field name or json tag.
func Resolve(path string, data any) any {
	path = strings.TrimSpace(path)
	if path == "" || data == nil {
		return nil
	}

	current := data
	for _, segment := range strings.Split(path, ".") {
		if segment == "" {
			return nil
		}
		next, ok := descend(current, segment)
		if !ok || next == nil {
			return nil
		}
		current = next
	}
	return current
}

// String renders a resolved value as receipt text. nil becomes the empty
// string, integral floats drop their fraction.
func String(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return formatFloat(val)
	case float32:
		return formatFloat(float64(val))
	case fmt.Stringer:
		return val.String()
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		return String(rv.Elem().Interface())
	}
	return fmt.Sprint(v)
}

// Sequence converts a resolved value into a slice of elements. ok is false
// when v is not a slice or array.
func Sequence(v any) (items []any, ok bool) {
	switch val := v.(type) {
	case nil:
		return nil, false
	case []any:
		return val, true
	case []map[string]any:
		items = make([]any, len(val))
		for i := range val {
			items[i] = val[i]
		}
		return items, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	// []byte is a scalar for receipt purposes
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	items = make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

func descend(current any, segment string) (any, bool) {
	switch c := current.(type) {
	case map[string]any:
		val, ok := c[segment]
		return val, ok
	case map[string]string:
		val, ok := c[segment]
		return val, ok
	case []any:
		return index(len(c), segment, func(i int) any { return c[i] })
	}
	return descendReflect(reflect.ValueOf(current), segment)
}

func descendReflect(rv reflect.Value, segment string) (any, bool) {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		val := rv.MapIndex(reflect.ValueOf(segment).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return nil, false
		}
		return val.Interface(), true
	case reflect.Slice, reflect.Array:
		return index(rv.Len(), segment, func(i int) any { return rv.Index(i).Interface() })
	case reflect.Struct:
		return structField(rv, segment)
	}
	return nil, false
}

func structField(rv reflect.Value, segment string) (any, bool) {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, _, _ := strings.Cut(f.Tag.Get("json"), ","); tag != "" && tag != "-" {
			name = tag
		}
		if name == segment || f.Name == segment {
			return rv.Field(i).Interface(), true
		}
	}
	return nil, false
}

func index(n int, segment string, at func(int) any) (any, bool) {
	i, err := strconv.Atoi(segment)
	if err != nil || i < 0 || i >= n {
		return nil, false
	}
	return at(i), true
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
