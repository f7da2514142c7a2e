// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package redact turns arbitrary values into log-safe representations:
// secret-keyed values are masked, large values are summarised and paths are
// described instead of echoed.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"reflect"
	"strings"
	"unicode/utf8"
)

// Redacted replaces any value stored under a sensitive key.
const Redacted = "[REDACTED]"

const (
	maxStringRunes  = 256
	previewRunes    = 128
	maxItems        = 20
	truncatedMarker = "truncated_items"
)

// sensitiveKeywords contains keywords that indicate sensitive fields.
// Any key containing these keywords (case-insensitive) is masked.
var sensitiveKeywords = []string{
	"token",
	"password",
	"secret",
	"key",
	"credential",
}

// Path marks a string as a filesystem location. Sanitize replaces it with a
// descriptor instead of the raw string.
type Path string

// Sanitize returns a log-safe rendering of value. key is the map key or field
// name the value was stored under, or "" at the top level.
//
// Results are built from map[string]any, []any, strings and primitives only,
// so sanitizing a result again yields the same value.
func Sanitize(value any, key string) any {
	if key != "" && IsSensitiveKey(key) {
		return Redacted
	}
	if value == nil || isNilPointer(value) {
		return nil
	}

	switch v := value.(type) {
	case Path:
		return DescribePath(string(v))
	case string:
		return sanitizeString(v)
	case []byte:
		return map[string]any{
			"type":       "bytes",
			"size_bytes": len(v),
			"sha256":     digest(v),
		}
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return v
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = Sanitize(item, k)
		}
		return out
	case []any:
		return sanitizeSequence(len(v), func(i int) any { return v[i] })
	case error:
		return sanitizeString(v.Error())
	case fmt.Stringer:
		return sanitizeString(v.String())
	}

	return sanitizeReflect(reflect.ValueOf(value))
}

// isNilPointer reports a typed nil pointer, whose methods may dereference it.
func isNilPointer(value any) bool {
	rv := reflect.ValueOf(value)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

func sanitizeReflect(val reflect.Value) any {
	for val.Kind() == reflect.Ptr || val.Kind() == reflect.Interface {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}
	if val.CanInterface() {
		switch v := val.Interface().(type) {
		case Path, []byte, error, fmt.Stringer:
			return Sanitize(v, "")
		}
	}

	switch val.Kind() {
	case reflect.String:
		return sanitizeString(val.String())

	case reflect.Bool:
		return val.Bool()

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return val.Int()

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return val.Uint()

	case reflect.Float32, reflect.Float64:
		return val.Float()

	case reflect.Map:
		out := make(map[string]any, val.Len())
		iter := val.MapRange()
		for iter.Next() {
			k := fmt.Sprint(iter.Key().Interface())
			out[k] = Sanitize(iter.Value().Interface(), k)
		}
		return out

	case reflect.Slice, reflect.Array:
		if val.Kind() == reflect.Slice && val.Type().Elem().Kind() == reflect.Uint8 {
			return Sanitize(val.Bytes(), "")
		}
		return sanitizeSequence(val.Len(), func(i int) any { return val.Index(i).Interface() })

	case reflect.Struct:
		out := make(map[string]any)
		typ := val.Type()
		for i := 0; i < val.NumField(); i++ {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}
			name := fieldName(field)
			if name == "-" {
				continue
			}
			out[name] = Sanitize(val.Field(i).Interface(), name)
		}
		return out

	default:
		if val.CanInterface() {
			return fmt.Sprint(val.Interface())
		}
		return val.String()
	}
}

func sanitizeSequence(n int, at func(int) any) []any {
	dropped := 0
	// A trailing marker from an earlier pass is carried forward, not counted.
	if n > 0 {
		if carried, ok := truncationMarker(at(n - 1)); ok {
			dropped = carried
			n--
		}
	}
	keep := n
	if keep > maxItems {
		keep = maxItems
	}
	out := make([]any, 0, keep+1)
	for i := 0; i < keep; i++ {
		out = append(out, Sanitize(at(i), ""))
	}
	dropped += n - keep
	if dropped > 0 {
		out = append(out, map[string]any{truncatedMarker: dropped})
	}
	return out
}

func truncationMarker(v any) (int, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return 0, false
	}
	switch n := m[truncatedMarker].(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func sanitizeString(s string) any {
	length := utf8.RuneCountInString(s)
	if length <= maxStringRunes {
		return s
	}
	preview := []rune(s)[:previewRunes]
	return map[string]any{
		"type":    "large_string",
		"preview": string(preview),
		"length":  length,
		"sha256":  digest([]byte(s)),
	}
}

// DescribePath reports a path's existence and, when it exists, its kind and size.
func DescribePath(path string) map[string]any {
	info := map[string]any{
		"path":   path,
		"exists": false,
	}
	st, err := os.Stat(path)
	if err != nil {
		return info
	}
	info["exists"] = true
	info["is_file"] = st.Mode().IsRegular()
	info["is_dir"] = st.IsDir()
	if st.Mode().IsRegular() {
		info["size_bytes"] = st.Size()
	}
	return info
}

// IsSensitiveKey checks if a key name contains any sensitive keyword.
func IsSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lowerKey, keyword) {
			return true
		}
	}
	return false
}

func fieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return field.Name
	}
	return name
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
