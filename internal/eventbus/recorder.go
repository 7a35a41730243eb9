package eventbus

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
)

// RedactionMarker replaces values whose keys look sensitive
const RedactionMarker = "[REDACTED]"

// sensitiveKeyPatterns are matched case-insensitively as substrings of
// map keys and struct field names.
var sensitiveKeyPatterns = []string{
	"password",
	"token",
	"secret",
	"api_key",
	"authorization",
	"cookie",
}

// RecordedEvent is one JSON-safe summary in the recording buffer. The schema
// is stable: consumers depend on event_type/timestamp/data.
type RecordedEvent struct {
	EventType string         `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// recorder keeps a capped in-memory buffer of redacted event summaries.
// Once the cap is reached recording stops silently, but the truncated flag
// stays set until the buffer is explicitly cleared.
type recorder struct {
	mu        sync.Mutex
	cap       int
	enabled   bool
	truncated bool
	events    []RecordedEvent
}

func newRecorder(capacity int) *recorder {
	return &recorder{cap: capacity}
}

func (r *recorder) start() {
	r.mu.Lock()
	r.enabled = true
	r.mu.Unlock()
}

func (r *recorder) stop() {
	r.mu.Lock()
	r.enabled = false
	r.mu.Unlock()
}

func (r *recorder) clear() {
	r.mu.Lock()
	r.events = nil
	r.truncated = false
	r.mu.Unlock()
}

func (r *recorder) snapshot() ([]RecordedEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]RecordedEvent, len(r.events))
	copy(out, r.events)
	return out, r.truncated
}

func (r *recorder) record(payload any, typeName string, ts time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.enabled {
		return
	}
	if len(r.events) >= r.cap {
		r.truncated = true
		return
	}

	r.events = append(r.events, RecordedEvent{
		EventType: typeName,
		Timestamp: ts,
		Data:      summarize(payload),
	})
}

// summarize converts an arbitrary payload into a JSON-safe map with
// sensitive keys redacted. Non-map payloads are wrapped under "value".
func summarize(payload any) map[string]any {
	safe := sanitize(reflect.ValueOf(payload), make(map[uintptr]struct{}))
	if m, ok := safe.(map[string]any); ok {
		return m
	}
	return map[string]any{"value": safe}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// sanitize recursively converts a value into JSON-safe primitives, maps,
// and slices, redacting sensitive keys. The seen set guards against
// reference cycles through pointers, maps, and slices.
func sanitize(v reflect.Value, seen map[uintptr]struct{}) any {
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return sanitize(v.Elem(), seen)

	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		ptr := v.Pointer()
		if _, cyclic := seen[ptr]; cyclic {
			return "<cycle>"
		}
		seen[ptr] = struct{}{}
		defer delete(seen, ptr)
		return sanitize(v.Elem(), seen)

	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		ptr := v.Pointer()
		if _, cyclic := seen[ptr]; cyclic {
			return "<cycle>"
		}
		seen[ptr] = struct{}{}
		defer delete(seen, ptr)

		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			key := fmt.Sprint(iter.Key().Interface())
			if isSensitiveKey(key) {
				out[key] = RedactionMarker
				continue
			}
			out[key] = sanitize(iter.Value(), seen)
		}
		return out

	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		ptr := v.Pointer()
		if _, cyclic := seen[ptr]; cyclic {
			return "<cycle>"
		}
		seen[ptr] = struct{}{}
		defer delete(seen, ptr)
		return sanitizeSequence(v, seen)

	case reflect.Array:
		return sanitizeSequence(v, seen)

	case reflect.Struct:
		// time.Time renders as RFC 3339 rather than its fields
		if t, ok := v.Interface().(time.Time); ok {
			return t.Format(time.RFC3339Nano)
		}

		out := make(map[string]any, v.NumField())
		vt := v.Type()
		for i := 0; i < v.NumField(); i++ {
			field := vt.Field(i)
			if !field.IsExported() {
				continue
			}
			key := jsonFieldName(field)
			if key == "-" {
				continue
			}
			if isSensitiveKey(key) {
				out[key] = RedactionMarker
				continue
			}
			out[key] = sanitize(v.Field(i), seen)
		}
		return out

	case reflect.String:
		return v.String()
	case reflect.Bool:
		return v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint()
	case reflect.Float32, reflect.Float64:
		return v.Float()

	default:
		// Channels, funcs, unsafe pointers: describe rather than fail
		return fmt.Sprintf("<%s>", v.Kind())
	}
}

func sanitizeSequence(v reflect.Value, seen map[uintptr]struct{}) []any {
	out := make([]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		out[i] = sanitize(v.Index(i), seen)
	}
	return out
}

// jsonFieldName resolves the key a struct field would use in JSON output
func jsonFieldName(field reflect.StructField) string {
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
