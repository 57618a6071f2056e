// Package classify normalizes arbitrary failure values into either a silent
// cancellation signal or a single human-readable message. It is the one
// funnel every engine failure path goes through.
//
// Classification runs an explicit ordered chain of shape decoders with a
// defined fallthrough; each decoder is exported so it can be tested in
// isolation. Classify never panics.
package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrCancelled is the engine's cancellation sentinel. Failures wrapping it,
// or wrapping context.Canceled, classify as silent.
var ErrCancelled = errors.New("generation cancelled")

// FallbackMessage is returned when a failure value cannot be rendered at all.
const FallbackMessage = "an unknown error occurred"

// Result is the outcome of classifying a failure value. Silent results come
// from user cancellation and must never be surfaced as errors.
type Result struct {
	Silent  bool
	Message string
}

// Decoder attempts to classify a failure value, reporting whether it matched.
type Decoder func(v any) (Result, bool)

// Chain returns the default ordered decoder chain.
func Chain() []Decoder {
	return []Decoder{
		DecodeCancellation,
		DecodeNestedPayload,
		DecodeError,
		DecodeObject,
		DecodeValue,
	}
}

// Classify runs the default chain over v. The final decoder always matches,
// so a Result is always produced.
func Classify(v any) (res Result) {
	defer func() {
		if recover() != nil {
			res = Result{Message: FallbackMessage}
		}
	}()
	for _, decode := range Chain() {
		if r, ok := decode(v); ok {
			return r
		}
	}
	return Result{Message: FallbackMessage}
}

// DecodeCancellation matches cancellation-type errors and yields a silent
// result. Deadline expiry is deliberately not silent: the engine has no
// intrinsic timeout, so an expired deadline is a real failure to surface.
func DecodeCancellation(v any) (Result, bool) {
	err, ok := v.(error)
	if !ok {
		return Result{}, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrCancelled) {
		return Result{Silent: true}, true
	}
	return Result{}, false
}

// DecodeNestedPayload matches values exposing a provider-style nested
// message at .response.data.error.message, .response.data.message,
// .error.message or .message. When the extracted string is itself JSON
// containing a further nested message, it is unwrapped one level.
func DecodeNestedPayload(v any) (Result, bool) {
	obj, ok := objectFor(v)
	if !ok {
		return Result{}, false
	}
	paths := [][]string{
		{"response", "data", "error", "message"},
		{"response", "data", "message"},
		{"error", "message"},
		{"message"},
	}
	for _, path := range paths {
		if s, ok := dig(obj, path...); ok {
			return Result{Message: unwrapNested(s)}, true
		}
	}
	return Result{}, false
}

// DecodeError matches standard error values, yielding their message.
func DecodeError(v any) (Result, bool) {
	err, ok := v.(error)
	if !ok {
		return Result{}, false
	}
	msg := err.Error()
	if msg == "" {
		msg = FallbackMessage
	}
	return Result{Message: msg}, true
}

// DecodeObject matches non-primitive values via best-effort JSON
// stringification, with the fixed fallback when marshalling fails.
func DecodeObject(v any) (Result, bool) {
	switch v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return Result{}, false
	}
	b, err := json.Marshal(v)
	if err != nil {
		return Result{Message: FallbackMessage}, true
	}
	return Result{Message: string(b)}, true
}

// DecodeValue is the terminal decoder: string coercion of whatever remains.
func DecodeValue(v any) (Result, bool) {
	if v == nil {
		return Result{Message: FallbackMessage}, true
	}
	s := fmt.Sprint(v)
	if s == "" {
		s = FallbackMessage
	}
	return Result{Message: s}, true
}

// objectFor extracts a key/value view of v: maps directly, errors and
// strings via an embedded JSON object, anything else through a JSON
// round-trip.
func objectFor(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return t, true
	case error:
		return parseObject(t.Error())
	case string:
		return parseObject(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	return parseObject(string(b))
}

// parseObject attempts to read a JSON object from s, either the whole
// string or the widest braced substring within it.
func parseObject(s string) (map[string]any, bool) {
	s = strings.TrimSpace(s)
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err == nil && m != nil {
		return m, true
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return nil, false
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), &m); err == nil && m != nil {
		return m, true
	}
	return nil, false
}

// dig walks a path of object keys, transparently unwrapping intermediate
// values that are themselves JSON object strings, and returns the terminal
// non-empty string.
func dig(obj map[string]any, path ...string) (string, bool) {
	var cur any = obj
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			if s, isStr := cur.(string); isStr {
				if m, ok = parseObject(s); !ok {
					return "", false
				}
			} else {
				return "", false
			}
		}
		cur, ok = m[key]
		if !ok {
			return "", false
		}
	}
	s, ok := cur.(string)
	return s, ok && s != ""
}

// unwrapNested unwraps one level of nesting when s is itself JSON carrying
// a further message.
func unwrapNested(s string) string {
	obj, ok := parseObject(s)
	if !ok {
		return s
	}
	for _, path := range [][]string{{"error", "message"}, {"message"}} {
		if inner, ok := dig(obj, path...); ok {
			return inner
		}
	}
	return s
}
