// Package payload decodes Crowdin webhook bodies into a generic value tree
// and reads nested values from it without assuming a shape.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrNotObject is returned when the body is valid JSON but not an object.
var ErrNotObject = errors.New("payload is not a JSON object")

// Object is a decoded JSON object. Values are string, json.Number, bool,
// nil, Object or []any.
type Object = map[string]any

// Decode parses a JSON object. Numbers keep their literal text. When a key
// repeats inside one object and both values are objects, their members are
// merged; otherwise the later value wins.
func Decode(data []byte) (Object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, ErrNotObject
	}
	obj, err := decodeObject(dec)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode payload: trailing data after object")
	}
	return obj, nil
}

func decodeObject(dec *json.Decoder) (Object, error) {
	obj := Object{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		obj[key] = merge(obj[key], val)
	}
	// closing brace
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

func decodeArray(dec *json.Decoder) ([]any, error) {
	arr := []any{}
	for dec.More() {
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		arr = append(arr, val)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return arr, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch d {
	case '{':
		return decodeObject(dec)
	case '[':
		return decodeArray(dec)
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", d)
	}
}

func merge(existing, incoming any) any {
	prev, ok := existing.(Object)
	if !ok {
		return incoming
	}
	next, ok := incoming.(Object)
	if !ok {
		return incoming
	}
	for k, v := range next {
		prev[k] = merge(prev[k], v)
	}
	return prev
}

// Extract walks keys in order and returns the terminal value as a string.
// It reports false when a step is not an object, a key is absent or the
// terminal value is null.
func Extract(obj Object, keys ...string) (string, bool) {
	var cur any = obj
	for _, key := range keys {
		m, ok := cur.(Object)
		if !ok {
			return "", false
		}
		if cur, ok = m[key]; !ok {
			return "", false
		}
	}
	return stringify(cur)
}

// String is Extract without the presence flag.
func String(obj Object, keys ...string) string {
	s, _ := Extract(obj, keys...)
	return s
}

// Int64 extracts an integer value, accepting numbers and numeric strings.
func Int64(obj Object, keys ...string) (int64, bool) {
	s, ok := Extract(obj, keys...)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Objects returns the object elements of the array under key, in order.
// Non-object elements are skipped.
func Objects(obj Object, key string) ([]Object, bool) {
	arr, ok := obj[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]Object, 0, len(arr))
	for _, v := range arr {
		if o, ok := v.(Object); ok {
			out = append(out, o)
		}
	}
	return out, true
}

func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}
