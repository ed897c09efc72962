package payload

import (
	"errors"
	"testing"
)

func mustDecode(t *testing.T, body string) Object {
	t.Helper()
	obj, err := Decode([]byte(body))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return obj
}

func TestExtract(t *testing.T) {
	obj := mustDecode(t, `{
		"translation": {
			"id": 222,
			"rating": 1.5,
			"provider": null,
			"isPreTranslated": false,
			"user": {"username": "alice"},
			"string": {"project": {"id": "42"}, "text": ""},
			"tags": ["a", "b"]
		}
	}`)

	tests := []struct {
		name   string
		keys   []string
		want   string
		wantOK bool
	}{
		{"nested string", []string{"translation", "user", "username"}, "alice", true},
		{"integer keeps literal", []string{"translation", "id"}, "222", true},
		{"fraction", []string{"translation", "rating"}, "1.5", true},
		{"bool", []string{"translation", "isPreTranslated"}, "false", true},
		{"empty string is found", []string{"translation", "string", "text"}, "", true},
		{"null is absent", []string{"translation", "provider"}, "", false},
		{"missing key", []string{"translation", "approver"}, "", false},
		{"missing intermediate", []string{"comment", "user", "username"}, "", false},
		{"walk through scalar", []string{"translation", "id", "value"}, "", false},
		{"walk through array", []string{"translation", "tags", "0"}, "", false},
		{"array terminal", []string{"translation", "tags"}, `["a","b"]`, true},
		{"object terminal", []string{"translation", "user"}, `{"username":"alice"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(obj, tt.keys...)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("Extract(%v) = (%q, %v), want (%q, %v)", tt.keys, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestExtractNilObject(t *testing.T) {
	if _, ok := Extract(nil, "events"); ok {
		t.Fatal("expected not found on nil object")
	}
}

func TestInt64(t *testing.T) {
	obj := mustDecode(t, `{"a": 9007199254740993, "b": "17", "c": "x17", "d": 1.5}`)

	if n, ok := Int64(obj, "a"); !ok || n != 9007199254740993 {
		t.Fatalf("expected exact large integer, got %d %v", n, ok)
	}
	if n, ok := Int64(obj, "b"); !ok || n != 17 {
		t.Fatalf("expected numeric string 17, got %d %v", n, ok)
	}
	if _, ok := Int64(obj, "c"); ok {
		t.Fatal("expected non-numeric string to fail")
	}
	if _, ok := Int64(obj, "d"); ok {
		t.Fatal("expected fraction to fail")
	}
}

func TestDecodeMergesRepeatedObjectKeys(t *testing.T) {
	obj := mustDecode(t, `{"comment":{"string":{"url":"/s/1","project":{"id":"42"}},"string":{"file":{"directoryId":"7"}}}}`)

	if got := String(obj, "comment", "string", "project", "id"); got != "42" {
		t.Fatalf("expected project id from first occurrence, got %q", got)
	}
	if got := String(obj, "comment", "string", "file", "directoryId"); got != "7" {
		t.Fatalf("expected directory id from second occurrence, got %q", got)
	}
}

func TestDecodeRepeatedScalarKeyLastWins(t *testing.T) {
	obj := mustDecode(t, `{"a": 1, "a": {"b": 2}, "c": {"d": 1}, "c": "flat"}`)
	if got := String(obj, "a", "b"); got != "2" {
		t.Fatalf("expected later object to replace scalar, got %q", got)
	}
	if got := String(obj, "c"); got != "flat" {
		t.Fatalf("expected later scalar to replace object, got %q", got)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ``},
		{"truncated", `{"events": [`},
		{"array top level", `[{"event": "x"}]`},
		{"string top level", `"events"`},
		{"trailing data", `{"events": []} {}`},
		{"bad key", `{1: 2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.body)); err == nil {
				t.Fatalf("expected error for %q", tt.body)
			}
		})
	}

	if _, err := Decode([]byte(`[]`)); !errors.Is(err, ErrNotObject) {
		t.Fatalf("expected ErrNotObject, got %v", err)
	}
}

func TestObjects(t *testing.T) {
	obj := mustDecode(t, `{"events": [{"event": "a"}, 3, {"event": "b"}], "other": {}}`)

	events, ok := Objects(obj, "events")
	if !ok {
		t.Fatal("expected events array")
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 object events, got %d", len(events))
	}
	if String(events[1], "event") != "b" {
		t.Fatalf("expected order to be kept, got %v", events)
	}
	if _, ok := Objects(obj, "other"); ok {
		t.Fatal("expected non-array to report false")
	}
	if _, ok := Objects(obj, "missing"); ok {
		t.Fatal("expected missing key to report false")
	}
}
