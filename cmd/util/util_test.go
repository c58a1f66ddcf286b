package util

import (
	"reflect"
	"strings"
	"testing"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 40)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("Line exceeds %d characters: %q", Wrap, line)
		}
	}
	if WrapString("short text") != "short text" {
		t.Errorf("Short text must not be wrapped")
	}
}

func TestParseAttrList(t *testing.T) {
	testCases := []struct {
		arg  string
		want []string
	}{
		{"", nil},
		{"*", nil},
		{"a", []string{"a"}},
		{"a, b,,c", []string{"a", "b", "c"}},
	}
	for _, tc := range testCases {
		if got := ParseAttrList(tc.arg); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ParseAttrList(%q) = %v, want %v", tc.arg, got, tc.want)
		}
	}
}

func TestParseJSONArg(t *testing.T) {
	v, err := ParseJSONArg("selector", `{"a":1}`)
	if err != nil {
		t.Fatalf("Failed to parse selector: %v", err)
	}
	if m, ok := v.(map[string]interface{}); !ok || m["a"] != 1.0 {
		t.Errorf("Unexpected value %v", v)
	}
	if _, err := ParseJSONArg("selector", `{a:1}`); err == nil {
		t.Errorf("Expected an error for invalid JSON")
	}
}

func TestTransports(t *testing.T) {
	for _, name := range []string{"tcp", "unix"} {
		if _, err := GetClientTransport(name); err != nil {
			t.Errorf("Failed to create %s client transport: %v", name, err)
		}
		if _, err := GetServerTransport(name); err != nil {
			t.Errorf("Failed to create %s server transport: %v", name, err)
		}
	}
	if _, err := GetClientTransport("http"); err == nil {
		t.Errorf("Expected an error for an unknown transport")
	}
}
