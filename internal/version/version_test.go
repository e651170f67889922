package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	if GetVersion() != "dev" {
		t.Fatalf("expected dev version without ldflags, got %q", GetVersion())
	}

	fields := Fields()
	for _, key := range []string{"version", "commit", "build_date", "go"} {
		if v, ok := fields[key]; !ok || v == "" {
			t.Fatalf("field %q is missing or empty: %v", key, fields)
		}
	}
	if fields["go"] != runtime.Version() {
		t.Fatalf("unexpected go version field %v", fields["go"])
	}
}

func TestString(t *testing.T) {
	s := String()
	if !strings.HasPrefix(s, "ecomstore dev") {
		t.Fatalf("unexpected version string %q", s)
	}
	if !strings.Contains(s, "commit unknown") {
		t.Fatalf("version string must mention commit: %q", s)
	}
}
