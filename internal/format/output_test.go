package format

import (
	"strings"
	"testing"
)

func TestWriteDataEnvelope(t *testing.T) {
	var b strings.Builder
	if err := WriteData(&b, map[string]int{"completed": 3}, false); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := strings.TrimSpace(b.String())
	want := `{"data":{"completed":3}}`
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestWriteJSONPretty(t *testing.T) {
	var b strings.Builder
	if err := WriteJSON(&b, map[string]int{"n": 1}, true); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(b.String(), "\n  ") {
		t.Fatalf("pretty output not indented: %q", b.String())
	}
}
