package requestid

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNew(t *testing.T) {
	id, err := New()
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("New()=%q not a uuid: %v", id, err)
	}
}

func TestFromHeader(t *testing.T) {
	if got, ok := FromHeader(" rid-123 "); !ok || got != "rid-123" {
		t.Fatalf("FromHeader()=%q ok=%v, want rid-123", got, ok)
	}
	for _, bad := range []string{"", "   ", "has space", strings.Repeat("a", 129), "café"} {
		if _, ok := FromHeader(bad); ok {
			t.Fatalf("FromHeader(%q) accepted, want rejected", bad)
		}
	}
}
