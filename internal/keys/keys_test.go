package keys

import (
	"strings"
	"testing"
)

func TestPhysical(t *testing.T) {
	if got := Physical("app:", "faqs", ""); got != "app:faqs" {
		t.Fatalf("non-isolated: got %q", got)
	}
	if got := Physical("app:", "faqs", "deadbeefdeadbeef"); got != "app:faqs:deadbeefdeadbeef" {
		t.Fatalf("isolated: got %q", got)
	}
}

func TestDigestStableAndShort(t *testing.T) {
	a := Digest("visitor-42")
	b := Digest("visitor-42")
	if a != b {
		t.Fatalf("digest not stable: %q vs %q", a, b)
	}
	if len(a) != 16 {
		t.Fatalf("digest length = %d, want 16", len(a))
	}
	if a == Digest("visitor-43") {
		t.Fatalf("distinct identities should not collide in 16 hex chars")
	}
	if strings.ContainsAny(a, ":/\\") {
		t.Fatalf("digest must be key-safe, got %q", a)
	}
}

func TestTag(t *testing.T) {
	if got := Tag("content", "faqs"); got != "content:faqs" {
		t.Fatalf("Tag: got %q", got)
	}
}
