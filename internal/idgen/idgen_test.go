package idgen

import (
	"regexp"
	"testing"
)

var idPattern = regexp.MustCompile(`^(cat|tpl)-[0-9a-z]{12}$`)

func TestForKind_Shape(t *testing.T) {
	for _, kind := range []string{"cat", "tpl"} {
		if id := ForKind(kind); !idPattern.MatchString(id) {
			t.Errorf("ForKind(%q) = %q", kind, id)
		}
	}
}

func TestForKind_Unique(t *testing.T) {
	seen := make(map[string]bool, 10_000)
	for i := range 10_000 {
		id := ForKind("tpl")
		if seen[id] {
			t.Fatalf("duplicate id after %d generations: %q", i, id)
		}
		seen[id] = true
	}
}

func TestFallback_Unique(t *testing.T) {
	a, b := fallback("cat"), fallback("cat")
	if a == b || a[:4] != "cat-" {
		t.Errorf("fallback ids %q, %q", a, b)
	}
}
