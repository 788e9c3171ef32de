package ui

import (
	"strings"
	"testing"
)

func TestPaint(t *testing.T) {
	saved := noColor
	t.Cleanup(func() { noColor = saved })

	noColor = false
	if got := RenderOK("ok"); !strings.Contains(got, "\x1b[38;5;114m") || !strings.HasSuffix(got, "\x1b[0m") {
		t.Errorf("RenderOK = %q", got)
	}
	if got := RenderWarn(""); got != "" {
		t.Errorf("empty string should stay empty, got %q", got)
	}

	ForceNoColor()
	if got := Status(false, "synced", "unsent"); got != "unsent" {
		t.Errorf("Status without color = %q", got)
	}
	if got := RenderAccent("Catalog:"); got != "Catalog:" {
		t.Errorf("RenderAccent without color = %q", got)
	}
}

func TestShouldUseColor_Env(t *testing.T) {
	for _, tc := range []struct {
		name    string
		noColor string
		force   string
		want    bool
	}{
		{"NO_COLOR wins", "1", "1", false},
		{"forced", "", "1", true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", tc.noColor)
			t.Setenv("CLICOLOR_FORCE", tc.force)
			if got := ShouldUseColor(); got != tc.want {
				t.Errorf("ShouldUseColor() = %v, want %v", got, tc.want)
			}
		})
	}
}
