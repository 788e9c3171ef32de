package main

import (
	"strings"
	"testing"
)

func bracket(tag string) func(string) string {
	return func(s string) string { return "<" + tag + ">" + s + "</" + tag + ">" }
}

func TestHelpStyle_Apply(t *testing.T) {
	st := helpStyle{header: bracket("h"), command: bracket("c"), muted: bracket("m")}
	in := strings.Join([]string{
		"Catalog:",
		"  category    Manage categories",
		"",
		"Flags:",
		"      --http-url string   coordinator HTTP URL (default \"http://localhost:7391\")",
		"",
	}, "\n")

	got := st.apply(in)
	for _, want := range []string{
		"<h>Catalog:</h>",
		"<h>Flags:</h>",
		"  <c>category</c>  ",
		"--http-url <m>string</m>",
		`<m>(default "http://localhost:7391")</m>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("styled help missing %q:\n%s", want, got)
		}
	}
}

func TestHelpStyle_LeavesProseAlone(t *testing.T) {
	st := helpStyle{header: bracket("h"), command: bracket("c"), muted: bracket("m")}
	in := "Toggle the overlay in a browser tab.\n"
	if got := st.apply(in); got != in {
		t.Errorf("prose was styled: %q", got)
	}
}
