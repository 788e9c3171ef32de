package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/quickreply/internal/model"
	"github.com/alfredjeanlab/quickreply/internal/ui"
)

func init() { ui.ForceNoColor() }

func TestTruncate(t *testing.T) {
	for _, tc := range []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"line one\nline two", 40, "line one line two"},
		{"ééééééééééé", 8, "ééééé..."},
	} {
		if got := truncate(tc.in, tc.n); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}

func TestPrintCatalogTable(t *testing.T) {
	c := &model.Catalog{Categories: []*model.Category{
		{ID: "cat-1", Name: "Exams", Templates: []*model.Template{
			{ID: "tpl-1", Title: "Deadline", Text: "Hand in by Friday"},
			{ID: "tpl-2", Title: "Late", Text: "Penalty applies"},
		}},
		{ID: "cat-2", Name: "Empty", Templates: []*model.Template{}},
	}}

	var buf bytes.Buffer
	printCatalogTable(&buf, c)
	out := buf.String()
	for _, want := range []string{"Exams (cat-1)", "tpl-2", "Empty (cat-2)", "2 categories, 2 templates (updated never)"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "Exams") != 1 {
		t.Errorf("category label should appear once:\n%s", out)
	}
}

func TestPrintSyncState(t *testing.T) {
	var buf bytes.Buffer
	printSyncState(&buf, &model.SyncState{
		Authenticated: true,
		Principal:     "alice",
		Online:        false,
		Pending:       true,
		LastPulledAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	out := buf.String()
	for _, want := range []string{"signed in as alice", "offline", "unsent", "Last push:   never"} {
		if !strings.Contains(out, want) {
			t.Errorf("sync state missing %q:\n%s", want, out)
		}
	}
}

func TestPrintOverlays(t *testing.T) {
	var buf bytes.Buffer
	printOverlays(&buf, nil)
	if !strings.Contains(buf.String(), "No tracked overlays") {
		t.Errorf("empty list output: %q", buf.String())
	}

	buf.Reset()
	printOverlays(&buf, []model.OverlayRecord{{TabID: 12, Visible: true, Minimized: true}})
	if !strings.Contains(buf.String(), "visible (minimized)") {
		t.Errorf("overlay row: %q", buf.String())
	}
}
