package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/quickreply/internal/model"
	"github.com/alfredjeanlab/quickreply/internal/presence"
	"github.com/alfredjeanlab/quickreply/internal/ui"
)

func printJSON(w io.Writer, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(data))
}

// truncate shortens s to at most n runes on a single line.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func printCatalogTable(w io.Writer, c *model.Catalog) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tTEMPLATE\tTITLE\tTEXT")
	for _, cat := range c.Categories {
		if len(cat.Templates) == 0 {
			fmt.Fprintf(tw, "%s (%s)\t-\t\t\n", cat.Name, cat.ID)
			continue
		}
		for i, t := range cat.Templates {
			label := ""
			if i == 0 {
				label = fmt.Sprintf("%s (%s)", cat.Name, cat.ID)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", label, t.ID, truncate(t.Title, 30), truncate(t.Text, 50))
		}
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d categories, %d templates (updated %s)\n",
		len(c.Categories), c.TemplateCount(), formatTime(c.UpdatedAt))
}

func printCategory(w io.Writer, cat *model.Category) {
	fmt.Fprintf(w, "ID:        %s\n", cat.ID)
	fmt.Fprintf(w, "Name:      %s\n", cat.Name)
	fmt.Fprintf(w, "Templates: %d\n", len(cat.Templates))
}

func printTemplate(w io.Writer, t *model.Template) {
	fmt.Fprintf(w, "ID:         %s\n", t.ID)
	fmt.Fprintf(w, "Title:      %s\n", t.Title)
	fmt.Fprintf(w, "Updated At: %s\n", formatTime(t.UpdatedAt))
	if t.Text != "" {
		fmt.Fprintf(w, "\n%s\n", t.Text)
	}
}

func printMatches(w io.Writer, matches []model.Match) {
	if len(matches) == 0 {
		fmt.Fprintln(w, "No matches.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TEMPLATE\tCATEGORY\tTITLE\tTEXT")
	for _, m := range matches {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.TemplateID, m.CategoryName, truncate(m.Title, 30), truncate(m.Text, 50))
	}
	tw.Flush()
}

func printOverlays(w io.Writer, recs []model.OverlayRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No tracked overlays.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TAB\tSTATE\tUPDATED")
	for _, r := range recs {
		state := ui.Status(r.Visible, "visible", "hidden")
		if r.Minimized {
			state += " (minimized)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", r.TabID, state, formatTime(r.UpdatedAt))
	}
	tw.Flush()
}

func printSurfaces(w io.Writer, entries []presence.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No surfaces connected.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PEER\tKIND\tTAB\tSTATE\tMESSAGES\tLAST")
	for _, e := range entries {
		tab := "-"
		if e.Kind == "overlay" {
			tab = fmt.Sprintf("%d", e.TabID)
		}
		state := ui.Status(!e.Gone, "connected", "gone")
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			e.PeerID[:min(8, len(e.PeerID))], e.Kind, tab, state, e.MessageCount, e.LastMessage)
	}
	tw.Flush()
}

func printSyncState(w io.Writer, st *model.SyncState) {
	signedIn := ui.RenderWarn("signed out")
	if st.Authenticated {
		signedIn = ui.RenderOK("signed in") + " as " + st.Principal
		if !st.AuthExpiry.IsZero() {
			signedIn += " until " + formatTime(st.AuthExpiry)
		}
	}
	fmt.Fprintf(w, "Session:     %s\n", signedIn)
	fmt.Fprintf(w, "Network:     %s\n", ui.Status(st.Online, "online", "offline"))
	fmt.Fprintf(w, "Changes:     %s\n", ui.Status(!st.Pending, "synced", "unsent"))
	fmt.Fprintf(w, "Last pull:   %s\n", formatTime(st.LastPulledAt))
	fmt.Fprintf(w, "Last push:   %s\n", formatTime(st.LastPushedAt))
}
