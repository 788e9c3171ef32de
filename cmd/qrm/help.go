package main

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/quickreply/internal/ui"
)

var (
	// Unindented "Catalog:", "Flags:" style headers.
	reHeader = regexp.MustCompile(`(?m)^([A-Z][^\n]*:)\s*$`)
	// "  name   description" rows in a command list.
	reCommandRow = regexp.MustCompile(`(?m)^(  )(\S+)(  )`)
	// "--http-url string" flag type annotations.
	reFlagType = regexp.MustCompile(`(--?\S+\s+)(string|int|int64|duration|stringSlice|stringArray)\b`)
	reDefault  = regexp.MustCompile(`\(default [^)]*\)`)
)

// helpStyle maps each help element to a render function.
type helpStyle struct {
	header, command, muted func(string) string
}

var terminalStyle = helpStyle{
	header:  ui.RenderAccent,
	command: ui.RenderCommand,
	muted:   ui.RenderMuted,
}

// colorizedHelpFunc renders cobra's usage text and styles it when stdout
// takes colors.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		var buf bytes.Buffer
		if long := strings.TrimSpace(cmd.Long); long != "" {
			buf.WriteString(long + "\n\n")
		}
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)

		text := buf.String()
		if ui.ShouldUseColor() {
			text = terminalStyle.apply(text)
		}
		fmt.Fprint(out, text)
	}
}

func (st helpStyle) apply(s string) string {
	s = reHeader.ReplaceAllStringFunc(s, func(m string) string {
		return st.header(strings.TrimSpace(m))
	})
	s = reCommandRow.ReplaceAllStringFunc(s, func(m string) string {
		p := reCommandRow.FindStringSubmatch(m)
		return p[1] + st.command(p[2]) + p[3]
	})
	s = reFlagType.ReplaceAllStringFunc(s, func(m string) string {
		p := reFlagType.FindStringSubmatch(m)
		return p[1] + st.muted(p[2])
	})
	return reDefault.ReplaceAllStringFunc(s, st.muted)
}
