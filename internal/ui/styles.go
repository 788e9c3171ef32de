// Package ui holds the terminal styling shared by the qrm commands.
package ui

import "fmt"

// ANSI 256 palette.
const (
	colorAccent = 74  // blue: section headers
	colorCmd    = 250 // light gray: command names
	colorMuted  = 245 // gray: flags, defaults, secondary text
	colorOK     = 114 // green: visible overlays, synced state
	colorWarn   = 179 // amber: unsent changes, offline
	colorErr    = 167 // red: failed operations
)

var noColor = !ShouldUseColor()

func paint(code int, s string) string {
	if noColor || s == "" {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent styles section headers in help output.
func RenderAccent(s string) string { return paint(colorAccent, s) }

// RenderMuted styles secondary text.
func RenderMuted(s string) string { return paint(colorMuted, s) }

// RenderCommand styles a command name.
func RenderCommand(s string) string { return paint(colorCmd, s) }

// RenderOK styles a healthy status word.
func RenderOK(s string) string { return paint(colorOK, s) }

// RenderWarn styles a degraded status word.
func RenderWarn(s string) string { return paint(colorWarn, s) }

// RenderError styles a failure.
func RenderError(s string) string { return paint(colorErr, s) }

// Status renders a yes/no condition with the ok or warn style.
func Status(ok bool, yes, no string) string {
	if ok {
		return RenderOK(yes)
	}
	return RenderWarn(no)
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
