// Package util provides small string helpers shared across the TUI.
package util

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const ellipsis = "..."

// TruncateString cuts a string down to maxLen runes, marking the cut
// with an ellipsis. Strings that already fit come back untouched.
// Plain rune counting, so styled terminal text should go through
// TruncateANSI instead.
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	keep := maxLen - len(ellipsis)
	if keep <= 0 {
		return ellipsis
	}
	return string(runes[:keep]) + ellipsis
}

// TruncateANSI cuts a string down to maxWidth visual columns, marking
// the cut with an ellipsis. Escape sequences and wide characters are
// accounted for, so it is safe on lipgloss-styled output.
func TruncateANSI(s string, maxWidth int) string {
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	if maxWidth <= len(ellipsis) {
		return ellipsis
	}
	// ansi.Truncate counts the tail toward the final width.
	return ansi.Truncate(s, maxWidth, ellipsis)
}
