package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	maxErrorLines  = 2
	errorPrefix    = "Error: "
	truncationMark = "..."
	minErrorWidth  = 20
)

// formatErrorForDisplay wraps an error to the terminal width, keeping at most
// maxErrorLines lines. Anything beyond is cut and marked with "...".
func formatErrorForDisplay(err error, maxWidth int) string {
	if err == nil {
		return ""
	}

	message := strings.TrimSpace(err.Error())
	if message == "" {
		message = "unknown error"
	}

	width := max(maxWidth, minErrorWidth)
	wrapped := lipgloss.NewStyle().Width(width).Render(errorPrefix + message)
	lines := strings.Split(wrapped, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}

	if len(lines) <= maxErrorLines {
		return strings.Join(lines, "\n")
	}

	lines = lines[:maxErrorLines]
	last := []rune(lines[maxErrorLines-1])
	if keep := width - len(truncationMark); len(last) > keep {
		last = last[:keep]
	}
	lines[maxErrorLines-1] = string(last) + truncationMark
	return strings.Join(lines, "\n")
}
