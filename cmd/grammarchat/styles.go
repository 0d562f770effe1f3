package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/grammarchat-server/internal/core"
	"github.com/vovakirdan/grammarchat-server/internal/export"
)

var (
	colorUser      = lipgloss.Color("#06B6D4")
	colorAssistant = lipgloss.Color("#10B981")
	colorError     = lipgloss.Color("#EF4444")
	colorMuted     = lipgloss.Color("#6B7280")

	userLabel      = lipgloss.NewStyle().Foreground(colorUser).Bold(true)
	assistantLabel = lipgloss.NewStyle().Foreground(colorAssistant).Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle     = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	bodyStyle      = lipgloss.NewStyle().PaddingLeft(2)
)

// renderMessage formats one log entry for the terminal.
func renderMessage(m core.Message) string {
	label := userLabel.Render("You")
	if !m.IsUser {
		label = assistantLabel.Render("Corrected")
	}
	meta := mutedStyle.Render(fmt.Sprintf("#%d  %s", m.ID, export.FormatTimestamp(m, nil)))

	var sb strings.Builder
	sb.WriteString(label)
	sb.WriteString("  ")
	sb.WriteString(meta)
	sb.WriteString("\n")
	sb.WriteString(bodyStyle.Render(m.Text))
	return sb.String()
}

func renderError(msg string) string {
	return errorStyle.Render("error: ") + msg
}

func renderNote(msg string) string {
	return mutedStyle.Render(msg)
}
