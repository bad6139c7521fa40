package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	enabled  lipgloss.Style
	disabled lipgloss.Style
	muted    lipgloss.Style
	success  lipgloss.Style
	err      lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		header:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		enabled:  r.NewStyle().Foreground(lipgloss.Color("46")),
		disabled: r.NewStyle().Foreground(lipgloss.Color("240")),
		muted:    r.NewStyle().Foreground(lipgloss.Color("245")),
		success:  r.NewStyle().Foreground(lipgloss.Color("46")),
		err:      r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// truncateString shortens s to max runes with an ellipsis
func truncateString(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
