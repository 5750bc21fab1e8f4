package views

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

type ChatData struct {
	Header        string
	Transcript    string
	Input         string
	Status        string
	StatusIsError bool
	Footer        string
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	userStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	botStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
)

func RenderChat(data ChatData) string {
	lines := []string{
		headerStyle.Render(data.Header),
		panelStyle.Render(data.Transcript),
		data.Input,
	}
	if data.Status != "" {
		if data.StatusIsError {
			lines = append(lines, errorStyle.Render(data.Status))
		} else {
			lines = append(lines, statusStyle.Render(data.Status))
		}
	}
	if data.Footer != "" {
		lines = append(lines, footerStyle.Render(data.Footer))
	}
	return strings.Join(lines, "\n")
}

// RenderTurn formats one transcript entry with a speaker label.
func RenderTurn(fromUser bool, body string) string {
	if fromUser {
		return userStyle.Render("you") + "  " + body
	}
	return botStyle.Render("phantom") + "  " + body
}

func RenderMarkdown(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	out, err := glamour.Render(md, "dark")
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}
