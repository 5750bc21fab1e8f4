package update

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/phantom/internal/commands"
	"github.com/sandeepkv93/phantom/internal/model"
	"github.com/sandeepkv93/phantom/internal/views"
)

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(typed.Width, typed.Height)
		return m, nil
	case tea.KeyMsg:
		switch typed.String() {
		case "ctrl+c", "esc":
			m.Quitting = true
			return m, tea.Quit
		case "enter":
			return m.submit()
		case "pgup", "pgdown", "ctrl+u", "ctrl+d":
			var cmd tea.Cmd
			m.transcript, cmd = m.transcript.Update(typed)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(typed)
		return m, cmd
	case replyMsg:
		m.Busy = false
		switch {
		case typed.Err != nil && model.IsRecoverable(typed.Err):
			// The request was rejected before anything was written.
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
			m.Turns = append(m.Turns, Turn{Text: "Please check that request: " + typed.Err.Error()})
		case typed.Err != nil:
			m.LastError = typed.Err
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
			m.Turns = append(m.Turns, Turn{Text: "Sorry, that failed: " + typed.Err.Error()})
		default:
			m.Status = StatusBar{Text: typed.Status}
			m.Turns = append(m.Turns, typed.Turn)
		}
		m.refreshTranscript()
		return m, nil
	case spinner.TickMsg:
		if !m.Busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
		}
		return m, nil
	}
	return m, nil
}

// submit sends the input line to the planner or the command table. Only
// one request runs at a time.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.Busy {
		return m, nil
	}
	m.input.SetValue("")
	m.Turns = append(m.Turns, Turn{FromUser: true, Text: text})
	m.Busy = true
	m.Status = StatusBar{Text: "working"}
	m.refreshTranscript()

	var work tea.Cmd
	if commands.IsCommand(text) {
		work = runCommand(m.deps, text)
	} else {
		work = runUtterance(m.deps, text)
	}
	return m, tea.Batch(work, m.spinner.Tick)
}

func runUtterance(d Deps, text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), d.Timeout)
		defer cancel()
		resp, err := d.Planner.HandleUtterance(ctx, text, d.Owner, d.Clock())
		if err != nil {
			return replyMsg{Err: err}
		}
		return replyMsg{
			Turn:   Turn{Text: views.ResponseMarkdown(resp, d.Location), Markdown: true},
			Status: string(resp.Kind),
		}
	}
}

func runCommand(d Deps, text string) tea.Cmd {
	return func() tea.Msg {
		cmd, err := commands.Parse(text)
		if err != nil {
			return replyMsg{Err: err}
		}
		ctx, cancel := context.WithTimeout(context.Background(), d.Timeout)
		defer cancel()
		res, err := commands.Execute(cmd, handlers(ctx, d))
		if err != nil {
			return replyMsg{Err: err}
		}
		return replyMsg{Turn: Turn{Text: res.Message, Markdown: res.Markdown}, Status: fmt.Sprintf("/%s done", cmd.Type)}
	}
}

func (m *Model) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.width = width
	m.input.Width = width - 4
	m.transcript.Width = width - 4
	// header, borders, input, status and footer
	if h := height - 7; h > 3 {
		m.transcript.Height = h
	}
	m.refreshTranscript()
}

func (m *Model) refreshTranscript() {
	parts := make([]string, 0, len(m.Turns))
	for _, t := range m.Turns {
		body := t.Text
		if t.Markdown {
			body = views.RenderMarkdown(t.Text)
		}
		parts = append(parts, views.RenderTurn(t.FromUser, body))
	}
	m.transcript.SetContent(strings.Join(parts, "\n\n"))
	m.transcript.GotoBottom()
}

func (m Model) View() string {
	if m.Quitting {
		return ""
	}
	input := m.input.View()
	if m.Busy {
		input = m.spinner.View() + " " + input
	}
	header := fmt.Sprintf("phantom · %s · %s", m.deps.Owner, m.deps.Location)
	if m.deps.Planner != nil {
		header += "   " + views.RenderLegend(m.deps.Planner.Priorities())
	}
	return views.RenderChat(views.ChatData{
		Header:        header,
		Transcript:    m.transcript.View(),
		Input:         input,
		Status:        m.Status.Text,
		StatusIsError: m.Status.IsError,
		Footer:        "enter send · pgup/pgdown scroll · /help commands · esc quit",
	})
}
