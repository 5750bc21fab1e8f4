// Package update is the bubbletea chat front end: free text goes to the
// planner, slash commands to the commands package.
package update

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/sandeepkv93/phantom/internal/metrics"
	"github.com/sandeepkv93/phantom/internal/model"
	"github.com/sandeepkv93/phantom/internal/planner"
	"github.com/sandeepkv93/phantom/internal/storage"
)

const defaultTimeout = 30 * time.Second

// Backend is the planner surface the front end drives.
type Backend interface {
	HandleUtterance(ctx context.Context, text, owner string, ref time.Time) (planner.Response, error)
	Optimize(ctx context.Context, owner string, from, to time.Time) (planner.Result, error)
	Agenda(ctx context.Context, owner string, from, to time.Time) ([]model.Event, error)
	DeleteEvent(ctx context.Context, owner, id string) error
	Priorities() model.PriorityTable
}

type HistoryReader interface {
	ListConversations(ctx context.Context, filter storage.ConversationListFilter) ([]storage.ConversationTurn, error)
}

type Deps struct {
	Planner Backend
	// History and Metrics are optional; their commands report a missing
	// handler when unset.
	History  HistoryReader
	Metrics  *metrics.Recorder
	Owner    string
	Location *time.Location
	Clock    func() time.Time
	Timeout  time.Duration
}

type StatusBar struct {
	Text    string
	IsError bool
}

// Turn is one transcript entry.
type Turn struct {
	FromUser bool
	Text     string
	Markdown bool
}

type Model struct {
	Turns     []Turn
	Status    StatusBar
	Busy      bool
	Quitting  bool
	LastError error

	deps       Deps
	input      textinput.Model
	transcript viewport.Model
	spinner    spinner.Model
	width      int
}

func NewModel(deps Deps) Model {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Timeout <= 0 {
		deps.Timeout = defaultTimeout
	}

	in := textinput.New()
	in.Placeholder = "gym tomorrow at 6pm, or /help"
	in.Prompt = "> "
	in.CharLimit = 500
	in.Width = 76
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		deps:       deps,
		input:      in,
		transcript: viewport.New(80, 18),
		spinner:    sp,
		width:      80,
		Status:     StatusBar{Text: "ready"},
	}
	m.Turns = append(m.Turns, Turn{Text: "Tell me what to schedule. Type /help for commands."})
	m.refreshTranscript()
	return m
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

// replyMsg carries the result of a request handled off the update loop.
type replyMsg struct {
	Turn   Turn
	Status string
	Err    error
}
