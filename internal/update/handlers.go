package update

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/phantom/internal/calendar"
	"github.com/sandeepkv93/phantom/internal/commands"
	"github.com/sandeepkv93/phantom/internal/model"
	"github.com/sandeepkv93/phantom/internal/storage"
	"github.com/sandeepkv93/phantom/internal/views"
)

func handlers(ctx context.Context, d Deps) commands.Handlers {
	h := commands.Handlers{
		Optimize: func(a commands.RangeArgs) (commands.Result, error) {
			from, to := dayRange(d, a.Days)
			res, err := d.Planner.Optimize(ctx, d.Owner, from, to)
			var impossible *model.ImpossibleScheduleError
			if errors.As(err, &impossible) {
				lines := []string{"Nothing could be changed. These still overlap:"}
				for _, c := range impossible.Conflicts {
					lines = append(lines, fmt.Sprintf("- %s / %s: %s", c.A.Title, c.B.Title, c.Reason))
				}
				return commands.Result{Message: strings.Join(lines, "\n"), Markdown: true}, nil
			}
			if err != nil {
				return commands.Result{}, err
			}
			if len(res.Updated) == 0 && len(res.Deleted) == 0 {
				return commands.Result{Message: fmt.Sprintf("No overlaps in the next %d day(s).", a.Days)}, nil
			}
			return commands.Result{Message: fmt.Sprintf("Moved %d, removed %d, %d still overlapping.",
				len(res.Updated), len(res.Deleted), len(res.Unresolved))}, nil
		},
		Agenda: func(a commands.RangeArgs) (commands.Result, error) {
			from, to := dayRange(d, a.Days)
			events, err := d.Planner.Agenda(ctx, d.Owner, from, to)
			if err != nil {
				return commands.Result{}, err
			}
			title := fmt.Sprintf("Next %d day(s)", a.Days)
			return commands.Result{Message: views.AgendaMarkdown(events, d.Location, title), Markdown: true}, nil
		},
		Delete: func(a commands.DeleteArgs) (commands.Result, error) {
			err := d.Planner.DeleteEvent(ctx, d.Owner, a.ID)
			if errors.Is(err, storage.ErrNotFound) {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: "no event with id " + a.ID}
			}
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: "Removed event " + a.ID + "."}, nil
		},
		Export: func(a commands.ExportArgs) (commands.Result, error) {
			from, to := dayRange(d, a.Days)
			events, err := d.Planner.Agenda(ctx, d.Owner, from, to)
			if err != nil {
				return commands.Result{}, err
			}
			if err := calendar.WriteFile(a.Path, events, d.Location, d.Planner.Priorities()); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("Wrote %d event(s) to %s.", len(events), a.Path)}, nil
		},
	}
	if d.History != nil {
		h.History = func(a commands.HistoryArgs) (commands.Result, error) {
			turns, err := d.History.ListConversations(ctx, storage.ConversationListFilter{OwnerID: d.Owner, Limit: a.Limit})
			if err != nil {
				return commands.Result{}, err
			}
			if len(turns) == 0 {
				return commands.Result{Message: "No requests yet."}, nil
			}
			lines := make([]string, 0, len(turns))
			for i := len(turns) - 1; i >= 0; i-- {
				t := turns[i]
				lines = append(lines, fmt.Sprintf("- %s `%s` %s", t.CreatedAt.In(d.Location).Format("Jan 2 15:04"), t.Kind, t.Message))
			}
			return commands.Result{Message: strings.Join(lines, "\n"), Markdown: true}, nil
		}
	}
	if d.Metrics != nil {
		h.Stats = func() (commands.Result, error) {
			samples, err := d.Metrics.Snapshot()
			if err != nil {
				return commands.Result{}, err
			}
			lines := make([]string, 0, len(samples))
			for _, s := range samples {
				lines = append(lines, fmt.Sprintf("%-48s %g", s.Name, s.Value))
			}
			return commands.Result{Message: strings.Join(lines, "\n")}, nil
		}
	}
	return h
}

// dayRange is [start of today, start of today + days) in the owner's zone.
func dayRange(d Deps, days int) (time.Time, time.Time) {
	now := d.Clock().In(d.Location)
	y, m, day := now.Date()
	from := time.Date(y, m, day, 0, 0, 0, 0, d.Location)
	return from, from.AddDate(0, 0, days)
}
