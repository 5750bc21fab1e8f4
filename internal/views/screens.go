package views

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/sandeepkv93/phantom/internal/model"
	"github.com/sandeepkv93/phantom/internal/planner"
)

// AgendaMarkdown lists events grouped by local day, one table per day.
func AgendaMarkdown(events []model.Event, loc *time.Location, title string) string {
	if loc == nil {
		loc = time.UTC
	}
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}
	if len(events) == 0 {
		b.WriteString("_Nothing scheduled._\n")
		return b.String()
	}

	sorted := append([]model.Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	day := ""
	for _, ev := range sorted {
		start := ev.Start.In(loc)
		if d := start.Format("Monday, Jan 2"); d != day {
			if day != "" {
				b.WriteString("\n")
			}
			day = d
			fmt.Fprintf(&b, "## %s\n\n| Time | Event | Category | ID |\n| --- | --- | --- | --- |\n", day)
		}
		flag := ""
		if !ev.Flexible {
			flag = " (fixed)"
		}
		fmt.Fprintf(&b, "| %s–%s | %s%s | %s | `%s` |\n",
			start.Format("15:04"), ev.End.In(loc).Format("15:04"), escapeCell(ev.Title), flag, ev.Category, shortID(ev.ID))
	}
	return b.String()
}

// ResponseMarkdown renders a planner response for the transcript.
func ResponseMarkdown(resp planner.Response, loc *time.Location) string {
	switch resp.Kind {
	case planner.KindQuery:
		return AgendaMarkdown(resp.Events, loc, "")
	case planner.KindClarify, planner.KindAmbiguous, planner.KindUnsupported:
		return "> " + resp.Message
	}

	var b strings.Builder
	section(&b, "Scheduled", resp.Created, loc)
	section(&b, "Moved", resp.Updated, loc)
	section(&b, "Removed", resp.Deleted, loc)
	if len(resp.Unresolved) > 0 {
		b.WriteString("**Still overlapping**\n\n")
		for _, c := range resp.Unresolved {
			fmt.Fprintf(&b, "- %s / %s: %s\n", c.A.Title, c.B.Title, c.Reason)
		}
		b.WriteString("\n")
	}
	for _, note := range resp.Notes {
		fmt.Fprintf(&b, "_%s_\n\n", note)
	}
	if b.Len() == 0 {
		return resp.Message
	}
	return strings.TrimSpace(b.String())
}

func section(b *strings.Builder, label string, events []model.Event, loc *time.Location) {
	if len(events) == 0 {
		return
	}
	fmt.Fprintf(b, "**%s**\n\n", label)
	for _, ev := range events {
		fmt.Fprintf(b, "- %s, %s, %s\n", ev.Title, ev.Category, ev.Start.In(loc).Format("Mon Jan 2 15:04"))
	}
	b.WriteString("\n")
}

// RenderLegend shows each category in its color, highest priority first.
func RenderLegend(table model.PriorityTable) string {
	parts := make([]string, 0)
	for _, info := range table.Infos() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(info.Color))
		parts = append(parts, style.Render(fmt.Sprintf("%s %d", info.Name, info.Priority)))
	}
	return strings.Join(parts, "  ")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
