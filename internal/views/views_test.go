package views

import (
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/phantom/internal/model"
	"github.com/sandeepkv93/phantom/internal/planner"
)

func TestAgendaMarkdownGroupsByLocalDay(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Dhaka")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	// 19:00 UTC on May 4 is already May 5 in Dhaka.
	late := time.Date(2026, 5, 4, 19, 0, 0, 0, time.UTC)
	early := time.Date(2026, 5, 4, 3, 0, 0, 0, time.UTC)
	events := []model.Event{
		{ID: "0123456789abcdef", Title: "Gym | legs", Category: model.CategoryGym, Start: late, End: late.Add(time.Hour), Flexible: true},
		{ID: "x", Title: "Exam", Category: model.CategoryExam, Start: early, End: early.Add(2 * time.Hour)},
	}
	md := AgendaMarkdown(events, loc, "Agenda")

	first := strings.Index(md, "## Monday, May 4")
	second := strings.Index(md, "## Tuesday, May 5")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("unexpected day grouping:\n%s", md)
	}
	if !strings.Contains(md, "| 09:00–11:00 | Exam (fixed) | Exam | `x` |") {
		t.Fatalf("missing exam row:\n%s", md)
	}
	if !strings.Contains(md, `Gym \| legs`) || !strings.Contains(md, "`01234567`") {
		t.Fatalf("expected escaped title and short id:\n%s", md)
	}
}

func TestAgendaMarkdownEmpty(t *testing.T) {
	if md := AgendaMarkdown(nil, nil, ""); !strings.Contains(md, "Nothing scheduled") {
		t.Fatalf("unexpected empty agenda: %q", md)
	}
}

func TestResponseMarkdown(t *testing.T) {
	start := time.Date(2026, 5, 5, 18, 0, 0, 0, time.UTC)
	gym := model.Event{Title: "Gym", Category: model.CategoryGym, Start: start, End: start.Add(time.Hour)}
	resp := planner.Response{
		Kind:       planner.KindCreated,
		Created:    []model.Event{gym},
		Unresolved: []model.Conflict{{A: gym, B: gym, Reason: "equal priority"}},
		Notes:      []string{"Only 1 of 3 study sessions fit before Physics exam."},
	}
	md := ResponseMarkdown(resp, time.UTC)
	if !strings.Contains(md, "**Scheduled**") || !strings.Contains(md, "Tue May 5 18:00") || !strings.Contains(md, "equal priority") {
		t.Fatalf("unexpected response markdown:\n%s", md)
	}
	if !strings.Contains(md, "_Only 1 of 3 study sessions fit before Physics exam._") {
		t.Fatalf("unexpected response markdown:\n%s", md)
	}

	clarify := ResponseMarkdown(planner.Response{Kind: planner.KindClarify, Message: "When?"}, time.UTC)
	if clarify != "> When?" {
		t.Fatalf("unexpected clarification: %q", clarify)
	}
}

func TestRenderChatAndMarkdown(t *testing.T) {
	out := RenderChat(ChatData{Header: "phantom", Transcript: "hello", Input: "> ", Status: "failed", StatusIsError: true, Footer: "esc quit"})
	for _, want := range []string{"phantom", "hello", "failed", "esc quit"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in chat view:\n%s", want, out)
		}
	}
	if RenderMarkdown("  ") != "" {
		t.Fatal("expected blank markdown to render empty")
	}
	if !strings.Contains(RenderMarkdown("**Study** session"), "Study") {
		t.Fatal("expected rendered markdown to keep text")
	}
	if legend := RenderLegend(model.DefaultPriorityTable()); !strings.Contains(legend, "Exam 5") || !strings.Contains(legend, "Gaming 1") {
		t.Fatalf("unexpected legend: %q", legend)
	}
}
