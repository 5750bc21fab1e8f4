package calendar

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/sandeepkv93/phantom/internal/model"
)

func sampleEvents(t *testing.T) []model.Event {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Dhaka")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	start := time.Date(2026, 5, 8, 9, 0, 0, 0, loc)
	return []model.Event{
		{ID: "b", Title: "Gym", Category: model.CategoryGym, Start: start.Add(10 * time.Hour), End: start.Add(11 * time.Hour)},
		{ID: "a", Title: "Physics exam", Description: "Room 4", Category: model.CategoryExam, Start: start, End: start.Add(2 * time.Hour)},
	}
}

func TestExportProducesParsableFeed(t *testing.T) {
	events := sampleEvents(t)
	out := Export(events, events[0].Start.Location(), model.DefaultPriorityTable())

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	if err != nil {
		t.Fatalf("parse exported calendar: %v", err)
	}
	vevents := cal.Events()
	if len(vevents) != 2 {
		t.Fatalf("expected 2 events, got %d", len(vevents))
	}
	first := vevents[0]
	if got := first.GetProperty(ical.ComponentPropertyUniqueId).Value; got != "a@phantom" {
		t.Fatalf("expected events ordered by start, first uid %q", got)
	}
	if got := first.GetProperty(ical.ComponentPropertyCategories).Value; got != "Exam" {
		t.Fatalf("unexpected category %q", got)
	}
	if got := first.GetProperty(ical.ComponentProperty("X-PHANTOM-PRIORITY")).Value; got != "5" {
		t.Fatalf("unexpected priority %q", got)
	}
	start, err := first.GetStartAt()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !start.Equal(events[1].Start) {
		t.Fatalf("start mismatch: %s vs %s", start, events[1].Start)
	}
	if !strings.Contains(out, "X-WR-TIMEZONE:Asia/Dhaka") {
		t.Fatalf("expected calendar timezone in output:\n%s", out)
	}
}

func TestExportWithoutTableOmitsPriority(t *testing.T) {
	out := Export(sampleEvents(t), nil, model.PriorityTable{})
	if strings.Contains(out, "X-PHANTOM-PRIORITY") {
		t.Fatalf("did not expect priorities:\n%s", out)
	}
	if strings.Count(out, "BEGIN:VEVENT") != 2 {
		t.Fatalf("expected two events:\n%s", out)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "phantom.ics")
	if err := WriteFile(path, sampleEvents(t), time.UTC, model.DefaultPriorityTable()); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(raw), "BEGIN:VCALENDAR") {
		t.Fatalf("unexpected file contents: %q", raw[:20])
	}
	if err := WriteFile("", nil, time.UTC, model.PriorityTable{}); err == nil {
		t.Fatal("expected empty path error")
	}
}
