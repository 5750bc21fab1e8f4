// Package calendar renders stored events as an iCalendar feed.
package calendar

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/sandeepkv93/phantom/internal/model"
)

const productID = "-//phantom//schedule export//EN"

// Export produces one VEVENT per event, ordered by start, with an
// X-PHANTOM-PRIORITY property for every category table knows. loc only names
// the calendar's display zone; instants are written in UTC.
func Export(events []model.Event, loc *time.Location, table model.PriorityTable) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName("phantom")
	if loc != nil {
		cal.SetXWRTimezone(loc.String())
	}

	sorted := append([]model.Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].Start.Before(sorted[j].Start)
	})

	for _, ev := range sorted {
		ve := cal.AddEvent(uid(ev))
		stamp := ev.UpdatedAt
		if stamp.IsZero() {
			stamp = ev.Start
		}
		ve.SetDtStampTime(stamp)
		if !ev.CreatedAt.IsZero() {
			ve.SetCreatedTime(ev.CreatedAt)
		}
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		ve.SetProperty(ical.ComponentPropertyCategories, string(ev.Category))
		if p, ok := table.Priority(ev.Category); ok {
			ve.SetProperty(ical.ComponentProperty("X-PHANTOM-PRIORITY"), strconv.Itoa(p))
		}
	}
	return cal.Serialize()
}

// WriteFile exports events to path, creating parent directories.
func WriteFile(path string, events []model.Event, loc *time.Location, table model.PriorityTable) error {
	if path == "" {
		return fmt.Errorf("calendar: empty export path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(Export(events, loc, table)), 0o644)
}

func uid(ev model.Event) string {
	return ev.ID + "@phantom"
}
