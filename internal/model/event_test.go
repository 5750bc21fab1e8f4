package model

import (
	"errors"
	"testing"
	"time"
)

func validEvent() Event {
	start := time.Date(2026, 2, 9, 14, 0, 0, 0, time.UTC)
	return Event{
		OwnerID:  "owner-1",
		Title:    "Study session",
		Category: CategoryStudy,
		Start:    start,
		End:      start.Add(2 * time.Hour),
		Flexible: true,
	}
}

func TestEventValidateSuccess(t *testing.T) {
	if err := validEvent().Validate(); err != nil {
		t.Fatalf("expected valid event, got error: %v", err)
	}
}

func TestEventValidateRejectsEndNotAfterStart(t *testing.T) {
	ev := validEvent()
	ev.End = ev.Start
	err := ev.Validate()
	if !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}

	ev.End = ev.Start.Add(-time.Minute)
	if !errors.Is(ev.Validate(), ErrInvalidInterval) {
		t.Fatal("expected negative interval to be rejected")
	}
}

func TestEventValidateFieldErrors(t *testing.T) {
	ev := validEvent()
	ev.Title = "   "
	ev.OwnerID = ""
	ev.Category = Category("Chores")
	err := ev.Validate()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	for _, want := range []string{"ownerid", "category", "title"} {
		if !hasField(ve.Fields, want) {
			t.Fatalf("expected field error for %s, got %+v", want, ve.Fields)
		}
	}
}

func TestEventShiftKeepsDuration(t *testing.T) {
	ev := validEvent()
	moved := ev.Shift(ev.Start.Add(26 * time.Hour))
	if moved.Duration() != ev.Duration() {
		t.Fatalf("duration changed: %s -> %s", ev.Duration(), moved.Duration())
	}
	if moved.Category != ev.Category {
		t.Fatalf("category changed: %s -> %s", ev.Category, moved.Category)
	}
}

func TestIntervalOverlapExcludesTouching(t *testing.T) {
	base := time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC)
	a := Interval{Start: base, End: base.Add(time.Hour)}
	b := Interval{Start: base.Add(time.Hour), End: base.Add(2 * time.Hour)}
	if a.Overlaps(b) || b.Overlaps(a) {
		t.Fatal("touching intervals must not overlap")
	}
	c := Interval{Start: base.Add(30 * time.Minute), End: base.Add(90 * time.Minute)}
	if !a.Overlaps(c) || !c.Overlaps(a) {
		t.Fatal("expected overlap")
	}
}

func TestDefaultPriorityTableOrdering(t *testing.T) {
	table := DefaultPriorityTable()
	want := map[Category]int{CategoryExam: 5, CategoryStudy: 4, CategoryGym: 3, CategorySocial: 2, CategoryGaming: 1}
	for c, p := range want {
		got, ok := table.Priority(c)
		if !ok || got != p {
			t.Fatalf("priority(%s) = %d,%v want %d", c, got, ok, p)
		}
	}
	if _, ok := table.Priority(Category("Chores")); ok {
		t.Fatal("expected unknown category lookup to fail")
	}
	infos := table.Infos()
	if len(infos) != 5 || infos[0].Name != CategoryExam || infos[4].Name != CategoryGaming {
		t.Fatalf("unexpected info ordering: %+v", infos)
	}
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" gym ")
	if err != nil || c != CategoryGym {
		t.Fatalf("parse gym: %v %v", c, err)
	}
	if _, err := ParseCategory("chores"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}

func TestIsRecoverable(t *testing.T) {
	if !IsRecoverable(&ParseError{Input: "x"}) || !IsRecoverable(ErrAmbiguous) {
		t.Fatal("parse and ambiguous errors are recoverable")
	}
	if IsRecoverable(&StoreFailure{Op: "apply", Err: errors.New("disk full")}) {
		t.Fatal("store failures are not recoverable")
	}
}
