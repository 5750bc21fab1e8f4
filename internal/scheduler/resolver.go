package scheduler

import (
	"fmt"
	"time"

	"github.com/sandeepkv93/phantom/internal/model"
)

const (
	DefaultStep       = 30 * time.Minute
	DefaultHorizon    = 7 * 24 * time.Hour
	DefaultExamWindow = 48 * time.Hour
)

type OutcomeKind int

const (
	KeepBoth OutcomeKind = iota
	Reschedule
	Delete
	Impossible
)

func (k OutcomeKind) String() string {
	switch k {
	case KeepBoth:
		return "keep_both"
	case Reschedule:
		return "reschedule"
	case Delete:
		return "delete"
	case Impossible:
		return "impossible"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the decision for one conflicting pair. NewSlot is only set for
// Reschedule; Reason is set for Delete and Impossible.
type Outcome struct {
	Kind    OutcomeKind
	Winner  model.Event
	Loser   model.Event
	NewSlot model.Interval
	Reason  string
}

// Resolver settles a conflicting pair by category priority. The zero value of
// Horizon means a window of DefaultHorizon on each side of the loser.
type Resolver struct {
	Priorities model.PriorityTable
	Horizon    model.Interval
	Step       time.Duration
	Now        time.Time
	ExamWindow time.Duration
}

func NewResolver(priorities model.PriorityTable, now time.Time, horizon model.Interval) Resolver {
	return Resolver{
		Priorities: priorities,
		Horizon:    horizon,
		Step:       DefaultStep,
		Now:        now,
		ExamWindow: DefaultExamWindow,
	}
}

func (r Resolver) Resolve(p Pair, schedule []model.Event) Outcome {
	if !p.A.Overlaps(p.B) {
		return Outcome{Kind: KeepBoth, Winner: p.A, Loser: p.B}
	}

	pa, _ := r.Priorities.Priority(p.A.Category)
	pb, _ := r.Priorities.Priority(p.B.Category)

	var winner, loser model.Event
	switch {
	case pa > pb:
		winner, loser = p.A, p.B
	case pb > pa:
		winner, loser = p.B, p.A
	case p.A.Flexible && !p.B.Flexible:
		winner, loser = p.B, p.A
	case p.B.Flexible && !p.A.Flexible:
		winner, loser = p.A, p.B
	case p.A.Flexible && p.B.Flexible:
		winner, loser = p.A, p.B
		if startsFirst(p.B, p.A) {
			winner, loser = p.B, p.A
		}
	default:
		return Outcome{
			Kind:   Impossible,
			Winner: p.A,
			Loser:  p.B,
			Reason: fmt.Sprintf("%s and %s have equal priority", p.A.Category, p.B.Category),
		}
	}

	if loser.Flexible {
		if slot, ok := r.findSlot(loser, schedule); ok {
			return Outcome{Kind: Reschedule, Winner: winner, Loser: loser, NewSlot: slot}
		}
	}

	lp, _ := r.Priorities.Priority(loser.Category)
	study, _ := r.Priorities.Priority(model.CategoryStudy)
	if lp < study {
		if exam, ok := r.examNear(loser, schedule); ok {
			return Outcome{
				Kind:   Delete,
				Winner: winner,
				Loser:  loser,
				Reason: fmt.Sprintf("%q is within %.0fh of exam %q", loser.Title, r.examWindow().Hours(), exam.Title),
			}
		}
	}

	reason := fmt.Sprintf("no free slot for %q", loser.Title)
	if !loser.Flexible {
		reason = fmt.Sprintf("%q is not flexible", loser.Title)
	}
	return Outcome{Kind: Impossible, Winner: winner, Loser: loser, Reason: reason}
}

// findSlot searches for the nearest free start for ev. Whole-day moves that
// keep the time of day are tried first, then every Step offset ordered by
// distance, later before earlier on ties.
func (r Resolver) findSlot(ev model.Event, schedule []model.Event) (model.Interval, bool) {
	window := r.window(ev)
	others := make([]model.Event, 0, len(schedule))
	for _, other := range schedule {
		if !sameEvent(other, ev) {
			others = append(others, other)
		}
	}

	span := window.Duration()
	for _, start := range r.candidates(ev.Start, span) {
		slot := model.Interval{Start: start, End: start.Add(ev.Duration())}
		if r.fits(slot, window, others) {
			return slot, true
		}
	}
	return model.Interval{}, false
}

func (r Resolver) candidates(origin time.Time, span time.Duration) []time.Time {
	out := make([]time.Time, 0)
	for d := 1; time.Duration(d)*24*time.Hour <= span; d++ {
		out = append(out, origin.AddDate(0, 0, d), origin.AddDate(0, 0, -d))
	}

	step := r.Step
	if step <= 0 {
		step = DefaultStep
	}
	offsets := make([]time.Duration, 0)
	for off := step; off <= span; off += step {
		if off%(24*time.Hour) == 0 {
			continue
		}
		offsets = append(offsets, off)
	}
	for _, off := range offsets {
		out = append(out, origin.Add(off), origin.Add(-off))
	}
	return out
}

func (r Resolver) fits(slot, window model.Interval, others []model.Event) bool {
	if slot.Start.Before(window.Start) || slot.End.After(window.End) {
		return false
	}
	if !r.Now.IsZero() && slot.Start.Before(r.Now) {
		return false
	}
	for _, other := range others {
		if slot.Overlaps(other.Interval()) {
			return false
		}
	}
	return true
}

func (r Resolver) window(ev model.Event) model.Interval {
	if !r.Horizon.Start.IsZero() && r.Horizon.End.After(r.Horizon.Start) {
		return r.Horizon
	}
	return model.Interval{Start: ev.Start.Add(-DefaultHorizon), End: ev.End.Add(DefaultHorizon)}
}

func (r Resolver) examNear(ev model.Event, schedule []model.Event) (model.Event, bool) {
	limit := r.examWindow()
	for _, other := range schedule {
		if other.Category != model.CategoryExam || sameEvent(other, ev) {
			continue
		}
		gap := other.Start.Sub(ev.Start)
		if gap < 0 {
			gap = -gap
		}
		if gap <= limit {
			return other, true
		}
	}
	return model.Event{}, false
}

func (r Resolver) examWindow() time.Duration {
	if r.ExamWindow <= 0 {
		return DefaultExamWindow
	}
	return r.ExamWindow
}

// startsFirst orders equal-priority events by start, then by ID.
func startsFirst(a, b model.Event) bool {
	if !a.Start.Equal(b.Start) {
		return a.Start.Before(b.Start)
	}
	return a.ID < b.ID
}

func sameEvent(a, b model.Event) bool {
	if a.ID != "" || b.ID != "" {
		return a.ID == b.ID
	}
	return a.Title == b.Title && a.Category == b.Category && a.Start.Equal(b.Start) && a.End.Equal(b.End)
}
