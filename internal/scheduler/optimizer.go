package scheduler

import (
	"fmt"

	"github.com/sandeepkv93/phantom/internal/model"
)

const DefaultMaxIterations = 10

const (
	ActionCreate     = "create"
	ActionReschedule = "reschedule"
	ActionDelete     = "delete"
	ActionUnresolved = "unresolved"
)

// AuditEntry records one change the optimizer decided on. Before is nil for
// creations and After is nil for deletions.
type AuditEntry struct {
	Actor   string
	Action  string
	EventID string
	Before  *model.Event
	After   *model.Event
	Reason  string
}

// Plan is the set of mutations that makes a schedule conflict-free, plus the
// pairs that could not be settled. Nothing in a Plan has been applied yet.
type Plan struct {
	Created    []model.Event
	Updated    []model.Event
	Deleted    []model.Event
	Unresolved []model.Conflict
	Audit      []AuditEntry
	Iterations int
}

// HasChanges reports whether applying the plan would mutate the store.
func (p Plan) HasChanges() bool {
	return len(p.Created) > 0 || len(p.Updated) > 0 || len(p.Deleted) > 0
}

type Optimizer struct {
	Resolver      Resolver
	MaxIterations int
	Actor         string
}

func NewOptimizer(r Resolver) Optimizer {
	return Optimizer{Resolver: r, MaxIterations: DefaultMaxIterations, Actor: "optimizer"}
}

// Optimize merges drafts into existing and repeatedly detects and resolves
// overlaps until none can be settled further or MaxIterations passes ran.
// Drafts without an ID are given a temporary "draft-N" one. Drafts are never
// deleted; a draft that would be removed stays and its pair is reported as
// unresolved.
func (o Optimizer) Optimize(existing, drafts []model.Event) Plan {
	maxIter := o.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	actor := o.Actor
	if actor == "" {
		actor = "optimizer"
	}

	working := make([]model.Event, 0, len(existing)+len(drafts))
	original := make(map[string]model.Event, len(existing))
	isDraft := make(map[string]bool, len(drafts))
	draftOrder := make([]string, 0, len(drafts))
	for _, ev := range existing {
		working = append(working, ev)
		original[ev.ID] = ev
	}
	for i, ev := range drafts {
		if ev.ID == "" {
			ev.ID = fmt.Sprintf("draft-%d", i+1)
		}
		working = append(working, ev)
		isDraft[ev.ID] = true
		draftOrder = append(draftOrder, ev.ID)
	}

	var plan Plan
	var moves []AuditEntry
	reasons := make(map[string]string)
	deleted := make([]model.Event, 0)

	for iter := 0; iter < maxIter; iter++ {
		pairs := FindOverlaps(working)
		if len(pairs) == 0 {
			break
		}
		plan.Iterations++

		touched := make(map[string]bool)
		changed := false
		for _, p := range pairs {
			if touched[p.A.ID] || touched[p.B.ID] {
				continue
			}
			out := o.Resolver.Resolve(p, working)
			switch out.Kind {
			case Reschedule:
				before := out.Loser
				after := out.Loser.Shift(out.NewSlot.Start)
				working = replaceEvent(working, after)
				touched[after.ID] = true
				changed = true
				moves = append(moves, AuditEntry{
					Actor:   actor,
					Action:  ActionReschedule,
					EventID: after.ID,
					Before:  &before,
					After:   &after,
					Reason:  fmt.Sprintf("conflicts with %s %q", out.Winner.Category, out.Winner.Title),
				})
			case Delete:
				if isDraft[out.Loser.ID] {
					reasons[pairKey(p)] = "new event would be removed: " + out.Reason
					continue
				}
				loser := out.Loser
				working = removeEvent(working, loser.ID)
				touched[loser.ID] = true
				changed = true
				deleted = append(deleted, original[loser.ID])
				moves = append(moves, AuditEntry{
					Actor:   actor,
					Action:  ActionDelete,
					EventID: loser.ID,
					Before:  &loser,
					Reason:  out.Reason,
				})
			case Impossible:
				reasons[pairKey(p)] = out.Reason
			}
		}
		if !changed {
			break
		}
	}

	for _, p := range FindOverlaps(working) {
		reason, ok := reasons[pairKey(p)]
		if !ok {
			reason = "iteration limit reached"
		}
		plan.Unresolved = append(plan.Unresolved, model.Conflict{A: p.A, B: p.B, Reason: reason})
		moves = append(moves, AuditEntry{Actor: actor, Action: ActionUnresolved, EventID: p.B.ID, Reason: reason})
	}

	current := make(map[string]model.Event, len(working))
	for _, ev := range working {
		current[ev.ID] = ev
	}
	for _, id := range draftOrder {
		ev := current[id]
		plan.Created = append(plan.Created, ev)
		plan.Audit = append(plan.Audit, AuditEntry{Actor: actor, Action: ActionCreate, EventID: id, After: &ev})
	}
	for _, ev := range existing {
		now, ok := current[ev.ID]
		if ok && !now.Start.Equal(ev.Start) {
			plan.Updated = append(plan.Updated, now)
		}
	}
	plan.Deleted = deleted
	plan.Audit = append(plan.Audit, moves...)
	return plan
}

func pairKey(p Pair) string {
	a, b := p.A.ID, p.B.ID
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

func replaceEvent(events []model.Event, ev model.Event) []model.Event {
	for i := range events {
		if events[i].ID == ev.ID {
			events[i] = ev
			break
		}
	}
	return events
}

func removeEvent(events []model.Event, id string) []model.Event {
	out := events[:0]
	for _, ev := range events {
		if ev.ID != id {
			out = append(out, ev)
		}
	}
	return out
}
