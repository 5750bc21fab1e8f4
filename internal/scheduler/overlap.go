// Package scheduler detects overlapping events and settles them by category
// priority. Everything here is synchronous and deterministic: the reference
// time is always passed in.
package scheduler

import (
	"container/heap"
	"sort"

	"github.com/sandeepkv93/phantom/internal/model"
)

// Pair is two overlapping events. A never starts after B.
type Pair struct {
	A model.Event
	B model.Event
}

type openItem struct {
	event model.Event
}

// openQueue is a min-heap of the intervals still open during the sweep,
// ordered by end time.
type openQueue []openItem

func (q openQueue) Len() int { return len(q) }

func (q openQueue) Less(i, j int) bool {
	return q[i].event.End.Before(q[j].event.End)
}

func (q openQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
}

func (q *openQueue) Push(x any) {
	*q = append(*q, x.(openItem))
}

func (q *openQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[0 : n-1]
	return item
}

// FindOverlaps reports every overlapping unordered pair exactly once. Events
// that only touch (one ends when the other starts) do not overlap. The input
// is not modified.
func FindOverlaps(events []model.Event) []Pair {
	sorted := sortedByStart(events)
	open := make(openQueue, 0)
	heap.Init(&open)

	pairs := make([]Pair, 0)
	for _, ev := range sorted {
		for open.Len() > 0 && !open[0].event.End.After(ev.Start) {
			heap.Pop(&open)
		}
		active := make([]model.Event, 0, open.Len())
		for _, item := range open {
			active = append(active, item.event)
		}
		sortEvents(active)
		for _, other := range active {
			if other.Overlaps(ev) {
				pairs = append(pairs, Pair{A: other, B: ev})
			}
		}
		heap.Push(&open, openItem{event: ev})
	}
	return pairs
}

func sortedByStart(events []model.Event) []model.Event {
	out := make([]model.Event, len(events))
	copy(out, events)
	sortEvents(out)
	return out
}

func sortEvents(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		return events[i].ID < events[j].ID
	})
}
