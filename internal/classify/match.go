package classify

import (
	"sort"

	"github.com/sandeepkv93/phantom/internal/model"
)

const (
	DefaultLookback = 20
	DefaultMatchCap = 3
)

type MatchOptions struct {
	Lookback int
	Cap      int
}

func (o MatchOptions) normalized() MatchOptions {
	if o.Lookback <= 0 {
		o.Lookback = DefaultLookback
	}
	if o.Cap <= 0 {
		o.Cap = DefaultMatchCap
	}
	return o
}

// Match lists the events a delete request most likely refers to. When
// NeedsDetail is set the caller should ask the user to be more specific.
type Match struct {
	Events      []model.Event
	Score       int
	ByCategory  bool
	NeedsDetail bool
}

// MatchForDeletion scores the most recent events against the content words of
// text. Words longer than four characters weigh 2, the rest 1. Only events at
// the top score are returned, at most opts.Cap of them. When no title scores,
// events of the category named in text are returned instead.
func (c *Classifier) MatchForDeletion(text string, recent []model.Event, opts MatchOptions) Match {
	opts = opts.normalized()
	pool := mostRecent(recent, opts.Lookback)
	words := c.contentWords(text)

	best := 0
	var top []model.Event
	for _, ev := range pool {
		score := scoreTitle(words, c.titleWords(ev.Title))
		switch {
		case score == 0:
		case score > best:
			best = score
			top = []model.Event{ev}
		case score == best:
			top = append(top, ev)
		}
	}
	if len(top) > 0 {
		return Match{Events: capEvents(top, opts.Cap), Score: best}
	}

	if cat := c.Category(text); cat != "" {
		var same []model.Event
		for _, ev := range pool {
			if ev.Category == cat {
				same = append(same, ev)
			}
		}
		if len(same) > 0 {
			return Match{Events: capEvents(same, opts.Cap), ByCategory: true}
		}
	}
	return Match{NeedsDetail: true}
}

func (c *Classifier) titleWords(title string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range c.contentWords(title) {
		set[w] = true
	}
	return set
}

func scoreTitle(words []string, title map[string]bool) int {
	score := 0
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		if seen[w] || !title[w] {
			continue
		}
		seen[w] = true
		if len(w) > 4 {
			score += 2
		} else {
			score++
		}
	}
	return score
}

// mostRecent returns up to n events ordered by start time, newest first.
func mostRecent(events []model.Event, n int) []model.Event {
	out := make([]model.Event, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.After(out[j].Start) })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func capEvents(events []model.Event, n int) []model.Event {
	if len(events) > n {
		return events[:n]
	}
	return events
}
