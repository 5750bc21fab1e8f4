// Package temporal turns free-text time expressions into concrete intervals
// in the user's timezone.
//
// The reference instant is always converted into the user's location before
// any day arithmetic, and every interval is built from local wall-clock
// components with time.Date. Nothing in this package reads the system clock.
package temporal

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/phantom/internal/model"
)

type Interpreter struct {
	grammar Grammar

	clockRe      *regexp.Regexp
	standaloneRe *regexp.Regexp
	hoursRe      *regexp.Regexp
	minutesRe    *regexp.Regexp
	todayRe      *regexp.Regexp
	tonightRe    *regexp.Regexp
	tomorrowRe   *regexp.Regexp
	nextDayRe    *regexp.Regexp
	thisDayRe    *regexp.Regexp
	rangeRe      *regexp.Regexp
	weekdayRe    *regexp.Regexp
	dayNameRe    *regexp.Regexp
	inDaysRe     *regexp.Regexp
	inWeeksRe    *regexp.Regexp
	nextWeekRe   *regexp.Regexp
	nowRe        *regexp.Regexp
}

func NewInterpreter(g Grammar) *Interpreter {
	if g.DefaultDuration <= 0 {
		g.DefaultDuration = time.Hour
	}
	days := g.weekdayAlternation(false)
	full := g.weekdayAlternation(true)
	// A bare day is a full name or any alias introduced by "on".
	bare := `(?:on\s+(?:` + days + `)|(?:` + full + `))`
	return &Interpreter{
		grammar: g,
		// Clock times need an explicit meridiem so "30 minute" is never an hour.
		clockRe:      regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`),
		standaloneRe: regexp.MustCompile(`(?:\bat\s+)?\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`),
		hoursRe:      regexp.MustCompile(`(?:\bfor\s+)?\b(\d+(?:\.\d+)?)\s*(?:hours|hour|hrs|hr)\b`),
		minutesRe:    regexp.MustCompile(`(?:\bfor\s+)?\b(\d+)\s*(?:minutes|minute|mins|min)\b`),
		todayRe:      regexp.MustCompile(`\btoday\b`),
		tonightRe:    regexp.MustCompile(`\btonight\b`),
		tomorrowRe:   regexp.MustCompile(`\btomorrow\b`),
		nextDayRe:    regexp.MustCompile(`\bnext\s+(` + days + `)\b`),
		thisDayRe:    regexp.MustCompile(`\bthis\s+(` + days + `)\b`),
		rangeRe:      regexp.MustCompile(`\b` + bare + `(?:\s*,\s*(?:` + days + `))*\s*,?\s+and\s+(?:` + days + `)\b`),
		weekdayRe:    regexp.MustCompile(`\b(?:on\s+(` + days + `)|(` + full + `))\b`),
		dayNameRe:    regexp.MustCompile(`\b(` + days + `)\b`),
		inDaysRe:     regexp.MustCompile(`\bin\s+(\d+)\s+days?\b`),
		inWeeksRe:    regexp.MustCompile(`\bin\s+(\d+)\s+weeks?\b`),
		nextWeekRe:   regexp.MustCompile(`\bnext\s+week\b`),
		nowRe:        regexp.MustCompile(`\b(?:right\s+now|now)\b`),
	}
}

func Default() *Interpreter { return NewInterpreter(DefaultGrammar()) }

// WithDefaultDuration returns a copy that falls back to d when the text
// carries no duration phrase.
func (in *Interpreter) WithDefaultDuration(d time.Duration) *Interpreter {
	if d <= 0 || d == in.grammar.DefaultDuration {
		return in
	}
	cp := *in
	cp.grammar.DefaultDuration = d
	return &cp
}

// Interpret resolves text against ref in loc. Patterns are tried in a fixed
// order and the first match wins.
func (in *Interpreter) Interpret(text string, ref time.Time, loc *time.Location) ([]model.Interval, error) {
	if loc == nil {
		loc = time.UTC
	}
	lower := strings.ToLower(text)
	local := ref.In(loc)
	duration := in.Duration(lower)

	starts, ok := in.anchored(lower, local, loc)
	if !ok {
		starts, ok = in.standalone(lower, local, loc)
	}
	if !ok && in.nowRe.MatchString(lower) {
		starts, ok = []time.Time{local.Truncate(time.Minute)}, true
	}
	if !ok {
		return nil, &model.ParseError{Input: text}
	}

	out := make([]model.Interval, 0, len(starts))
	for _, start := range starts {
		out = append(out, model.Interval{Start: start, End: start.Add(duration)})
	}
	return out, nil
}

// Duration extracts an explicit duration phrase, or the grammar default.
func (in *Interpreter) Duration(lower string) time.Duration {
	if m := in.hoursRe.FindStringSubmatch(lower); m != nil {
		hours, err := strconv.ParseFloat(m[1], 64)
		if err == nil && hours > 0 {
			return time.Duration(math.Round(hours*60)) * time.Minute
		}
	}
	if m := in.minutesRe.FindStringSubmatch(lower); m != nil {
		minutes, err := strconv.Atoi(m[1])
		if err == nil && minutes > 0 {
			return time.Duration(minutes) * time.Minute
		}
	}
	return in.grammar.DefaultDuration
}

func (in *Interpreter) anchored(lower string, local time.Time, loc *time.Location) ([]time.Time, bool) {
	switch {
	case in.todayRe.MatchString(lower):
		return one(at(local, 0, in.clockFor(lower), loc))
	case in.tonightRe.MatchString(lower):
		clock := in.clockFor(lower)
		if clock.Hour < in.grammar.EveningFrom {
			clock = in.grammar.TonightClock
		}
		return one(at(local, 0, clock, loc))
	case in.tomorrowRe.MatchString(lower):
		return one(at(local, 1, in.clockFor(lower), loc))
	}
	if m := in.nextDayRe.FindStringSubmatch(lower); m != nil {
		return one(at(local, daysUntil(local.Weekday(), in.grammar.Weekdays[m[1]], false), in.clockFor(lower), loc))
	}
	if m := in.thisDayRe.FindStringSubmatch(lower); m != nil {
		return one(at(local, daysUntil(local.Weekday(), in.grammar.Weekdays[m[1]], true), in.clockFor(lower), loc))
	}
	if starts, ok := in.multiDay(lower, local, loc); ok {
		return starts, true
	}
	if m := in.weekdayRe.FindStringSubmatch(lower); m != nil {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		return one(at(local, daysUntil(local.Weekday(), in.grammar.Weekdays[name], false), in.clockFor(lower), loc))
	}
	if m := in.inDaysRe.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		return one(at(local, n, in.clockFor(lower), loc))
	}
	if m := in.inWeeksRe.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		return one(at(local, 7*n, in.clockFor(lower), loc))
	}
	if in.nextWeekRe.MatchString(lower) {
		return one(at(local, 7, in.clockFor(lower), loc))
	}
	return nil, false
}

// multiDay expands "wednesday and thursday evening" into one start per named
// day. Each later day falls after the previous one.
func (in *Interpreter) multiDay(lower string, local time.Time, loc *time.Location) ([]time.Time, bool) {
	span := in.rangeRe.FindString(lower)
	if span == "" {
		return nil, false
	}
	names := in.dayNameRe.FindAllString(span, -1)
	clock := in.clockFor(lower)
	out := make([]time.Time, 0, len(names))
	seen := make(map[time.Weekday]bool, len(names))
	offset := -1
	for _, name := range names {
		wd := in.grammar.Weekdays[name]
		if seen[wd] {
			continue
		}
		seen[wd] = true
		days := daysUntil(local.Weekday(), wd, false)
		for days <= offset {
			days += 7
		}
		offset = days
		out = append(out, at(local, days, clock, loc))
	}
	return out, len(out) > 0
}

func (in *Interpreter) standalone(lower string, local time.Time, loc *time.Location) ([]time.Time, bool) {
	for _, m := range in.standaloneRe.FindAllStringSubmatch(lower, -1) {
		clock, ok := parseClock(m[1], m[2], m[3])
		if !ok {
			continue
		}
		start := at(local, 0, clock, loc)
		if start.Before(local) {
			start = at(local, 1, clock, loc)
		}
		return []time.Time{start}, true
	}
	return nil, false
}

// clockFor picks an am/pm clock, then a time-of-day word, then the default.
func (in *Interpreter) clockFor(lower string) Clock {
	if c, ok := in.clock(lower); ok {
		return c
	}
	for _, w := range in.grammar.TimesOfDay {
		if strings.Contains(lower, w.Word) {
			return w.Clock
		}
	}
	return in.grammar.DefaultClock
}

func (in *Interpreter) clock(lower string) (Clock, bool) {
	for _, m := range in.clockRe.FindAllStringSubmatch(lower, -1) {
		if c, ok := parseClock(m[1], m[2], m[3]); ok {
			return c, true
		}
	}
	return Clock{}, false
}

func parseClock(hourText, minuteText, meridiem string) (Clock, bool) {
	hour, err := strconv.Atoi(hourText)
	if err != nil || hour < 1 || hour > 12 {
		return Clock{}, false
	}
	minute := 0
	if minuteText != "" {
		minute, err = strconv.Atoi(minuteText)
		if err != nil || minute > 59 {
			return Clock{}, false
		}
	}
	switch {
	case meridiem == "pm" && hour != 12:
		hour += 12
	case meridiem == "am" && hour == 12:
		hour = 0
	}
	return Clock{Hour: hour, Minute: minute}, true
}

// at builds the local wall-clock instant dayOffset days after local's date.
func at(local time.Time, dayOffset int, c Clock, loc *time.Location) time.Time {
	y, m, d := local.Date()
	return time.Date(y, m, d+dayOffset, c.Hour, c.Minute, 0, 0, loc)
}

// daysUntil counts days from the current weekday to target. Today counts as
// zero only when allowToday is set; otherwise the following week is used.
func daysUntil(current, target time.Weekday, allowToday bool) int {
	ahead := int(target) - int(current)
	if ahead < 0 || (ahead == 0 && !allowToday) {
		ahead += 7
	}
	return ahead
}

func one(t time.Time) ([]time.Time, bool) { return []time.Time{t}, true }
