package temporal

import (
	"sort"
	"strings"
	"time"
)

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

type TimeOfDayWord struct {
	Word  string
	Clock Clock
}

// Grammar is the immutable vocabulary the interpreter is built from. Copy and
// edit DefaultGrammar to support other phrasings.
type Grammar struct {
	Weekdays        map[string]time.Weekday
	TimesOfDay      []TimeOfDayWord
	DefaultClock    Clock
	TonightClock    Clock
	EveningFrom     int
	DefaultDuration time.Duration
}

func DefaultGrammar() Grammar {
	return Grammar{
		Weekdays: map[string]time.Weekday{
			"monday": time.Monday, "mon": time.Monday,
			"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
			"wednesday": time.Wednesday, "wed": time.Wednesday,
			"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
			"friday": time.Friday, "fri": time.Friday,
			"saturday": time.Saturday, "sat": time.Saturday,
			"sunday": time.Sunday, "sun": time.Sunday,
		},
		TimesOfDay: []TimeOfDayWord{
			{Word: "morning", Clock: Clock{Hour: 9}},
			{Word: "afternoon", Clock: Clock{Hour: 14}},
			{Word: "evening", Clock: Clock{Hour: 18}},
			{Word: "night", Clock: Clock{Hour: 20}},
		},
		DefaultClock:    Clock{Hour: 14},
		TonightClock:    Clock{Hour: 20},
		EveningFrom:     18,
		DefaultDuration: time.Hour,
	}
}

// weekdayAlternation renders the weekday names as a regexp alternation,
// longest first so "thursday" wins over "thu". With fullOnly set, the short
// aliases are left out.
func (g Grammar) weekdayAlternation(fullOnly bool) string {
	names := make([]string, 0, len(g.Weekdays))
	for name := range g.Weekdays {
		if fullOnly && !isFullWeekday(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return strings.Join(names, "|")
}

// isFullWeekday reports whether name is a full day name. Aliases like "sat"
// or "sun" are also ordinary words, so they only count after on/this/next.
func isFullWeekday(name string) bool {
	return strings.HasSuffix(name, "day")
}
