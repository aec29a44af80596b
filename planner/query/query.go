// Package query holds the planner's filters and orderings.
package query

import (
	"cmp"
	"math/bits"
	"slices"

	"dayplan/planner/calendar"
	"dayplan/planner/model"
)

// EventsOn returns the events dated d: timed events by time of day, then
// untimed ones, ties by ID.
func EventsOn(events []model.Event, d calendar.Date) []model.Event {
	var out []model.Event
	for _, e := range events {
		if e.Date == d {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, compareEvents)
	return out
}

func compareEvents(a, b model.Event) int {
	if a.Time.Set != b.Time.Set {
		if a.Time.Set {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(a.Time.Minutes(), b.Time.Minutes()); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// CountOn is len(EventsOn(events, d)) without the allocation.
func CountOn(events []model.Event, d calendar.Date) int {
	n := 0
	for _, e := range events {
		if e.Date == d {
			n++
		}
	}
	return n
}

// DaySet is a bit set over day numbers 1..31.
type DaySet uint32

func (s DaySet) Has(day int) bool {
	return day >= 1 && day <= 31 && s&(1<<uint(day)) != 0
}

func (s *DaySet) Add(day int) {
	if day >= 1 && day <= 31 {
		*s |= 1 << uint(day)
	}
}

func (s DaySet) Len() int { return bits.OnesCount32(uint32(s)) }

// MonthHasEvents marks every day of year/month with at least one event.
func MonthHasEvents(events []model.Event, year, month int) DaySet {
	var s DaySet
	for _, e := range events {
		if e.Date.Year() == year && e.Date.Month() == month {
			s.Add(e.Date.Day())
		}
	}
	return s
}

// SortedTasks orders open tasks first, then by priority high to low, then by ID.
func SortedTasks(tasks []model.Task) []model.Task {
	out := slices.Clone(tasks)
	slices.SortFunc(out, compareTasks)
	return out
}

func compareTasks(a, b model.Task) int {
	if a.Done != b.Done {
		if !a.Done {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func PendingTasks(tasks []model.Task) int {
	n := 0
	for _, t := range tasks {
		if !t.Done {
			n++
		}
	}
	return n
}

// IndexOfEvent returns the position of id in events, or -1.
func IndexOfEvent(events []model.Event, id uint32) int {
	return slices.IndexFunc(events, func(e model.Event) bool { return e.ID == id })
}

// IndexOfTask returns the position of id in tasks, or -1.
func IndexOfTask(tasks []model.Task, id uint32) int {
	return slices.IndexFunc(tasks, func(t model.Task) bool { return t.ID == id })
}
