package query

import (
	"slices"
	"testing"

	"dayplan/planner/calendar"
	"dayplan/planner/model"
)

func ids[T any](xs []T, id func(T) uint32) []uint32 {
	out := make([]uint32, len(xs))
	for i, x := range xs {
		out[i] = id(x)
	}
	return out
}

func eventID(e model.Event) uint32 { return e.ID }
func taskID(t model.Task) uint32   { return t.ID }

func TestEventsOnOrdering(t *testing.T) {
	day := calendar.MustNew(2024, 2, 29)
	other := calendar.MustNew(2024, 3, 1)
	events := []model.Event{
		{ID: 1, Date: day, Title: "untimed a"},
		{ID: 2, Date: day, Title: "late", Time: model.At(18, 0)},
		{ID: 3, Date: other, Title: "elsewhere", Time: model.At(8, 0)},
		{ID: 4, Date: day, Title: "early", Time: model.At(7, 30)},
		{ID: 5, Date: day, Title: "early tie", Time: model.At(7, 30)},
		{ID: 6, Date: day, Title: "midnight", Time: model.At(0, 0)},
		{ID: 0, Date: day, Title: "untimed b"},
	}
	got := ids(EventsOn(events, day), eventID)
	want := []uint32{6, 4, 5, 2, 0, 1}
	if !slices.Equal(got, want) {
		t.Fatalf("EventsOn order=%v, want %v", got, want)
	}
	if n := CountOn(events, day); n != 6 {
		t.Fatalf("CountOn=%d, want 6", n)
	}
	if len(EventsOn(events, calendar.MustNew(2030, 1, 1))) != 0 {
		t.Fatalf("EventsOn empty day not empty")
	}
}

func TestMonthHasEvents(t *testing.T) {
	events := []model.Event{
		{ID: 1, Date: calendar.MustNew(2024, 2, 1)},
		{ID: 2, Date: calendar.MustNew(2024, 2, 29)},
		{ID: 3, Date: calendar.MustNew(2024, 2, 29)},
		{ID: 4, Date: calendar.MustNew(2024, 3, 5)},
		{ID: 5, Date: calendar.MustNew(2023, 2, 10)},
	}
	s := MonthHasEvents(events, 2024, 2)
	if !s.Has(1) || !s.Has(29) || s.Has(5) || s.Has(10) {
		t.Fatalf("DaySet=%b", s)
	}
	if s.Len() != 2 {
		t.Fatalf("Len=%d, want 2", s.Len())
	}
	if s.Has(0) || s.Has(32) {
		t.Fatalf("out-of-range day reported")
	}
}

func TestSortedTasksTotalOrder(t *testing.T) {
	tasks := []model.Task{
		{ID: 1, Title: "a", Priority: model.Low},
		{ID: 2, Title: "b", Priority: model.High, Done: true},
		{ID: 3, Title: "c", Priority: model.High},
		{ID: 4, Title: "d", Priority: model.Normal},
		{ID: 5, Title: "e", Priority: model.High},
		{ID: 6, Title: "f", Priority: model.Low, Done: true},
	}
	first := SortedTasks(tasks)
	got := ids(first, taskID)
	want := []uint32{3, 5, 4, 1, 2, 6}
	if !slices.Equal(got, want) {
		t.Fatalf("SortedTasks=%v, want %v", got, want)
	}
	again := SortedTasks(first)
	if !slices.Equal(ids(again, taskID), want) {
		t.Fatalf("re-sort changed order: %v", ids(again, taskID))
	}
	if tasks[0].ID != 1 {
		t.Fatalf("SortedTasks mutated its input")
	}
	if PendingTasks(tasks) != 4 {
		t.Fatalf("PendingTasks=%d, want 4", PendingTasks(tasks))
	}
}

func TestIndexOf(t *testing.T) {
	tasks := []model.Task{{ID: 7}, {ID: 9}}
	if IndexOfTask(tasks, 9) != 1 || IndexOfTask(tasks, 8) != -1 {
		t.Fatalf("IndexOfTask mismatch")
	}
	events := []model.Event{{ID: 3}}
	if IndexOfEvent(events, 3) != 0 || IndexOfEvent(nil, 3) != -1 {
		t.Fatalf("IndexOfEvent mismatch")
	}
}
