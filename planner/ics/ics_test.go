package ics

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"dayplan/planner/calendar"
	"dayplan/planner/model"
)

func crlf(lines ...string) string { return strings.Join(lines, "\r\n") + "\r\n" }

func TestExportImportRoundTrip(t *testing.T) {
	events := []model.Event{
		{ID: 1, Date: calendar.MustNew(2024, 2, 29), Title: "Leap lunch", Time: model.At(12, 30), Priority: model.High},
		{ID: 2, Date: calendar.MustNew(2024, 12, 31), Title: "New Year's Eve", Priority: model.Low},
		{ID: 3, Date: calendar.MustNew(2024, 3, 1), Title: "Late", Time: model.At(23, 45), Priority: model.Normal},
	}
	tasks := []model.Task{
		{ID: 4, Title: "Pay rent", Priority: model.High, Due: calendar.MustNew(2024, 3, 1)},
		{ID: 5, Title: "Call mom", Done: true, Priority: model.Low},
	}

	var buf bytes.Buffer
	now := time.Date(2024, 2, 28, 8, 0, 0, 0, time.UTC)
	if err := Export(&buf, events, tasks, ExportOptions{Host: "test", Now: now}); err != nil {
		t.Fatalf("Export: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"BEGIN:VCALENDAR", "event-1@test", "task-5@test", "DTSTART:20240229T123000", "COMPLETED", "PRIORITY:9"} {
		if !strings.Contains(out, want) {
			t.Fatalf("export missing %q:\n%s", want, out)
		}
	}

	res, err := Import(strings.NewReader(out))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Skipped != 0 || len(res.Events) != len(events) || len(res.Tasks) != len(tasks) {
		t.Fatalf("Import result=%+v", res)
	}
	for i, want := range events {
		want.ID = 0
		if got := res.Events[i]; got != want {
			t.Fatalf("event %d=%+v, want %+v", i, got, want)
		}
	}
	for i, want := range tasks {
		want.ID = 0
		if got := res.Tasks[i]; got != want {
			t.Fatalf("task %d=%+v, want %+v", i, got, want)
		}
	}
}

func TestExportTimedEventDuration(t *testing.T) {
	var buf bytes.Buffer
	ev := model.Event{ID: 7, Date: calendar.MustNew(2024, 1, 31), Title: "x", Time: model.At(23, 30)}
	if err := Export(&buf, []model.Event{ev}, nil, ExportOptions{Now: time.Unix(0, 0)}); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.Contains(buf.String(), "DTEND:20240201T003000") {
		t.Fatalf("missing rolled-over DTEND:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "event-7@"+DefaultHost) {
		t.Fatalf("default host not used")
	}
}

func TestImportSanitizes(t *testing.T) {
	in := crlf(
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//x//y//EN",
		"BEGIN:VEVENT",
		"UID:a",
		"DTSTART;VALUE=DATE:20240305",
		"SUMMARY:Café "+strings.Repeat("x", 60),
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:b",
		"SUMMARY:no start",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:c",
		"DTSTART:20240230T100000",
		"SUMMARY:bad date",
		"END:VEVENT",
		"BEGIN:VTODO",
		"UID:d",
		"SUMMARY:   ",
		"END:VTODO",
		"BEGIN:VTODO",
		"UID:e",
		"SUMMARY:Taxes",
		"PRIORITY:3",
		"DUE:20240415T170000",
		"END:VTODO",
		"END:VCALENDAR",
	)
	res, err := Import(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Skipped != 3 {
		t.Fatalf("Skipped=%d, want 3", res.Skipped)
	}
	if len(res.Events) != 1 {
		t.Fatalf("events=%+v", res.Events)
	}
	e := res.Events[0]
	if !strings.HasPrefix(e.Title, "Caf? x") || len(e.Title) != model.MaxEventTitle {
		t.Fatalf("title=%q", e.Title)
	}
	if e.Time.Set || e.Date != calendar.MustNew(2024, 3, 5) || e.Priority != model.Normal {
		t.Fatalf("event=%+v", e)
	}
	if len(res.Tasks) != 1 {
		t.Fatalf("tasks=%+v", res.Tasks)
	}
	tk := res.Tasks[0]
	if tk.Title != "Taxes" || tk.Priority != model.High || tk.Due != calendar.MustNew(2024, 4, 15) || tk.Done {
		t.Fatalf("task=%+v", tk)
	}
}

func TestImportEmpty(t *testing.T) {
	if _, err := Import(strings.NewReader("  \n")); !errors.Is(err, ErrEmpty) {
		t.Fatalf("err=%v, want ErrEmpty", err)
	}
}

func TestPriorityMapping(t *testing.T) {
	for _, p := range []model.Priority{model.Low, model.Normal, model.High} {
		if got := PriorityFrom(strconv.Itoa(PriorityValue(p))); got != p {
			t.Fatalf("PriorityFrom(PriorityValue(%v))=%v", p, got)
		}
	}
	cases := []struct {
		in   string
		want model.Priority
	}{
		{"0", model.Normal},
		{"", model.Normal},
		{"junk", model.Normal},
		{"1", model.High},
		{"4", model.High},
		{"5", model.Normal},
		{"6", model.Low},
		{"9", model.Low},
	}
	for _, tc := range cases {
		if got := PriorityFrom(tc.in); got != tc.want {
			t.Fatalf("PriorityFrom(%q)=%v, want %v", tc.in, got, tc.want)
		}
	}
}
