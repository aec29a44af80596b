// Package ics converts planner records to and from iCalendar.
//
// Times are floating local wall clock. Export writes DTSTART without a zone;
// import keeps the wall-clock digits of zoned times and converts UTC times to
// the local zone.
package ics

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"dayplan/planner/calendar"
	"dayplan/planner/model"
)

const (
	ProductID       = "-//dayplan//planner//EN"
	DefaultHost     = "dayplan.local"
	DefaultDuration = time.Hour

	dateLayout     = "20060102"
	dateTimeLayout = "20060102T150405"
	utcLayout      = "20060102T150405Z"
)

var ErrEmpty = errors.New("ics: empty calendar")

type ExportOptions struct {
	// Host is the UID domain part.
	Host string
	// Duration of timed events.
	Duration time.Duration
	// Now stamps DTSTAMP. Zero means time.Now.
	Now time.Time
}

func (o *ExportOptions) normalize() {
	if o.Host == "" {
		o.Host = DefaultHost
	}
	if o.Duration <= 0 {
		o.Duration = DefaultDuration
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
}

func dateTime(d calendar.Date, c model.Clock) time.Time {
	return time.Date(d.Year(), time.Month(d.Month()), d.Day(), int(c.Hour), int(c.Minute), 0, 0, time.UTC)
}

func dayStart(d calendar.Date) time.Time {
	return time.Date(d.Year(), time.Month(d.Month()), d.Day(), 0, 0, 0, 0, time.UTC)
}

// PriorityValue maps a planner priority onto the RFC 5545 1..9 scale.
func PriorityValue(p model.Priority) int {
	switch p {
	case model.High:
		return 1
	case model.Low:
		return 9
	default:
		return 5
	}
}

// PriorityFrom is the inverse of PriorityValue. 0 and unparsable values are Normal.
func PriorityFrom(v string) model.Priority {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	switch {
	case err != nil || n <= 0:
		return model.Normal
	case n < 5:
		return model.High
	case n == 5:
		return model.Normal
	default:
		return model.Low
	}
}

// Export writes events and tasks as a VCALENDAR.
func Export(w io.Writer, events []model.Event, tasks []model.Task, opts ExportOptions) error {
	opts.normalize()
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	stamp := opts.Now.UTC().Format(utcLayout)

	for _, e := range events {
		ve := cal.AddEvent(fmt.Sprintf("event-%d@%s", e.ID, opts.Host))
		ve.SetProperty(ical.ComponentPropertyDtstamp, stamp)
		ve.SetSummary(e.Title)
		ve.SetProperty(ical.ComponentPropertyPriority, strconv.Itoa(PriorityValue(e.Priority)))
		if e.Time.Set {
			start := dateTime(e.Date, e.Time)
			ve.SetProperty(ical.ComponentPropertyDtStart, start.Format(dateTimeLayout))
			ve.SetProperty(ical.ComponentPropertyDtEnd, start.Add(opts.Duration).Format(dateTimeLayout))
		} else {
			ve.SetAllDayStartAt(dayStart(e.Date))
			ve.SetAllDayEndAt(dayStart(e.Date.NextDay()))
		}
	}

	for _, t := range tasks {
		vt := cal.AddTodo(fmt.Sprintf("task-%d@%s", t.ID, opts.Host))
		vt.SetProperty(ical.ComponentPropertyDtstamp, stamp)
		vt.SetSummary(t.Title)
		vt.SetProperty(ical.ComponentPropertyPriority, strconv.Itoa(PriorityValue(t.Priority)))
		status := "NEEDS-ACTION"
		if t.Done {
			status = "COMPLETED"
		}
		vt.SetProperty(ical.ComponentPropertyStatus, status)
		if !t.Due.IsZero() {
			vt.SetProperty(ical.ComponentPropertyDue, dayStart(t.Due).Format(dateLayout), ical.WithValue(string(ical.ValueDataTypeDate)))
		}
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return fmt.Errorf("ics: write: %w", err)
	}
	return nil
}

// Result is the outcome of Import. Records are drafts without IDs.
type Result struct {
	Events  []model.Event
	Tasks   []model.Task
	Skipped int
}

// Import parses a calendar. Components that cannot become valid records are
// counted in Skipped.
func Import(r io.Reader) (Result, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("ics: read: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return Result{}, ErrEmpty
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("ics: parse: %w", err)
	}

	var res Result
	for _, comp := range cal.Components {
		switch c := comp.(type) {
		case *ical.VEvent:
			e, ok := importEvent(&c.ComponentBase)
			if !ok {
				res.Skipped++
				continue
			}
			res.Events = append(res.Events, e)
		case *ical.VTodo:
			t, ok := importTask(&c.ComponentBase)
			if !ok {
				res.Skipped++
				continue
			}
			res.Tasks = append(res.Tasks, t)
		}
	}
	return res, nil
}

func propValue(cb *ical.ComponentBase, p ical.ComponentProperty) (string, bool) {
	prop := cb.GetProperty(p)
	if prop == nil {
		return "", false
	}
	return prop.Value, true
}

func isDateValue(prop *ical.IANAProperty) bool {
	if vs, ok := prop.ICalParameters[string(ical.ParameterValue)]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(prop.Value, "T")
}

// parseWhen returns the date of a DTSTART/DUE value and its wall-clock time,
// if it has one.
func parseWhen(prop *ical.IANAProperty) (calendar.Date, model.Clock, error) {
	v := strings.TrimSpace(prop.Value)
	if isDateValue(prop) {
		if len(v) > len(dateLayout) {
			v = v[:len(dateLayout)]
		}
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return calendar.Date{}, model.Clock{}, err
		}
		d, err := calendar.New(t.Year(), int(t.Month()), t.Day())
		return d, model.Clock{}, err
	}

	var t time.Time
	var err error
	if strings.HasSuffix(v, "Z") {
		t, err = time.Parse(utcLayout, v)
		t = t.Local()
	} else {
		t, err = time.Parse(dateTimeLayout, v)
	}
	if err != nil {
		return calendar.Date{}, model.Clock{}, err
	}
	d, err := calendar.New(t.Year(), int(t.Month()), t.Day())
	return d, model.At(t.Hour(), t.Minute()), err
}

func importEvent(cb *ical.ComponentBase) (model.Event, bool) {
	summary, _ := propValue(cb, ical.ComponentPropertySummary)
	start := cb.GetProperty(ical.ComponentPropertyDtStart)
	if start == nil {
		return model.Event{}, false
	}
	d, clock, err := parseWhen(start)
	if err != nil {
		return model.Event{}, false
	}
	e := model.Event{
		Date:     d,
		Title:    model.SanitizeTitle(summary, model.MaxEventTitle),
		Time:     clock,
		Priority: model.Normal,
	}
	if v, ok := propValue(cb, ical.ComponentPropertyPriority); ok {
		e.Priority = PriorityFrom(v)
	}
	if model.ValidateEvent(e) != nil {
		return model.Event{}, false
	}
	return e, true
}

func importTask(cb *ical.ComponentBase) (model.Task, bool) {
	summary, _ := propValue(cb, ical.ComponentPropertySummary)
	t := model.Task{
		Title:    model.SanitizeTitle(summary, model.MaxTaskTitle),
		Priority: model.Normal,
	}
	if v, ok := propValue(cb, ical.ComponentPropertyPriority); ok {
		t.Priority = PriorityFrom(v)
	}
	if v, ok := propValue(cb, ical.ComponentPropertyStatus); ok {
		t.Done = strings.EqualFold(strings.TrimSpace(v), "COMPLETED")
	}
	if due := cb.GetProperty(ical.ComponentPropertyDue); due != nil {
		d, _, err := parseWhen(due)
		if err != nil {
			return model.Task{}, false
		}
		t.Due = d
	}
	if model.ValidateTask(t) != nil {
		return model.Task{}, false
	}
	return t, true
}
