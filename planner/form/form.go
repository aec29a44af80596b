// Package form implements the small multi-field editor used to add and edit
// events and tasks.
package form

import (
	"dayplan/planner/calendar"
	"dayplan/planner/model"
)

type Field uint8

const (
	Title Field = iota
	Hour
	Minute
	Priority
)

func (f Field) String() string {
	switch f {
	case Title:
		return "Title"
	case Hour:
		return "Hour"
	case Minute:
		return "Minute"
	case Priority:
		return "Priority"
	default:
		return "?"
	}
}

const DefaultMinuteStep = 5

var (
	eventFields = []Field{Title, Hour, Minute, Priority}
	taskFields  = []Field{Title, Priority}
)

// Form stages a record while it is edited. The date and due date are carried
// through untouched.
type Form struct {
	fields []Field
	active int

	title    []byte
	maxTitle int
	clock    model.Clock
	priority model.Priority
	step     int

	id   uint32
	date calendar.Date
	due  calendar.Date
	done bool
}

// NewEvent stages draft. A non-positive step uses DefaultMinuteStep.
func NewEvent(draft model.Event, step int) Form {
	if step <= 0 || step >= 60 {
		step = DefaultMinuteStep
	}
	return Form{
		fields:   eventFields,
		title:    []byte(draft.Title),
		maxTitle: model.MaxEventTitle,
		clock:    draft.Time,
		priority: draft.Priority,
		step:     step,
		id:       draft.ID,
		date:     draft.Date,
	}
}

func NewTask(draft model.Task) Form {
	return Form{
		fields:   taskFields,
		title:    []byte(draft.Title),
		maxTitle: model.MaxTaskTitle,
		priority: draft.Priority,
		step:     DefaultMinuteStep,
		id:       draft.ID,
		due:      draft.Due,
		done:     draft.Done,
	}
}

func (f Form) Fields() []Field { return f.fields }

func (f Form) Active() Field {
	if len(f.fields) == 0 {
		return Title
	}
	return f.fields[f.active]
}

func (f Form) Title() string            { return string(f.title) }
func (f Form) Clock() model.Clock       { return f.clock }
func (f Form) Priority() model.Priority { return f.priority }
func (f Form) Date() calendar.Date      { return f.date }

// Next moves to the following field, wrapping to the first.
func (f *Form) Next() {
	if n := len(f.fields); n > 0 {
		f.active = (f.active + 1) % n
	}
}

func (f *Form) Prev() {
	if n := len(f.fields); n > 0 {
		f.active = (f.active + n - 1) % n
	}
}

// Adjust changes the active field by delta steps.
func (f *Form) Adjust(delta int) {
	if delta == 0 {
		return
	}
	switch f.Active() {
	case Hour:
		if !f.clock.Set {
			f.clock = model.Clock{Set: true}
			return
		}
		f.clock.Hour = uint8(wrap(int(f.clock.Hour)+delta, 24))
	case Minute:
		if !f.clock.Set {
			f.clock = model.Clock{Set: true}
		}
		f.clock.Minute = uint8(wrap(int(f.clock.Minute)+delta*f.step, 60))
	case Priority:
		if delta > 0 {
			f.priority = f.priority.Next()
		} else {
			f.priority = f.priority.Prev()
		}
	}
}

func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}

// ToggleTime flips the event between untimed and 00:00. Only the Hour field reacts.
func (f *Form) ToggleTime() {
	if f.Active() != Hour {
		return
	}
	if f.clock.Set {
		f.clock = model.Clock{}
		return
	}
	f.clock = model.Clock{Set: true}
}

// Type appends r to the title when Title is active and there is room.
func (f *Form) Type(r rune) {
	if f.Active() != Title || !model.IsPrintableASCII(r) || len(f.title) >= f.maxTitle {
		return
	}
	// Full slice expression: copies of a Form must not share the new byte.
	f.title = append(f.title[:len(f.title):len(f.title)], byte(r))
}

func (f *Form) Backspace() {
	if f.Active() != Title || len(f.title) == 0 {
		return
	}
	f.title = f.title[:len(f.title)-1]
}

// Event builds the staged event. Callers validate before storing.
func (f Form) Event() model.Event {
	return model.Event{
		ID:       f.id,
		Date:     f.date,
		Title:    string(f.title),
		Time:     f.clock,
		Priority: f.priority,
	}
}

func (f Form) Task() model.Task {
	return model.Task{
		ID:       f.id,
		Title:    string(f.title),
		Done:     f.done,
		Priority: f.priority,
		Due:      f.due,
	}
}
