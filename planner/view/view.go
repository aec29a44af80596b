// Package view is the planner's navigation and editing state machine.
//
// App holds the current State and feeds each logical key to the handler of
// that state's type. Handlers never keep pointers to stored records: edits
// work on a staged form, deletes and toggles go by ID.
package view

import (
	"context"
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"dayplan/planner/calendar"
	"dayplan/planner/form"
	"dayplan/planner/keys"
	"dayplan/planner/model"
	"dayplan/planner/query"
	"dayplan/planner/store"
)

const (
	NoticeGone          = "Item no longer exists"
	NoticeSaveFailed    = "Save failed; Enter to retry, Esc to cancel"
	NoticeDeleteFailed  = "Delete failed; Enter to retry, Esc to cancel"
	NoticeTitleRequired = "Title required"
)

// Backend is what the state machine needs from storage. *store.Store implements it.
type Backend interface {
	CreateEvent(ctx context.Context, e model.Event) (uint32, error)
	UpdateEvent(ctx context.Context, id uint32, e model.Event) error
	DeleteEvent(ctx context.Context, id uint32) error
	Event(id uint32) (model.Event, bool)
	EventsOn(d calendar.Date) []model.Event
	CountOn(d calendar.Date) int
	MonthHasEvents(year, month int) query.DaySet

	CreateTask(ctx context.Context, t model.Task) (uint32, error)
	DeleteTask(ctx context.Context, id uint32) error
	ToggleTask(ctx context.Context, id uint32) error
	CycleTaskPriority(ctx context.Context, id uint32) error
	Task(id uint32) (model.Task, bool)
	SortedTasks() []model.Task
	PendingTasks() int
}

var _ Backend = (*store.Store)(nil)

type Options struct {
	MinuteStep int
	WeekStart  calendar.Weekday
	// Clock12h shows event times as h:mmAM/PM.
	Clock12h bool
	Logger   logrus.FieldLogger
}

// App is the application context: current state, backend, today and the
// transient notice.
type App struct {
	state   State
	backend Backend
	today   calendar.Date
	opts    Options
	log     logrus.FieldLogger

	notice    string
	noticeSeq uint64
}

// New starts in the DayView of today.
func New(b Backend, today calendar.Date, opts Options) *App {
	if opts.MinuteStep <= 0 {
		opts.MinuteStep = form.DefaultMinuteStep
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &App{
		state:   DayView{Date: today},
		backend: b,
		today:   today,
		opts:    opts,
		log:     log.WithField("component", "view"),
	}
}

func (a *App) State() State             { return a.state }
func (a *App) Backend() Backend         { return a.backend }
func (a *App) Today() calendar.Date     { return a.today }
func (a *App) Options() Options         { return a.opts }
func (a *App) SetState(s State)         { a.state = s }
func (a *App) SetToday(d calendar.Date) { a.today = d }

// Notice returns the current notice and a sequence number that changes each
// time a notice is raised.
func (a *App) Notice() (string, uint64) { return a.notice, a.noticeSeq }

func (a *App) ClearNotice() { a.notice = "" }

func (a *App) raise(msg string) {
	a.notice = msg
	a.noticeSeq++
}

// Handle applies k to the current state. It reports true when the user asked to quit.
func (a *App) Handle(ctx context.Context, k keys.Key) (quit bool) {
	if k.Kind == keys.None {
		return false
	}
	a.notice = ""
	switch s := a.state.(type) {
	case DayView:
		return a.handleDay(ctx, s, k)
	case TaskList:
		a.handleTasks(ctx, s, k)
	case AddEvent:
		a.handleAddEvent(ctx, s, k)
	case EditEvent:
		a.handleEditEvent(ctx, s, k)
	case AddTask:
		a.handleAddTask(ctx, s, k)
	case ConfirmDelete:
		a.handleConfirm(ctx, s, k)
	case MonthView:
		a.handleMonth(s, k)
	}
	return false
}

func clampCursor(c, n int) int {
	if c >= n {
		c = n - 1
	}
	if c < 0 {
		c = 0
	}
	return c
}

// settle clamps the cursor of a list state against the current backend contents.
func (a *App) settle(s State) State {
	switch v := s.(type) {
	case DayView:
		v.Cursor = clampCursor(v.Cursor, len(a.backend.EventsOn(v.Date)))
		return v
	case TaskList:
		v.Cursor = clampCursor(v.Cursor, len(a.backend.SortedTasks()))
		v.Day = a.settle(v.Day).(DayView)
		return v
	default:
		return s
	}
}

func (a *App) selectedEvent(s DayView) (model.Event, bool) {
	evs := a.backend.EventsOn(s.Date)
	if s.Cursor < 0 || s.Cursor >= len(evs) {
		return model.Event{}, false
	}
	return evs[s.Cursor], true
}

func (a *App) selectedTask(s TaskList) (model.Task, bool) {
	ts := a.backend.SortedTasks()
	if s.Cursor < 0 || s.Cursor >= len(ts) {
		return model.Task{}, false
	}
	return ts[s.Cursor], true
}

// failed maps a storage error to a notice. It reports whether the caller
// should leave the current state (the record is gone).
func (a *App) failed(err error, op string, writeNotice string) (gone bool) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		a.log.WithError(err).WithField("op", op).Info("stale record")
		a.raise(NoticeGone)
		return true
	case errors.Is(err, model.ErrInvalid):
		a.log.WithError(err).WithField("op", op).Debug("rejected draft")
		a.raise(NoticeTitleRequired)
		return false
	default:
		a.log.WithError(err).WithField("op", op).Error("storage write failed")
		a.raise(writeNotice)
		return false
	}
}

func (a *App) handleDay(ctx context.Context, s DayView, k keys.Key) bool {
	switch k.Kind {
	case keys.Left:
		a.state = DayView{Date: s.Date.PrevDay()}
	case keys.Right:
		a.state = DayView{Date: s.Date.NextDay()}
	case keys.Up:
		s.Cursor--
		a.state = a.settle(s)
	case keys.Down:
		s.Cursor++
		a.state = a.settle(s)
	case keys.Home:
		a.state = DayView{Date: a.today}
	case keys.Back:
		return true
	case keys.Rune:
		switch {
		case k.Is('a'):
			draft := model.Event{Date: s.Date, Priority: model.Normal}
			a.state = AddEvent{Form: form.NewEvent(draft, a.opts.MinuteStep), Return: s}
		case k.Is('e'):
			if ev, ok := a.selectedEvent(s); ok {
				a.state = EditEvent{ID: ev.ID, Form: form.NewEvent(ev, a.opts.MinuteStep), Return: s}
			}
		case k.Is('d'):
			if ev, ok := a.selectedEvent(s); ok {
				a.state = ConfirmDelete{Target: Target{Kind: TargetEvent, ID: ev.ID}, Return: s}
			}
		case k.Is('t'):
			a.state = a.settle(TaskList{Day: s})
		case k.Is('m'):
			a.state = MonthView{Cursor: s.Date, Return: s}
		}
	}
	return false
}

func (a *App) handleTasks(ctx context.Context, s TaskList, k keys.Key) {
	switch k.Kind {
	case keys.Up:
		s.Cursor--
		a.state = a.settle(s)
	case keys.Down:
		s.Cursor++
		a.state = a.settle(s)
	case keys.Enter:
		if t, ok := a.selectedTask(s); ok {
			a.applyTask(ctx, s, t.ID, "toggle", a.backend.ToggleTask)
		}
	case keys.Left, keys.Back:
		a.state = a.settle(s.Day)
	case keys.Rune:
		switch {
		case k.Is('t'):
			a.state = a.settle(s.Day)
		case k.Is('a'):
			a.state = AddTask{Form: form.NewTask(model.Task{Priority: model.Normal}), Return: s}
		case k.Is('d'):
			if t, ok := a.selectedTask(s); ok {
				a.state = ConfirmDelete{Target: Target{Kind: TargetTask, ID: t.ID}, Return: s}
			}
		case k.Is('p'):
			if t, ok := a.selectedTask(s); ok {
				a.applyTask(ctx, s, t.ID, "cycle priority", a.backend.CycleTaskPriority)
			}
		}
	}
}

// applyTask runs a by-ID task mutation and keeps the cursor on the same task
// after the list re-sorts.
func (a *App) applyTask(ctx context.Context, s TaskList, id uint32, op string, fn func(context.Context, uint32) error) {
	if err := fn(ctx, id); err != nil {
		a.failed(err, op, NoticeSaveFailed)
		a.state = a.settle(s)
		return
	}
	if i := query.IndexOfTask(a.backend.SortedTasks(), id); i >= 0 {
		s.Cursor = i
	}
	a.state = a.settle(s)
}

// editForm applies a navigation or editing key. It reports false for keys it ignores.
func editForm(f *form.Form, k keys.Key) bool {
	switch k.Kind {
	case keys.Up:
		f.Prev()
	case keys.Down:
		f.Next()
	case keys.Left:
		f.Adjust(-1)
	case keys.Right:
		f.Adjust(1)
	case keys.Backspace:
		f.Backspace()
	case keys.Rune:
		if k.Rune == ' ' && f.Active() == form.Hour {
			f.ToggleTime()
		} else {
			f.Type(k.Rune)
		}
	default:
		return false
	}
	return true
}

func (a *App) handleAddEvent(ctx context.Context, s AddEvent, k keys.Key) {
	switch k.Kind {
	case keys.Back:
		a.state = a.settle(s.Return)
	case keys.Enter:
		ev := s.Form.Event()
		id, err := a.backend.CreateEvent(ctx, ev)
		if err != nil {
			a.failed(err, "create event", NoticeSaveFailed)
			return
		}
		a.log.WithField("id", id).Debug("event created")
		a.state = a.dayOn(ev.Date, id)
	default:
		if editForm(&s.Form, k) {
			a.state = s
		}
	}
}

func (a *App) handleEditEvent(ctx context.Context, s EditEvent, k keys.Key) {
	switch k.Kind {
	case keys.Back:
		a.state = a.settle(s.Return)
	case keys.Enter:
		ev := s.Form.Event()
		if err := a.backend.UpdateEvent(ctx, s.ID, ev); err != nil {
			if a.failed(err, "update event", NoticeSaveFailed) {
				a.state = a.settle(s.Return)
			}
			return
		}
		a.state = a.dayOn(ev.Date, s.ID)
	default:
		if editForm(&s.Form, k) {
			a.state = s
		}
	}
}

// dayOn is the DayView of d with the cursor on event id.
func (a *App) dayOn(d calendar.Date, id uint32) DayView {
	v := DayView{Date: d}
	if i := query.IndexOfEvent(a.backend.EventsOn(d), id); i >= 0 {
		v.Cursor = i
	}
	return v
}

func (a *App) handleAddTask(ctx context.Context, s AddTask, k keys.Key) {
	switch k.Kind {
	case keys.Back:
		a.state = a.settle(s.Return)
	case keys.Enter:
		id, err := a.backend.CreateTask(ctx, s.Form.Task())
		if err != nil {
			a.failed(err, "create task", NoticeSaveFailed)
			return
		}
		a.log.WithField("id", id).Debug("task created")
		tl := s.Return
		if i := query.IndexOfTask(a.backend.SortedTasks(), id); i >= 0 {
			tl.Cursor = i
		}
		a.state = a.settle(tl)
	default:
		if editForm(&s.Form, k) {
			a.state = s
		}
	}
}

func (a *App) handleConfirm(ctx context.Context, s ConfirmDelete, k keys.Key) {
	if k.Kind != keys.Enter && !k.Is('y') {
		a.state = a.settle(s.Return)
		return
	}
	var err error
	switch s.Target.Kind {
	case TargetEvent:
		err = a.backend.DeleteEvent(ctx, s.Target.ID)
	case TargetTask:
		err = a.backend.DeleteTask(ctx, s.Target.ID)
	default:
		a.state = a.settle(s.Return)
		return
	}
	if err != nil && !a.failed(err, "delete", NoticeDeleteFailed) {
		return
	}
	a.state = a.settle(s.Return)
}

func (a *App) handleMonth(s MonthView, k keys.Key) {
	switch k.Kind {
	case keys.Left:
		s.Cursor = s.Cursor.PrevDay()
	case keys.Right:
		s.Cursor = s.Cursor.NextDay()
	case keys.Up:
		s.Cursor = s.Cursor.AddDays(-7)
	case keys.Down:
		s.Cursor = s.Cursor.AddDays(7)
	case keys.Home:
		s.Cursor = a.today
	case keys.Enter:
		a.state = DayView{Date: s.Cursor}
		return
	case keys.Back:
		a.state = a.settle(s.Return)
		return
	case keys.Rune:
		switch k.Rune {
		case '[':
			s.Cursor = s.Cursor.PrevMonth()
		case ']':
			s.Cursor = s.Cursor.NextMonth()
		case '{':
			s.Cursor = s.Cursor.PrevYear()
		case '}':
			s.Cursor = s.Cursor.NextYear()
		default:
			return
		}
	default:
		return
	}
	a.state = s
}
