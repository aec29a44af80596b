package ui

import (
	"fmt"
	"image/color"
	"strconv"

	"dayplan/planner/calendar"
	"dayplan/planner/form"
	"dayplan/planner/model"
	"dayplan/planner/view"
)

// Palette holds the renderer colors.
type Palette struct {
	Background color.RGBA
	Bar        color.RGBA
	Border     color.RGBA
	Text       color.RGBA
	Dim        color.RGBA
	Accent     color.RGBA
	Selection  color.RGBA
	Today      color.RGBA
	Weekend    color.RGBA
	Notice     color.RGBA
	High       color.RGBA
}

func rgb(r, g, b uint8) color.RGBA { return color.RGBA{R: r, G: g, B: b, A: 0xFF} }

var DefaultPalette = Palette{
	Background: rgb(0x08, 0x0B, 0x10),
	Bar:        rgb(0x10, 0x14, 0x1E),
	Border:     rgb(0x2B, 0x33, 0x44),
	Text:       rgb(0xEE, 0xEE, 0xEE),
	Dim:        rgb(0x55, 0x5D, 0x6A),
	Accent:     rgb(0x9A, 0xC6, 0xFF),
	Selection:  rgb(0x1A, 0x2D, 0x44),
	Today:      rgb(0x4A, 0xD1, 0xFF),
	Weekend:    rgb(0xFF, 0xD1, 0x4A),
	Notice:     rgb(0xFF, 0xB3, 0xA1),
	High:       rgb(0xFF, 0x6B, 0x6B),
}

const margin = 6

// Renderer draws view states. It keeps nothing between frames.
type Renderer struct {
	c Canvas
	p Palette
}

func NewRenderer(c Canvas, p Palette) *Renderer {
	return &Renderer{c: c, p: p}
}

// Draw renders the current state of a and presents the frame.
func (r *Renderer) Draw(a *view.App) error {
	r.c.Clear(r.p.Background)
	switch s := a.State().(type) {
	case view.DayView:
		r.drawDay(a, s)
	case view.TaskList:
		r.drawTasks(a, s)
	case view.AddEvent:
		r.drawForm("New event", s.Form)
	case view.EditEvent:
		r.drawForm("Edit event", s.Form)
	case view.AddTask:
		r.drawForm("New task", s.Form)
	case view.ConfirmDelete:
		r.drawConfirm(a, s)
	case view.MonthView:
		r.drawMonth(a, s)
	}
	if n, _ := a.Notice(); n != "" {
		r.drawNotice(n)
	}
	return r.c.Present()
}

func (r *Renderer) barHeight() int { return r.c.LineHeight() + 4 }

func (r *Renderer) header(left, right string) {
	w, _ := r.c.Size()
	bh := r.barHeight()
	r.c.FillRect(0, 0, w, bh, r.p.Bar)
	r.c.HLine(0, w-1, bh-1, r.p.Border)
	r.c.Text(margin, 2, left, r.p.Text)
	if right != "" {
		r.c.Text(w-margin-r.c.TextWidth(right), 2, right, r.p.Accent)
	}
}

func (r *Renderer) footer(hint string) {
	w, h := r.c.Size()
	bh := r.barHeight()
	r.c.FillRect(0, h-bh, w, bh, r.p.Bar)
	r.c.HLine(0, w-1, h-bh, r.p.Border)
	r.c.Text(margin, h-bh+2, r.fit(hint, w-2*margin), r.p.Dim)
}

func (r *Renderer) drawNotice(msg string) {
	w, h := r.c.Size()
	y := h - 2*r.barHeight()
	r.c.FillRect(0, y, w, r.barHeight(), r.p.Background)
	r.c.Text(margin, y+2, r.fit(msg, w-2*margin), r.p.Notice)
}

// listTop and rows give the body area between header and notice line.
func (r *Renderer) listTop() int { return r.barHeight() + 4 }

func (r *Renderer) rows() int {
	_, h := r.c.Size()
	return (h - r.listTop() - 2*r.barHeight()) / r.rowHeight()
}

func (r *Renderer) rowHeight() int { return r.c.LineHeight() + 2 }

// window returns the first visible row so that cursor stays on screen.
func window(cursor, n, rows int) int {
	if rows <= 0 || n <= rows || cursor < rows {
		return 0
	}
	first := cursor - rows + 1
	if first > n-rows {
		first = n - rows
	}
	return first
}

func (r *Renderer) row(i int, selected bool, s string, c color.RGBA) {
	w, _ := r.c.Size()
	y := r.listTop() + i*r.rowHeight()
	if selected {
		r.c.FillRect(0, y, w, r.rowHeight(), r.p.Selection)
	}
	r.c.Text(margin, y+1, r.fit(s, w-2*margin), c)
}

func dayTitle(d calendar.Date) string {
	return d.Weekday().String() + " " + d.String()
}

func eventLine(e model.Event, twelve bool) string {
	t := "All day"
	switch {
	case e.Time.Set && twelve:
		t = e.Time.Format12()
	case e.Time.Set:
		t = e.Time.String()
	}
	return fmt.Sprintf("%s %-7s %s", e.Priority.Marker(), t, e.Title)
}

func (r *Renderer) priorityColor(p model.Priority) color.RGBA {
	switch p {
	case model.High:
		return r.p.High
	case model.Low:
		return r.p.Dim
	default:
		return r.p.Text
	}
}

func (r *Renderer) drawDay(a *view.App, s view.DayView) {
	title := dayTitle(s.Date)
	if s.Date == a.Today() {
		title += " (today)"
	}
	r.header(title, "Tasks: "+strconv.Itoa(a.Backend().PendingTasks()))
	evs := a.Backend().EventsOn(s.Date)
	if len(evs) == 0 {
		r.row(0, false, "No events", r.p.Dim)
	}
	rows := r.rows()
	first := window(s.Cursor, len(evs), rows)
	for i := first; i < len(evs) && i-first < rows; i++ {
		r.row(i-first, i == s.Cursor, eventLine(evs[i], a.Options().Clock12h), r.priorityColor(evs[i].Priority))
	}
	r.footer("A add  E edit  D del  T tasks  M month  Esc quit")
}

func taskLine(t model.Task) string {
	box := "[ ]"
	if t.Done {
		box = "[x]"
	}
	s := box + " " + t.Priority.Marker() + " " + t.Title
	if !t.Due.IsZero() {
		s += "  " + t.Due.Short()
	}
	return s
}

func (r *Renderer) drawTasks(a *view.App, s view.TaskList) {
	ts := a.Backend().SortedTasks()
	r.header(fmt.Sprintf("Tasks (%d/%d)", a.Backend().PendingTasks(), len(ts)), "")
	if len(ts) == 0 {
		r.row(0, false, "No tasks", r.p.Dim)
	}
	rows := r.rows()
	first := window(s.Cursor, len(ts), rows)
	for i := first; i < len(ts) && i-first < rows; i++ {
		c := r.priorityColor(ts[i].Priority)
		if ts[i].Done {
			c = r.p.Dim
		}
		r.row(i-first, i == s.Cursor, taskLine(ts[i]), c)
	}
	r.footer("Enter done  P prio  A add  D del  T back")
}

func fieldLine(f form.Form, fl form.Field) string {
	switch fl {
	case form.Title:
		s := "Title: " + f.Title()
		if f.Active() == form.Title {
			s += "_"
		}
		return s
	case form.Hour:
		if !f.Clock().Set {
			return "Hour: --"
		}
		return fmt.Sprintf("Hour: %02d", f.Clock().Hour)
	case form.Minute:
		if !f.Clock().Set {
			return "Minute: --"
		}
		return fmt.Sprintf("Minute: %02d", f.Clock().Minute)
	case form.Priority:
		return "Priority: " + f.Priority().String()
	}
	return ""
}

func (r *Renderer) drawForm(title string, f form.Form) {
	right := ""
	if !f.Date().IsZero() {
		right = dayTitle(f.Date())
	}
	r.header(title, right)
	w, _ := r.c.Size()
	for i, fl := range f.Fields() {
		y := r.listTop() + i*r.rowHeight()
		line := r.fit(fieldLine(f, fl), w-2*margin)
		if fl == f.Active() {
			r.c.FillRect(0, y, w, r.rowHeight(), r.p.Text)
			r.c.Text(margin, y+1, line, r.p.Background)
			continue
		}
		r.c.Text(margin, y+1, line, r.p.Text)
	}
	r.footer("Up/Dn field  L/R adjust  Space time  Enter save  Esc cancel")
}

func (r *Renderer) drawConfirm(a *view.App, s view.ConfirmDelete) {
	r.header("Delete?", "")
	what := "item"
	switch s.Target.Kind {
	case view.TargetEvent:
		if e, ok := a.Backend().Event(s.Target.ID); ok {
			what = "event \"" + e.Title + "\""
		} else {
			what = "event"
		}
	case view.TargetTask:
		if t, ok := a.Backend().Task(s.Target.ID); ok {
			what = "task \"" + t.Title + "\""
		} else {
			what = "task"
		}
	}
	r.row(0, false, "Delete "+what+"?", r.p.Text)
	r.row(2, false, "Enter/Y: delete   any other key: keep", r.p.Dim)
	r.footer("Enter/Y confirm")
}

func (r *Renderer) drawMonth(a *view.App, s view.MonthView) {
	cur := s.Cursor
	y, m := cur.Year(), cur.Month()
	right := cur.String()
	if n := a.Backend().CountOn(cur); n > 0 {
		right = strconv.Itoa(n) + " ev  " + right
	}
	r.header(calendar.MonthName(m)+" "+strconv.Itoa(y), right)

	w, h := r.c.Size()
	lh := r.c.LineHeight()
	weekY := r.barHeight() + 4
	top := weekY + lh + 4
	cell := (w - 2*margin) / 7
	if ch := (h - top - 2*r.barHeight() - margin) / 6; ch < cell {
		cell = ch
	}
	left := (w - 7*cell) / 2
	start := a.Options().WeekStart

	for i := 0; i < 7; i++ {
		wd := calendar.Weekday((int(start) + i) % 7)
		c := r.p.Dim
		if wd == calendar.Saturday || wd == calendar.Sunday {
			c = r.p.Notice
		}
		r.c.Text(left+i*cell+2, weekY, wd.String(), c)
	}
	r.c.Rect(left-1, top-1, 7*cell+2, 6*cell+2, r.p.Border)

	marks := a.Backend().MonthHasEvents(y, m)
	offset := calendar.FirstColumn(y, m, start)
	days := calendar.DaysInMonth(m, y)
	today := a.Today()
	for day := 1; day <= days; day++ {
		idx := offset + day - 1
		col, row := idx%7, idx/7
		x0, y0 := left+col*cell, top+row*cell
		if day == cur.Day() {
			r.c.FillRect(x0, y0, cell, cell, r.p.Selection)
		}
		if today.Year() == y && today.Month() == m && today.Day() == day {
			r.c.Rect(x0+1, y0+1, cell-2, cell-2, r.p.Today)
		}
		c := r.p.Text
		wd := calendar.Weekday((int(start) + col) % 7)
		if wd == calendar.Saturday || wd == calendar.Sunday {
			c = r.p.Weekend
		}
		r.c.Text(x0+3, y0+2, strconv.Itoa(day), c)
		if marks.Has(day) {
			r.c.FillRect(x0+cell-5, y0+cell-5, 3, 3, r.p.Accent)
		}
	}
	r.footer("Arrows move  [ ] month  { } year  Enter open  Esc back")
}

// fit truncates s so that it renders within maxW pixels.
func (r *Renderer) fit(s string, maxW int) string {
	if maxW <= 0 {
		return ""
	}
	if r.c.TextWidth(s) <= maxW {
		return s
	}
	b := []byte(s)
	for len(b) > 0 {
		b = b[:len(b)-1]
		if r.c.TextWidth(string(b)+"..") <= maxW {
			return string(b) + ".."
		}
	}
	return ""
}
