package view

import (
	"dayplan/planner/calendar"
	"dayplan/planner/form"
)

// State is one screen of the planner. Exactly the types in this file implement it.
type State interface {
	state()
}

// DayView lists the events of one date.
type DayView struct {
	Date   calendar.Date
	Cursor int
}

// TaskList shows every task; Day is where Back returns.
type TaskList struct {
	Cursor int
	Day    DayView
}

type AddEvent struct {
	Form   form.Form
	Return DayView
}

type EditEvent struct {
	ID     uint32
	Form   form.Form
	Return DayView
}

type AddTask struct {
	Form   form.Form
	Return TaskList
}

type TargetKind uint8

const (
	TargetEvent TargetKind = iota + 1
	TargetTask
)

type Target struct {
	Kind TargetKind
	ID   uint32
}

// ConfirmDelete asks before removing Target. Return is a DayView or TaskList.
type ConfirmDelete struct {
	Target Target
	Return State
}

// MonthView is the month grid with a day cursor.
type MonthView struct {
	Cursor calendar.Date
	Return DayView
}

func (DayView) state()       {}
func (TaskList) state()      {}
func (AddEvent) state()      {}
func (EditEvent) state()     {}
func (AddTask) state()       {}
func (ConfirmDelete) state() {}
func (MonthView) state()     {}
