// Package model defines the planner's records and their validation rules.
package model

import (
	"errors"
	"fmt"
	"strings"

	"dayplan/planner/calendar"
)

const (
	MaxEventTitle = 40
	MaxTaskTitle  = 50
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("model: invalid record")

type Priority uint8

const (
	Low Priority = iota
	Normal
	High
)

// Next cycles Low -> Normal -> High -> Low.
func (p Priority) Next() Priority { return (p + 1) % 3 }

func (p Priority) Prev() Priority { return (p + 2) % 3 }

func (p Priority) Valid() bool { return p <= High }

func (p Priority) String() string {
	switch p {
	case Low:
		return "Low"
	case Normal:
		return "Normal"
	case High:
		return "High"
	default:
		return "?"
	}
}

// Marker is the one-character list prefix.
func (p Priority) Marker() string {
	switch p {
	case High:
		return "!"
	case Normal:
		return "*"
	default:
		return " "
	}
}

// Clock is a time of day. When Set is false the event is untimed.
type Clock struct {
	Hour   uint8
	Minute uint8
	Set    bool
}

func At(hour, minute int) Clock {
	return Clock{Hour: uint8(hour), Minute: uint8(minute), Set: true}
}

func (c Clock) Valid() bool { return !c.Set || (c.Hour < 24 && c.Minute < 60) }

// Minutes returns minutes since midnight, or -1 when unset.
func (c Clock) Minutes() int {
	if !c.Set {
		return -1
	}
	return int(c.Hour)*60 + int(c.Minute)
}

func (c Clock) String() string {
	if !c.Set {
		return "--:--"
	}
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Format12 renders h:mmAM/PM, with 12 for midnight and noon.
func (c Clock) Format12() string {
	if !c.Set {
		return "--:--"
	}
	h, suffix := int(c.Hour), "AM"
	if h >= 12 {
		suffix = "PM"
	}
	if h = h % 12; h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d%s", h, c.Minute, suffix)
}

type Event struct {
	ID       uint32
	Date     calendar.Date
	Title    string
	Time     Clock
	Priority Priority
}

type Task struct {
	ID       uint32
	Title    string
	Done     bool
	Priority Priority
	// Due is optional; the zero date means none.
	Due calendar.Date
}

// IsPrintableASCII reports whether r may appear in a title.
func IsPrintableASCII(r rune) bool { return r >= 0x20 && r <= 0x7E }

func validateTitle(title string, max int) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: empty title", ErrInvalid)
	}
	if len(title) > max {
		return fmt.Errorf("%w: title longer than %d", ErrInvalid, max)
	}
	for i := 0; i < len(title); i++ {
		if !IsPrintableASCII(rune(title[i])) {
			return fmt.Errorf("%w: title byte %#x at %d", ErrInvalid, title[i], i)
		}
	}
	return nil
}

func ValidateEvent(e Event) error {
	if err := validateTitle(e.Title, MaxEventTitle); err != nil {
		return err
	}
	if e.Date.IsZero() {
		return fmt.Errorf("%w: event without date", ErrInvalid)
	}
	if !e.Time.Valid() {
		return fmt.Errorf("%w: time %d:%d", ErrInvalid, e.Time.Hour, e.Time.Minute)
	}
	if !e.Priority.Valid() {
		return fmt.Errorf("%w: priority %d", ErrInvalid, e.Priority)
	}
	return nil
}

func ValidateTask(t Task) error {
	if err := validateTitle(t.Title, MaxTaskTitle); err != nil {
		return err
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("%w: priority %d", ErrInvalid, t.Priority)
	}
	return nil
}

// SanitizeTitle replaces non-printable runes with '?' and truncates to max bytes.
func SanitizeTitle(s string, max int) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if b.Len() >= max {
			break
		}
		if !IsPrintableASCII(r) {
			r = '?'
		}
		b.WriteRune(r)
	}
	return b.String()
}
