// Package calendar implements Gregorian date arithmetic for the planner.
//
// A Date can only be built through the validating constructors, so every
// non-zero Date held by the program is a real calendar day.
package calendar

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	MinYear = 1
	MaxYear = 9999
)

// ErrInvalidDate is returned by the constructors for out-of-range parts.
var ErrInvalidDate = errors.New("calendar: invalid date")

// Weekday is 0=Sunday..6=Saturday.
type Weekday uint8

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

func (w Weekday) String() string { return WeekdayShort(w) }

// IsLeapYear applies the Gregorian rule.
func IsLeapYear(year int) bool {
	if year%400 == 0 {
		return true
	}
	if year%100 == 0 {
		return false
	}
	return year%4 == 0
}

// DaysInMonth returns 28..31. Months outside 1..12 return 0.
func DaysInMonth(month, year int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	default:
		return 0
	}
}

var sakamoto = [...]int{0, 3, 2, 5, 0, 3, 5, 1, 4, 6, 2, 4}

// DayOfWeek uses Sakamoto's method.
func DayOfWeek(year, month, day int) Weekday {
	y := year
	if month < 3 {
		y--
	}
	w := (y + y/4 - y/100 + y/400 + sakamoto[month-1] + day) % 7
	return Weekday(w)
}

// FirstColumn returns the grid column (0..6) of day 1 for a week starting on start.
func FirstColumn(year, month int, start Weekday) int {
	return (int(DayOfWeek(year, month, 1)) - int(start) + 7) % 7
}

// Date is a calendar day. The zero value means "no date"; arithmetic on it
// returns it unchanged.
type Date struct {
	y uint16
	m uint8
	d uint8
}

// New returns the date or ErrInvalidDate.
func New(year, month, day int) (Date, error) {
	if year < MinYear || year > MaxYear || month < 1 || month > 12 || day < 1 || day > DaysInMonth(month, year) {
		return Date{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, month, day)
	}
	return Date{y: uint16(year), m: uint8(month), d: uint8(day)}, nil
}

// MustNew is New for constants and tests.
func MustNew(year, month, day int) Date {
	d, err := New(year, month, day)
	if err != nil {
		panic(err)
	}
	return d
}

// Clamp pulls each part into range, shortening the day to the month length.
func Clamp(year, month, day int) Date {
	year = clampInt(year, MinYear, MaxYear)
	month = clampInt(month, 1, 12)
	day = clampInt(day, 1, DaysInMonth(month, year))
	return Date{y: uint16(year), m: uint8(month), d: uint8(day)}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (d Date) Year() int    { return int(d.y) }
func (d Date) Month() int   { return int(d.m) }
func (d Date) Day() int     { return int(d.d) }
func (d Date) IsZero() bool { return d == Date{} }

func (d Date) Weekday() Weekday { return DayOfWeek(d.Year(), d.Month(), d.Day()) }

// Compare returns -1, 0 or +1. The zero date sorts first.
func (d Date) Compare(o Date) int {
	a, b := d.key(), o.key()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }

func (d Date) key() uint32 { return uint32(d.y)*10000 + uint32(d.m)*100 + uint32(d.d) }

// NextDay rolls over month and year; it saturates at 9999-12-31.
func (d Date) NextDay() Date {
	if d.IsZero() {
		return d
	}
	y, m, dd := d.Year(), d.Month(), d.Day()+1
	if dd > DaysInMonth(m, y) {
		dd = 1
		m++
		if m > 12 {
			if y == MaxYear {
				return d
			}
			m = 1
			y++
		}
	}
	return checked(Date{y: uint16(y), m: uint8(m), d: uint8(dd)})
}

// PrevDay rolls back over month and year; it saturates at 0001-01-01.
func (d Date) PrevDay() Date {
	if d.IsZero() {
		return d
	}
	y, m, dd := d.Year(), d.Month(), d.Day()-1
	if dd < 1 {
		m--
		if m < 1 {
			if y == MinYear {
				return d
			}
			m = 12
			y--
		}
		dd = DaysInMonth(m, y)
	}
	return checked(Date{y: uint16(y), m: uint8(m), d: uint8(dd)})
}

// AddDays steps n days forward (or back when n < 0).
func (d Date) AddDays(n int) Date {
	for ; n > 0; n-- {
		d = d.NextDay()
	}
	for ; n < 0; n++ {
		d = d.PrevDay()
	}
	return d
}

// NextMonth keeps the day when possible, otherwise clamps to the month's last day.
func (d Date) NextMonth() Date {
	if d.IsZero() {
		return d
	}
	y, m := d.Year(), d.Month()+1
	if m > 12 {
		if y == MaxYear {
			return d
		}
		m = 1
		y++
	}
	return checked(Clamp(y, m, d.Day()))
}

func (d Date) PrevMonth() Date {
	if d.IsZero() {
		return d
	}
	y, m := d.Year(), d.Month()-1
	if m < 1 {
		if y == MinYear {
			return d
		}
		m = 12
		y--
	}
	return checked(Clamp(y, m, d.Day()))
}

func (d Date) NextYear() Date {
	if d.IsZero() || d.Year() == MaxYear {
		return d
	}
	return checked(Clamp(d.Year()+1, d.Month(), d.Day()))
}

func (d Date) PrevYear() Date {
	if d.IsZero() || d.Year() == MinYear {
		return d
	}
	return checked(Clamp(d.Year()-1, d.Month(), d.Day()))
}

// String formats as YYYY-MM-DD; the zero date formats as "".
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.y, d.m, d.d)
}

// Short formats as MM/DD.
func (d Date) Short() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%02d/%02d", d.m, d.d)
}

// Parse reads YYYY-MM-DD.
func Parse(s string) (Date, error) {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	y, err1 := strconv.Atoi(s[0:4])
	m, err2 := strconv.Atoi(s[5:7])
	d, err3 := strconv.Atoi(s[8:10])
	if err1 != nil || err2 != nil || err3 != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return New(y, m, d)
}

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

var monthNames = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

func MonthName(month int) string {
	if month < 1 || month > 12 {
		return "Month"
	}
	return monthNames[month-1]
}

var weekdayNames = [...]string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"}

func WeekdayShort(w Weekday) string {
	if w > Saturday {
		return "??"
	}
	return weekdayNames[w]
}
