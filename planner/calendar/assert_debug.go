//go:build plannerdebug

package calendar

func checked(d Date) Date {
	if d.m < 1 || d.m > 12 || d.d < 1 || int(d.d) > DaysInMonth(int(d.m), int(d.y)) || d.y < MinYear || d.y > MaxYear {
		panic("calendar: arithmetic produced invalid date " + d.String())
	}
	return d
}
