package record

import (
	"fmt"
	"time"
)

const (
	secondsPerDay    = 24 * 60 * 60
	secondsPerMinute = 60
)

// Date is a calendar day without a time of day or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// DateFromDays is the inverse of Date.Days.
func DateFromDays(days int64) Date {
	return DateOf(time.Unix(days*secondsPerDay, 0).UTC())
}

// Days returns the number of days since 1970-01-01.
func (d Date) Days() int64 {
	return d.utc().Unix() / secondsPerDay
}

// Valid reports whether d names a real calendar day.
func (d Date) Valid() bool {
	if d.Month < time.January || d.Month > time.December || d.Day < 1 {
		return false
	}
	return DateOf(d.utc()) == d
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns d moved by n days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.utc().AddDate(0, 0, n))
}

// Compare returns -1, 0 or 1 depending on whether d is before, equal to or
// after other.
func (d Date) Compare(other Date) int {
	a, b := d.Days(), other.Days()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }

func (d Date) After(other Date) bool { return d.Compare(other) > 0 }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) utc() time.Time {
	return d.In(time.UTC)
}

// minutesOf returns the wall-clock minutes since 1970-01-01T00:00 of t,
// ignoring t's location and anything below a minute.
func minutesOf(t time.Time) int64 {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
	return wall.Unix() / secondsPerMinute
}

// timeFromMinutes is the inverse of minutesOf; the result carries the same
// wall clock in loc.
func timeFromMinutes(minutes int64, loc *time.Location) time.Time {
	u := time.Unix(minutes*secondsPerMinute, 0).UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), u.Minute(), 0, 0, loc)
}
