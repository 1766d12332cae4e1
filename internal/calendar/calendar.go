// Package calendar answers working-day questions: whether a date is a
// working day, when a phase deadline falls and how many working days lie
// between two instants. Saturdays, Sundays and holidays are not working days.
//
// All arithmetic is done on civil dates in the calendar's location, so a
// daylight-saving shift never moves a date.
package calendar

import (
	"time"

	"github.com/ormvat/dossierflow/internal/models"
)

// EndOfBusinessHour is the local hour at which a deadline expires.
const EndOfBusinessHour = 17

type monthDay struct {
	month time.Month
	day   int
}

type ymd struct {
	year int
	monthDay
}

// Calendar is immutable once built and safe for concurrent use.
type Calendar struct {
	loc       *time.Location
	fixed     map[ymd]struct{}
	recurring map[monthDay]struct{}
}

// New builds a Calendar evaluating dates in loc (UTC when nil).
func New(loc *time.Location, holidays ...models.Holiday) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	c := &Calendar{
		loc:       loc,
		fixed:     make(map[ymd]struct{}, len(holidays)),
		recurring: make(map[monthDay]struct{}),
	}
	for _, h := range holidays {
		// Holiday dates carry no time of day; read them in their own zone.
		y, m, d := h.Date.Date()
		if h.Recurring {
			c.recurring[monthDay{m, d}] = struct{}{}
			continue
		}
		c.fixed[ymd{y, monthDay{m, d}}] = struct{}{}
	}
	return c
}

// Location returns the zone dates are evaluated in.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// IsWorkingDay reports whether t falls on a working day in the calendar's
// location.
func (c *Calendar) IsWorkingDay(t time.Time) bool {
	return c.working(c.dateOf(t))
}

// AddWorkingDays returns 17:00 local time of the n-th working day after
// start's date. For n <= 0, start is returned unchanged.
func (c *Calendar) AddWorkingDays(start time.Time, n int) time.Time {
	if n <= 0 {
		return start
	}
	d := c.dateOf(start)
	for count := 0; count < n; {
		d = d.AddDate(0, 0, 1)
		if c.working(d) {
			count++
		}
	}
	y, m, day := d.Date()
	return time.Date(y, m, day, EndOfBusinessHour, 0, 0, 0, c.loc)
}

// WorkingDaysBetween counts the working days strictly after start's date up
// to and including end's date. It is 0 when end is not after start.
func (c *Calendar) WorkingDaysBetween(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	last := c.dateOf(end)
	n := 0
	for d := c.dateOf(start).AddDate(0, 0, 1); !d.After(last); d = d.AddDate(0, 0, 1) {
		if c.working(d) {
			n++
		}
	}
	return n
}

// Deadline is the expiry of a phase entered at enteredAt that lasts maxDays
// working days. ok is false when maxDays is 0, meaning no deadline.
func (c *Calendar) Deadline(enteredAt time.Time, maxDays int) (deadline time.Time, ok bool) {
	if maxDays <= 0 {
		return time.Time{}, false
	}
	return c.AddWorkingDays(enteredAt, maxDays), true
}

// Remaining is the signed number of working days left before deadline at
// now. A negative value is the number of working days late.
func (c *Calendar) Remaining(deadline, now time.Time) int {
	if now.After(deadline) {
		return -c.WorkingDaysBetween(deadline, now)
	}
	return c.WorkingDaysBetween(now, deadline)
}

// dateOf returns t's civil date in the calendar's location, encoded as
// midnight UTC.
func (c *Calendar) dateOf(t time.Time) time.Time {
	y, m, d := t.In(c.loc).Date()
	return civil(y, m, d)
}

func (c *Calendar) working(d time.Time) bool {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	y, m, day := d.Date()
	if _, ok := c.fixed[ymd{y, monthDay{m, day}}]; ok {
		return false
	}
	_, ok := c.recurring[monthDay{m, day}]
	return !ok
}

func civil(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
