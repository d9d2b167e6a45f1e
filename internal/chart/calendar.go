package chart

import (
	"time"
)

// Format tokens understood by Calendar.Format
const (
	MonthToken = "Jan"
	YearToken  = "2006"
)

// Calendar is the date arithmetic the tick generator and the background
// builder rely on. Timestamps are Unix seconds.
type Calendar interface {
	Month(ts int64) time.Month
	Year(ts int64) int
	// StartOfMonthAfter returns the first instant of the month n months
	// after the month containing ts
	StartOfMonthAfter(ts int64, n int) int64
	Format(ts int64, token string) string
}

// TimeCalendar implements Calendar on the time package in a fixed location
type TimeCalendar struct {
	Location *time.Location
}

// NewTimeCalendar creates a calendar for loc, defaulting to UTC
func NewTimeCalendar(loc *time.Location) TimeCalendar {
	if loc == nil {
		loc = time.UTC
	}
	return TimeCalendar{Location: loc}
}

func (c TimeCalendar) at(ts int64) time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(ts, 0).In(loc)
}

// Month returns the month of ts
func (c TimeCalendar) Month(ts int64) time.Month { return c.at(ts).Month() }

// Year returns the year of ts
func (c TimeCalendar) Year(ts int64) int { return c.at(ts).Year() }

// StartOfMonthAfter returns midnight on the first day of the month n months later
func (c TimeCalendar) StartOfMonthAfter(ts int64, n int) int64 {
	t := c.at(ts)
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return first.AddDate(0, n, 0).Unix()
}

// Format renders ts with a time layout token such as MonthToken
func (c TimeCalendar) Format(ts int64, token string) string {
	return c.at(ts).Format(token)
}
