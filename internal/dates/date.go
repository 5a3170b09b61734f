package dates

import (
	"fmt"
	"time"
)

const (
	MinYear = 1900
	MaxYear = 2100
)

// Date is a calendar date produced by Parse. Year is within [MinYear, MaxYear]
// and Day is valid for the month under the divisible-by-4 leap rule.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// String renders the date as MM/DD/YYYY, a form Parse reads back unchanged.
func (d Date) String() string {
	return fmt.Sprintf("%02d/%02d/%04d", int(d.Month), d.Day, d.Year)
}

// Time returns the date at midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// FromTime truncates t to its calendar date.
func FromTime(t time.Time) Date {
	y, m, day := t.Date()
	return Date{Year: y, Month: m, Day: day}
}

// daysInMonth uses year%4 as the leap rule. This is not the Gregorian rule but
// matches it for every year in [MinYear, MaxYear] except 1900 and 2100.
func daysInMonth(month, year int) int {
	days := [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	if year%4 == 0 {
		days[1] = 29
	}
	return days[month-1]
}
