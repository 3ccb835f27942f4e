package app

import (
	"time"
)

// GetUSHolidays returns the US federal holidays for the given year,
// keyed by date (YYYY-MM-DD).
func GetUSHolidays(year int) map[string]string {
	holidays := make(map[string]string)

	// Fixed holidays
	holidays[formatDate(year, 1, 1)] = "New Year's Day"
	holidays[formatDate(year, 6, 19)] = "Juneteenth"
	holidays[formatDate(year, 7, 4)] = "Independence Day"
	holidays[formatDate(year, 11, 11)] = "Veterans Day"
	holidays[formatDate(year, 12, 25)] = "Christmas"

	// Nth-weekday holidays
	holidays[formatDateFromTime(nthWeekday(year, time.January, time.Monday, 3))] = "MLK Jr. Day"
	holidays[formatDateFromTime(nthWeekday(year, time.February, time.Monday, 3))] = "Presidents' Day"
	holidays[formatDateFromTime(nthWeekday(year, time.September, time.Monday, 1))] = "Labor Day"
	holidays[formatDateFromTime(nthWeekday(year, time.October, time.Monday, 2))] = "Columbus Day"
	holidays[formatDateFromTime(nthWeekday(year, time.November, time.Thursday, 4))] = "Thanksgiving"

	// Last-weekday holiday
	holidays[formatDateFromTime(lastWeekday(year, time.May, time.Monday))] = "Memorial Day"

	return holidays
}

// nthWeekday returns the nth given weekday of a month (n starting at 1).
func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	// Use noon to avoid timezone issues when formatting to YYYY-MM-DD
	first := time.Date(year, month, 1, 12, 0, 0, 0, time.UTC)
	offset := (7 + int(weekday) - int(first.Weekday())) % 7
	return first.AddDate(0, 0, offset+7*(n-1))
}

// lastWeekday returns the last given weekday of a month.
func lastWeekday(year int, month time.Month, weekday time.Weekday) time.Time {
	last := time.Date(year, month+1, 0, 12, 0, 0, 0, time.UTC)
	offset := (7 + int(last.Weekday()) - int(weekday)) % 7
	return last.AddDate(0, 0, -offset)
}

// formatDate formats a date as YYYY-MM-DD
func formatDate(year, month, day int) string {
	// Use noon to avoid timezone issues when formatting to YYYY-MM-DD
	return time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC).Format("2006-01-02")
}

// formatDateFromTime formats a time.Time as YYYY-MM-DD
func formatDateFromTime(t time.Time) string {
	return t.Format("2006-01-02")
}
