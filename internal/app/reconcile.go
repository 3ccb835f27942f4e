package app

import (
	"fmt"
	"strings"
	"time"
)

// Weekday header labels, Sunday-first.
var weekdayLabels = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// DateKey builds the canonical YYYY-MM-DD key from calendar components.
// Keys are always derived this way, never by slicing an ISO/UTC rendering
// of a timestamp, so they cannot drift a day near midnight in
// negative-offset zones.
func DateKey(year int, month time.Month, day int) string {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC).Format("2006-01-02")
}

func daysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 12, 0, 0, 0, time.UTC).Day()
}

// BuildMonth reconciles imported shifts, manual assignments, the holiday
// table and the view filter into a rendered month grid. It is a pure
// function of its inputs: rebuilding the same view with unchanged data
// yields an identical grid.
//
// The grid is Sunday-first and padded with leading/trailing filler days
// from the adjacent months; filler days are fully addressable cells and
// carry imported and manual entries like any other day.
func BuildMonth(view MonthView, feed ShiftFeed, store AssignmentStore, holidays map[string]string) MonthGrid {
	month := time.Month(view.Month)
	first := time.Date(view.Year, month, 1, 12, 0, 0, 0, time.UTC)
	lead := int(first.Weekday())
	numDays := daysIn(view.Year, month)

	total := lead + numDays
	trail := (7 - total%7) % 7

	grid := MonthGrid{
		Year:     view.Year,
		Month:    view.Month,
		Title:    fmt.Sprintf("%s %d", month.String(), view.Year),
		Weekdays: weekdayLabels,
		Cells:    make([]DayCell, 0, total+trail),
	}

	// Leading filler, the month itself, trailing filler: one loop over
	// day offsets relative to the first of the month. time.Date
	// normalizes out-of-range days into the adjacent months.
	for offset := -lead; offset < numDays+trail; offset++ {
		date := time.Date(view.Year, month, 1+offset, 12, 0, 0, 0, time.UTC)
		inMonth := offset >= 0 && offset < numDays
		grid.Cells = append(grid.Cells, buildCell(date, inMonth, view, feed, store, holidays))
	}

	return grid
}

// buildCell assembles one day cell in render order: holiday label,
// imported shift labels (tracked person filtered by mode, everyone else
// unfiltered), then manual assignments in stored order with overflow
// beyond the display cap collapsed.
func buildCell(date time.Time, inMonth bool, view MonthView, feed ShiftFeed, store AssignmentStore, holidays map[string]string) DayCell {
	key := DateKey(date.Year(), date.Month(), date.Day())

	cell := DayCell{
		DateKey: key,
		Day:     date.Day(),
		InMonth: inMonth,
		Weekend: date.Weekday() == time.Sunday || date.Weekday() == time.Saturday,
		Items:   []CellItem{},
	}

	if name, ok := holidays[key]; ok {
		cell.Items = append(cell.Items, CellItem{Kind: ItemHoliday, Text: name})
	}

	for _, shift := range feed[key] {
		if strings.EqualFold(shift.Person, view.TrackedPerson) &&
			!VisibleInMode(shift.Category, view.FilterMode) {
			continue
		}
		cell.Items = append(cell.Items, CellItem{
			Kind:     ItemShift,
			Person:   shift.Person,
			Category: shift.Category,
		})
	}

	displayCap := view.DisplayCap
	if displayCap <= 0 {
		displayCap = DefaultDisplayCap
	}
	for i, a := range store[key] {
		item := CellItem{
			Kind:   ItemAssignment,
			Person: a.Person,
			Text:   a.Text,
			ID:     a.ID,
		}
		if i >= displayCap {
			item.Hidden = true
			cell.Overflow++
		}
		cell.Items = append(cell.Items, item)
	}

	return cell
}
