package app

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

// ExportEvent is one all-day calendar entry in a download or feed.
type ExportEvent struct {
	Date    string `json:"date"`
	Summary string `json:"summary"`
	Kind    string `json:"kind"`
	UID     string `json:"-"`
}

// CollectMonthEvents flattens a reconciled month into exportable events:
// visible imported shifts plus all manual assignments (the display cap is
// a screen concern; exports carry everything), in-month days only.
func CollectMonthEvents(grid MonthGrid) []ExportEvent {
	var events []ExportEvent
	for _, cell := range grid.Cells {
		if !cell.InMonth {
			continue
		}
		for _, item := range cell.Items {
			switch item.Kind {
			case ItemShift:
				events = append(events, ExportEvent{
					Date:    cell.DateKey,
					Summary: shiftSummary(item.Person, item.Category),
					Kind:    ItemShift,
					UID:     fmt.Sprintf("%s-%s-%s@%s", cell.DateKey, slug(item.Person), slug(item.Category), ICSUIDDomain),
				})
			case ItemAssignment:
				events = append(events, ExportEvent{
					Date:    cell.DateKey,
					Summary: assignmentSummary(item.Person, item.Text),
					Kind:    ItemAssignment,
					UID:     assignmentUID(cell.DateKey, item.Person, item.ID),
				})
			}
		}
	}
	return events
}

// CollectAssignmentEvents flattens the manual store into events for the
// subscription feed, skipping everything before minYear.
func CollectAssignmentEvents(store AssignmentStore, minYear int) []ExportEvent {
	var events []ExportEvent
	for _, dateKey := range sortedDateKeys(store) {
		date, err := time.Parse("2006-01-02", dateKey)
		if err != nil || date.Year() < minYear {
			continue
		}
		for _, a := range store[dateKey] {
			events = append(events, ExportEvent{
				Date:    dateKey,
				Summary: assignmentSummary(a.Person, a.Text),
				Kind:    ItemAssignment,
				UID:     assignmentUID(dateKey, a.Person, a.ID),
			})
		}
	}
	return events
}

func shiftSummary(person, category string) string {
	if person == "" {
		return category
	}
	if category == "" {
		return person
	}
	return fmt.Sprintf("%s: %s", person, category)
}

func assignmentSummary(person, text string) string {
	if person == NotePerson {
		return text
	}
	return person
}

func assignmentUID(dateKey, person, id string) string {
	if id != "" {
		return fmt.Sprintf("%s@%s", id, ICSUIDDomain)
	}
	return fmt.Sprintf("%s-%s@%s", dateKey, slug(person), ICSUIDDomain)
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, s)
}

// buildICS assembles an iCalendar document of all-day events.
func buildICS(name string, events []ExportEvent, subscription bool) string {
	cal := ics.NewCalendar()
	cal.SetProductId(ICSProductID)
	cal.SetCalscale("GREGORIAN")
	cal.SetXWRCalName(name)
	cal.SetXWRTimezone(ICSTimezone)
	if subscription {
		// Required for calendar apps to treat the feed as a subscription.
		cal.SetMethod(ics.MethodPublish)
	}

	now := time.Now().UTC()
	for _, event := range events {
		date, err := time.Parse("2006-01-02", event.Date)
		if err != nil {
			continue
		}
		ve := cal.AddEvent(event.UID)
		ve.SetDtStampTime(now)
		ve.SetAllDayStartAt(date)
		ve.SetAllDayEndAt(date.AddDate(0, 0, 1))
		ve.SetSummary(event.Summary)
	}

	return cal.Serialize()
}

// GenerateICS writes a month download as an ICS attachment.
func GenerateICS(w http.ResponseWriter, year, month int, events []ExportEvent) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=shift_calendar_%04d-%02d.ics", year, month))

	name := fmt.Sprintf("Shift Calendar %s %d", time.Month(month).String(), year)
	if _, err := io.WriteString(w, buildICS(name, events, false)); err != nil {
		Log.Errorw("failed to write ICS export", "err", err)
	}
}

// GenerateSubscriptionICS writes the rolling ICS subscription feed.
// Unlike GenerateICS this is inline content (no attachment header) so
// calendar apps can subscribe to the URL directly.
func GenerateSubscriptionICS(w http.ResponseWriter, events []ExportEvent) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")

	if _, err := io.WriteString(w, buildICS("Shift Calendar", events, true)); err != nil {
		Log.Errorw("failed to write ICS subscription", "err", err)
	}
}

// GenerateCSV writes a month download as CSV.
func GenerateCSV(w http.ResponseWriter, year, month int, events []ExportEvent) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=shift_calendar_%04d-%02d.csv", year, month))

	fmt.Fprintln(w, "Date,Kind,Summary")
	for _, event := range events {
		fmt.Fprintf(w, "%s,%s,%s\n", event.Date, event.Kind, csvEscape(event.Summary))
	}
}

func csvEscape(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// GenerateJSON writes a month download as JSON.
func GenerateJSON(w http.ResponseWriter, year, month int, events []ExportEvent) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=shift_calendar_%04d-%02d.json", year, month))

	data := map[string]interface{}{
		"year":   year,
		"month":  month,
		"events": events,
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		Log.Errorw("failed to encode JSON export", "err", err)
		http.Error(w, ErrInternalServer, http.StatusInternalServerError)
	}
}
