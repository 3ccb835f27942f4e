package app

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func exportFixture() ([]ExportEvent, MonthGrid) {
	view := MonthView{
		Year:          2025,
		Month:         1,
		FilterMode:    FilterWork,
		TrackedPerson: "Kayla",
		DisplayCap:    DefaultDisplayCap,
	}
	feed := ShiftFeed{
		"2025-01-15": {{Person: "Kayla", Category: "K-Work"}},
	}
	store := AssignmentStore{
		"2025-01-15": {{ID: "abc-123", Person: "Nonnie"}},
		"2025-01-20": {{Person: NotePerson, Text: "Dentist, 3pm"}},
	}
	grid := BuildMonth(view, feed, store, GetUSHolidays(2025))
	return CollectMonthEvents(grid), grid
}

func TestCollectMonthEvents(t *testing.T) {
	events, _ := exportFixture()

	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d: %+v", len(events), events)
	}

	var summaries []string
	for _, e := range events {
		summaries = append(summaries, e.Summary)
	}
	joined := strings.Join(summaries, "\n")

	if !strings.Contains(joined, "Kayla: K-Work") {
		t.Errorf("Missing shift summary: %s", joined)
	}
	if !strings.Contains(joined, "Nonnie") {
		t.Errorf("Missing assignment summary: %s", joined)
	}
	if !strings.Contains(joined, "Dentist, 3pm") {
		t.Errorf("Note summary should be its text: %s", joined)
	}
}

func TestCollectMonthEventsIgnoresDisplayCap(t *testing.T) {
	view := MonthView{Year: 2025, Month: 1, FilterMode: FilterWork, DisplayCap: 2}
	store := AssignmentStore{
		"2025-01-10": {
			{Person: "Nonnie"},
			{Person: "Sophia"},
			{Person: NotePerson, Text: "One"},
			{Person: NotePerson, Text: "Two"},
		},
	}
	grid := BuildMonth(view, ShiftFeed{}, store, nil)
	events := CollectMonthEvents(grid)

	if len(events) != 4 {
		t.Errorf("Exports should carry all cards, got %d", len(events))
	}
}

func TestGenerateICS(t *testing.T) {
	events, _ := exportFixture()

	w := httptest.NewRecorder()
	GenerateICS(w, 2025, 1, events)

	if disp := w.Header().Get("Content-Disposition"); !strings.Contains(disp, "shift_calendar_2025-01.ics") {
		t.Errorf("Unexpected Content-Disposition: %s", disp)
	}

	body := w.Body.String()
	expectations := []string{
		"BEGIN:VCALENDAR",
		"END:VCALENDAR",
		"BEGIN:VEVENT",
		"DTSTART;VALUE=DATE:20250115",
		"SUMMARY:Kayla: K-Work",
		"abc-123@" + ICSUIDDomain,
	}
	for _, expected := range expectations {
		if !strings.Contains(body, expected) {
			t.Errorf("ICS output missing %q:\n%s", expected, body)
		}
	}
	if strings.Contains(body, "METHOD:PUBLISH") {
		t.Errorf("Month download should not carry METHOD:PUBLISH")
	}
}

func TestGenerateSubscriptionICS(t *testing.T) {
	store := AssignmentStore{
		"2025-03-02": {{ID: "id-1", Person: "Sophia"}},
		"2010-06-01": {{Person: "Nonnie"}},
	}
	events := CollectAssignmentEvents(store, 2024)

	w := httptest.NewRecorder()
	GenerateSubscriptionICS(w, events)

	if disp := w.Header().Get("Content-Disposition"); disp != "" {
		t.Errorf("Subscription feed must be inline, got disposition: %s", disp)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/calendar") {
		t.Errorf("Unexpected Content-Type: %s", ct)
	}

	body := w.Body.String()
	if !strings.Contains(body, "METHOD:PUBLISH") {
		t.Errorf("Subscription feed missing METHOD:PUBLISH:\n%s", body)
	}
	if !strings.Contains(body, "SUMMARY:Sophia") {
		t.Errorf("Missing assignment event:\n%s", body)
	}
	if strings.Contains(body, "2010") {
		t.Errorf("Events before minYear should be dropped:\n%s", body)
	}
}

func TestGenerateCSV(t *testing.T) {
	events, _ := exportFixture()

	w := httptest.NewRecorder()
	GenerateCSV(w, 2025, 1, events)

	body := w.Body.String()
	if !strings.HasPrefix(body, "Date,Kind,Summary\n") {
		t.Errorf("Missing CSV header:\n%s", body)
	}
	if !strings.Contains(body, "2025-01-15,shift,Kayla: K-Work") {
		t.Errorf("Missing shift row:\n%s", body)
	}
	// A summary containing a comma gets quoted.
	if !strings.Contains(body, `"Dentist, 3pm"`) {
		t.Errorf("Comma summary should be quoted:\n%s", body)
	}
}

func TestGenerateJSON(t *testing.T) {
	events, _ := exportFixture()

	w := httptest.NewRecorder()
	GenerateJSON(w, 2025, 1, events)

	body := w.Body.String()
	if !strings.Contains(body, `"year":2025`) {
		t.Errorf("Missing year:\n%s", body)
	}
	if !strings.Contains(body, `"summary":"Nonnie"`) {
		t.Errorf("Missing assignment event:\n%s", body)
	}
}

func TestCSVEscape(t *testing.T) {
	cases := map[string]string{
		"plain":        "plain",
		"has,comma":    `"has,comma"`,
		`has "quotes"`: `"has ""quotes"""`,
	}
	for input, expected := range cases {
		if got := csvEscape(input); got != expected {
			t.Errorf("csvEscape(%q) = %q, expected %q", input, got, expected)
		}
	}
}
