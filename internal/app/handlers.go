package app

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// ServeIndex serves the calendar interface HTML
func ServeIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(IndexHTML); err != nil {
		Log.Errorw("failed to write index HTML", "err", err)
	}
}

// ServeEdit serves the editor interface HTML
func ServeEdit(w http.ResponseWriter, r *http.Request) {
	if !RequireEditMode(w) {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(EditHTML); err != nil {
		Log.Errorw("failed to write edit HTML", "err", err)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		Log.Errorw("failed to encode response", "err", err)
		http.Error(w, ErrInternalServer, http.StatusInternalServerError)
	}
}

func writeStatus(w http.ResponseWriter, status string) {
	writeJSON(w, map[string]string{"status": status})
}

// GetConfig returns the application configuration for the UI
func GetConfig(w http.ResponseWriter, r *http.Request) {
	now := time.Now()

	config := map[string]interface{}{
		"trayPeople":    Conf.TrayPeople,
		"trackedPerson": Conf.TrackedPerson,
		"filterMode":    FilterMode(),
		"displayCap":    Conf.DisplayCap,
		"editMode":      EditMode,
		"hasRelay":      Conf.RelayURL != "",
		"currentYear":   now.Year(),
		"currentMonth":  int(now.Month()),
		"holidays":      GetUSHolidays(now.Year()),
	}
	writeJSON(w, config)
}

// parseMonthQuery reads year/month query params, defaulting to the
// current month. Month must be 1..12 when given.
func parseMonthQuery(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	now := time.Now()
	year, month := now.Year(), int(now.Month())

	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		y, err := strconv.Atoi(yearStr)
		if err != nil {
			http.Error(w, ErrInvalidYear, http.StatusBadRequest)
			return 0, 0, false
		}
		year = y
	}
	if monthStr := r.URL.Query().Get("month"); monthStr != "" {
		m, err := strconv.Atoi(monthStr)
		if err != nil || m < 1 || m > 12 {
			http.Error(w, ErrInvalidMonth, http.StatusBadRequest)
			return 0, 0, false
		}
		month = m
	}
	return year, month, true
}

// currentView builds the explicit view context for the reconciler from
// the requested month plus persisted filter state.
func currentView(year, month int) MonthView {
	return MonthView{
		Year:          year,
		Month:         month,
		FilterMode:    FilterMode(),
		TrackedPerson: Conf.TrackedPerson,
		DisplayCap:    Conf.DisplayCap,
	}
}

// HandleMonth returns the reconciled month grid.
// Query params: year, month (optional, default current month)
func HandleMonth(w http.ResponseWriter, r *http.Request) {
	year, month, ok := parseMonthQuery(w, r)
	if !ok {
		return
	}

	grid := BuildMonth(currentView(year, month), CopyFeed(), CopyStore(), GetUSHolidays(year))
	writeJSON(w, grid)
}

// assignmentRequest is the shared body shape for assignment mutations.
type assignmentRequest struct {
	Date    string `json:"date"`
	NewDate string `json:"new_date"`
	Person  string `json:"person"`
	Text    string `json:"text"`
	NewText string `json:"new_text"`
	ID      string `json:"id"`
}

func decodeAssignmentRequest(w http.ResponseWriter, r *http.Request) (assignmentRequest, bool) {
	var req assignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return req, false
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		http.Error(w, ErrInvalidDateFormat, http.StatusBadRequest)
		return req, false
	}
	if req.Person == "" && req.ID == "" {
		http.Error(w, "Missing person", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

// HandleToggleAssignment places or removes a card on a day (edit mode only).
// The same gesture toggles: present means remove, absent means add.
func HandleToggleAssignment(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) || !RequireEditMode(w) {
		return
	}

	req, ok := decodeAssignmentRequest(w, r)
	if !ok {
		return
	}

	outcome, a, err := ToggleAssignment(req.Date, req.Person, req.Text, req.ID)
	if err != nil {
		Log.Errorw("failed to save assignments", "err", err)
		http.Error(w, ErrFailedToSave, http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{"status": outcome, "assignment": a})
}

// HandleRemoveAssignment removes a card from a day (edit mode only).
func HandleRemoveAssignment(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) || !RequireEditMode(w) {
		return
	}

	req, ok := decodeAssignmentRequest(w, r)
	if !ok {
		return
	}

	removed, err := RemoveAssignment(req.Date, req.Person, req.Text, req.ID)
	if err != nil {
		Log.Errorw("failed to save assignments", "err", err)
		http.Error(w, ErrFailedToSave, http.StatusInternalServerError)
		return
	}

	if removed {
		writeStatus(w, "removed")
	} else {
		writeStatus(w, "ignored")
	}
}

// HandleMoveAssignment relocates a card between days (edit mode only).
func HandleMoveAssignment(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) || !RequireEditMode(w) {
		return
	}

	req, ok := decodeAssignmentRequest(w, r)
	if !ok {
		return
	}
	if _, err := time.Parse("2006-01-02", req.NewDate); err != nil {
		http.Error(w, ErrInvalidDateFormat, http.StatusBadRequest)
		return
	}

	a, err := MoveAssignment(req.Date, req.NewDate, req.Person, req.Text, req.ID)
	if err != nil {
		Log.Errorw("failed to save assignments", "err", err)
		http.Error(w, ErrFailedToSave, http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{"status": "ok", "assignment": a})
}

// HandleUpdateNote rewrites a note's text (edit mode only). A missing
// match answers "ignored" rather than an error; the inline editor calls
// this on every keystroke.
func HandleUpdateNote(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) || !RequireEditMode(w) {
		return
	}

	var req assignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		http.Error(w, ErrInvalidDateFormat, http.StatusBadRequest)
		return
	}

	updated, err := UpdateNoteText(req.Date, req.Text, req.NewText, req.ID)
	if err != nil {
		Log.Errorw("failed to save assignments", "err", err)
		http.Error(w, ErrFailedToSave, http.StatusInternalServerError)
		return
	}

	if updated {
		writeStatus(w, "ok")
	} else {
		writeStatus(w, "ignored")
	}
}

// HandleFilter reads (GET) or updates (PUT/POST) the view filter mode.
func HandleFilter(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, map[string]string{"mode": FilterMode()})

	case http.MethodPut, http.MethodPost:
		if !RequireEditMode(w) {
			return
		}
		var req struct {
			Mode string `json:"mode"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Mode != FilterWork && req.Mode != FilterOff {
			http.Error(w, ErrInvalidMode, http.StatusBadRequest)
			return
		}
		if err := SetFilterMode(req.Mode); err != nil {
			Log.Errorw("failed to save filter mode", "err", err)
			http.Error(w, ErrInternalServer, http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]string{"status": "ok", "mode": req.Mode})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleRefresh forces a feed refetch (edit mode only). On failure the
// cached feed stays live and the response says so; the calendar never
// goes blank because the spreadsheet was unreachable.
func HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) || !RequireEditMode(w) {
		return
	}

	if err := RefreshFeed(r.Context()); err != nil {
		writeJSON(w, map[string]string{"status": "stale", "error": err.Error()})
		return
	}

	fetchedAt, _ := FetchStatus()
	writeJSON(w, map[string]interface{}{"status": "ok", "fetched_at": fetchedAt})
}

// HandleStatus reports the last fetch outcome for the retry banner.
func HandleStatus(w http.ResponseWriter, r *http.Request) {
	fetchedAt, fetchErr := FetchStatus()

	status := map[string]interface{}{
		"last_fetch": fetchedAt,
		"last_error": fetchErr,
		"feed_days":  len(CopyFeed()),
	}
	writeJSON(w, status)
}

// HandleSubmitDiff posts the manual edits made since the last submission
// to the relay endpoint (edit mode only). Fire and forget: a failure is
// reported for the banner and changes nothing.
func HandleSubmitDiff(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) || !RequireEditMode(w) {
		return
	}
	if Conf.RelayURL == "" {
		http.Error(w, ErrRelayUnconfigured, http.StatusNotImplemented)
		return
	}

	snapshot := CopyStore()
	added, removed := ComputeDiff(LastSubmitted(), snapshot)
	diff := DiffSummary{GeneratedAt: time.Now(), Added: added, Removed: removed}

	if err := SubmitDiff(r.Context(), Conf.RelayURL, diff); err != nil {
		Log.Errorw("diff submission failed", "err", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		if encErr := json.NewEncoder(w).Encode(map[string]string{"status": "failed", "error": err.Error()}); encErr != nil {
			Log.Errorw("failed to encode response", "err", encErr)
		}
		return
	}

	if err := SetLastSubmitted(snapshot); err != nil {
		Log.Errorw("failed to save submission snapshot", "err", err)
	}

	writeJSON(w, map[string]interface{}{
		"status":  "delivered",
		"added":   len(added),
		"removed": len(removed),
	})
}

// HandleDownload handles month downloads in ICS, CSV or JSON format.
// Query params: year, month, format=ics|csv|json
func HandleDownload(w http.ResponseWriter, r *http.Request) {
	year, month, ok := parseMonthQuery(w, r)
	if !ok {
		return
	}

	grid := BuildMonth(currentView(year, month), CopyFeed(), CopyStore(), GetUSHolidays(year))
	events := CollectMonthEvents(grid)

	switch r.URL.Query().Get("format") {
	case "ics":
		GenerateICS(w, year, month, events)
	case "csv":
		GenerateCSV(w, year, month, events)
	case "json":
		GenerateJSON(w, year, month, events)
	default:
		http.Error(w, ErrInvalidFormat, http.StatusBadRequest)
	}
}

// HandleSubscribe serves the rolling ICS subscription feed of manual
// assignments from (current year - 1) onwards.
func HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	minYear := time.Now().Year() - 1
	events := CollectAssignmentEvents(CopyStore(), minYear)
	GenerateSubscriptionICS(w, events)
}
