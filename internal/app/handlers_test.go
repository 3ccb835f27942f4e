package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// setupHandlers prepares globals for handler tests: temp data dir,
// default config, edit mode on.
func setupHandlers(t *testing.T) {
	t.Helper()
	setupStore(t)

	cfg := DefaultConfig()
	cfg.DataDir = DataDir
	cfg.TrackedPerson = "Kayla"
	oldConf := Conf
	ApplyConfig(cfg)

	oldEdit := EditMode
	EditMode = true
	oldState := state
	state = serviceState{FilterMode: FilterWork}
	t.Cleanup(func() {
		Conf = oldConf
		EditMode = oldEdit
		state = oldState
	})
}

func TestHandleMonth(t *testing.T) {
	setupHandlers(t)

	req := httptest.NewRequest("GET", "/api/month?year=2024&month=1", nil)
	w := httptest.NewRecorder()
	HandleMonth(w, req)

	if w.Code != 200 {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var grid MonthGrid
	if err := json.Unmarshal(w.Body.Bytes(), &grid); err != nil {
		t.Fatalf("Failed to decode grid: %v", err)
	}

	if grid.Year != 2024 || grid.Month != 1 {
		t.Errorf("Expected January 2024, got %d-%d", grid.Year, grid.Month)
	}
	if grid.Title != "January 2024" {
		t.Errorf("Unexpected title: %s", grid.Title)
	}
	if len(grid.Cells)%7 != 0 {
		t.Errorf("Cell count %d is not a multiple of 7", len(grid.Cells))
	}
}

func TestHandleMonthInvalidMonth(t *testing.T) {
	setupHandlers(t)

	req := httptest.NewRequest("GET", "/api/month?year=2024&month=13", nil)
	w := httptest.NewRecorder()
	HandleMonth(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestToggleAssignmentFlow(t *testing.T) {
	setupHandlers(t)

	// First toggle adds.
	body := `{"date": "2024-01-05", "person": "Nonnie"}`
	req := httptest.NewRequest("POST", "/api/assignments/toggle", strings.NewReader(body))
	w := httptest.NewRecorder()
	HandleToggleAssignment(w, req)

	if w.Code != 200 {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"status":"added"`) {
		t.Errorf("Expected added status, got: %s", w.Body.String())
	}

	// Second identical toggle removes.
	req = httptest.NewRequest("POST", "/api/assignments/toggle", strings.NewReader(body))
	w = httptest.NewRecorder()
	HandleToggleAssignment(w, req)

	if !strings.Contains(w.Body.String(), `"status":"removed"`) {
		t.Errorf("Expected removed status, got: %s", w.Body.String())
	}
	if len(CopyStore()) != 0 {
		t.Errorf("Store should be empty after toggle round trip")
	}
}

func TestToggleAssignmentInvalidDate(t *testing.T) {
	setupHandlers(t)

	body := `{"date": "01/05/2024", "person": "Nonnie"}`
	req := httptest.NewRequest("POST", "/api/assignments/toggle", strings.NewReader(body))
	w := httptest.NewRecorder()
	HandleToggleAssignment(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestToggleAssignmentRequiresEditMode(t *testing.T) {
	setupHandlers(t)
	EditMode = false

	body := `{"date": "2024-01-05", "person": "Nonnie"}`
	req := httptest.NewRequest("POST", "/api/assignments/toggle", strings.NewReader(body))
	w := httptest.NewRecorder()
	HandleToggleAssignment(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}
}

func TestMoveAssignmentHandler(t *testing.T) {
	setupHandlers(t)

	if _, err := AddAssignment("2024-01-05", "Sophia", ""); err != nil {
		t.Fatal(err)
	}

	body := `{"date": "2024-01-05", "new_date": "2024-01-09", "person": "Sophia"}`
	req := httptest.NewRequest("POST", "/api/assignments/move", strings.NewReader(body))
	w := httptest.NewRecorder()
	HandleMoveAssignment(w, req)

	if w.Code != 200 {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	store := CopyStore()
	if len(store["2024-01-05"]) != 0 {
		t.Errorf("Source day should be empty")
	}
	if len(store["2024-01-09"]) != 1 {
		t.Errorf("Destination day should hold the moved card")
	}
}

func TestUpdateNoteHandler(t *testing.T) {
	setupHandlers(t)

	if _, err := AddAssignment("2024-01-05", "Note", "Pick up meds"); err != nil {
		t.Fatal(err)
	}

	body := `{"date": "2024-01-05", "text": "Pick up meds", "new_text": "Pick up meds at 5pm"}`
	req := httptest.NewRequest("POST", "/api/assignments/note", strings.NewReader(body))
	w := httptest.NewRecorder()
	HandleUpdateNote(w, req)

	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("Expected ok status, got: %s", w.Body.String())
	}

	store := CopyStore()
	if got := store["2024-01-05"][0].Text; got != "Pick up meds at 5pm" {
		t.Errorf("Note text not updated, got: %s", got)
	}
}

func TestHandleFilter(t *testing.T) {
	setupHandlers(t)

	// Default mode.
	req := httptest.NewRequest("GET", "/api/filter", nil)
	w := httptest.NewRecorder()
	HandleFilter(w, req)
	if !strings.Contains(w.Body.String(), `"mode":"work"`) {
		t.Errorf("Expected work mode, got: %s", w.Body.String())
	}

	// Switch to off.
	req = httptest.NewRequest("PUT", "/api/filter", strings.NewReader(`{"mode": "off"}`))
	w = httptest.NewRecorder()
	HandleFilter(w, req)
	if w.Code != 200 {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if FilterMode() != FilterOff {
		t.Errorf("Filter mode not persisted")
	}

	// Invalid mode rejected.
	req = httptest.NewRequest("PUT", "/api/filter", strings.NewReader(`{"mode": "maybe"}`))
	w = httptest.NewRecorder()
	HandleFilter(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestHandleDownloadInvalidFormat(t *testing.T) {
	setupHandlers(t)

	req := httptest.NewRequest("GET", "/api/download?year=2024&month=1&format=xml", nil)
	w := httptest.NewRecorder()
	HandleDownload(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestHandleDownloadCSV(t *testing.T) {
	setupHandlers(t)

	if _, err := AddAssignment("2024-01-05", "Nonnie", ""); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("GET", "/api/download?year=2024&month=1&format=csv", nil)
	w := httptest.NewRecorder()
	HandleDownload(w, req)

	if w.Code != 200 {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Date,Kind,Summary") {
		t.Errorf("Missing CSV header: %s", body)
	}
	if !strings.Contains(body, "2024-01-05,assignment,Nonnie") {
		t.Errorf("Missing assignment row: %s", body)
	}
}

func TestHandleSubmitDiffUnconfigured(t *testing.T) {
	setupHandlers(t)
	Conf.RelayURL = ""

	req := httptest.NewRequest("POST", "/api/submit", nil)
	w := httptest.NewRecorder()
	HandleSubmitDiff(w, req)

	if w.Code != http.StatusNotImplemented {
		t.Errorf("Expected status 501, got %d", w.Code)
	}
}

func TestHandleSubmitDiffDelivers(t *testing.T) {
	setupHandlers(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	Conf.RelayURL = srv.URL

	if _, err := AddAssignment("2024-01-05", "Nonnie", ""); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("POST", "/api/submit", nil)
	w := httptest.NewRecorder()
	HandleSubmitDiff(w, req)

	if w.Code != 200 {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"status":"delivered"`) {
		t.Errorf("Expected delivered status, got: %s", w.Body.String())
	}

	// A second submission with no further edits reports an empty diff.
	req = httptest.NewRequest("POST", "/api/submit", nil)
	w = httptest.NewRecorder()
	HandleSubmitDiff(w, req)
	if !strings.Contains(w.Body.String(), `"added":0`) {
		t.Errorf("Expected empty diff, got: %s", w.Body.String())
	}
}
