package app

import (
	"encoding/json"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// maxNoteLength caps sanitized note bodies.
const maxNoteLength = 500

// SanitizeNote trims a note body, strips control characters and caps its
// length. Applied on every write path so stored text is always clean.
func SanitizeNote(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return ' '
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if len(s) > maxNoteLength {
		// Cut on a rune boundary so the cap never stores invalid UTF-8.
		cut := maxNoteLength
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s
}

// LoadAssignments loads the assignment store from disk into the global
// Store. An absent or corrupt file yields an empty store, never an error:
// the worst-case failure mode is an empty calendar, not a dead service.
func LoadAssignments() {
	data, err := os.ReadFile(assignmentsPath())
	if err != nil {
		if !os.IsNotExist(err) {
			Log.Warnw("failed to read assignments, starting empty", "path", assignmentsPath(), "err", err)
		}
		StoreMutex.Lock()
		Store = AssignmentStore{}
		StoreMutex.Unlock()
		return
	}

	var loaded AssignmentStore
	if err := json.Unmarshal(data, &loaded); err != nil {
		Log.Warnw("corrupt assignments file, starting empty", "path", assignmentsPath(), "err", err)
		loaded = AssignmentStore{}
	}
	if loaded == nil {
		loaded = AssignmentStore{}
	}

	StoreMutex.Lock()
	Store = loaded
	StoreMutex.Unlock()
}

// saveAssignmentsLocked persists the whole store atomically via temp file
// + rename. Caller must hold StoreMutex.
func saveAssignmentsLocked() error {
	data, err := json.MarshalIndent(Store, "", "  ")
	if err != nil {
		return err
	}

	tmpFile := assignmentsPath() + TmpSuffix
	if err := os.WriteFile(tmpFile, data, FilePermissions); err != nil {
		return err
	}
	return os.Rename(tmpFile, assignmentsPath())
}

// matchIndex returns the index of the first assignment in list matching
// the request, or -1.
//
// Matching rule: an ID match always wins when the caller supplies one.
// Otherwise notes match on (person, text) when text is given and on the
// person alone when it is empty (first note on the day); named persons
// match on the case-normalized person alone (at most one named card per
// person per day is the intended invariant, enforced by toggle semantics).
func matchIndex(list []ManualAssignment, person, text, id string) int {
	if id != "" {
		for i, a := range list {
			if a.ID == id {
				return i
			}
		}
		return -1
	}
	for i, a := range list {
		if !strings.EqualFold(a.Person, person) {
			continue
		}
		if strings.EqualFold(person, NotePerson) {
			if text == "" || a.Text == text {
				return i
			}
			continue
		}
		return i
	}
	return -1
}

// AddAssignment appends a new assignment to the day's list, creating the
// list if absent, and persists the store. No dedup check happens here;
// toggle semantics live in ToggleAssignment.
func AddAssignment(dateKey, person, text string) (ManualAssignment, error) {
	a := ManualAssignment{
		ID:     uuid.New().String(),
		Person: person,
	}
	if strings.EqualFold(person, NotePerson) {
		a.Person = NotePerson
		a.Text = SanitizeNote(text)
	}

	StoreMutex.Lock()
	defer StoreMutex.Unlock()

	Store[dateKey] = append(Store[dateKey], a)
	if err := saveAssignmentsLocked(); err != nil {
		return a, err
	}
	return a, nil
}

// RemoveAssignment removes the first matching assignment from the day's
// list and persists the store. The day's key is deleted once the list
// empties, keeping the store sparse. A missing match is a silent no-op.
func RemoveAssignment(dateKey, person, text, id string) (bool, error) {
	StoreMutex.Lock()
	defer StoreMutex.Unlock()

	list, ok := Store[dateKey]
	if !ok {
		return false, nil
	}

	// Sanitize before matching so the displayed text always finds the
	// stored (sanitized) text, same as toggle and note updates.
	i := matchIndex(list, person, SanitizeNote(text), id)
	if i < 0 {
		return false, nil
	}

	list = append(list[:i], list[i+1:]...)
	if len(list) == 0 {
		delete(Store, dateKey)
	} else {
		Store[dateKey] = list
	}

	if err := saveAssignmentsLocked(); err != nil {
		return true, err
	}
	return true, nil
}

// MoveAssignment relocates an assignment between two days in one save,
// preserving its text and ID. If the source day holds no match (state
// drifted, e.g. a second tab already removed it), a fresh entry is
// inserted at the destination instead of failing.
func MoveAssignment(oldKey, newKey, person, text, id string) (ManualAssignment, error) {
	StoreMutex.Lock()
	defer StoreMutex.Unlock()

	var moved ManualAssignment
	list := Store[oldKey]
	if i := matchIndex(list, person, SanitizeNote(text), id); i >= 0 {
		moved = list[i]
		list = append(list[:i], list[i+1:]...)
		if len(list) == 0 {
			delete(Store, oldKey)
		} else {
			Store[oldKey] = list
		}
	} else {
		// Best-effort recovery: insert fresh at the destination.
		moved = ManualAssignment{ID: uuid.New().String(), Person: person}
		if strings.EqualFold(person, NotePerson) {
			moved.Person = NotePerson
			moved.Text = SanitizeNote(text)
		}
		Log.Debugw("move source missing, inserting fresh", "old", oldKey, "new", newKey, "person", person)
	}

	Store[newKey] = append(Store[newKey], moved)
	if err := saveAssignmentsLocked(); err != nil {
		return moved, err
	}
	return moved, nil
}

// UpdateNoteText replaces the text of the note matching oldText (or id)
// with the sanitized newText. A missing match is a silent no-op: during
// inline editing every keystroke lands here and transient mismatches are
// expected mid-edit.
func UpdateNoteText(dateKey, oldText, newText, id string) (bool, error) {
	StoreMutex.Lock()
	defer StoreMutex.Unlock()

	list, ok := Store[dateKey]
	if !ok {
		return false, nil
	}

	i := matchIndex(list, NotePerson, SanitizeNote(oldText), id)
	if i < 0 {
		return false, nil
	}

	list[i].Text = SanitizeNote(newText)

	if err := saveAssignmentsLocked(); err != nil {
		return true, err
	}
	return true, nil
}

// Toggle outcomes.
const (
	ToggleAdded   = "added"
	ToggleRemoved = "removed"
	ToggleIgnored = "ignored"
)

// ToggleAssignment implements the placement policy for a (day, person)
// gesture: if the day already holds a matching card the gesture is a
// removal, otherwise a creation. A Note creation with no usable text is
// ignored rather than prompting (the inline editor supplies text
// explicitly).
func ToggleAssignment(dateKey, person, text, id string) (string, ManualAssignment, error) {
	cleanText := SanitizeNote(text)

	// An empty Note gesture never matches an existing note; without the
	// guard the empty text would wildcard-match the day's first note.
	if strings.EqualFold(person, NotePerson) && cleanText == "" && id == "" {
		return ToggleIgnored, ManualAssignment{}, nil
	}

	StoreMutex.Lock()
	defer StoreMutex.Unlock()

	list := Store[dateKey]
	if i := matchIndex(list, person, cleanText, id); i >= 0 {
		removed := list[i]
		list = append(list[:i], list[i+1:]...)
		if len(list) == 0 {
			delete(Store, dateKey)
		} else {
			Store[dateKey] = list
		}
		if err := saveAssignmentsLocked(); err != nil {
			return ToggleRemoved, removed, err
		}
		return ToggleRemoved, removed, nil
	}

	a := ManualAssignment{ID: uuid.New().String(), Person: person}
	if strings.EqualFold(person, NotePerson) {
		a.Person = NotePerson
		a.Text = cleanText
		if a.Text == "" {
			// ID given but nothing matched it; never store an empty note.
			return ToggleIgnored, ManualAssignment{}, nil
		}
	}

	Store[dateKey] = append(Store[dateKey], a)
	if err := saveAssignmentsLocked(); err != nil {
		return ToggleAdded, a, err
	}
	return ToggleAdded, a, nil
}

// CopyStore returns a deep copy of the current store, for callers that
// need a stable snapshot outside the lock (reconciler, diff submission).
func CopyStore() AssignmentStore {
	StoreMutex.RLock()
	defer StoreMutex.RUnlock()

	out := make(AssignmentStore, len(Store))
	for k, v := range Store {
		list := make([]ManualAssignment, len(v))
		copy(list, v)
		out[k] = list
	}
	return out
}
