package app

// ShiftEntry is a single imported shift record for one day. Imported
// entries are read-only; each successful feed fetch replaces them wholesale.
type ShiftEntry struct {
	Person   string `json:"person"`
	Category string `json:"category"`
}

// ShiftFeed maps a date key (YYYY-MM-DD) to the shifts imported for that day.
type ShiftFeed map[string][]ShiftEntry

// NotePerson is the sentinel person value for free-text note cards.
const NotePerson = "Note"

// ManualAssignment is a user-placed card on a day: a named person from the
// tray, or a note (Person == NotePerson) carrying free text. The ID is
// assigned at creation time so that two notes with identical text remain
// distinguishable; stores written by older clients may lack it.
type ManualAssignment struct {
	ID     string `json:"id,omitempty"`
	Person string `json:"person"`
	Text   string `json:"text,omitempty"`
}

// AssignmentStore maps a date key to the ordered list of manual assignments
// for that day. List order is display order. Days without assignments are
// absent from the map, never present as empty lists.
type AssignmentStore map[string][]ManualAssignment

// Filter modes for the tracked person's imported entries.
const (
	FilterWork = "work"
	FilterOff  = "off"
)

// MonthView is the explicit view context passed into the reconciler.
// Navigation state lives in the caller; the merge itself only ever sees
// this value.
type MonthView struct {
	Year          int
	Month         int // 1..12
	FilterMode    string
	TrackedPerson string
	DisplayCap    int
}

// Cell item kinds, in per-cell render order.
const (
	ItemHoliday    = "holiday"
	ItemShift      = "shift"
	ItemAssignment = "assignment"
)

// CellItem is one visual entry inside a day cell.
type CellItem struct {
	Kind     string `json:"kind"`
	Person   string `json:"person,omitempty"`
	Category string `json:"category,omitempty"`
	Text     string `json:"text,omitempty"`
	ID       string `json:"id,omitempty"`
	// Hidden marks manual assignments collapsed behind the "+N" toggle.
	Hidden bool `json:"hidden,omitempty"`
}

// DayCell is one rendered day, including leading/trailing filler days from
// adjacent months. Every cell carries its own date key; nothing downstream
// re-derives it from the displayed day number.
type DayCell struct {
	DateKey string     `json:"date"`
	Day     int        `json:"day"`
	InMonth bool       `json:"in_month"`
	Weekend bool       `json:"weekend"`
	Items   []CellItem `json:"items"`
	// Overflow is the number of hidden manual assignments ("+N" count).
	Overflow int `json:"overflow"`
}

// MonthGrid is the reconciled month: a Sunday-first grid whose cell count
// is always a multiple of 7.
type MonthGrid struct {
	Year     int       `json:"year"`
	Month    int       `json:"month"`
	Title    string    `json:"title"`
	Weekdays []string  `json:"weekdays"`
	Cells    []DayCell `json:"cells"`
}
