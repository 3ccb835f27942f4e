package app

import (
	"encoding/json"
	"os"
	"sync"
)

// serviceState is the small persisted record beside the assignment store:
// the view filter mode and the snapshot the diff submission compares
// against. No schema versioning; absent or corrupt files fall back to
// defaults.
type serviceState struct {
	FilterMode    string          `json:"filter_mode"`
	LastSubmitted AssignmentStore `json:"last_submitted,omitempty"`
}

var (
	stateMutex sync.RWMutex
	state      = serviceState{FilterMode: FilterWork}
)

// LoadState loads the persisted filter mode and submission snapshot.
func LoadState() {
	data, err := os.ReadFile(statePath())
	if err != nil {
		if !os.IsNotExist(err) {
			Log.Warnw("failed to read state, using defaults", "path", statePath(), "err", err)
		}
		return
	}

	var loaded serviceState
	if err := json.Unmarshal(data, &loaded); err != nil {
		Log.Warnw("corrupt state file, using defaults", "path", statePath(), "err", err)
		return
	}
	if loaded.FilterMode != FilterWork && loaded.FilterMode != FilterOff {
		loaded.FilterMode = FilterWork
	}

	stateMutex.Lock()
	state = loaded
	stateMutex.Unlock()
}

func saveStateLocked() error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmpFile := statePath() + TmpSuffix
	if err := os.WriteFile(tmpFile, data, FilePermissions); err != nil {
		return err
	}
	return os.Rename(tmpFile, statePath())
}

// FilterMode returns the persisted view filter mode.
func FilterMode() string {
	stateMutex.RLock()
	defer stateMutex.RUnlock()
	return state.FilterMode
}

// SetFilterMode persists a new view filter mode. The mode only affects
// which of the tracked person's imported entries are visible; it never
// touches the assignment store itself.
func SetFilterMode(mode string) error {
	stateMutex.Lock()
	defer stateMutex.Unlock()
	state.FilterMode = mode
	return saveStateLocked()
}

// LastSubmitted returns the snapshot used as the diff baseline.
func LastSubmitted() AssignmentStore {
	stateMutex.RLock()
	defer stateMutex.RUnlock()

	out := make(AssignmentStore, len(state.LastSubmitted))
	for k, v := range state.LastSubmitted {
		list := make([]ManualAssignment, len(v))
		copy(list, v)
		out[k] = list
	}
	return out
}

// SetLastSubmitted records the snapshot after a successful submission.
func SetLastSubmitted(s AssignmentStore) error {
	stateMutex.Lock()
	defer stateMutex.Unlock()
	state.LastSubmitted = s
	return saveStateLocked()
}
