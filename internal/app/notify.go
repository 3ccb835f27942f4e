package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DiffEntry is one added or removed manual assignment in a submission.
type DiffEntry struct {
	Date   string `json:"date"`
	Person string `json:"person"`
	Text   string `json:"text,omitempty"`
}

// DiffSummary is the payload posted to the relay endpoint: the manual
// edits made since the last successful submission. Purely informational;
// the relay turns it into an email.
type DiffSummary struct {
	GeneratedAt time.Time   `json:"generated_at"`
	Added       []DiffEntry `json:"added"`
	Removed     []DiffEntry `json:"removed"`
}

// ComputeDiff compares two stores as multisets of (date, person, text)
// and returns what was added and removed. IDs are deliberately ignored:
// a move shows up as one removal plus one addition, which is what the
// reader of the relayed mail wants to see.
func ComputeDiff(prev, cur AssignmentStore) ([]DiffEntry, []DiffEntry) {
	counts := make(map[DiffEntry]int)
	for dateKey, list := range prev {
		for _, a := range list {
			counts[DiffEntry{Date: dateKey, Person: a.Person, Text: a.Text}]--
		}
	}
	for dateKey, list := range cur {
		for _, a := range list {
			counts[DiffEntry{Date: dateKey, Person: a.Person, Text: a.Text}]++
		}
	}

	var added, removed []DiffEntry
	for entry, n := range counts {
		for ; n > 0; n-- {
			added = append(added, entry)
		}
		for ; n < 0; n++ {
			removed = append(removed, entry)
		}
	}

	sortDiffEntries(added)
	sortDiffEntries(removed)
	return added, removed
}

var relayClient = &http.Client{Timeout: 10 * time.Second}

// SubmitDiff posts a diff summary to the relay endpoint. Best effort: the
// caller surfaces success or failure as a banner and nothing else depends
// on the outcome.
func SubmitDiff(ctx context.Context, relayURL string, diff DiffSummary) error {
	body, err := json.Marshal(diff)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, relayURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := relayClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("relay: %s", resp.Status)
	}
	return nil
}
