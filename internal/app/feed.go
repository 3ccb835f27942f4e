package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// feedCache is the on-disk form of the last successfully fetched feed.
type feedCache struct {
	FetchedAt time.Time `json:"fetched_at"`
	Feed      ShiftFeed `json:"feed"`
}

var (
	feedClient = &http.Client{Timeout: 15 * time.Second}

	fetchMutex   sync.RWMutex
	lastFetchAt  time.Time
	lastFetchErr string
)

// rawShiftEntry tolerates the schema drift seen in historical feeds:
// entries sometimes carry "category", sometimes "label".
type rawShiftEntry struct {
	Person   string `json:"person"`
	Category string `json:"category"`
	Label    string `json:"label"`
}

// DecodeFeed parses a feed payload into the canonical shape: an object
// keyed by date, each value an array of {person, category} entries.
// "label" is accepted as an alias for "category", and a bare string entry
// is treated as a category for the tracked person. Unparseable day values
// are skipped, not fatal.
func DecodeFeed(data []byte, trackedPerson string) (ShiftFeed, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	feed := make(ShiftFeed, len(raw))
	for dateKey, val := range raw {
		if _, err := time.Parse("2006-01-02", dateKey); err != nil {
			continue
		}

		var entries []json.RawMessage
		if err := json.Unmarshal(val, &entries); err != nil {
			continue
		}

		day := make([]ShiftEntry, 0, len(entries))
		for _, e := range entries {
			var re rawShiftEntry
			if err := json.Unmarshal(e, &re); err == nil && (re.Person != "" || re.Category != "" || re.Label != "") {
				category := re.Category
				if category == "" {
					category = re.Label
				}
				day = append(day, ShiftEntry{Person: re.Person, Category: category})
				continue
			}

			var s string
			if err := json.Unmarshal(e, &s); err == nil && strings.TrimSpace(s) != "" {
				day = append(day, ShiftEntry{Person: trackedPerson, Category: s})
			}
		}

		if len(day) > 0 {
			feed[dateKey] = day
		}
	}

	return feed, nil
}

// LoadFeedCache loads the last fetched feed from disk into the global
// Feed. Absent or corrupt cache means an empty feed; the calendar renders
// regardless.
func LoadFeedCache() {
	data, err := os.ReadFile(feedCachePath())
	if err != nil {
		if !os.IsNotExist(err) {
			Log.Warnw("failed to read feed cache, starting empty", "path", feedCachePath(), "err", err)
		}
		return
	}

	var cache feedCache
	if err := json.Unmarshal(data, &cache); err != nil {
		Log.Warnw("corrupt feed cache, starting empty", "path", feedCachePath(), "err", err)
		return
	}
	if cache.Feed == nil {
		return
	}

	StoreMutex.Lock()
	Feed = cache.Feed
	StoreMutex.Unlock()

	fetchMutex.Lock()
	lastFetchAt = cache.FetchedAt
	fetchMutex.Unlock()
}

func saveFeedCache(feed ShiftFeed, fetchedAt time.Time) error {
	data, err := json.MarshalIndent(feedCache{FetchedAt: fetchedAt, Feed: feed}, "", "  ")
	if err != nil {
		return err
	}

	tmpFile := feedCachePath() + TmpSuffix
	if err := os.WriteFile(tmpFile, data, FilePermissions); err != nil {
		return err
	}
	return os.Rename(tmpFile, feedCachePath())
}

// RefreshFeed fetches the configured shift feed and replaces the in-memory
// and cached copies wholesale. On any failure the previously fetched feed
// stays in place: the service serves stale data over no data.
func RefreshFeed(ctx context.Context) error {
	if Conf == nil || Conf.FeedURL == "" {
		return errors.New("no feed URL configured")
	}

	feed, err := fetchFeed(ctx, Conf.FeedURL)
	now := time.Now()

	fetchMutex.Lock()
	if err != nil {
		lastFetchErr = err.Error()
	} else {
		lastFetchAt = now
		lastFetchErr = ""
	}
	fetchMutex.Unlock()

	if err != nil {
		Log.Errorw("feed refresh failed, keeping cached feed", "err", err)
		return err
	}

	StoreMutex.Lock()
	Feed = feed
	StoreMutex.Unlock()

	if err := saveFeedCache(feed, now); err != nil {
		Log.Errorw("failed to save feed cache", "err", err)
	}

	Log.Infow("feed refreshed", "days", len(feed))
	return nil
}

func fetchFeed(ctx context.Context, url string) (ShiftFeed, error) {
	// Cache-busting timestamp, same trick the spreadsheet endpoint needs
	// to sidestep intermediary caching.
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s%sts=%d", url, sep, time.Now().UnixMilli()), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := feedClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed fetch: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	tracked := DefaultTrackedPerson
	if Conf != nil {
		tracked = Conf.TrackedPerson
	}
	return DecodeFeed(body, tracked)
}

// FetchStatus reports the last refresh outcome for the UI's retry banner.
func FetchStatus() (time.Time, string) {
	fetchMutex.RLock()
	defer fetchMutex.RUnlock()
	return lastFetchAt, lastFetchErr
}

// CopyFeed returns the current feed under the read lock. The per-day
// slices are shared; callers treat them as read-only.
func CopyFeed() ShiftFeed {
	StoreMutex.RLock()
	defer StoreMutex.RUnlock()

	out := make(ShiftFeed, len(Feed))
	for k, v := range Feed {
		out[k] = v
	}
	return out
}
