package app

import "strings"

// Classifier keyword lists. Matching is case-insensitive substring search
// against a fixed vocabulary rather than a closed enum: the feed's
// category strings drift across spreadsheet edits ("K-Work", "work",
// "k-nora") and an enum would silently drop new spellings. Installed from
// config by ApplyConfig.
var (
	workKeywords = []string{"work", "weekend", "nora"}
	ptoKeywords  = []string{"pto", "vacation", "leave"}
	offKeywords  = []string{"off"}
)

func matchesAny(category string, keywords []string) bool {
	c := strings.ToLower(category)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(c, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// IsWorking reports whether a category string classifies as a working
// shift (e.g. "K-Work", "K-Weekend", "K-Nora").
func IsWorking(category string) bool {
	return matchesAny(category, workKeywords)
}

// IsPTO reports whether a category string classifies as planned time off
// (e.g. "PTO", "Vacation").
func IsPTO(category string) bool {
	return matchesAny(category, ptoKeywords)
}

// IsOff reports whether a category string classifies as any kind of off
// day. PTO is a subtype of off.
func IsOff(category string) bool {
	return IsPTO(category) || matchesAny(category, offKeywords)
}

// VisibleInMode decides whether a tracked-person category is shown under
// the given filter mode. A category matching neither classifier in the
// active mode is simply dropped, not an error.
func VisibleInMode(category, mode string) bool {
	switch mode {
	case FilterOff:
		return IsOff(category)
	default:
		return IsWorking(category)
	}
}
