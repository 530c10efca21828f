package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/weserbergland/eventsammler/internal/storage"
)

// SortOrder represents the available list orderings.
type SortOrder string

const (
	SortByDate   SortOrder = "date"
	SortByTitle  SortOrder = "title"
	SortBySource SortOrder = "source"
)

func parseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(s)) {
	case SortByDate:
		return SortByDate, nil
	case SortByTitle:
		return SortByTitle, nil
	case SortBySource:
		return SortBySource, nil
	}
	return "", fmt.Errorf("invalid sort order: %s (must be 'date', 'title' or 'source')", s)
}

// sortEvents orders events for display. The store already returns date
// order; the other orderings fall back to date within equal keys.
func sortEvents(events []storage.StoredEvent, order SortOrder) {
	switch order {
	case SortByDate:
		sort.SliceStable(events, func(i, j int) bool {
			return compareByDate(&events[i], &events[j])
		})
	case SortByTitle:
		sort.SliceStable(events, func(i, j int) bool {
			ti, tj := strings.ToLower(events[i].Title), strings.ToLower(events[j].Title)
			if ti != tj {
				return ti < tj
			}
			return compareByDate(&events[i], &events[j])
		})
	case SortBySource:
		sort.SliceStable(events, func(i, j int) bool {
			if events[i].Source != events[j].Source {
				return events[i].Source < events[j].Source
			}
			return compareByDate(&events[i], &events[j])
		})
	}
}

// compareByDate reports whether event i sorts before event j. ISO timestamps
// compare lexicographically; events without a start sort last.
func compareByDate(i, j *storage.StoredEvent) bool {
	si, sj := i.StartDateTime, j.StartDateTime
	if si != "" && sj != "" {
		if si != sj {
			return si < sj
		}
		return i.ID < j.ID
	}
	if si != "" {
		return true
	}
	if sj != "" {
		return false
	}
	return strings.ToLower(i.Title) < strings.ToLower(j.Title)
}
