package grocery

import (
	"fmt"
	"time"

	"github.com/dukerupert/grocerylist/internal/model"
)

// Tab selects a subset of the list.
type Tab string

const (
	TabToday    Tab = "today"
	TabUpcoming Tab = "upcoming"
	TabDone     Tab = "done"
)

// ParseTab validates a tab name.
func ParseTab(s string) (Tab, error) {
	switch t := Tab(s); t {
	case TabToday, TabUpcoming, TabDone:
		return t, nil
	default:
		return "", fmt.Errorf("unknown tab %q (want today, upcoming or done)", s)
	}
}

// Filter returns the items shown on tab. Today means created within the
// calendar day containing now, in now's location. Upcoming is everything
// not completed and Done everything completed.
func Filter(items []model.GroceryItem, tab Tab, now time.Time) []model.GroceryItem {
	var keep func(model.GroceryItem) bool
	switch tab {
	case TabToday:
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		end := start.Add(24 * time.Hour)
		keep = func(it model.GroceryItem) bool {
			return !it.CreatedAt.Before(start) && it.CreatedAt.Before(end)
		}
	case TabUpcoming:
		keep = func(it model.GroceryItem) bool { return !it.IsCompleted() }
	case TabDone:
		keep = model.GroceryItem.IsCompleted
	default:
		return items
	}

	out := []model.GroceryItem{}
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// FilterCategory returns the items in category. Null categories match
// Uncategorized.
func FilterCategory(items []model.GroceryItem, category string) []model.GroceryItem {
	out := []model.GroceryItem{}
	for _, it := range items {
		if CategoryOf(it) == category {
			out = append(out, it)
		}
	}
	return out
}
