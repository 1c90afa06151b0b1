package model

import "time"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// GroceryItem is a single row of the grocery_items table. Every field other
// than ID and CreatedAt is nullable: a field that was never written, or was
// omitted from a full update, comes back as JSON null.
type GroceryItem struct {
	ID        string    `json:"id"`
	Name      *string   `json:"name"`
	Quantity  *string   `json:"quantity"`
	Category  *string   `json:"category"`
	Priority  *Priority `json:"priority"`
	Completed *bool     `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemFields holds the writable columns of a grocery item. A nil field means
// the caller did not supply it.
type ItemFields struct {
	Name      *string   `json:"name"`
	Quantity  *string   `json:"quantity"`
	Category  *string   `json:"category"`
	Priority  *Priority `json:"priority"`
	Completed *bool     `json:"completed"`
}

// Fields returns the writable columns of the item.
func (i GroceryItem) Fields() ItemFields {
	return ItemFields{
		Name:      i.Name,
		Quantity:  i.Quantity,
		Category:  i.Category,
		Priority:  i.Priority,
		Completed: i.Completed,
	}
}

// Merge fills every nil field of f from existing and returns the result.
func (f ItemFields) Merge(existing ItemFields) ItemFields {
	if f.Name == nil {
		f.Name = existing.Name
	}
	if f.Quantity == nil {
		f.Quantity = existing.Quantity
	}
	if f.Category == nil {
		f.Category = existing.Category
	}
	if f.Priority == nil {
		f.Priority = existing.Priority
	}
	if f.Completed == nil {
		f.Completed = existing.Completed
	}
	return f
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Str dereferences s, returning "" for nil.
func Str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// IsCompleted reports whether the item is marked completed. A null completed
// column counts as not completed.
func (i GroceryItem) IsCompleted() bool {
	return i.Completed != nil && *i.Completed
}
