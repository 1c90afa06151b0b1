package grocery

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/dukerupert/grocerylist/internal/model"
)

// CategorySummary is one row of the category overview.
type CategorySummary struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

var categoryColors = map[string]string{
	Dairy:         "#FF8080",
	Produce:       "#80FFFF",
	Meat:          "#80FF9F",
	Bakery:        "#FF80EB",
	Frozen:        "#FC80FF",
	Beverages:     "#80CFFF",
	Snacks:        "#FF8080",
	Health:        "#80FFA3",
	Household:     "#80D1FF",
	Pantry:        "#FFCC80",
	Uncategorized: "#AFAFAF",
}

var categoryIcons = map[string]string{
	Dairy:         "shopping-cart",
	Produce:       "eco",
	Meat:          "restaurant",
	Bakery:        "breakfast-dining",
	Frozen:        "ac-unit",
	Beverages:     "local-drink",
	Snacks:        "fastfood",
	Health:        "favorite",
	Household:     "cleaning-services",
	Pantry:        "kitchen",
	Uncategorized: "help-outline",
}

const fallbackIcon = "label"

// CategoryColor returns the display color for a category. Unknown
// categories get a random color on every call.
func CategoryColor(category string) string {
	if c, ok := categoryColors[category]; ok {
		return c
	}
	return fmt.Sprintf("#%06X", rand.IntN(0x1000000))
}

// CategoryIcon returns the icon name for a category.
func CategoryIcon(category string) string {
	if i, ok := categoryIcons[category]; ok {
		return i
	}
	return fallbackIcon
}

// CategoryOf returns the item's category, treating null and empty as
// Uncategorized.
func CategoryOf(item model.GroceryItem) string {
	if item.Category == nil || *item.Category == "" {
		return Uncategorized
	}
	return *item.Category
}

// Summarize counts items per category, sorted by category name.
func Summarize(items []model.GroceryItem) []CategorySummary {
	counts := make(map[string]int)
	for _, item := range items {
		counts[CategoryOf(item)]++
	}

	out := make([]CategorySummary, 0, len(counts))
	for name, n := range counts {
		out = append(out, CategorySummary{
			Name:  name,
			Count: n,
			Color: CategoryColor(name),
			Icon:  CategoryIcon(name),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// PriorityColor returns the badge color for a priority. Anything other than
// high or medium, null included, renders as low.
func PriorityColor(p *model.Priority) string {
	if p == nil {
		return "#4CAF50"
	}
	switch *p {
	case model.PriorityHigh:
		return "#FF4949"
	case model.PriorityMedium:
		return "#FFA64C"
	default:
		return "#4CAF50"
	}
}
