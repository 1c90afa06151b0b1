package grocery

import "strings"

// Known categories. Uncategorized is the client default and the fallback
// for names nothing matches.
const (
	Dairy         = "Dairy"
	Produce       = "Produce"
	Meat          = "Meat"
	Bakery        = "Bakery"
	Frozen        = "Frozen"
	Beverages     = "Beverages"
	Snacks        = "Snacks"
	Health        = "Health"
	Household     = "Household"
	Pantry        = "Pantry"
	Uncategorized = "Uncategorized"
)

// Categorize suggests a category for an item name. Matching is
// case-insensitive: whole-name keywords first, then the first keyword found
// anywhere in the name. Returns Uncategorized when nothing matches.
func Categorize(itemName string) string {
	name := strings.ToLower(strings.TrimSpace(itemName))
	if name == "" {
		return Uncategorized
	}

	if cat, ok := wholeNames[name]; ok {
		return cat
	}
	for _, k := range keywords {
		if strings.Contains(name, k.word) {
			return k.category
		}
	}
	return Uncategorized
}

// wholeNames only match the complete name. They are short words that occur
// inside unrelated names ("tea" in "steak", "corn" in "popcorn").
var wholeNames = map[string]string{
	"egg":   Dairy,
	"eggs":  Dairy,
	"ham":   Meat,
	"tea":   Beverages,
	"corn":  Produce,
	"oil":   Pantry,
	"buns":  Bakery,
	"rolls": Bakery,
	"pie":   Bakery,
	"jam":   Pantry,
	"nuts":  Snacks,
	"ice":   Frozen,
	"gum":   Snacks,
	"rice":  Pantry,
	"lime":  Produce,
	"limes": Produce,
}

type keyword struct {
	word     string
	category string
}

// keywords is checked in order. Phrases that contain another category's
// keyword ("peanut butter", "dish soap") come first.
var keywords = []keyword{
	{"ice cream", Frozen},
	{"frozen", Frozen},
	{"popsicle", Frozen},

	{"peanut butter", Pantry},
	{"olive oil", Pantry},
	{"soy sauce", Pantry},
	{"hot sauce", Pantry},
	{"broth", Pantry},
	{"canned", Pantry},
	{"coconut water", Beverages},
	{"tortilla chips", Snacks},
	{"eggplant", Produce},
	{"sweet potato", Produce},
	{"bell pepper", Produce},
	{"green beans", Produce},
	{"dish soap", Household},
	{"hand soap", Health},
	{"paper towel", Household},
	{"toilet paper", Household},
	{"trash bag", Household},

	{"chicken", Meat},
	{"beef", Meat},
	{"pork", Meat},
	{"turkey", Meat},
	{"bacon", Meat},
	{"sausage", Meat},
	{"salmon", Meat},
	{"shrimp", Meat},
	{"tuna", Meat},
	{"steak", Meat},
	{"fish", Meat},
	{"hot dog", Meat},

	{"milk", Dairy},
	{"cheese", Dairy},
	{"yogurt", Dairy},
	{"butter", Dairy},
	{"cream", Dairy},

	{"apple", Produce},
	{"banana", Produce},
	{"orange", Produce},
	{"lemon", Produce},
	{"avocado", Produce},
	{"tomato", Produce},
	{"potato", Produce},
	{"onion", Produce},
	{"garlic", Produce},
	{"lettuce", Produce},
	{"spinach", Produce},
	{"kale", Produce},
	{"broccoli", Produce},
	{"carrot", Produce},
	{"celery", Produce},
	{"cucumber", Produce},
	{"pepper", Produce},
	{"mushroom", Produce},
	{"grape", Produce},
	{"berries", Produce},
	{"melon", Produce},
	{"herb", Produce},
	{"fruit", Produce},

	{"bread", Bakery},
	{"bagel", Bakery},
	{"tortilla", Bakery},
	{"muffin", Bakery},
	{"croissant", Bakery},
	{"baguette", Bakery},
	{"cake", Bakery},

	{"water", Beverages},
	{"juice", Beverages},
	{"soda", Beverages},
	{"coffee", Beverages},
	{"beer", Beverages},
	{"wine", Beverages},
	{"kombucha", Beverages},

	{"chips", Snacks},
	{"crackers", Snacks},
	{"cookie", Snacks},
	{"popcorn", Snacks},
	{"pretzel", Snacks},
	{"chocolate", Snacks},
	{"candy", Snacks},
	{"almonds", Snacks},
	{"granola bar", Snacks},

	{"shampoo", Health},
	{"conditioner", Health},
	{"toothpaste", Health},
	{"toothbrush", Health},
	{"deodorant", Health},
	{"vitamin", Health},
	{"sunscreen", Health},
	{"lotion", Health},
	{"bandage", Health},
	{"ibuprofen", Health},
	{"floss", Health},
	{"razor", Health},

	{"detergent", Household},
	{"sponge", Household},
	{"bleach", Household},
	{"cleaner", Household},
	{"foil", Household},
	{"napkin", Household},
	{"light bulb", Household},
	{"batteries", Household},

	{"pasta", Pantry},
	{"flour", Pantry},
	{"sugar", Pantry},
	{"cereal", Pantry},
	{"oatmeal", Pantry},
	{"beans", Pantry},
	{"sauce", Pantry},
	{"vinegar", Pantry},
	{"spice", Pantry},
	{"salt", Pantry},
	{"honey", Pantry},
	{"syrup", Pantry},
	{"soup", Pantry},
}
