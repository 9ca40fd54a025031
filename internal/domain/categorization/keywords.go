package categorization

// Category is one of the fixed closed set of spending categories.
type Category string

const (
	CategoryFood          Category = "food"
	CategoryTransport     Category = "transport"
	CategoryUtilities     Category = "utilities"
	CategoryEntertainment Category = "entertainment"
	CategoryShopping      Category = "shopping"
	CategoryHealthcare    Category = "healthcare"
	CategoryEducation     Category = "education"
	CategoryOther         Category = "other"
)

// Categories lists every category in scoring iteration order.
// "other" comes last and is excluded from keyword scoring.
var Categories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryUtilities,
	CategoryEntertainment,
	CategoryShopping,
	CategoryHealthcare,
	CategoryEducation,
	CategoryOther,
}

// Valid reports whether c is a member of the closed category set.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// KeywordEntry maps one category to its keyword list.
type KeywordEntry struct {
	Category Category
	Keywords []string
}

// KeywordTable is the ordered category-to-keyword configuration consumed by
// the Classifier. Order determines tie-breaking: the first category reaching
// the maximum score wins.
type KeywordTable []KeywordEntry

// DefaultKeywords returns the built-in keyword configuration.
func DefaultKeywords() KeywordTable {
	return KeywordTable{
		{Category: CategoryFood, Keywords: []string{
			"restaurant", "cafe", "coffee", "pizza", "burger", "sushi",
			"grocery", "groceries", "supermarket", "market", "bakery",
			"lunch", "dinner", "breakfast", "food", "dining", "bar",
			"starbucks", "mcdonalds", "deli", "takeout",
		}},
		{Category: CategoryTransport, Keywords: []string{
			"uber", "lyft", "taxi", "bus", "train", "metro", "subway",
			"gas", "fuel", "parking", "toll", "ride", "flight", "airline",
			"car", "rental", "scooter", "transit",
		}},
		{Category: CategoryUtilities, Keywords: []string{
			"electric", "electricity", "water", "internet", "phone",
			"mobile", "cable", "utility", "utilities", "bill", "heating",
			"sewer", "trash", "broadband", "wifi",
		}},
		{Category: CategoryEntertainment, Keywords: []string{
			"movie", "cinema", "netflix", "spotify", "concert", "game",
			"games", "gaming", "theater", "theatre", "streaming", "music",
			"show", "ticket", "tickets", "club", "festival",
		}},
		{Category: CategoryShopping, Keywords: []string{
			"amazon", "store", "shop", "clothing", "clothes", "shoes",
			"mall", "online", "purchase", "electronics", "furniture",
			"target", "walmart", "retail", "apparel",
		}},
		{Category: CategoryHealthcare, Keywords: []string{
			"pharmacy", "doctor", "hospital", "clinic", "medical",
			"dental", "dentist", "medicine", "prescription", "health",
			"gym", "fitness", "therapy", "optician",
		}},
		{Category: CategoryEducation, Keywords: []string{
			"school", "university", "college", "course", "tuition",
			"book", "books", "textbook", "class", "training", "workshop",
			"seminar", "udemy", "coursera",
		}},
	}
}
