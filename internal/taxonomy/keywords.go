package taxonomy

import "icebackfill/internal/model"

// Keywords maps each category to its ordered, lower-case match list.
// The two pattern categories (wouldYouRather, thisOrThat) hold full phrases;
// the topical categories (fun, deep, professional) hold single words.
type Keywords map[model.Category][]string

// topicalOrder is the fixed enumeration order for the tag and text keyword
// rules. Categories are not commutative under the classifier: a text matching
// both a fun and a professional keyword resolves by this order.
var topicalOrder = []model.Category{
	model.CategoryFun,
	model.CategoryDeep,
	model.CategoryProfessional,
}

// DefaultKeywords returns the built-in keyword table. Callers must treat it
// as read-only.
func DefaultKeywords() Keywords {
	return defaultKeywords
}

var defaultKeywords = Keywords{
	model.CategoryFun: {
		"funny", "joke", "silly", "embarrassing", "weird", "crazy", "hilarious",
		"awkward", "fun", "entertainment", "humor", "amusing", "ridiculous",
		"favorite", "best", "worst", "strange", "unusual",
	},
	model.CategoryDeep: {
		"meaning", "purpose", "philosophy", "belief", "value", "important",
		"significant", "life", "death", "existence", "soul", "spirit",
		"introspection", "reflection", "thoughtful", "profound", "dream",
		"aspiration", "goal", "legacy", "impact",
	},
	model.CategoryProfessional: {
		"work", "career", "job", "business", "professional", "office",
		"colleague", "boss", "team", "project", "meeting", "presentation",
		"leadership", "management", "industry", "company", "corporate",
		"skill", "experience", "achievement", "success",
	},
	model.CategoryWouldYouRather: {
		"would you rather", "would you prefer", "choose between",
		"pick one", "option a or b", "this or that", "either or",
		"if you had to choose", "which would you pick",
	},
	// The bare "or"/"versus"/"vs" tokens make this rule match almost any
	// sentence containing "or". Inherited as-is; do not narrow without
	// reclassifying the existing data.
	model.CategoryThisOrThat: {
		"coffee or tea", "beach or mountains", "city or country",
		"summer or winter", "day or night", "morning or evening",
		"breakfast or dinner", "movie or book", "music or silence",
		"or", "versus", "vs",
	},
}

// Heuristic override words, checked only after every keyword rule has missed.
var (
	deepHints = []string{"childhood", "growing up", "school days", "memory"}
	funHints  = []string{"dream", "fantasy", "imagine", "magic", "superpower"}
)
