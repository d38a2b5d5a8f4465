package model

// Category is one label from the closed question taxonomy.
type Category string

const (
	CategoryWouldYouRather Category = "wouldYouRather"
	CategoryThisOrThat     Category = "thisOrThat"
	CategoryFun            Category = "fun"
	CategoryDeep           Category = "deep"
	CategoryProfessional   Category = "professional"
	// CategoryRandom is the fallback. It is never produced by a keyword
	// match, only when every other rule has been exhausted.
	CategoryRandom Category = "random"
)

// Categories returns every member of the taxonomy in its fixed order.
func Categories() []Category {
	return []Category{
		CategoryWouldYouRather,
		CategoryThisOrThat,
		CategoryFun,
		CategoryDeep,
		CategoryProfessional,
		CategoryRandom,
	}
}

// Valid reports whether c is a member of the taxonomy.
func (c Category) Valid() bool {
	switch c {
	case CategoryWouldYouRather, CategoryThisOrThat, CategoryFun,
		CategoryDeep, CategoryProfessional, CategoryRandom:
		return true
	}
	return false
}

func (c Category) String() string {
	return string(c)
}
