// Package taxonomy assigns icebreaker questions to a closed category
// taxonomy using layered rule matching, from most specific (full phrase
// patterns) to least specific (bare heuristic words).
package taxonomy

import (
	"strings"

	"icebackfill/internal/model"
)

// Classifier is a pure function of its inputs and an immutable keyword table.
type Classifier struct {
	keywords Keywords
}

// NewClassifier builds a classifier over the given keyword table.
// A nil table selects the built-in defaults.
func NewClassifier(kw Keywords) *Classifier {
	if kw == nil {
		kw = DefaultKeywords()
	}
	return &Classifier{keywords: kw}
}

// Classify maps a question's text and tags to exactly one category.
// It is total: it never fails and always returns a taxonomy member.
// Rules are evaluated in strict priority order; the first match wins.
func (c *Classifier) Classify(text string, tags []string) model.Category {
	lower := strings.ToLower(text)

	// 1-2. Phrase patterns, most specific first. These match on word
	// boundaries so the bare "or" token fires on "coffee or tea" but not
	// on the letters inside "memory".
	if containsAnyPhrase(lower, c.keywords[model.CategoryWouldYouRather]) {
		return model.CategoryWouldYouRather
	}
	if containsAnyPhrase(lower, c.keywords[model.CategoryThisOrThat]) {
		return model.CategoryThisOrThat
	}

	// 3. Tag equality over the topical categories, in fixed order.
	for _, tag := range tags {
		t := strings.ToLower(tag)
		for _, cat := range topicalOrder {
			for _, kw := range c.keywords[cat] {
				if t == kw {
					return cat
				}
			}
		}
	}

	// 4. Text substring over the topical categories, same order.
	// Deliberately raw substring: "fun" matches "funniest".
	for _, cat := range topicalOrder {
		if containsAny(lower, c.keywords[cat]) {
			return cat
		}
	}

	// 5. Heuristic overrides.
	if containsAny(lower, deepHints) {
		return model.CategoryDeep
	}
	if containsAny(lower, funHints) {
		return model.CategoryFun
	}

	// 6. Exhaustion.
	return model.CategoryRandom
}

func containsAny(lower string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func containsAnyPhrase(lower string, patterns []string) bool {
	for _, p := range patterns {
		if containsPhrase(lower, p) {
			return true
		}
	}
	return false
}

// containsPhrase reports whether p occurs in lower delimited by non-word
// characters (or the string edges) on both sides.
func containsPhrase(lower, p string) bool {
	for from := 0; ; {
		i := strings.Index(lower[from:], p)
		if i < 0 {
			return false
		}
		i += from
		end := i + len(p)
		if (i == 0 || !isWordChar(lower[i-1])) &&
			(end == len(lower) || !isWordChar(lower[end])) {
			return true
		}
		from = i + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '\''
}
