package model

import "time"

// Question is a record owned by the backing store. The ID is opaque and
// store-assigned; Category is empty until the backfill assigns one.
type Question struct {
	ID       string
	Text     string
	Category Category
	Tags     []string
}

// QuestionRef is the slim projection returned by the missing-tags fetch.
type QuestionRef struct {
	ID   string
	Text string
}

// CategoryUpdate is one pending (question, category) assignment.
type CategoryUpdate struct {
	ID       string
	Category Category
}

// Tag is a row in the relational tag table. Names are case-sensitive as
// stored; each distinct name maps to exactly one row.
type Tag struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}
