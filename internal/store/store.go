// Package store defines the adapter contract between the backfill
// orchestrator and whichever backing store holds the question records.
// The document-store (Convex) and relational (Postgres) implementations
// differ, but the semantics here are shared.
package store

import (
	"context"

	"icebackfill/internal/model"
)

// CategoryStore is what classify mode needs from a backing store.
type CategoryStore interface {
	// ListQuestions returns the logical full set of question records.
	// An implementation may paginate internally.
	ListQuestions(ctx context.Context) ([]model.Question, error)

	// ApplyCategoryUpdates applies one batch of category assignments.
	// The call is atomic from the caller's point of view: on error the
	// caller treats the whole batch as failed.
	ApplyCategoryUpdates(ctx context.Context, updates []model.CategoryUpdate) error
}

// TagStore is what tag-generation mode needs. Relational only.
type TagStore interface {
	// ListQuestionsMissingTags returns questions with zero tag
	// associations. limit caps the result set; 0 means unbounded.
	ListQuestionsMissingTags(ctx context.Context, limit int) ([]model.QuestionRef, error)

	// GetOrCreate resolves a tag name to its row identifier, inserting
	// the row only if absent. Safe under repeated or racing invocation:
	// each distinct name maps to exactly one row.
	GetOrCreate(ctx context.Context, name string) (int64, error)

	// CreateAssociation links a question to a tag.
	CreateAssociation(ctx context.Context, questionID string, tagID int64) error
}
