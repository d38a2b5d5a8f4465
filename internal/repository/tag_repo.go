package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"icebackfill/internal/model"
)

type TagRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTagRepository(db *pgxpool.Pool, logger *zap.Logger) *TagRepository {
	return &TagRepository{db: db, logger: logger}
}

// ListQuestionsMissingTags returns questions with zero tag associations.
// limit caps the result set; 0 means unbounded.
func (r *TagRepository) ListQuestionsMissingTags(ctx context.Context, limit int) ([]model.QuestionRef, error) {
	query := `
        SELECT q.id, q.text
        FROM questions q
        LEFT JOIN question_tags qt ON qt.question_id = q.id
        WHERE qt.question_id IS NULL
        ORDER BY q.id
    `
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list untagged questions: %w", err)
	}
	defer rows.Close()

	var refs []model.QuestionRef
	for rows.Next() {
		var ref model.QuestionRef
		if err := rows.Scan(&ref.ID, &ref.Text); err != nil {
			return nil, fmt.Errorf("scan untagged question: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list untagged questions: %w", err)
	}
	return refs, nil
}

// GetOrCreate resolves a tag name to its row identifier, inserting the row
// only if absent. The insert re-queries by name instead of trusting a
// returned id: if a concurrent caller inserted the same name first, the
// re-query finds that row instead of erroring.
func (r *TagRepository) GetOrCreate(ctx context.Context, name string) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tag transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `SELECT id FROM tags WHERE name = $1`, name).Scan(&id)
	if err == nil {
		if err := tx.Commit(ctx); err != nil {
			return 0, fmt.Errorf("commit tag lookup: %w", err)
		}
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("look up tag %q: %w", name, err)
	}

	// Absent: insert, then re-query. ON CONFLICT absorbs the benign race
	// where another run created the same name between our two statements.
	if _, err := tx.Exec(ctx,
		`INSERT INTO tags (name, created_at) VALUES ($1, now()) ON CONFLICT (name) DO NOTHING`,
		name,
	); err != nil {
		return 0, fmt.Errorf("create tag %q: %w", name, err)
	}

	if err := tx.QueryRow(ctx, `SELECT id FROM tags WHERE name = $1`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("retrieve id for created tag %q: %w", name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tag creation: %w", err)
	}

	r.logger.Debug("Created tag", zap.String("name", name), zap.Int64("tag_id", id))
	return id, nil
}

// CreateAssociation links a question to a tag. The caller treats a failure
// here as a per-question failure, not as fatal to the run.
func (r *TagRepository) CreateAssociation(ctx context.Context, questionID string, tagID int64) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO question_tags (question_id, tag_id, created_at) VALUES ($1, $2, now())`,
		questionID, tagID,
	)
	if err != nil {
		return fmt.Errorf("associate question %s with tag %d: %w", questionID, tagID, err)
	}
	return nil
}
