package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"icebackfill/internal/model"
)

type QuestionRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewQuestionRepository(db *pgxpool.Pool, logger *zap.Logger) *QuestionRepository {
	return &QuestionRepository{db: db, logger: logger}
}

// ListQuestions returns every question with its current category and the
// names of its associated tags.
func (r *QuestionRepository) ListQuestions(ctx context.Context) ([]model.Question, error) {
	query := `
        SELECT q.id, q.text, COALESCE(q.category, ''),
               COALESCE(array_agg(t.name) FILTER (WHERE t.name IS NOT NULL), '{}')
        FROM questions q
        LEFT JOIN question_tags qt ON qt.question_id = q.id
        LEFT JOIN tags t ON t.id = qt.tag_id
        GROUP BY q.id, q.text, q.category
        ORDER BY q.id
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var (
			q        model.Question
			category string
		)
		if err := rows.Scan(&q.ID, &q.Text, &category, &q.Tags); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Category = model.Category(category)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

// ApplyCategoryUpdates writes one batch of category assignments in a single
// transaction, so the batch either applies as a whole or not at all.
func (r *QuestionRepository) ApplyCategoryUpdates(ctx context.Context, updates []model.CategoryUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin category update batch: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, u := range updates {
		if _, err := tx.Exec(ctx,
			`UPDATE questions SET category = $1 WHERE id = $2`,
			string(u.Category), u.ID,
		); err != nil {
			return fmt.Errorf("update category for question %s: %w", u.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit category update batch: %w", err)
	}

	r.logger.Debug("Applied category update batch",
		zap.Int("size", len(updates)),
	)
	return nil
}
