// Package service contains the backfill orchestrator: it pulls question
// records through the store adapter, applies the classifier or the external
// tag suggester, flushes updates in bounded batches, and reports per-run
// statistics. Re-running either mode is always safe: records that already
// carry a value are skipped, records that failed are retried next run.
package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"icebackfill/internal/model"
	"icebackfill/internal/store"
	"icebackfill/internal/suggest"
	"icebackfill/internal/taxonomy"
	"icebackfill/pkg/metrics"
	"icebackfill/pkg/mq"
	"icebackfill/pkg/util"
)

// EventPublisher is the optional event sink for successful writes.
// *mq.Publisher satisfies it; nil disables publishing.
type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

// Claimer optionally claims records so overlapping runs skip each other's
// work. *util.Deduper satisfies it; nil disables claiming.
type Claimer interface {
	AcquireOnce(ctx context.Context, scope, id string) bool
}

// Options controls a single run.
type Options struct {
	// DryRun executes every fetch and classification/generation step but
	// replaces writes with no-ops that still count as updates.
	DryRun bool
	// Limit caps the number of records processed; 0 means unbounded.
	Limit int
	// BatchSize is the classify-mode flush size. Defaults to 10.
	BatchSize int
	// Delay is the pause after each tag-suggestion call.
	Delay time.Duration
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 10
	}
	return o
}

// Backfill orchestrates both run modes over whichever adapters it was built
// with. Classify mode needs categories + classifier; tag-generation mode
// needs tags + suggester. publisher and claimer may be nil.
type Backfill struct {
	categories store.CategoryStore
	tags       store.TagStore
	classifier *taxonomy.Classifier
	suggester  suggest.Suggester
	publisher  EventPublisher
	claimer    Claimer
	logger     *zap.Logger
	opts       Options
}

func NewBackfill(
	categories store.CategoryStore,
	tags store.TagStore,
	classifier *taxonomy.Classifier,
	suggester suggest.Suggester,
	publisher EventPublisher,
	claimer Claimer,
	logger *zap.Logger,
	opts Options,
) *Backfill {
	return &Backfill{
		categories: categories,
		tags:       tags,
		classifier: classifier,
		suggester:  suggester,
		publisher:  publisher,
		claimer:    claimer,
		logger:     logger,
		opts:       opts.withDefaults(),
	}
}

// RunClassify fetches every question, classifies the ones without a
// category, and flushes the assignments in batches. A failed batch counts
// its full size as errors and never aborts the batches after it. Only a
// failed fetch is fatal to the run.
func (b *Backfill) RunClassify(ctx context.Context) (*Stats, error) {
	b.logger.Info("Starting category backfill",
		zap.Bool("dry_run", b.opts.DryRun),
		zap.Int("limit", b.opts.Limit),
		zap.Int("batch_size", b.opts.BatchSize),
	)

	questions, err := b.categories.ListQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}

	stats := newStats()
	stats.Total = len(questions)

	var updates []model.CategoryUpdate
	for _, q := range questions {
		if q.Category != "" {
			stats.Skipped++
			metrics.IncrementRecordsProcessed("classify", "skipped")
			continue
		}
		// Questions beyond the limit still count as skipped, so the totals
		// always reconcile: Total = Updated + Skipped + Errors.
		if b.opts.Limit > 0 && len(updates) >= b.opts.Limit {
			stats.Skipped++
			metrics.IncrementRecordsProcessed("classify", "skipped")
			continue
		}

		category := b.classifier.Classify(q.Text, q.Tags)
		b.logger.Debug("Classified question",
			zap.String("question_id", q.ID),
			zap.String("category", category.String()),
		)
		updates = append(updates, model.CategoryUpdate{ID: q.ID, Category: category})
	}

	batches := (len(updates) + b.opts.BatchSize - 1) / b.opts.BatchSize
	for i := 0; i < len(updates); i += b.opts.BatchSize {
		end := i + b.opts.BatchSize
		if end > len(updates) {
			end = len(updates)
		}
		batch := updates[i:end]
		batchNum := i/b.opts.BatchSize + 1

		b.logger.Info("Flushing category batch",
			zap.Int("batch", batchNum),
			zap.Int("batches", batches),
			zap.Int("size", len(batch)),
		)

		if !b.opts.DryRun {
			start := time.Now()
			if err := b.categories.ApplyCategoryUpdates(ctx, batch); err != nil {
				metrics.RecordBatchFlush("error", time.Since(start))
				retryable, errType := util.ClassifyError(err)
				stats.Errors += len(batch)
				for range batch {
					metrics.IncrementRecordsProcessed("classify", "error")
				}
				b.logger.Error("Category batch failed",
					zap.Int("batch", batchNum),
					zap.Int("size", len(batch)),
					zap.String("error_type", errType),
					zap.Bool("retryable", retryable),
					zap.Error(err),
				)
				continue
			}
			metrics.RecordBatchFlush("ok", time.Since(start))
		}

		stats.Updated += len(batch)
		for _, u := range batch {
			stats.Distribution[u.Category.String()]++
			metrics.IncrementRecordsProcessed("classify", "updated")
			if b.opts.DryRun {
				continue
			}
			metrics.IncrementCategoryAssigned(u.Category.String())
			b.publish(mq.RoutingKeyQuestionClassified, mq.QuestionClassifiedPayload{
				QuestionID: u.ID,
				Category:   u.Category.String(),
			})
		}
	}

	b.logSummary("Category backfill completed", stats)
	return stats, nil
}

// RunTagGeneration fetches questions with zero tag associations and, for
// each, asks the suggester for tags, then get-or-creates every tag and links
// it. Failures are isolated per question; a suggester failure simply means
// no tags were produced for that record.
func (b *Backfill) RunTagGeneration(ctx context.Context) (*Stats, error) {
	b.logger.Info("Starting tag backfill",
		zap.Bool("dry_run", b.opts.DryRun),
		zap.Int("limit", b.opts.Limit),
		zap.Duration("delay", b.opts.Delay),
	)

	refs, err := b.tags.ListQuestionsMissingTags(ctx, b.opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("fetch untagged questions: %w", err)
	}

	stats := newStats()
	stats.Total = len(refs)

	for i, ref := range refs {
		b.logger.Info("Processing question",
			zap.Int("index", i+1),
			zap.Int("total", len(refs)),
			zap.String("question_id", ref.ID),
		)

		if b.claimer != nil && !b.claimer.AcquireOnce(ctx, "taggen", ref.ID) {
			stats.Skipped++
			metrics.IncrementRecordsProcessed("taggen", "skipped")
			continue
		}

		b.processUntagged(ctx, ref, stats)

		// Rate-limit pause after each suggestion call.
		if b.opts.Delay > 0 && i < len(refs)-1 {
			time.Sleep(b.opts.Delay)
		}
	}

	b.logSummary("Tag backfill completed", stats)
	return stats, nil
}

func (b *Backfill) processUntagged(ctx context.Context, ref model.QuestionRef, stats *Stats) {
	names, err := b.suggester.SuggestTags(ctx, ref.Text)
	if err != nil {
		// Treated as "no tags produced", not as a run error.
		b.logger.Warn("Tag suggestion failed",
			zap.String("question_id", ref.ID),
			zap.Error(err),
		)
		names = nil
	}
	names = dedupeNames(names)

	if len(names) == 0 {
		stats.Skipped++
		metrics.IncrementRecordsProcessed("taggen", "no_tags")
		return
	}

	b.logger.Info("Generated tags",
		zap.String("question_id", ref.ID),
		zap.Strings("tags", names),
	)

	if b.opts.DryRun {
		stats.Updated++
		for _, name := range names {
			stats.Distribution[name]++
		}
		metrics.IncrementRecordsProcessed("taggen", "updated")
		return
	}

	for _, name := range names {
		tagID, err := b.tags.GetOrCreate(ctx, name)
		if err != nil {
			b.failQuestion(ref.ID, name, err, stats)
			return
		}
		if err := b.tags.CreateAssociation(ctx, ref.ID, tagID); err != nil {
			b.failQuestion(ref.ID, name, err, stats)
			return
		}
	}

	// The distribution covers successfully updated questions only, so it is
	// folded in only once every tag of this question has been written.
	stats.Updated++
	for _, name := range names {
		stats.Distribution[name]++
	}
	metrics.IncrementRecordsProcessed("taggen", "updated")
	b.publish(mq.RoutingKeyQuestionTagged, mq.QuestionTaggedPayload{
		QuestionID: ref.ID,
		Tags:       names,
	})
}

func (b *Backfill) failQuestion(questionID, tagName string, err error, stats *Stats) {
	retryable, errType := util.ClassifyError(err)
	stats.Errors++
	metrics.IncrementRecordsProcessed("taggen", "error")
	b.logger.Error("Failed to store tag",
		zap.String("question_id", questionID),
		zap.String("tag", tagName),
		zap.String("error_type", errType),
		zap.Bool("retryable", retryable),
		zap.Error(err),
	)
}

func (b *Backfill) publish(routingKey string, payload any) {
	if b.publisher == nil {
		return
	}
	if err := b.publisher.Publish(routingKey, payload); err != nil {
		b.logger.Warn("Failed to publish event",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
	}
}

func (b *Backfill) logSummary(msg string, stats *Stats) {
	b.logger.Info(msg,
		zap.Int("total", stats.Total),
		zap.Int("updated", stats.Updated),
		zap.Int("skipped", stats.Skipped),
		zap.Int("errors", stats.Errors),
	)

	if len(stats.Distribution) == 0 {
		return
	}
	keys := make([]string, 0, len(stats.Distribution))
	for k := range stats.Distribution {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		count := stats.Distribution[k]
		percent := 0.0
		if stats.Updated > 0 {
			percent = float64(count) / float64(stats.Updated) * 100
		}
		b.logger.Info("Distribution",
			zap.String("value", k),
			zap.Int("count", count),
			zap.Float64("percent", percent),
		)
	}
}

// dedupeNames drops exact duplicates while preserving order, so one run
// never creates the same (question, tag) pair twice.
func dedupeNames(names []string) []string {
	if len(names) < 2 {
		return names
	}
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
