package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"icebackfill/internal/model"
	"icebackfill/internal/taxonomy"
)

type fakeCategoryStore struct {
	questions []model.Question
	fetchErr  error
	applied   [][]model.CategoryUpdate
	failCalls map[int]error
	calls     int
}

func (f *fakeCategoryStore) ListQuestions(ctx context.Context) ([]model.Question, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]model.Question, len(f.questions))
	copy(out, f.questions)
	return out, nil
}

func (f *fakeCategoryStore) ApplyCategoryUpdates(ctx context.Context, updates []model.CategoryUpdate) error {
	f.calls++
	if err := f.failCalls[f.calls]; err != nil {
		return err
	}
	f.applied = append(f.applied, updates)
	for _, u := range updates {
		for i := range f.questions {
			if f.questions[i].ID == u.ID {
				f.questions[i].Category = u.Category
			}
		}
	}
	return nil
}

type fakeTagStore struct {
	refs           []model.QuestionRef
	fetchErr       error
	nextID         int64
	tagsByName     map[string]int64
	associations   map[string][]int64
	assocErrFor    map[string]error
	getOrCreateErr map[string]error
}

func newFakeTagStore(refs ...model.QuestionRef) *fakeTagStore {
	return &fakeTagStore{
		refs:         refs,
		tagsByName:   make(map[string]int64),
		associations: make(map[string][]int64),
	}
}

func (f *fakeTagStore) ListQuestionsMissingTags(ctx context.Context, limit int) ([]model.QuestionRef, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	refs := f.refs
	if limit > 0 && limit < len(refs) {
		refs = refs[:limit]
	}
	return refs, nil
}

func (f *fakeTagStore) GetOrCreate(ctx context.Context, name string) (int64, error) {
	if err := f.getOrCreateErr[name]; err != nil {
		return 0, err
	}
	if id, ok := f.tagsByName[name]; ok {
		return id, nil
	}
	f.nextID++
	f.tagsByName[name] = f.nextID
	return f.nextID, nil
}

func (f *fakeTagStore) CreateAssociation(ctx context.Context, questionID string, tagID int64) error {
	if err := f.assocErrFor[questionID]; err != nil {
		return err
	}
	f.associations[questionID] = append(f.associations[questionID], tagID)
	return nil
}

type fakeSuggester struct {
	tags   map[string][]string
	errFor map[string]error
}

func (f *fakeSuggester) SuggestTags(ctx context.Context, text string) ([]string, error) {
	if err := f.errFor[text]; err != nil {
		return nil, err
	}
	return f.tags[text], nil
}

type publishedEvent struct {
	routingKey string
	payload    any
}

type fakePublisher struct {
	events []publishedEvent
}

func (f *fakePublisher) Publish(routingKey string, payload any) error {
	f.events = append(f.events, publishedEvent{routingKey, payload})
	return nil
}

type fakeClaimer struct {
	taken map[string]bool
}

func (f *fakeClaimer) AcquireOnce(ctx context.Context, scope, id string) bool {
	return !f.taken[id]
}

func classifyBackfill(cs *fakeCategoryStore, opts Options) *Backfill {
	return NewBackfill(cs, nil, taxonomy.NewClassifier(nil), nil, nil, nil, zap.NewNop(), opts)
}

func tagBackfill(ts *fakeTagStore, sg *fakeSuggester, opts Options) *Backfill {
	return NewBackfill(nil, ts, nil, sg, nil, nil, zap.NewNop(), opts)
}

func TestRunClassifyAssignsMissingCategories(t *testing.T) {
	cs := &fakeCategoryStore{questions: []model.Question{
		{ID: "q1", Text: "Coffee or tea?"},
		{ID: "q2", Text: "What's the funniest thing that happened at work?"},
		{ID: "q3", Text: "Already done", Category: model.CategoryDeep},
	}}

	stats, err := classifyBackfill(cs, Options{}).RunClassify(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Updated)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, stats.Errors)
	assert.Equal(t, map[string]int{"thisOrThat": 1, "fun": 1}, stats.Distribution)

	require.Len(t, cs.applied, 1)
	assert.Equal(t, model.CategoryThisOrThat, cs.questions[0].Category)
	assert.Equal(t, model.CategoryFun, cs.questions[1].Category)
}

func TestRunClassifyIsIdempotent(t *testing.T) {
	cs := &fakeCategoryStore{questions: []model.Question{
		{ID: "q1", Text: "Coffee or tea?"},
		{ID: "q2", Text: "What was your first job like?"},
	}}

	first, err := classifyBackfill(cs, Options{}).RunClassify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Updated)

	second, err := classifyBackfill(cs, Options{}).RunClassify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Updated)
	assert.Equal(t, 2, second.Skipped)
}

func TestRunClassifyBatchFailureIsolation(t *testing.T) {
	var questions []model.Question
	for i := 0; i < 25; i++ {
		questions = append(questions, model.Question{
			ID:   string(rune('a' + i)),
			Text: "Coffee or tea?",
		})
	}
	// Batches of 10, 10, 5; the second flush fails.
	cs := &fakeCategoryStore{
		questions: questions,
		failCalls: map[int]error{2: errors.New("write timeout")},
	}

	stats, err := classifyBackfill(cs, Options{BatchSize: 10}).RunClassify(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 15, stats.Updated)
	assert.Equal(t, 10, stats.Errors)
	require.Len(t, cs.applied, 2)
	assert.Len(t, cs.applied[0], 10)
	assert.Len(t, cs.applied[1], 5)
}

func TestRunClassifyDryRun(t *testing.T) {
	cs := &fakeCategoryStore{questions: []model.Question{
		{ID: "q1", Text: "Coffee or tea?"},
	}}

	stats, err := classifyBackfill(cs, Options{DryRun: true}).RunClassify(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, map[string]int{"thisOrThat": 1}, stats.Distribution)
	assert.Zero(t, cs.calls, "dry run must never touch the store")
}

func TestRunClassifyLimit(t *testing.T) {
	cs := &fakeCategoryStore{questions: []model.Question{
		{ID: "q1", Text: "Coffee or tea?"},
		{ID: "q2", Text: "Coffee or tea?"},
		{ID: "q3", Text: "Coffee or tea?"},
	}}

	stats, err := classifyBackfill(cs, Options{Limit: 2}).RunClassify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Updated)

	// The question beyond the limit is still accounted for.
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, stats.Total, stats.Updated+stats.Skipped+stats.Errors)
}

func TestRunClassifyFetchErrorIsFatal(t *testing.T) {
	cs := &fakeCategoryStore{fetchErr: errors.New("connection refused")}

	_, err := classifyBackfill(cs, Options{}).RunClassify(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch questions")
}

func TestRunClassifyPublishesEvents(t *testing.T) {
	cs := &fakeCategoryStore{questions: []model.Question{
		{ID: "q1", Text: "Coffee or tea?"},
	}}
	pub := &fakePublisher{}
	b := NewBackfill(cs, nil, taxonomy.NewClassifier(nil), nil, pub, nil, zap.NewNop(), Options{})

	_, err := b.RunClassify(context.Background())
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "question.classified", pub.events[0].routingKey)
}

func TestRunTagGenerationStoresSuggestedTags(t *testing.T) {
	ts := newFakeTagStore(
		model.QuestionRef{ID: "q1", Text: "first"},
		model.QuestionRef{ID: "q2", Text: "second"},
	)
	sg := &fakeSuggester{tags: map[string][]string{
		"first":  {"funny", "personal"},
		"second": {"funny", "travel"},
	}}

	stats, err := tagBackfill(ts, sg, Options{}).RunTagGeneration(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Updated)
	assert.Equal(t, 0, stats.Errors)
	assert.Equal(t, map[string]int{"funny": 2, "personal": 1, "travel": 1}, stats.Distribution)

	// "funny" was suggested for both questions but created exactly once.
	assert.Len(t, ts.tagsByName, 3)
	funnyID := ts.tagsByName["funny"]
	assert.Contains(t, ts.associations["q1"], funnyID)
	assert.Contains(t, ts.associations["q2"], funnyID)
}

func TestRunTagGenerationDeduplicatesWithinOneQuestion(t *testing.T) {
	ts := newFakeTagStore(model.QuestionRef{ID: "q1", Text: "first"})
	sg := &fakeSuggester{tags: map[string][]string{
		"first": {"funny", "funny", "travel"},
	}}

	_, err := tagBackfill(ts, sg, Options{}).RunTagGeneration(context.Background())
	require.NoError(t, err)

	assert.Len(t, ts.associations["q1"], 2)
}

func TestRunTagGenerationSuggesterFailureIsNotFatal(t *testing.T) {
	ts := newFakeTagStore(
		model.QuestionRef{ID: "q1", Text: "bad"},
		model.QuestionRef{ID: "q2", Text: "good"},
	)
	sg := &fakeSuggester{
		tags:   map[string][]string{"good": {"travel"}},
		errFor: map[string]error{"bad": errors.New("rate limited")},
	}

	stats, err := tagBackfill(ts, sg, Options{}).RunTagGeneration(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, stats.Errors)
	assert.Empty(t, ts.associations["q1"])
	assert.Len(t, ts.associations["q2"], 1)
}

func TestRunTagGenerationPerQuestionFailureIsolation(t *testing.T) {
	ts := newFakeTagStore(
		model.QuestionRef{ID: "q1", Text: "first"},
		model.QuestionRef{ID: "q2", Text: "second"},
	)
	ts.assocErrFor = map[string]error{"q1": errors.New("deadlock")}
	sg := &fakeSuggester{tags: map[string][]string{
		"first":  {"funny"},
		"second": {"travel"},
	}}

	stats, err := tagBackfill(ts, sg, Options{}).RunTagGeneration(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 1, stats.Updated)
	assert.Len(t, ts.associations["q2"], 1)
}

func TestRunTagGenerationPartialFailureLeavesDistributionClean(t *testing.T) {
	ts := newFakeTagStore(model.QuestionRef{ID: "q1", Text: "first"})
	ts.getOrCreateErr = map[string]error{"travel": errors.New("deadlock")}
	sg := &fakeSuggester{tags: map[string][]string{
		"first": {"funny", "travel"},
	}}

	stats, err := tagBackfill(ts, sg, Options{}).RunTagGeneration(context.Background())
	require.NoError(t, err)

	// The second tag failed, so the question counts as an error and none of
	// its tags reach the distribution, not even the one written first.
	assert.Equal(t, 0, stats.Updated)
	assert.Equal(t, 1, stats.Errors)
	assert.Empty(t, stats.Distribution)
}

func TestRunTagGenerationDryRun(t *testing.T) {
	ts := newFakeTagStore(model.QuestionRef{ID: "q1", Text: "first"})
	sg := &fakeSuggester{tags: map[string][]string{"first": {"funny"}}}

	stats, err := tagBackfill(ts, sg, Options{DryRun: true}).RunTagGeneration(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Updated)
	assert.Empty(t, ts.tagsByName, "dry run must never touch the store")
	assert.Empty(t, ts.associations)
}

func TestRunTagGenerationLimit(t *testing.T) {
	ts := newFakeTagStore(
		model.QuestionRef{ID: "q1", Text: "first"},
		model.QuestionRef{ID: "q2", Text: "second"},
	)
	sg := &fakeSuggester{tags: map[string][]string{
		"first":  {"funny"},
		"second": {"travel"},
	}}

	stats, err := tagBackfill(ts, sg, Options{Limit: 1}).RunTagGeneration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Updated)
}

func TestRunTagGenerationRespectsClaimer(t *testing.T) {
	ts := newFakeTagStore(
		model.QuestionRef{ID: "q1", Text: "first"},
		model.QuestionRef{ID: "q2", Text: "second"},
	)
	sg := &fakeSuggester{tags: map[string][]string{
		"first":  {"funny"},
		"second": {"travel"},
	}}
	claimer := &fakeClaimer{taken: map[string]bool{"q1": true}}
	b := NewBackfill(nil, ts, nil, sg, nil, claimer, zap.NewNop(), Options{})

	stats, err := b.RunTagGeneration(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Updated)
	assert.Empty(t, ts.associations["q1"])
}

func TestRunTagGenerationFetchErrorIsFatal(t *testing.T) {
	ts := newFakeTagStore()
	ts.fetchErr = errors.New("connection refused")
	sg := &fakeSuggester{}

	_, err := tagBackfill(ts, sg, Options{}).RunTagGeneration(context.Background())
	require.Error(t, err)
}
