package workqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-workers/internal/cache"
	apperrors "portfolio-workers/internal/common/errors"
	"portfolio-workers/internal/common/logger"
	"portfolio-workers/internal/directory"
	"portfolio-workers/internal/models"
	"portfolio-workers/internal/store"
	"portfolio-workers/internal/store/memory"
	"portfolio-workers/internal/workflow"
)

var now = time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)

type staticSource struct {
	name  string
	items []models.WorkQueueItem
	err   error
	delay time.Duration
	calls int
}

func (s *staticSource) Name() string { return s.name }

// Fetch ignores ctx on purpose so the aggregator's own timeout is exercised.
func (s *staticSource) Fetch(_ context.Context, req Request) ([]models.WorkQueueItem, error) {
	s.calls++
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.items, s.err
}

func newDeps(t *testing.T, st store.Store, dir directory.Directory) workflow.Deps {
	t.Helper()
	return workflow.NewDeps(st, dir,
		workflow.WithLogger(logger.NewTestLogger(t)),
		workflow.WithClock(func() time.Time { return now }),
	)
}

func assessorDirectory() *directory.Static {
	return directory.NewStatic(
		models.Assignment{StaffID: "a-1", StudentID: "st-1", QualificationID: "q-1", Role: models.RoleAssessor},
		models.Assignment{StaffID: "a-1", StudentID: "st-2", QualificationID: "q-1", Role: models.RoleAssessor},
	)
}

func ids(items []models.WorkQueueItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestBuild_MergesInSourceOrderThenPriority(t *testing.T) {
	grades := &staticSource{name: "grade", items: []models.WorkQueueItem{
		GradeItem(models.GradeRecord{ID: "g1", StudentID: "st-1", Title: "Unit 1"}),
		GradeItem(models.GradeRecord{ID: "g2", StudentID: "st-2", Title: "Unit 2"}),
	}}
	ilps := &staticSource{name: "ilp", items: []models.WorkQueueItem{
		ILPItem(models.ILPReview{ID: "r1", StudentID: "st-1", DueDate: now.Add(-time.Hour)}),
	}}
	gateways := &staticSource{name: "gateway", items: []models.WorkQueueItem{
		GatewayItem(models.LearnerProgress{ID: "p1", StudentID: "st-2", QualificationID: "q-1", Status: ExternalGatewayReady}),
	}}
	portfolio := &staticSource{name: "portfolio", items: []models.WorkQueueItem{
		PortfolioItem(models.CategorySubmission{ID: "s1", StudentID: "st-1", SubmittedAt: now.Add(-9 * 24 * time.Hour), SubmissionCount: 1}, now),
		PortfolioItem(models.CategorySubmission{ID: "s2", StudentID: "st-2", SubmittedAt: now.Add(-1 * time.Hour), SubmissionCount: 1}, now),
		PortfolioItem(models.CategorySubmission{ID: "s3", StudentID: "st-2", SubmittedAt: now.Add(-5 * 24 * time.Hour), SubmissionCount: 1}, now),
	}}

	agg := NewAggregator(newDeps(t, memory.New(), assessorDirectory()), nil, Config{}, grades, ilps, gateways, portfolio)
	queue, err := agg.Build(context.Background(), "a-1")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"ilp-r1", "portfolio-s1",
		"gateway-p1", "portfolio-s3",
		"grade-g1", "grade-g2", "portfolio-s2",
	}, ids(queue.Items))
	assert.Empty(t, queue.FailedSources)
	assert.Equal(t, now, queue.GeneratedAt)
	for _, it := range queue.Items {
		assert.Equal(t, models.WorkItemPending, it.Status)
	}
}

func TestBuild_FailingSourceContributesNothing(t *testing.T) {
	grades := &staticSource{name: "grade", err: errors.New("relation grade_records does not exist")}
	gateways := &staticSource{name: "gateway", items: []models.WorkQueueItem{
		GatewayItem(models.LearnerProgress{ID: "p1", StudentID: "st-1", QualificationID: "q-1", Status: ExternalGatewayReady}),
	}}

	agg := NewAggregator(newDeps(t, memory.New(), assessorDirectory()), nil, Config{}, grades, gateways)
	queue, err := agg.Build(context.Background(), "a-1")

	require.NoError(t, err)
	assert.Equal(t, []string{"gateway-p1"}, ids(queue.Items))
	assert.Equal(t, []string{"grade"}, queue.FailedSources)
}

func TestBuild_SlowSourceIsCutOff(t *testing.T) {
	slow := &staticSource{name: "ilp", delay: 300 * time.Millisecond, items: []models.WorkQueueItem{
		ILPItem(models.ILPReview{ID: "r1", StudentID: "st-1", DueDate: now.Add(-time.Hour)}),
	}}
	fast := &staticSource{name: "grade", items: []models.WorkQueueItem{
		GradeItem(models.GradeRecord{ID: "g1", StudentID: "st-1", Title: "Unit 1"}),
	}}

	agg := NewAggregator(newDeps(t, memory.New(), assessorDirectory()), nil, Config{SourceTimeout: 20 * time.Millisecond}, fast, slow)
	start := time.Now()
	queue, err := agg.Build(context.Background(), "a-1")

	require.NoError(t, err)
	assert.Less(t, time.Since(start), 250*time.Millisecond)
	assert.Equal(t, []string{"grade-g1"}, ids(queue.Items))
	assert.Equal(t, []string{"ilp"}, queue.FailedSources)
}

func TestBuild_NoAssignmentsSkipsSources(t *testing.T) {
	src := &staticSource{name: "grade"}
	agg := NewAggregator(newDeps(t, memory.New(), directory.NewStatic()), nil, Config{}, src)

	queue, err := agg.Build(context.Background(), "a-1")
	require.NoError(t, err)
	assert.Empty(t, queue.Items)
	assert.Equal(t, 0, src.calls)
}

func TestBuild_DirectoryFailure(t *testing.T) {
	dir := assessorDirectory()
	dir.FailWith(errors.New("directory timeout"))
	agg := NewAggregator(newDeps(t, memory.New(), dir), nil, Config{})

	_, err := agg.Build(context.Background(), "a-1")
	assert.Equal(t, apperrors.ErrCodeExternalService, apperrors.CodeOf(err))
}

func TestBuild_PortfolioFromStore(t *testing.T) {
	st := memory.New()
	err := st.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		for _, sub := range []models.CategorySubmission{
			{ID: "s-old", StudentID: "st-1", QualificationID: "q-1", Category: "A", Status: models.StatusSubmitted, SubmittedAt: now.Add(-8 * 24 * time.Hour), SubmissionCount: 1},
			{ID: "s-new", StudentID: "st-1", QualificationID: "q-1", Category: "B", Status: models.StatusUnderReview, SubmittedAt: now.Add(-2 * 24 * time.Hour), SubmissionCount: 1},
			{ID: "s-done", StudentID: "st-1", QualificationID: "q-1", Category: "C", Status: models.StatusSignedOff, SubmittedAt: now.Add(-20 * 24 * time.Hour), SubmissionCount: 1},
			{ID: "s-other", StudentID: "st-9", QualificationID: "q-1", Category: "A", Status: models.StatusSubmitted, SubmittedAt: now, SubmissionCount: 1},
		} {
			sub := sub
			if err := tx.InsertSubmission(ctx, &sub); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	agg := NewAggregator(newDeps(t, st, assessorDirectory()), nil, Config{}, NewPortfolioSource(st))
	queue, err := agg.Build(context.Background(), "a-1")
	require.NoError(t, err)

	require.Len(t, queue.Items, 2)
	assert.Equal(t, "portfolio-s-old", queue.Items[0].ID)
	assert.Equal(t, models.PriorityUrgent, queue.Items[0].Priority)
	assert.Equal(t, "portfolio-s-new", queue.Items[1].ID)
	assert.Equal(t, models.PriorityNormal, queue.Items[1].Priority)
}

func TestGet_CachesCompleteQueues(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	views := cache.NewViewCache(client, logger.NewTestLogger(t))

	src := &staticSource{name: "grade", items: []models.WorkQueueItem{
		GradeItem(models.GradeRecord{ID: "g1", StudentID: "st-1", Title: "Unit 1"}),
	}}
	agg := NewAggregator(newDeps(t, memory.New(), assessorDirectory()), views, Config{CacheTTL: time.Minute}, src)
	ctx := context.Background()

	first, err := agg.Get(ctx, Input{ActorID: "a-1", StaffID: "a-1"})
	require.NoError(t, err)
	second, err := agg.Get(ctx, Input{ActorID: "a-1", StaffID: "a-1"})
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, ids(first.Items), ids(second.Items))
	assert.IsType(t, models.GradePayload{}, second.Items[0].Payload)
	assert.Equal(t, time.Minute, mr.TTL(cache.WorkQueueKey("a-1")))
}

func TestGet_PartialQueueIsNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	views := cache.NewViewCache(client, logger.NewTestLogger(t))

	src := &staticSource{name: "grade", err: errors.New("down")}
	agg := NewAggregator(newDeps(t, memory.New(), assessorDirectory()), views, Config{CacheTTL: time.Minute}, src)

	queue, err := agg.Get(context.Background(), Input{StaffID: "a-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"grade"}, queue.FailedSources)
	assert.False(t, mr.Exists(cache.WorkQueueKey("a-1")))
}

func TestGet_OnlyOwnQueue(t *testing.T) {
	agg := NewAggregator(newDeps(t, memory.New(), assessorDirectory()), nil, Config{})

	_, err := agg.Get(context.Background(), Input{ActorID: "a-2", StaffID: "a-1"})
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)

	_, err = agg.Get(context.Background(), Input{ActorID: "a-1"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

// invalidatingSource drops the cached queue while the build is in flight,
// as a commit landing mid-read would.
type invalidatingSource struct {
	staticSource
	views *cache.ViewCache
}

func (s *invalidatingSource) Fetch(ctx context.Context, req Request) ([]models.WorkQueueItem, error) {
	if s.calls == 0 {
		_ = s.views.Delete(ctx, cache.WorkQueueKey(req.StaffID))
	}
	return s.staticSource.Fetch(ctx, req)
}

func TestGet_QueueBuiltAcrossInvalidationIsNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	views := cache.NewViewCache(client, logger.NewTestLogger(t))

	src := &invalidatingSource{staticSource: staticSource{name: "grade"}, views: views}
	agg := NewAggregator(newDeps(t, memory.New(), assessorDirectory()), views, Config{CacheTTL: time.Minute}, src)
	ctx := context.Background()

	_, err := agg.Get(ctx, Input{ActorID: "a-1", StaffID: "a-1"})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.WorkQueueKey("a-1")))

	_, err = agg.Get(ctx, Input{ActorID: "a-1", StaffID: "a-1"})
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.WorkQueueKey("a-1")))
	assert.Equal(t, 2, src.calls)
}
