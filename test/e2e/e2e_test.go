// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-workers/internal/cache"
	"portfolio-workers/internal/common/logger"
	"portfolio-workers/internal/directory"
	"portfolio-workers/internal/models"
	"portfolio-workers/internal/notification"
	"portfolio-workers/internal/store/memory"
	"portfolio-workers/internal/workflow"
	"portfolio-workers/internal/workflow/evidence"
	"portfolio-workers/internal/workflow/gateway"
	"portfolio-workers/internal/workflow/sampling"
	"portfolio-workers/internal/workflow/submission"
	"portfolio-workers/internal/workflow/workqueue"
)

const (
	student  = "st-1"
	qual     = "q-electrician-l3"
	assessor = "a-1"
	iqa      = "iqa-1"
	category = "Electrical Safety"
)

// stack wires every service the worker manager runs against one in-memory
// store, a miniredis view cache and a recording notifier.
type stack struct {
	store      *memory.Store
	redis      *miniredis.Miniredis
	notified   *notification.Recorder
	submission *submission.Service
	sampling   *sampling.Service
	gateway    *gateway.Service
	evidence   *evidence.Service
	workQueue  *workqueue.Aggregator
}

func newStack(t *testing.T) *stack {
	t.Helper()
	log := logger.NewTestLogger(t)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	staff := directory.NewStatic(
		models.Assignment{StaffID: assessor, StudentID: student, QualificationID: qual, Role: models.RoleAssessor},
		models.Assignment{StaffID: iqa, StudentID: student, QualificationID: qual, Role: models.RoleIQA},
	)
	views := cache.NewViewCache(rdb, log)

	s := &stack{store: memory.New(), redis: mr, notified: &notification.Recorder{}}
	deps := workflow.NewDeps(s.store, staff,
		workflow.WithLogger(log),
		workflow.WithNotifier(s.notified),
		workflow.WithInvalidation(cache.NewInvalidator(views, staff, log)),
		workflow.WithIDGenerator(uuid.NewString),
	)

	s.submission = submission.NewService(deps)
	s.sampling = sampling.NewService(deps)
	s.gateway = gateway.NewService(deps, views, gateway.Config{StatusCacheTTL: time.Minute})
	s.evidence = evidence.NewService(deps)
	s.workQueue = workqueue.NewAggregator(deps, views,
		workqueue.Config{SourceTimeout: time.Second, CacheTTL: time.Minute},
		workqueue.NewPortfolioSource(s.store),
	)
	return s
}

func (s *stack) queue(t *testing.T) *models.WorkQueue {
	t.Helper()
	q, err := s.workQueue.Get(context.Background(), workqueue.Input{ActorID: assessor, StaffID: assessor})
	require.NoError(t, err)
	return q
}

func TestCategoryLifecycle(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	item, err := s.evidence.SaveItem(ctx, evidence.SaveInput{
		ActorID: student, StudentID: student, Category: category,
		Title: "Safe isolation of a final circuit", KSBIDs: []string{"K4", "S7"},
	})
	require.NoError(t, err)

	sub, err := s.submission.Submit(ctx, submission.SubmitInput{ActorID: student, StudentID: student, QualificationID: qual, Category: category})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, sub.Status)

	q := s.queue(t)
	require.Len(t, q.Items, 1)
	assert.Equal(t, models.WorkItemPortfolio, q.Items[0].Type)

	review, err := s.submission.StartReview(ctx, submission.ReviewInput{ActorID: assessor, SubmissionID: sub.ID})
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, review.Submission.Status)

	_, err = s.evidence.VerifyMapping(ctx, evidence.VerifyInput{
		ActorID: assessor, ItemID: item.ID, KSBID: "K4", QualificationID: qual, Coverage: models.CoverageFull,
	})
	require.NoError(t, err)

	graded, err := s.submission.SubmitFeedback(ctx, submission.FeedbackInput{
		ActorID: assessor, SubmissionID: sub.ID, Grade: models.GradeMerit, Feedback: "Clear isolation sequence",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, graded.Status)

	signed, err := s.submission.SignOff(ctx, submission.ReviewInput{ActorID: assessor, SubmissionID: sub.ID})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSignedOff, signed.Status)

	entry, ok := s.store.CoverageEntry(student, qual, category)
	require.True(t, ok)
	assert.True(t, entry.Complete)

	// The queue was cached before sign-off; the commit must have dropped it.
	assert.Empty(t, s.queue(t).Items)

	candidates, err := s.sampling.Candidates(ctx, iqa)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	sampled, err := s.sampling.Sample(ctx, sampling.SampleInput{ActorID: iqa, SubmissionID: sub.ID})
	require.NoError(t, err)
	assert.Equal(t, models.StatusIQASampled, sampled.Submission.Status)

	verified, err := s.sampling.CompleteVerification(ctx, sampling.VerificationInput{
		ActorID: iqa, RecordID: sampled.Record.ID, Outcome: models.VerificationVerified,
		FeedbackQuality: models.FeedbackGood, GradingAccuracy: models.GradingAccurate,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusIQAVerified, verified.Submission.Status)

	summary, err := s.evidence.CoverageSummary(ctx, evidence.SummaryInput{ActorID: student, StudentID: student, Category: category})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.MappedKSBs)
	assert.Equal(t, 1, summary.FullKSBs)

	kinds := make([]models.NotificationKind, 0)
	for _, e := range s.notified.Events() {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []models.NotificationKind{
		models.NotifyFeedback, models.NotifySignedOff, models.NotifyIQASampled, models.NotifyIQAVerified,
	}, kinds)
}

func TestGatewayToEPA(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	status := func() *models.GatewayStatus {
		got, err := s.gateway.Status(ctx, gateway.StatusInput{ActorID: student, StudentID: student, QualificationID: qual})
		require.NoError(t, err)
		return got
	}

	assert.Equal(t, models.ReadinessNotReady, status().ReadinessStatus)

	hours := 420
	_, err := s.gateway.UpdateOJTHours(ctx, gateway.HoursInput{ActorID: assessor, StudentID: student, QualificationID: qual, Hours: &hours})
	require.NoError(t, err)

	var last *models.GatewayStatus
	for _, c := range models.GatewayCriteria {
		if c == models.CriterionOJTHoursVerified {
			continue
		}
		last, err = s.gateway.UpdateField(ctx, gateway.FieldInput{ActorID: assessor, StudentID: student, QualificationID: qual, Field: c, Value: true})
		require.NoError(t, err)
	}
	assert.True(t, last.Checklist.GatewayPassed)
	assert.True(t, last.Checklist.EPAEligible)

	// Status was cached as not ready; the pass must be visible.
	assert.Equal(t, models.ReadinessGatewayPassed, status().ReadinessStatus)
	assert.Len(t, s.notified.OfKind(models.NotifyGatewayPassed), 1)

	// Clearing a criterion after passing never reopens the gateway.
	after, err := s.gateway.UpdateField(ctx, gateway.FieldInput{ActorID: assessor, StudentID: student, QualificationID: qual, Field: models.CriterionEmployerSatisfied, Value: false})
	require.NoError(t, err)
	assert.True(t, after.Checklist.GatewayPassed)

	epa := time.Date(2024, 9, 16, 9, 0, 0, 0, time.UTC)
	booked, err := s.gateway.BookEPA(ctx, gateway.BookingInput{ActorID: assessor, StudentID: student, QualificationID: qual, Date: &epa})
	require.NoError(t, err)
	require.NotNil(t, booked.Checklist.EPABookedDate)
	assert.True(t, epa.Equal(*booked.Checklist.EPABookedDate))
	assert.Empty(t, booked.Warnings)
	assert.Len(t, s.notified.OfKind(models.NotifyGatewayPassed), 1)
}
