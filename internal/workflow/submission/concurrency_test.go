package submission

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "portfolio-workers/internal/common/errors"
	"portfolio-workers/internal/models"
	"portfolio-workers/internal/workflow"
)

// newConcurrentFixture swaps the fixture's stepping clock and counter ids for
// ones that are safe to call from several goroutines.
func newConcurrentFixture(t *testing.T) *fixture {
	t.Helper()
	fixed := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	return newFixture(t,
		workflow.WithClock(func() time.Time { return fixed }),
		workflow.WithIDGenerator(uuid.NewString),
	)
}

func TestSubmitRacingSignOff_OneWriterWins(t *testing.T) {
	for i := 0; i < 25; i++ {
		f := newConcurrentFixture(t)
		ctx := context.Background()
		sub := f.submit(t)
		f.approve(t, sub.ID)

		var (
			wg                    sync.WaitGroup
			start                 = make(chan struct{})
			resubmitted, signed   *models.CategorySubmission
			submitErr, signOffErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			resubmitted, submitErr = f.svc.Submit(ctx, SubmitInput{
				ActorID: student, StudentID: student, QualificationID: qual, Category: category,
			})
		}()
		go func() {
			defer wg.Done()
			<-start
			signed, signOffErr = f.svc.SignOff(ctx, ReviewInput{ActorID: assessor, SubmissionID: sub.ID})
		}()
		close(start)
		wg.Wait()

		stored, err := f.store.GetSubmission(ctx, sub.ID)
		require.NoError(t, err)
		_, covered := f.store.CoverageEntry(student, qual, category)

		switch {
		case signOffErr == nil:
			require.NotNil(t, signed)
			assert.Equal(t, models.StatusSignedOff, stored.Status)
			assertTransition(t, submitErr, models.StatusSignedOff, models.StatusResubmitted)
			assert.True(t, covered)
		case submitErr == nil:
			require.NotNil(t, resubmitted)
			assert.Equal(t, models.StatusResubmitted, stored.Status)
			assert.Equal(t, 2, stored.SubmissionCount)
			assertTransition(t, signOffErr, models.StatusResubmitted, models.StatusSignedOff)
			assert.False(t, covered)
		default:
			t.Fatalf("both writers failed: submit=%v signOff=%v", submitErr, signOffErr)
		}
	}
}

func TestStartReviewRace_OneReviewerTakesOver(t *testing.T) {
	const other = "a-2"

	for i := 0; i < 25; i++ {
		f := newConcurrentFixture(t)
		f.dir.Add(models.Assignment{StaffID: other, StudentID: student, QualificationID: qual, Role: models.RoleAssessor})
		ctx := context.Background()
		sub := f.submit(t)

		actors := []string{assessor, other}
		results := make([]*ReviewResult, len(actors))
		errs := make([]error, len(actors))

		var wg sync.WaitGroup
		start := make(chan struct{})
		for n, actor := range actors {
			n, actor := n, actor
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				results[n], errs[n] = f.svc.StartReview(ctx, ReviewInput{ActorID: actor, SubmissionID: sub.ID})
			}()
		}
		close(start)
		wg.Wait()

		require.NoError(t, errs[0])
		require.NoError(t, errs[1])

		reassigned := 0
		var last, first string
		for n, r := range results {
			if r.Reassigned {
				reassigned++
				last, first = actors[n], r.PreviousReviewer
			}
		}
		require.Equal(t, 1, reassigned)
		assert.NotEqual(t, last, first)

		stored, err := f.store.GetSubmission(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusUnderReview, stored.Status)
		assert.Equal(t, last, stored.ReviewerID)
	}
}

func TestSignOffRace_SecondCallerSeesSignedOff(t *testing.T) {
	f := newConcurrentFixture(t)
	ctx := context.Background()
	sub := f.submit(t)
	f.approve(t, sub.ID)

	errs := make([]error, 4)
	var wg sync.WaitGroup
	for n := range errs {
		n := n
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[n] = f.svc.SignOff(ctx, ReviewInput{ActorID: assessor, SubmissionID: sub.ID})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.recorder.OfKind(models.NotifySignedOff), 1)
}
