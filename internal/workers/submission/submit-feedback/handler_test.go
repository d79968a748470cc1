package submitfeedback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"portfolio-workers/internal/common/camunda"
	"portfolio-workers/internal/common/config"
	apperrors "portfolio-workers/internal/common/errors"
	"portfolio-workers/internal/common/logger"
	"portfolio-workers/internal/models"
	"portfolio-workers/internal/workflow/submission"
)

type MockFeedbackGiver struct {
	mock.Mock
}

func (m *MockFeedbackGiver) SubmitFeedback(ctx context.Context, in submission.FeedbackInput) (*models.CategorySubmission, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CategorySubmission), args.Error(1)
}

func setup(t *testing.T) (*MockFeedbackGiver, *Handler, *camunda.JobRunner) {
	t.Helper()
	svc := &MockFeedbackGiver{}
	runner := camunda.NewJobRunner(logger.NewTestLogger(t), nil)
	return svc, NewHandler(svc, runner, config.WorkerConfig{Timeout: 1000}), runner
}

func TestHandler_Grades(t *testing.T) {
	tests := []struct {
		grade  models.Grade
		status models.SubmissionStatus
		rework bool
	}{
		{models.GradeMerit, models.StatusApproved, false},
		{models.GradeRefer, models.StatusFeedbackGiven, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.grade), func(t *testing.T) {
			svc, h, runner := setup(t)
			svc.On("SubmitFeedback", mock.Anything, submission.FeedbackInput{
				ActorID: "a-1", SubmissionID: "sub-1", Grade: tt.grade, Feedback: "see notes",
			}).Return(&models.CategorySubmission{ID: "sub-1", Status: tt.status, Grade: tt.grade}, nil)

			out, err := runner.Process(context.Background(),
				`{"actorId":"a-1","submissionId":"sub-1","grade":"`+string(tt.grade)+`","feedback":"see notes"}`, h.spec())

			require.NoError(t, err)
			assert.Equal(t, tt.status, out.(*Output).Status)
			assert.Equal(t, tt.rework, out.(*Output).NeedsRework)
		})
	}
}

func TestHandler_UnknownGradeFailsSchema(t *testing.T) {
	svc, h, runner := setup(t)

	_, err := runner.Process(context.Background(), `{"actorId":"a-1","submissionId":"sub-1","grade":"A*"}`, h.spec())

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	svc.AssertNotCalled(t, "SubmitFeedback", mock.Anything, mock.Anything)
}
