package requestmoreevidence

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

type MockEvidenceRequester struct {
	mock.Mock
}

func (m *MockEvidenceRequester) RequestMoreEvidence(ctx context.Context, in submission.EvidenceRequestInput) (*models.CategorySubmission, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CategorySubmission), args.Error(1)
}

func TestHandler_OptionalNote(t *testing.T) {
	svc := &MockEvidenceRequester{}
	runner := camunda.NewJobRunner(logger.NewTestLogger(t), nil)
	h := NewHandler(svc, runner, config.WorkerConfig{Timeout: 1000})

	svc.On("RequestMoreEvidence", mock.Anything, submission.EvidenceRequestInput{ActorID: "a-1", SubmissionID: "sub-1"}).
		Return(&models.CategorySubmission{
			ID: "sub-1", Status: models.StatusFeedbackGiven, ActionNote: submission.DefaultEvidenceNote,
		}, nil)

	out, err := runner.Process(context.Background(), `{"actorId":"a-1","submissionId":"sub-1"}`, h.spec())

	require.NoError(t, err)
	output := out.(*Output)
	assert.Equal(t, models.StatusFeedbackGiven, output.Status)
	assert.Equal(t, submission.DefaultEvidenceNote, output.ActionNote)
	svc.AssertExpectations(t)
}

func TestHandler_PropagatesStateError(t *testing.T) {
	svc := &MockEvidenceRequester{}
	runner := camunda.NewJobRunner(logger.NewTestLogger(t), nil)
	h := NewHandler(svc, runner, config.WorkerConfig{Timeout: 1000})
	svc.On("RequestMoreEvidence", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewInvalidStateTransitionError("submitted", "feedback_given"))

	_, err := runner.Process(context.Background(), `{"actorId":"a-1","submissionId":"sub-1","note":"photos of the install"}`, h.spec())

	assert.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)
}
