package completeverification

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
	"portfolio-workers/internal/workflow/sampling"
)

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) CompleteVerification(ctx context.Context, in sampling.VerificationInput) (*sampling.SampleResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sampling.SampleResult), args.Error(1)
}

func TestHandler_ConcernsRaised(t *testing.T) {
	svc := &MockVerifier{}
	runner := camunda.NewJobRunner(logger.NewTestLogger(t), nil)
	h := NewHandler(svc, runner, config.WorkerConfig{Timeout: 1000})

	svc.On("CompleteVerification", mock.Anything, sampling.VerificationInput{
		ActorID:         "iqa-1",
		RecordID:        "rec-1",
		Outcome:         models.VerificationConcernsRaised,
		Notes:           "grading too lenient",
		GradingAccuracy: models.GradingLenient,
	}).Return(&sampling.SampleResult{
		Record:     &models.SamplingRecord{ID: "rec-1", VerificationStatus: models.VerificationConcernsRaised},
		Submission: &models.CategorySubmission{ID: "sub-1", Status: models.StatusIQAVerified},
	}, nil)

	out, err := runner.Process(context.Background(),
		`{"actorId":"iqa-1","samplingRecordId":"rec-1","outcome":"concerns_raised","notes":"grading too lenient","gradingAccuracy":"lenient"}`,
		h.spec())

	require.NoError(t, err)
	output := out.(*Output)
	assert.True(t, output.ConcernsRaised)
	assert.Equal(t, models.StatusIQAVerified, output.Submission.Status)
	svc.AssertExpectations(t)
}

func TestHandler_SchemaRejectsUnknownValues(t *testing.T) {
	tests := map[string]string{
		"pending outcome":  `{"actorId":"iqa-1","samplingRecordId":"rec-1","outcome":"pending"}`,
		"unknown quality":  `{"actorId":"iqa-1","samplingRecordId":"rec-1","outcome":"verified","feedbackQuality":"superb"}`,
		"unknown accuracy": `{"actorId":"iqa-1","samplingRecordId":"rec-1","outcome":"verified","gradingAccuracy":"harsh"}`,
		"missing record":   `{"actorId":"iqa-1","outcome":"verified"}`,
	}
	for name, variables := range tests {
		t.Run(name, func(t *testing.T) {
			svc := &MockVerifier{}
			runner := camunda.NewJobRunner(logger.NewTestLogger(t), nil)
			h := NewHandler(svc, runner, config.WorkerConfig{Timeout: 1000})

			_, err := runner.Process(context.Background(), variables, h.spec())

			assert.ErrorIs(t, err, apperrors.ErrValidation)
			svc.AssertNotCalled(t, "CompleteVerification", mock.Anything, mock.Anything)
		})
	}
}
