package verifyksbmapping

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
	"portfolio-workers/internal/workflow/evidence"
)

type MockMappingVerifier struct {
	mock.Mock
}

func (m *MockMappingVerifier) VerifyMapping(ctx context.Context, in evidence.VerifyInput) (*models.PortfolioItem, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PortfolioItem), args.Error(1)
}

const validVariables = `{"actorId":"a-1","itemId":"item-1","ksbId":"K1","qualificationId":"q-1","coverage":"full"}`

func TestHandler_CountsVerifiedMappings(t *testing.T) {
	svc := &MockMappingVerifier{}
	runner := camunda.NewJobRunner(logger.NewTestLogger(t), nil)
	h := NewHandler(svc, runner, config.WorkerConfig{Timeout: 1000})

	svc.On("VerifyMapping", mock.Anything, evidence.VerifyInput{
		ActorID: "a-1", ItemID: "item-1", KSBID: "K1", QualificationID: "q-1", Coverage: models.CoverageFull,
	}).Return(&models.PortfolioItem{ID: "item-1", KSBMappings: []models.KSBMapping{
		{KSBID: "K1", Status: models.MappingVerified, Coverage: models.CoverageFull},
		{KSBID: "S2", Status: models.MappingUnverified},
	}}, nil)

	out, err := runner.Process(context.Background(), validVariables, h.spec())

	require.NoError(t, err)
	output := out.(*Output)
	assert.Equal(t, 1, output.VerifiedMappings)
	assert.Equal(t, 2, output.TotalMappings)
}

func TestHandler_UnknownKSB(t *testing.T) {
	svc := &MockMappingVerifier{}
	runner := camunda.NewJobRunner(logger.NewTestLogger(t), nil)
	h := NewHandler(svc, runner, config.WorkerConfig{Timeout: 1000})
	svc.On("VerifyMapping", mock.Anything, mock.Anything).Return(nil, apperrors.NewRecordNotFoundError("ksb mapping", "K1"))

	_, err := runner.Process(context.Background(), validVariables, h.spec())

	assert.ErrorIs(t, err, apperrors.ErrRecordNotFound)
}

func TestHandler_CoverageEnum(t *testing.T) {
	svc := &MockMappingVerifier{}
	runner := camunda.NewJobRunner(logger.NewTestLogger(t), nil)
	h := NewHandler(svc, runner, config.WorkerConfig{Timeout: 1000})

	_, err := runner.Process(context.Background(),
		`{"actorId":"a-1","itemId":"item-1","ksbId":"K1","qualificationId":"q-1","coverage":"most"}`, h.spec())

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	svc.AssertNotCalled(t, "VerifyMapping", mock.Anything, mock.Anything)
}
