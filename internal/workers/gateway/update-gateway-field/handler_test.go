package updategatewayfield

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"portfolio-workers/internal/common/camunda"
	"portfolio-workers/internal/common/config"
	apperrors "portfolio-workers/internal/common/errors"
	"portfolio-workers/internal/common/logger"
	"portfolio-workers/internal/models"
	"portfolio-workers/internal/workflow/gateway"
)

type MockFieldUpdater struct {
	mock.Mock
}

func (m *MockFieldUpdater) UpdateField(ctx context.Context, in gateway.FieldInput) (*models.GatewayStatus, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GatewayStatus), args.Error(1)
}

func setup(t *testing.T) (*MockFieldUpdater, *Handler, *camunda.JobRunner) {
	t.Helper()
	svc := &MockFieldUpdater{}
	runner := camunda.NewJobRunner(logger.NewTestLogger(t), nil)
	return svc, NewHandler(svc, runner, config.WorkerConfig{Timeout: 1000}), runner
}

func TestHandler_PassesDate(t *testing.T) {
	svc, h, runner := setup(t)
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	svc.On("UpdateField", mock.Anything, mock.MatchedBy(func(in gateway.FieldInput) bool {
		return in.Field == models.CriterionEnglishL2 && in.Value && in.Date != nil && in.Date.Equal(date)
	})).Return(&models.GatewayStatus{
		Checklist:       models.GatewayChecklist{GatewayPassed: true},
		OverallProgress: 100,
		ReadinessStatus: models.ReadinessGatewayPassed,
	}, nil)

	out, err := runner.Process(context.Background(),
		`{"actorId":"a-1","studentId":"st-1","qualificationId":"q-1","field":"english_l2_achieved","value":true,"date":"2024-06-01T00:00:00Z"}`,
		h.spec())

	require.NoError(t, err)
	output := out.(*Output)
	assert.True(t, output.GatewayPassed)
	assert.Equal(t, 100, output.OverallProgress)
	assert.Equal(t, models.ReadinessGatewayPassed, output.ReadinessStatus)
}

func TestHandler_SchemaFailures(t *testing.T) {
	tests := map[string]string{
		"unknown field": `{"actorId":"a-1","studentId":"st-1","qualificationId":"q-1","field":"driving_licence","value":true}`,
		"missing value": `{"actorId":"a-1","studentId":"st-1","qualificationId":"q-1","field":"maths_l2_achieved"}`,
		"bad date":      `{"actorId":"a-1","studentId":"st-1","qualificationId":"q-1","field":"maths_l2_achieved","value":true,"date":"last tuesday"}`,
	}
	for name, variables := range tests {
		t.Run(name, func(t *testing.T) {
			svc, h, runner := setup(t)

			_, err := runner.Process(context.Background(), variables, h.spec())

			assert.ErrorIs(t, err, apperrors.ErrValidation)
			svc.AssertNotCalled(t, "UpdateField", mock.Anything, mock.Anything)
		})
	}
}
