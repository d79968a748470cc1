package completeverification

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"portfolio-workers/internal/common/camunda"
	"portfolio-workers/internal/common/config"
	"portfolio-workers/internal/models"
	"portfolio-workers/internal/workflow/sampling"
)

const (
	TaskType = "complete-verification"
)

type Verifier interface {
	CompleteVerification(ctx context.Context, in sampling.VerificationInput) (*sampling.SampleResult, error)
}

type Handler struct {
	service Verifier
	runner  *camunda.JobRunner
	config  config.WorkerConfig
}

func NewHandler(service Verifier, runner *camunda.JobRunner, cfg config.WorkerConfig) *Handler {
	return &Handler{service: service, runner: runner, config: cfg}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.runner.Run(client, job, h.spec())
}

func (h *Handler) spec() camunda.JobSpec {
	return camunda.JobSpec{
		TaskType: TaskType,
		Schema:   GetInputSchema(),
		Timeout:  config.GetDuration(h.config.Timeout),
		Execute:  h.execute,
	}
}

func (h *Handler) execute(ctx context.Context, variables string) (interface{}, error) {
	input, err := camunda.DecodeVariables[Input](variables)
	if err != nil {
		return nil, err
	}

	result, err := h.service.CompleteVerification(ctx, sampling.VerificationInput{
		ActorID:         input.ActorID,
		RecordID:        input.SamplingRecordID,
		Outcome:         models.VerificationStatus(input.Outcome),
		Notes:           input.Notes,
		FeedbackQuality: models.FeedbackQuality(input.FeedbackQuality),
		GradingAccuracy: models.GradingAccuracy(input.GradingAccuracy),
		RequiredAction:  input.RequiredAction,
	})
	if err != nil {
		return nil, err
	}
	return &Output{
		SamplingRecord: result.Record,
		Submission:     result.Submission,
		ConcernsRaised: result.Record.VerificationStatus == models.VerificationConcernsRaised,
	}, nil
}
