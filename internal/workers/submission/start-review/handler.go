// internal/workers/submission/start-review/handler.go
package startreview

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"portfolio-workers/internal/common/camunda"
	"portfolio-workers/internal/common/config"
	"portfolio-workers/internal/workflow/submission"
)

const (
	TaskType = "start-review"
)

type Reviewer interface {
	StartReview(ctx context.Context, in submission.ReviewInput) (*submission.ReviewResult, error)
}

type Handler struct {
	service Reviewer
	runner  *camunda.JobRunner
	config  config.WorkerConfig
}

func NewHandler(service Reviewer, runner *camunda.JobRunner, cfg config.WorkerConfig) *Handler {
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

	result, err := h.service.StartReview(ctx, submission.ReviewInput{
		ActorID:      input.ActorID,
		SubmissionID: input.SubmissionID,
	})
	if err != nil {
		return nil, err
	}
	return &Output{
		Submission:       result.Submission,
		Status:           result.Submission.Status,
		Reassigned:       result.Reassigned,
		PreviousReviewer: result.PreviousReviewer,
	}, nil
}
