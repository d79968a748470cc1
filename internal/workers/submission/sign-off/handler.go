// internal/workers/submission/sign-off/handler.go
package signoff

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"portfolio-workers/internal/common/camunda"
	"portfolio-workers/internal/common/config"
	"portfolio-workers/internal/models"
	"portfolio-workers/internal/workflow/submission"
)

const (
	TaskType = "sign-off"
)

type SignOffer interface {
	SignOff(ctx context.Context, in submission.ReviewInput) (*models.CategorySubmission, error)
}

type Handler struct {
	service SignOffer
	runner  *camunda.JobRunner
	config  config.WorkerConfig
}

func NewHandler(service SignOffer, runner *camunda.JobRunner, cfg config.WorkerConfig) *Handler {
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

// execute signs the submission off. The coverage-matrix write happens in the
// same transaction inside the service.
func (h *Handler) execute(ctx context.Context, variables string) (interface{}, error) {
	input, err := camunda.DecodeVariables[Input](variables)
	if err != nil {
		return nil, err
	}

	sub, err := h.service.SignOff(ctx, submission.ReviewInput{
		ActorID:      input.ActorID,
		SubmissionID: input.SubmissionID,
	})
	if err != nil {
		return nil, err
	}
	return &Output{Submission: sub, Status: sub.Status, SignedOffAt: sub.SignedOffAt}, nil
}
