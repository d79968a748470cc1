package submitfeedback

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
	TaskType = "submit-feedback"
)

type FeedbackGiver interface {
	SubmitFeedback(ctx context.Context, in submission.FeedbackInput) (*models.CategorySubmission, error)
}

type Handler struct {
	service FeedbackGiver
	runner  *camunda.JobRunner
	config  config.WorkerConfig
}

func NewHandler(service FeedbackGiver, runner *camunda.JobRunner, cfg config.WorkerConfig) *Handler {
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

	sub, err := h.service.SubmitFeedback(ctx, submission.FeedbackInput{
		ActorID:      input.ActorID,
		SubmissionID: input.SubmissionID,
		Grade:        models.Grade(input.Grade),
		Feedback:     input.Feedback,
	})
	if err != nil {
		return nil, err
	}
	return &Output{
		Submission:  sub,
		Status:      sub.Status,
		NeedsRework: sub.Status == models.StatusFeedbackGiven,
	}, nil
}
