package listsamplingcandidates

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"portfolio-workers/internal/common/camunda"
	"portfolio-workers/internal/common/config"
	"portfolio-workers/internal/models"
)

const (
	TaskType = "list-sampling-candidates"
)

type CandidateLister interface {
	Candidates(ctx context.Context, iqaID string) ([]models.CategorySubmission, error)
	Stats(ctx context.Context, iqaID string) (*models.SamplingStats, error)
}

type Handler struct {
	service CandidateLister
	runner  *camunda.JobRunner
	config  config.WorkerConfig
}

func NewHandler(service CandidateLister, runner *camunda.JobRunner, cfg config.WorkerConfig) *Handler {
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

	candidates, err := h.service.Candidates(ctx, input.ActorID)
	if err != nil {
		return nil, err
	}
	out := &Output{Candidates: candidates, Count: len(candidates)}
	if input.IncludeStats {
		if out.Stats, err = h.service.Stats(ctx, input.ActorID); err != nil {
			return nil, err
		}
	}
	return out, nil
}
