package getcoveragesummary

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"portfolio-workers/internal/common/camunda"
	"portfolio-workers/internal/common/config"
	"portfolio-workers/internal/models"
	"portfolio-workers/internal/workflow/evidence"
)

const (
	TaskType = "get-coverage-summary"
)

type Summarizer interface {
	CoverageSummary(ctx context.Context, in evidence.SummaryInput) (*models.CoverageSummary, error)
}

type Handler struct {
	service Summarizer
	runner  *camunda.JobRunner
	config  config.WorkerConfig
}

func NewHandler(service Summarizer, runner *camunda.JobRunner, cfg config.WorkerConfig) *Handler {
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
	input, err := camunda.DecodeVariables[evidence.SummaryInput](variables)
	if err != nil {
		return nil, err
	}
	summary, err := h.service.CoverageSummary(ctx, *input)
	if err != nil {
		return nil, err
	}
	return &Output{CoverageSummary: summary}, nil
}
