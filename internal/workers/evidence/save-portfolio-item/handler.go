package saveportfolioitem

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
	TaskType = "save-portfolio-item"
)

type ItemSaver interface {
	SaveItem(ctx context.Context, in evidence.SaveInput) (*models.PortfolioItem, error)
}

type Handler struct {
	service ItemSaver
	runner  *camunda.JobRunner
	config  config.WorkerConfig
}

func NewHandler(service ItemSaver, runner *camunda.JobRunner, cfg config.WorkerConfig) *Handler {
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
	input, err := camunda.DecodeVariables[evidence.SaveInput](variables)
	if err != nil {
		return nil, err
	}

	item, err := h.service.SaveItem(ctx, *input)
	if err != nil {
		return nil, err
	}
	return &Output{PortfolioItem: item, ItemID: item.ID}, nil
}
