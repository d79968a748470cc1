package getgatewaystatus

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"portfolio-workers/internal/common/camunda"
	"portfolio-workers/internal/common/config"
	"portfolio-workers/internal/models"
	"portfolio-workers/internal/workflow/gateway"
)

const (
	TaskType = "get-gateway-status"
)

type StatusReader interface {
	Status(ctx context.Context, in gateway.StatusInput) (*models.GatewayStatus, error)
}

type Handler struct {
	service StatusReader
	runner  *camunda.JobRunner
	config  config.WorkerConfig
}

func NewHandler(service StatusReader, runner *camunda.JobRunner, cfg config.WorkerConfig) *Handler {
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
	input, err := camunda.DecodeVariables[gateway.StatusInput](variables)
	if err != nil {
		return nil, err
	}

	status, err := h.service.Status(ctx, *input)
	if err != nil {
		return nil, err
	}
	return &Output{
		GatewayStatus:   status,
		ReadinessStatus: status.ReadinessStatus,
		OverallProgress: status.OverallProgress,
	}, nil
}
