// internal/workers/gateway/update-gateway-field/handler.go
package updategatewayfield

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
	TaskType = "update-gateway-field"
)

type FieldUpdater interface {
	UpdateField(ctx context.Context, in gateway.FieldInput) (*models.GatewayStatus, error)
}

type Handler struct {
	service FieldUpdater
	runner  *camunda.JobRunner
	config  config.WorkerConfig
}

func NewHandler(service FieldUpdater, runner *camunda.JobRunner, cfg config.WorkerConfig) *Handler {
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

	status, err := h.service.UpdateField(ctx, gateway.FieldInput{
		ActorID:         input.ActorID,
		StudentID:       input.StudentID,
		QualificationID: input.QualificationID,
		Field:           models.Criterion(input.Field),
		Value:           input.Value,
		Date:            input.Date,
	})
	if err != nil {
		return nil, err
	}
	return newOutput(status), nil
}
