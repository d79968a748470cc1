package updateojthours

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
	TaskType = "update-ojt-hours"
)

type HoursUpdater interface {
	UpdateOJTHours(ctx context.Context, in gateway.HoursInput) (*models.GatewayStatus, error)
}

type Handler struct {
	service HoursUpdater
	runner  *camunda.JobRunner
	config  config.WorkerConfig
}

func NewHandler(service HoursUpdater, runner *camunda.JobRunner, cfg config.WorkerConfig) *Handler {
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

	status, err := h.service.UpdateOJTHours(ctx, gateway.HoursInput{
		ActorID:         input.ActorID,
		StudentID:       input.StudentID,
		QualificationID: input.QualificationID,
		Hours:           input.Hours,
		HoursRequired:   input.HoursRequired,
	})
	if err != nil {
		return nil, err
	}

	verified := status.Checklist.Criteria[models.CriterionOJTHoursVerified].Met
	return &Output{
		GatewayStatus:   status,
		HoursCompleted:  status.Checklist.HoursCompleted,
		HoursRequired:   status.Checklist.HoursRequired,
		HoursVerified:   verified,
		ReadinessStatus: status.ReadinessStatus,
	}, nil
}
