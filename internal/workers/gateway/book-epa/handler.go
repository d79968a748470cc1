package bookepa

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
	TaskType = "book-epa"
)

type Booker interface {
	BookEPA(ctx context.Context, in gateway.BookingInput) (*models.GatewayStatus, error)
}

type Handler struct {
	service Booker
	runner  *camunda.JobRunner
	config  config.WorkerConfig
}

func NewHandler(service Booker, runner *camunda.JobRunner, cfg config.WorkerConfig) *Handler {
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

// execute books the EPA. Booking ahead of eligibility is allowed and comes
// back as a warning rather than an error.
func (h *Handler) execute(ctx context.Context, variables string) (interface{}, error) {
	input, err := camunda.DecodeVariables[Input](variables)
	if err != nil {
		return nil, err
	}

	status, err := h.service.BookEPA(ctx, gateway.BookingInput{
		ActorID:         input.ActorID,
		StudentID:       input.StudentID,
		QualificationID: input.QualificationID,
		Date:            input.Date,
	})
	if err != nil {
		return nil, err
	}
	return &Output{
		GatewayStatus: status,
		EPABookedDate: status.Checklist.EPABookedDate,
		EPAEligible:   status.Checklist.EPAEligible,
		Warnings:      status.Warnings,
	}, nil
}
