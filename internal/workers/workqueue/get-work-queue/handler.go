// internal/workers/workqueue/get-work-queue/handler.go
package getworkqueue

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"portfolio-workers/internal/common/camunda"
	"portfolio-workers/internal/common/config"
	"portfolio-workers/internal/models"
	"portfolio-workers/internal/workflow/workqueue"
)

const (
	TaskType = "get-work-queue"
)

type QueueReader interface {
	Get(ctx context.Context, in workqueue.Input) (*models.WorkQueue, error)
}

type Handler struct {
	service QueueReader
	runner  *camunda.JobRunner
	config  config.WorkerConfig
}

func NewHandler(service QueueReader, runner *camunda.JobRunner, cfg config.WorkerConfig) *Handler {
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

	staffID := input.StaffID
	if staffID == "" {
		staffID = input.ActorID
	}
	queue, err := h.service.Get(ctx, workqueue.Input{ActorID: input.ActorID, StaffID: staffID})
	if err != nil {
		return nil, err
	}

	out := &Output{WorkQueue: queue, ItemCount: len(queue.Items), Partial: len(queue.FailedSources) > 0}
	for _, item := range queue.Items {
		if item.Priority == models.PriorityUrgent {
			out.UrgentCount++
		}
	}
	return out, nil
}
