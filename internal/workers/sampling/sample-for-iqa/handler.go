// internal/workers/sampling/sample-for-iqa/handler.go
package sampleforiqa

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"portfolio-workers/internal/common/camunda"
	"portfolio-workers/internal/common/config"
	"portfolio-workers/internal/workflow/sampling"
)

const (
	TaskType = "sample-for-iqa"
)

type Sampler interface {
	Sample(ctx context.Context, in sampling.SampleInput) (*sampling.SampleResult, error)
}

type Handler struct {
	service Sampler
	runner  *camunda.JobRunner
	config  config.WorkerConfig
}

func NewHandler(service Sampler, runner *camunda.JobRunner, cfg config.WorkerConfig) *Handler {
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

	result, err := h.service.Sample(ctx, sampling.SampleInput{
		ActorID:      input.ActorID,
		SubmissionID: input.SubmissionID,
	})
	if err != nil {
		return nil, err
	}
	return &Output{
		SamplingRecord:   result.Record,
		SamplingRecordID: result.Record.ID,
		Submission:       result.Submission,
	}, nil
}
