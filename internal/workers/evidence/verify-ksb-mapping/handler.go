// internal/workers/evidence/verify-ksb-mapping/handler.go
package verifyksbmapping

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
	TaskType = "verify-ksb-mapping"
)

type MappingVerifier interface {
	VerifyMapping(ctx context.Context, in evidence.VerifyInput) (*models.PortfolioItem, error)
}

type Handler struct {
	service MappingVerifier
	runner  *camunda.JobRunner
	config  config.WorkerConfig
}

func NewHandler(service MappingVerifier, runner *camunda.JobRunner, cfg config.WorkerConfig) *Handler {
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

	item, err := h.service.VerifyMapping(ctx, evidence.VerifyInput{
		ActorID:         input.ActorID,
		ItemID:          input.ItemID,
		KSBID:           input.KSBID,
		QualificationID: input.QualificationID,
		Coverage:        models.CoverageLevel(input.Coverage),
	})
	if err != nil {
		return nil, err
	}

	verified := 0
	for _, m := range item.KSBMappings {
		if m.Status == models.MappingVerified {
			verified++
		}
	}
	return &Output{PortfolioItem: item, VerifiedMappings: verified, TotalMappings: len(item.KSBMappings)}, nil
}
