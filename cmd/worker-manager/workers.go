package main

import (
	"portfolio-workers/internal/cache"
	"portfolio-workers/internal/common/camunda"
	"portfolio-workers/internal/common/config"
	"portfolio-workers/internal/common/database"
	"portfolio-workers/internal/store"
	"portfolio-workers/internal/workflow"
	"portfolio-workers/internal/workflow/evidence"
	"portfolio-workers/internal/workflow/gateway"
	"portfolio-workers/internal/workflow/sampling"
	"portfolio-workers/internal/workflow/submission"
	"portfolio-workers/internal/workflow/workqueue"

	// Submission workers (5)
	rme "portfolio-workers/internal/workers/submission/request-more-evidence"
	so "portfolio-workers/internal/workers/submission/sign-off"
	sr "portfolio-workers/internal/workers/submission/start-review"
	sc "portfolio-workers/internal/workers/submission/submit-category"
	sf "portfolio-workers/internal/workers/submission/submit-feedback"

	// Sampling workers (3)
	cv "portfolio-workers/internal/workers/sampling/complete-verification"
	lsc "portfolio-workers/internal/workers/sampling/list-sampling-candidates"
	sfi "portfolio-workers/internal/workers/sampling/sample-for-iqa"

	// Gateway workers (4)
	be "portfolio-workers/internal/workers/gateway/book-epa"
	ggs "portfolio-workers/internal/workers/gateway/get-gateway-status"
	ugf "portfolio-workers/internal/workers/gateway/update-gateway-field"
	uoh "portfolio-workers/internal/workers/gateway/update-ojt-hours"

	// Evidence workers (3)
	gcs "portfolio-workers/internal/workers/evidence/get-coverage-summary"
	spi "portfolio-workers/internal/workers/evidence/save-portfolio-item"
	vkm "portfolio-workers/internal/workers/evidence/verify-ksb-mapping"

	// Work queue workers (1)
	gwq "portfolio-workers/internal/workers/workqueue/get-work-queue"
)

type services struct {
	submission *submission.Service
	sampling   *sampling.Service
	gateway    *gateway.Service
	evidence   *evidence.Service
	workQueue  *workqueue.Aggregator
}

func newServices(cfg *config.Config, deps workflow.Deps, views *cache.ViewCache, pg *database.PostgresClient, es *database.ElasticsearchClient, queries store.Queries) services {
	wq := cfg.Workflow.WorkQueue
	return services{
		submission: submission.NewService(deps),
		sampling:   sampling.NewService(deps),
		gateway: gateway.NewService(deps, views, gateway.Config{
			DefaultHoursRequired: cfg.Workflow.DefaultOJTHoursRequired,
			StatusCacheTTL:       config.GetDuration(cfg.Workflow.GatewayStatusCacheTTL),
		}),
		evidence: evidence.NewService(deps),
		workQueue: workqueue.NewAggregator(deps, views,
			workqueue.Config{
				SourceTimeout: config.GetDuration(wq.SourceTimeout),
				CacheTTL:      config.GetDuration(wq.CacheTTL),
			},
			workqueue.NewGradeSource(pg.DB),
			workqueue.NewILPSource(es.Client, wq.ILPIndex),
			workqueue.NewGatewaySource(pg.DB),
			workqueue.NewPortfolioSource(queries),
		),
	}
}

type registration struct {
	taskType string
	handler  camunda.JobHandler
}

func registerHandlers(svc services, runner *camunda.JobRunner, cfg *config.Config) []registration {
	wc := func(taskType string) config.WorkerConfig { return config.GetWorkerConfig(cfg, taskType) }

	return []registration{
		{sc.TaskType, sc.NewHandler(svc.submission, runner, wc(sc.TaskType))},
		{sr.TaskType, sr.NewHandler(svc.submission, runner, wc(sr.TaskType))},
		{sf.TaskType, sf.NewHandler(svc.submission, runner, wc(sf.TaskType))},
		{rme.TaskType, rme.NewHandler(svc.submission, runner, wc(rme.TaskType))},
		{so.TaskType, so.NewHandler(svc.submission, runner, wc(so.TaskType))},

		{sfi.TaskType, sfi.NewHandler(svc.sampling, runner, wc(sfi.TaskType))},
		{cv.TaskType, cv.NewHandler(svc.sampling, runner, wc(cv.TaskType))},
		{lsc.TaskType, lsc.NewHandler(svc.sampling, runner, wc(lsc.TaskType))},

		{ugf.TaskType, ugf.NewHandler(svc.gateway, runner, wc(ugf.TaskType))},
		{uoh.TaskType, uoh.NewHandler(svc.gateway, runner, wc(uoh.TaskType))},
		{be.TaskType, be.NewHandler(svc.gateway, runner, wc(be.TaskType))},
		{ggs.TaskType, ggs.NewHandler(svc.gateway, runner, wc(ggs.TaskType))},

		{spi.TaskType, spi.NewHandler(svc.evidence, runner, wc(spi.TaskType))},
		{vkm.TaskType, vkm.NewHandler(svc.evidence, runner, wc(vkm.TaskType))},
		{gcs.TaskType, gcs.NewHandler(svc.evidence, runner, wc(gcs.TaskType))},

		{gwq.TaskType, gwq.NewHandler(svc.workQueue, runner, wc(gwq.TaskType))},
	}
}
