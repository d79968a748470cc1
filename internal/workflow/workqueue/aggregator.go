// Package workqueue folds pending work from several sources into one
// prioritized list per staff member. It never writes.
package workqueue

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"portfolio-workers/internal/cache"
	apperrors "portfolio-workers/internal/common/errors"
	"portfolio-workers/internal/common/logger"
	"portfolio-workers/internal/common/metrics"
	"portfolio-workers/internal/models"
	"portfolio-workers/internal/workflow"
)

const DefaultSourceTimeout = 2 * time.Second

type Config struct {
	SourceTimeout time.Duration
	CacheTTL      time.Duration
}

type Input struct {
	ActorID string `json:"actorId"`
	StaffID string `json:"staffId"`
}

type Aggregator struct {
	workflow.Deps
	sources []Source
	views   *cache.ViewCache
	config  Config
	log     logger.Logger
}

// NewAggregator reads sources in the order given. views may be nil.
func NewAggregator(deps workflow.Deps, views *cache.ViewCache, config Config, sources ...Source) *Aggregator {
	if config.SourceTimeout <= 0 {
		config.SourceTimeout = DefaultSourceTimeout
	}
	return &Aggregator{
		Deps:    deps,
		sources: sources,
		views:   views,
		config:  config,
		log:     logger.ForComponent(deps.Logger, "workqueue"),
	}
}

// Get returns the staff member's queue. Staff may only read their own.
func (a *Aggregator) Get(ctx context.Context, in Input) (_ *models.WorkQueue, err error) {
	ctx, end := a.Obs.StartSpan(ctx, "workqueue.get", attribute.String("staffId", in.StaffID))
	defer func() { end(err) }()

	if err := workflow.Required("staffId", in.StaffID); err != nil {
		return nil, err
	}
	if in.ActorID != "" && in.ActorID != in.StaffID {
		return nil, apperrors.NewNotAuthorizedError(in.ActorID, in.StaffID)
	}

	key := cache.WorkQueueKey(in.StaffID)
	var cached models.WorkQueue
	if a.views.Get(ctx, "workqueue", key, &cached) {
		return &cached, nil
	}

	gen := a.views.Generation(ctx, key)
	queue, err := a.Build(ctx, in.StaffID)
	if err != nil {
		return nil, err
	}
	if len(queue.FailedSources) == 0 {
		a.views.SetAt(ctx, gen, queue, a.config.CacheTTL)
	}
	return queue, nil
}

// Build reads every source concurrently and merges the results. A source
// that fails or outlives its timeout contributes nothing.
func (a *Aggregator) Build(ctx context.Context, staffID string) (*models.WorkQueue, error) {
	assignments, err := a.Directory.ResolveAssignments(ctx, staffID)
	if err != nil {
		return nil, apperrors.NewExternalServiceError("directory", err)
	}

	now := a.Now()
	queue := &models.WorkQueue{StaffID: staffID, Items: []models.WorkQueueItem{}, GeneratedAt: now}
	req := Request{StaffID: staffID, StudentIDs: models.StudentIDs(assignments), Now: now}
	if len(req.StudentIDs) == 0 {
		return queue, nil
	}

	results := make([][]models.WorkQueueItem, len(a.sources))
	failed := make([]bool, len(a.sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range a.sources {
		i, src := i, src
		g.Go(func() error {
			items, err := a.fetch(gctx, src, req)
			if err != nil {
				failed[i] = true
				metrics.WorkQueueSourceFailures.WithLabelValues(src.Name()).Inc()
				a.log.Warn("work queue source unavailable", map[string]interface{}{
					"source":  src.Name(),
					"staffId": staffID,
					"error":   err.Error(),
				})
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	for i, src := range a.sources {
		if failed[i] {
			queue.FailedSources = append(queue.FailedSources, src.Name())
			continue
		}
		queue.Items = append(queue.Items, results[i]...)
	}
	Order(queue.Items)
	return queue, nil
}

// fetch bounds one source by the configured timeout, even when the source
// ignores its context.
func (a *Aggregator) fetch(ctx context.Context, src Source, req Request) ([]models.WorkQueueItem, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.SourceTimeout)
	defer cancel()

	type result struct {
		items []models.WorkQueueItem
		err   error
	}
	done := make(chan result, 1)
	go func() {
		items, err := src.Fetch(ctx, req)
		done <- result{items, err}
	}()

	select {
	case r := <-done:
		return r.items, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
