package cache

import (
	"context"

	"portfolio-workers/internal/common/logger"
	"portfolio-workers/internal/common/metrics"
)

// Invalidation is called after a commit. It never fails the operation.
type Invalidation interface {
	SubmissionChanged(ctx context.Context, studentID, qualificationID string)
	GatewayChanged(ctx context.Context, studentID, qualificationID string)
}

type StaffLookup interface {
	AssignedStaff(ctx context.Context, studentID, qualificationID string) ([]string, error)
}

type Invalidator struct {
	views  *ViewCache
	staff  StaffLookup
	logger logger.Logger
}

var _ Invalidation = (*Invalidator)(nil)

func NewInvalidator(views *ViewCache, staff StaffLookup, log logger.Logger) *Invalidator {
	return &Invalidator{views: views, staff: staff, logger: logger.ForComponent(log, "cache-invalidator")}
}

// SubmissionChanged drops the work queues of everyone assigned to the student.
func (i *Invalidator) SubmissionChanged(ctx context.Context, studentID, qualificationID string) {
	i.drop(ctx, "workqueue", studentID, qualificationID, nil)
}

// GatewayChanged drops the gateway status view and the assigned staff's work queues.
func (i *Invalidator) GatewayChanged(ctx context.Context, studentID, qualificationID string) {
	i.drop(ctx, "gateway", studentID, qualificationID, []string{GatewayKey(studentID, qualificationID)})
}

func (i *Invalidator) drop(ctx context.Context, view, studentID, qualificationID string, keys []string) {
	staff, err := i.staff.AssignedStaff(ctx, studentID, qualificationID)
	if err != nil {
		i.logger.Warn("cannot enumerate cached work queues", map[string]interface{}{
			"studentId":       studentID,
			"qualificationId": qualificationID,
			"error":           err.Error(),
		})
	}
	for _, id := range staff {
		keys = append(keys, WorkQueueKey(id))
	}
	if len(keys) == 0 {
		return
	}

	if err := i.views.Delete(ctx, keys...); err != nil {
		i.logger.Warn("cache invalidation failed", map[string]interface{}{
			"keys":  keys,
			"error": err.Error(),
		})
		metrics.CacheOperations.WithLabelValues(view, "invalidate_failed").Inc()
		return
	}
	metrics.CacheOperations.WithLabelValues(view, "invalidated").Inc()
}

// Noop ignores every change.
type Noop struct{}

func (Noop) SubmissionChanged(context.Context, string, string) {}
func (Noop) GatewayChanged(context.Context, string, string)    {}
