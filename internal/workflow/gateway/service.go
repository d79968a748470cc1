// Package gateway tracks the End-Point Assessment gateway checklist.
package gateway

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"portfolio-workers/internal/cache"
	apperrors "portfolio-workers/internal/common/errors"
	"portfolio-workers/internal/common/logger"
	"portfolio-workers/internal/common/metrics"
	"portfolio-workers/internal/models"
	"portfolio-workers/internal/store"
	"portfolio-workers/internal/workflow"
)

const DefaultHoursRequired = 400

type Config struct {
	DefaultHoursRequired int
	StatusCacheTTL       time.Duration
}

type FieldInput struct {
	ActorID         string           `json:"actorId"`
	StudentID       string           `json:"studentId"`
	QualificationID string           `json:"qualificationId"`
	Field           models.Criterion `json:"field"`
	Value           bool             `json:"value"`
	Date            *time.Time       `json:"date,omitempty"`
}

type HoursInput struct {
	ActorID         string `json:"actorId"`
	StudentID       string `json:"studentId"`
	QualificationID string `json:"qualificationId"`
	Hours           *int   `json:"hours"`
	HoursRequired   *int   `json:"hoursRequired,omitempty"`
}

type BookingInput struct {
	ActorID         string     `json:"actorId"`
	StudentID       string     `json:"studentId"`
	QualificationID string     `json:"qualificationId"`
	Date            *time.Time `json:"date"`
}

type StatusInput struct {
	ActorID         string `json:"actorId"`
	StudentID       string `json:"studentId"`
	QualificationID string `json:"qualificationId"`
}

type Service struct {
	workflow.Deps
	views  *cache.ViewCache
	config Config
	log    logger.Logger
}

// NewService builds the tracker. views may be nil to read without caching.
func NewService(deps workflow.Deps, views *cache.ViewCache, config Config) *Service {
	if config.DefaultHoursRequired <= 0 {
		config.DefaultHoursRequired = DefaultHoursRequired
	}
	return &Service{
		Deps:   deps,
		views:  views,
		config: config,
		log:    logger.ForComponent(deps.Logger, "gateway"),
	}
}

// UpdateField sets one criterion and recomputes the gateway in the same
// transaction.
func (s *Service) UpdateField(ctx context.Context, in FieldInput) (_ *models.GatewayStatus, err error) {
	ctx, end := s.Obs.StartSpan(ctx, "gateway.update_field", attribute.String("field", string(in.Field)))
	defer func() { end(err) }()

	key, err := s.authorize(ctx, in.ActorID, in.StudentID, in.QualificationID)
	if err != nil {
		return nil, err
	}
	if !in.Field.Valid() {
		return nil, apperrors.NewValidationError("field", "unknown checklist field "+string(in.Field))
	}

	return s.mutate(ctx, "update-gateway-field", key, func(c *models.GatewayChecklist, now time.Time) error {
		SetCriterion(c, in.Field, in.Value, in.Date, in.ActorID, now)
		return nil
	})
}

// UpdateOJTHours records completed hours and derives the OJT criterion.
func (s *Service) UpdateOJTHours(ctx context.Context, in HoursInput) (_ *models.GatewayStatus, err error) {
	ctx, end := s.Obs.StartSpan(ctx, "gateway.update_ojt_hours", attribute.String("studentId", in.StudentID))
	defer func() { end(err) }()

	key, err := s.authorize(ctx, in.ActorID, in.StudentID, in.QualificationID)
	if err != nil {
		return nil, err
	}
	if in.Hours == nil {
		return nil, apperrors.NewValidationError("hours", "hours is required")
	}
	if *in.Hours < 0 {
		return nil, apperrors.NewValidationError("hours", "hours must not be negative")
	}
	if in.HoursRequired != nil && *in.HoursRequired <= 0 {
		return nil, apperrors.NewValidationError("hoursRequired", "hoursRequired must be positive")
	}

	return s.mutate(ctx, "update-ojt-hours", key, func(c *models.GatewayChecklist, now time.Time) error {
		if in.HoursRequired != nil {
			c.HoursRequired = *in.HoursRequired
		}
		SetHours(c, *in.Hours, in.ActorID, now)
		return nil
	})
}

// BookEPA records the assessment date. Booking before eligibility is
// accepted and surfaces as a warning on the status.
func (s *Service) BookEPA(ctx context.Context, in BookingInput) (_ *models.GatewayStatus, err error) {
	ctx, end := s.Obs.StartSpan(ctx, "gateway.book_epa", attribute.String("studentId", in.StudentID))
	defer func() { end(err) }()

	key, err := s.authorize(ctx, in.ActorID, in.StudentID, in.QualificationID)
	if err != nil {
		return nil, err
	}
	if in.Date == nil || in.Date.IsZero() {
		return nil, apperrors.NewValidationError("date", "date is required")
	}

	status, err := s.mutate(ctx, "book-epa", key, func(c *models.GatewayChecklist, _ time.Time) error {
		date := in.Date.UTC()
		c.EPABookedDate = &date
		c.EPABookedBy = in.ActorID
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(status.Warnings) > 0 {
		s.log.Warn("epa booked before eligibility", map[string]interface{}{
			"studentId":       key.StudentID,
			"qualificationId": key.QualificationID,
		})
	}
	return status, nil
}

// Status returns the derived view, served from cache when possible. A
// student without a checklist gets the view of an empty one.
func (s *Service) Status(ctx context.Context, in StatusInput) (_ *models.GatewayStatus, err error) {
	ctx, end := s.Obs.StartSpan(ctx, "gateway.status", attribute.String("studentId", in.StudentID))
	defer func() { end(err) }()

	if err := workflow.Required("actorId", in.ActorID, "studentId", in.StudentID, "qualificationId", in.QualificationID); err != nil {
		return nil, err
	}
	if in.ActorID != in.StudentID {
		if err := s.RequireAssigned(ctx, in.ActorID, in.StudentID, in.QualificationID); err != nil {
			return nil, err
		}
	}

	cacheKey := cache.GatewayKey(in.StudentID, in.QualificationID)
	var cached models.GatewayStatus
	if s.views.Get(ctx, "gateway", cacheKey, &cached) {
		return &cached, nil
	}

	gen := s.views.Generation(ctx, cacheKey)
	key := models.ChecklistKey{StudentID: in.StudentID, QualificationID: in.QualificationID}
	checklist, err := s.Store.GetChecklist(ctx, key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		checklist = models.NewGatewayChecklist(key, s.config.DefaultHoursRequired, s.Now())
	case err != nil:
		return nil, apperrors.NewDatabaseConnectionFailedError(err)
	}

	status := Derive(*checklist)
	s.views.SetAt(ctx, gen, status, s.config.StatusCacheTTL)
	return &status, nil
}

func (s *Service) authorize(ctx context.Context, actorID, studentID, qualificationID string) (models.ChecklistKey, error) {
	key := models.ChecklistKey{StudentID: studentID, QualificationID: qualificationID}
	if err := workflow.Required("actorId", actorID, "studentId", studentID, "qualificationId", qualificationID); err != nil {
		return key, err
	}
	return key, s.RequireAssigned(ctx, actorID, studentID, qualificationID)
}

// mutate upserts the checklist through patch, recomputes it and handles
// the post-commit side effects.
func (s *Service) mutate(ctx context.Context, operation string, key models.ChecklistKey, patch func(c *models.GatewayChecklist, now time.Time) error) (*models.GatewayStatus, error) {
	var (
		checklist *models.GatewayChecklist
		passedNow bool
	)
	err := s.RunInTx(ctx, operation, func(ctx context.Context, tx store.Tx) error {
		now := s.Now()
		passedNow = false
		defaults := func() *models.GatewayChecklist {
			return models.NewGatewayChecklist(key, s.config.DefaultHoursRequired, now)
		}
		updated, err := tx.UpsertChecklist(ctx, key, defaults, func(c *models.GatewayChecklist) error {
			if err := patch(c, now); err != nil {
				return err
			}
			passedNow = Recompute(c, now)
			c.UpdatedAt = now
			return nil
		})
		if err != nil {
			return err
		}
		checklist = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	status := Derive(*checklist)
	s.Cache.GatewayChanged(ctx, key.StudentID, key.QualificationID)
	s.Notify(ctx, key.StudentID, models.NotifyGatewayUpdate, map[string]interface{}{
		"qualificationId": key.QualificationID,
		"operation":       operation,
		"overallProgress": status.OverallProgress,
		"readinessStatus": string(status.ReadinessStatus),
	})
	if passedNow {
		metrics.GatewayPasses.Inc()
		s.Notify(ctx, key.StudentID, models.NotifyGatewayPassed, map[string]interface{}{
			"qualificationId":   key.QualificationID,
			"gatewayPassedDate": checklist.GatewayPassedDate,
		})
		s.log.Info("gateway passed", map[string]interface{}{
			"studentId":       key.StudentID,
			"qualificationId": key.QualificationID,
		})
	}
	return &status, nil
}
