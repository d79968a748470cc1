// Package workflow holds what every workflow service shares: the store, the
// assignment directory, post-commit side effects and the clock.
package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"portfolio-workers/internal/cache"
	apperrors "portfolio-workers/internal/common/errors"
	"portfolio-workers/internal/common/logger"
	"portfolio-workers/internal/common/metrics"
	"portfolio-workers/internal/common/observability"
	"portfolio-workers/internal/directory"
	"portfolio-workers/internal/models"
	"portfolio-workers/internal/notification"
	"portfolio-workers/internal/store"
)

const DefaultMaxTxAttempts = 3

type Deps struct {
	Store         store.Store
	Directory     directory.Directory
	Notifier      notification.Sink
	Cache         cache.Invalidation
	Obs           *observability.Observability
	Logger        logger.Logger
	Clock         func() time.Time
	NewID         func() string
	MaxTxAttempts int
}

type Option func(*Deps)

func WithNotifier(n notification.Sink) Option {
	return func(d *Deps) { d.Notifier = n }
}

func WithInvalidation(c cache.Invalidation) Option {
	return func(d *Deps) { d.Cache = c }
}

func WithObservability(o *observability.Observability) Option {
	return func(d *Deps) { d.Obs = o }
}

func WithLogger(l logger.Logger) Option {
	return func(d *Deps) { d.Logger = l }
}

func WithClock(clock func() time.Time) Option {
	return func(d *Deps) { d.Clock = clock }
}

func WithIDGenerator(newID func() string) Option {
	return func(d *Deps) { d.NewID = newID }
}

func WithMaxTxAttempts(n int) Option {
	return func(d *Deps) { d.MaxTxAttempts = n }
}

func NewDeps(st store.Store, dir directory.Directory, opts ...Option) Deps {
	d := Deps{
		Store:         st,
		Directory:     dir,
		Notifier:      notification.Noop{},
		Cache:         cache.Noop{},
		Obs:           observability.NewNoop(),
		Logger:        logger.NewNoOpLogger(),
		Clock:         func() time.Time { return time.Now().UTC() },
		NewID:         uuid.NewString,
		MaxTxAttempts: DefaultMaxTxAttempts,
	}
	for _, opt := range opts {
		opt(&d)
	}
	if d.MaxTxAttempts < 1 {
		d.MaxTxAttempts = DefaultMaxTxAttempts
	}
	return d
}

func (d Deps) Now() time.Time {
	return d.Clock()
}

// RunInTx runs fn under the store's optimistic retry loop and counts
// conflicts per operation.
func (d Deps) RunInTx(ctx context.Context, operation string, fn func(ctx context.Context, tx store.Tx) error) error {
	attempt := 0
	return store.RunInTx(ctx, d.Store, d.MaxTxAttempts, operation, func(ctx context.Context, tx store.Tx) error {
		attempt++
		if attempt > 1 {
			metrics.TransactionConflicts.WithLabelValues(operation).Inc()
			d.Logger.Debug("retrying after version conflict", map[string]interface{}{
				"operation": operation,
				"attempt":   attempt,
			})
		}
		return fn(ctx, tx)
	})
}

// RequireAssigned fails with NotAuthorized unless the actor is linked to the
// student for the qualification in any role. Directory lookups may hit the
// database, so never call this or RequireRole inside RunInTx.
func (d Deps) RequireAssigned(ctx context.Context, actorID, studentID, qualificationID string) error {
	ok, err := d.Directory.IsAssigned(ctx, actorID, studentID, qualificationID)
	if err != nil {
		return apperrors.NewExternalServiceError("directory", err)
	}
	if !ok {
		return apperrors.NewNotAuthorizedError(actorID, studentID)
	}
	return nil
}

// Scopes returns the (student, qualification) pairs the actor holds in role.
func (d Deps) Scopes(ctx context.Context, actorID string, role models.Role) ([]store.Scope, error) {
	assignments, err := d.Directory.ResolveAssignments(ctx, actorID)
	if err != nil {
		return nil, apperrors.NewExternalServiceError("directory", err)
	}
	held := models.FilterRole(assignments, role)
	scopes := make([]store.Scope, 0, len(held))
	for _, a := range held {
		scopes = append(scopes, store.Scope{StudentID: a.StudentID, QualificationID: a.QualificationID})
	}
	return scopes, nil
}

// RequireRole fails with NotAuthorized unless the actor holds role for the
// student and qualification.
func (d Deps) RequireRole(ctx context.Context, actorID, studentID, qualificationID string, role models.Role) error {
	scopes, err := d.Scopes(ctx, actorID, role)
	if err != nil {
		return err
	}
	for _, s := range scopes {
		if s.StudentID == studentID && s.QualificationID == qualificationID {
			return nil
		}
	}
	return apperrors.NewNotAuthorizedError(actorID, studentID)
}

// Notify hands an event to the sink. Call it only after commit.
func (d Deps) Notify(ctx context.Context, studentID string, kind models.NotificationKind, payload map[string]interface{}) {
	d.Notifier.Notify(ctx, models.NotificationEvent{
		StudentID:  studentID,
		Kind:       kind,
		Payload:    payload,
		OccurredAt: d.Now(),
	})
}

// Required returns a ValidationError naming the first blank field. Pairs are
// given as name, value, name, value...
func Required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return apperrors.NewValidationError(pairs[i], pairs[i]+" is required")
		}
	}
	return nil
}

// NotFound translates store.ErrNotFound into RecordNotFound and leaves other
// errors alone.
func NotFound(err error, kind, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NewRecordNotFoundError(kind, id)
	}
	return err
}

// Lookup translates an error from a Queries read. Missing records are
// RecordNotFound; anything else means the database could not be reached.
func Lookup(err error, kind, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NewRecordNotFoundError(kind, id)
	}
	return apperrors.NewDatabaseConnectionFailedError(err)
}

// CountTransition records a submission status change.
func CountTransition(from, to models.SubmissionStatus) {
	fromLabel := string(from)
	if fromLabel == "" {
		fromLabel = "none"
	}
	metrics.SubmissionTransitions.WithLabelValues(fromLabel, string(to)).Inc()
}
