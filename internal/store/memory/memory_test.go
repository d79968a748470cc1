package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-workers/internal/models"
	"portfolio-workers/internal/store"
)

func newSubmission(id, student string, status models.SubmissionStatus, submittedAt time.Time) *models.CategorySubmission {
	return &models.CategorySubmission{
		ID:              id,
		StudentID:       student,
		QualificationID: "q-1",
		Category:        "cat-" + id,
		Status:          status,
		SubmittedAt:     submittedAt,
		SubmissionCount: 1,
	}
}

func seed(t *testing.T, s *Store, subs ...*models.CategorySubmission) {
	t.Helper()
	err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		for _, sub := range subs {
			if err := tx.InsertSubmission(ctx, sub); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestWithinTx_RollbackDiscardsWrites(t *testing.T) {
	s := New()
	boom := errors.New("boom")

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		require.NoError(t, tx.InsertSubmission(ctx, newSubmission("s-1", "st-1", models.StatusSubmitted, time.Now())))
		return boom
	})

	assert.ErrorIs(t, err, boom)
	_, err = s.GetSubmission(context.Background(), "s-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateSubmission_VersionCheck(t *testing.T) {
	s := New()
	seed(t, s, newSubmission("s-1", "st-1", models.StatusSubmitted, time.Now()))

	stale, err := s.GetSubmission(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stale.Version)

	err = s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		fresh, err := tx.GetSubmission(ctx, "s-1")
		if err != nil {
			return err
		}
		fresh.Status = models.StatusUnderReview
		return tx.UpdateSubmission(ctx, fresh)
	})
	require.NoError(t, err)

	err = s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		stale.Status = models.StatusApproved
		return tx.UpdateSubmission(ctx, stale)
	})
	assert.ErrorIs(t, err, store.ErrConflict)

	current, err := s.GetSubmission(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, current.Status)
	assert.Equal(t, int64(2), current.Version)
}

func TestInsertSubmission_DuplicateKeyConflicts(t *testing.T) {
	s := New()
	first := newSubmission("s-1", "st-1", models.StatusSubmitted, time.Now())
	seed(t, s, first)

	dup := *first
	dup.ID = "s-2"
	err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.InsertSubmission(ctx, &dup)
	})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestListPendingSubmissions_FiltersAndOrders(t *testing.T) {
	s := New()
	base := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	seed(t, s,
		newSubmission("s-3", "st-1", models.StatusResubmitted, base.Add(2*time.Hour)),
		newSubmission("s-1", "st-1", models.StatusSubmitted, base),
		newSubmission("s-2", "st-2", models.StatusUnderReview, base.Add(time.Hour)),
		newSubmission("s-4", "st-1", models.StatusApproved, base),
		newSubmission("s-5", "st-9", models.StatusSubmitted, base),
	)

	pending, err := s.ListPendingSubmissions(context.Background(), []string{"st-1", "st-2"})
	require.NoError(t, err)

	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"s-1", "s-2", "s-3"}, ids)
}

func TestUpsertChecklist_CreatesOnceThenPatches(t *testing.T) {
	s := New()
	key := models.ChecklistKey{StudentID: "st-1", QualificationID: "q-1"}
	now := time.Now()
	defaults := func() *models.GatewayChecklist { return models.NewGatewayChecklist(key, 400, now) }

	for i := 0; i < 2; i++ {
		err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
			_, err := tx.UpsertChecklist(ctx, key, defaults, func(c *models.GatewayChecklist) error {
				c.HoursCompleted = 120
				return nil
			})
			return err
		})
		require.NoError(t, err)
	}

	assert.Equal(t, 1, s.ChecklistCount())
	c, err := s.GetChecklist(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, 120, c.HoursCompleted)
	assert.Equal(t, int64(2), c.Version)
}

func TestFailOn_CountsDown(t *testing.T) {
	s := New()
	s.FailOn("InsertSubmission", store.ErrConflict, 1)

	attempt := func() error {
		return s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
			return tx.InsertSubmission(ctx, newSubmission("s-1", "st-1", models.StatusSubmitted, time.Now()))
		})
	}

	assert.ErrorIs(t, attempt(), store.ErrConflict)
	assert.NoError(t, attempt())
}
