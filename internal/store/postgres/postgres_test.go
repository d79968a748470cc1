package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-workers/internal/models"
	"portfolio-workers/internal/store"
)

// ==========================
// Test Helper Functions
// ==========================

var submissionColumnNames = []string{
	"id", "student_id", "qualification_id", "category", "status", "submitted_at",
	"submission_count", "assessor_feedback", "grade", "previous_feedback", "previous_grade",
	"action_note", "reviewer_id", "review_started_at", "feedback_at", "signed_off_at",
	"signed_off_by", "iqa_sampled", "iqa_sampled_at", "iqa_sampled_by", "version",
	"created_at", "updated_at",
}

var checklistColumnNames = []string{
	"student_id", "qualification_id", "criteria", "hours_completed", "hours_required",
	"gateway_passed", "gateway_passed_date", "epa_eligible", "epa_booked_date", "epa_booked_by",
	"version", "created_at", "updated_at",
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func addSubmissionRow(rows *sqlmock.Rows, id, status string, submittedAt time.Time, signedOff interface{}) *sqlmock.Rows {
	return rows.AddRow(
		id, "st-1", "q-1", "cat-"+id, status, submittedAt,
		1, "", "", "", "",
		"", "assessor-1", nil, nil, signedOff,
		"", false, nil, "", int64(1),
		submittedAt, submittedAt,
	)
}

func sampleSubmission() *models.CategorySubmission {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &models.CategorySubmission{
		ID: "s-1", StudentID: "st-1", QualificationID: "q-1", Category: "Electrical Safety",
		Status: models.StatusUnderReview, SubmittedAt: now, SubmissionCount: 1,
		ReviewerID: "assessor-1", ReviewStartedAt: &now, Version: 3,
		CreatedAt: now, UpdatedAt: now,
	}
}

// ==========================
// Submissions
// ==========================

func TestGetSubmission_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM category_submissions WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(submissionColumnNames))

	_, err := s.GetSubmission(context.Background(), "missing")

	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPendingSubmissions_ScansNullableColumns(t *testing.T) {
	s, mock := newMockStore(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(submissionColumnNames)
	addSubmissionRow(rows, "s-1", "submitted", base, nil)
	addSubmissionRow(rows, "s-2", "resubmitted", base.Add(time.Hour), nil)

	mock.ExpectQuery(`SELECT .+ FROM category_submissions\s+WHERE status = ANY\(\$1\) AND student_id = ANY\(\$2\)\s+ORDER BY submitted_at, id`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	subs, err := s.ListPendingSubmissions(context.Background(), []string{"st-1"})

	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, models.StatusSubmitted, subs[0].Status)
	assert.Nil(t, subs[0].ReviewStartedAt)
	assert.Equal(t, "s-2", subs[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPendingSubmissions_NoStudentsSkipsQuery(t *testing.T) {
	s, mock := newMockStore(t)

	subs, err := s.ListPendingSubmissions(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, subs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSubmission_StaleVersionConflicts(t *testing.T) {
	s, mock := newMockStore(t)
	sub := sampleSubmission()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE category_submissions SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.UpdateSubmission(ctx, sub)
	})

	assert.ErrorIs(t, err, store.ErrConflict)
	assert.Equal(t, int64(3), sub.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSubmission_BumpsVersion(t *testing.T) {
	s, mock := newMockStore(t)
	sub := sampleSubmission()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE category_submissions SET .+ WHERE id = \$1 AND version = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.UpdateSubmission(ctx, sub)
	})

	require.NoError(t, err)
	assert.Equal(t, int64(4), sub.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxSubmissionReads_LockRows(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM category_submissions WHERE id = \$1 FOR UPDATE$`).
		WithArgs("s-1").
		WillReturnRows(addSubmissionRow(sqlmock.NewRows(submissionColumnNames), "s-1", "approved", at, nil))
	mock.ExpectQuery(`SELECT .+ FROM category_submissions\s+WHERE student_id = \$1 AND qualification_id = \$2 AND category = \$3 FOR UPDATE$`).
		WithArgs("st-1", "q-1", "cat-s-1").
		WillReturnRows(addSubmissionRow(sqlmock.NewRows(submissionColumnNames), "s-1", "approved", at, nil))
	mock.ExpectCommit()

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		byID, err := tx.GetSubmission(ctx, "s-1")
		if err != nil {
			return err
		}
		byKey, err := tx.FindSubmission(ctx, models.SubmissionKey{StudentID: "st-1", QualificationID: "q-1", Category: "cat-s-1"})
		if err != nil {
			return err
		}
		assert.Equal(t, byID.ID, byKey.ID)
		return nil
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueriesReads_DoNotLock(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM category_submissions WHERE id = \$1$`).
		WithArgs("s-1").
		WillReturnRows(addSubmissionRow(sqlmock.NewRows(submissionColumnNames), "s-1", "approved", at, nil))
	mock.ExpectQuery(`SELECT .+ FROM sampling_records WHERE id = \$1$`).
		WithArgs("r-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetSubmission(context.Background(), "s-1")
	require.NoError(t, err)
	_, err = s.GetSamplingRecord(context.Background(), "r-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxSamplingRecordRead_LocksRow(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM sampling_records WHERE id = \$1 FOR UPDATE$`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := tx.GetSamplingRecord(ctx, "missing")
		return err
	})

	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertSubmission_UniqueViolationConflicts(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO category_submissions`).
		WillReturnError(&pq.Error{Code: pqUniqueViolation, Message: "duplicate key"})
	mock.ExpectRollback()

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.InsertSubmission(ctx, sampleSubmission())
	})

	assert.ErrorIs(t, err, store.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_SignOffWritesCoverageInSameTransaction(t *testing.T) {
	s, mock := newMockStore(t)
	sub := sampleSubmission()
	now := sub.SubmittedAt.Add(time.Hour)
	sub.Status = models.StatusSignedOff
	sub.SignedOffAt = &now

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE category_submissions SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO coverage_matrix .+ ON CONFLICT`).
		WithArgs("st-1", "q-1", "Electrical Safety", true, now, "assessor-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		if err := tx.UpdateSubmission(ctx, sub); err != nil {
			return err
		}
		return tx.UpsertCoverage(ctx, models.CoverageEntry{
			StudentID: "st-1", QualificationID: "q-1", Category: "Electrical Safety",
			Complete: true, CompletedAt: now, CompletedBy: "assessor-1",
		})
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Sampling
// ==========================

func TestCountSamplingRecords_FillsMissingStatuses(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT verification_status, COUNT\(\*\) FROM sampling_records`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"verification_status", "count"}).
			AddRow("pending", 2).
			AddRow("verified", 5))

	counts, err := s.CountSamplingRecords(context.Background(), []store.Scope{{StudentID: "st-1", QualificationID: "q-1"}})

	require.NoError(t, err)
	assert.Equal(t, 2, counts[models.VerificationPending])
	assert.Equal(t, 5, counts[models.VerificationVerified])
	assert.Equal(t, 0, counts[models.VerificationConcernsRaised])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSamplingCandidates_OrdersBySignOff(t *testing.T) {
	s, mock := newMockStore(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(submissionColumnNames)
	addSubmissionRow(rows, "s-1", "signed_off", base, base)

	mock.ExpectQuery(`WHERE status = \$1 AND NOT iqa_sampled.+ORDER BY signed_off_at, id`).
		WithArgs("signed_off", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	subs, err := s.ListSamplingCandidates(context.Background(), []store.Scope{{StudentID: "st-1", QualificationID: "q-1"}})

	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.NotNil(t, subs[0].SignedOffAt)
	assert.True(t, subs[0].SignedOffAt.Equal(base))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Gateway checklist
// ==========================

func TestUpsertChecklist_InsertsWhenMissing(t *testing.T) {
	s, mock := newMockStore(t)
	key := models.ChecklistKey{StudentID: "st-1", QualificationID: "q-1"}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM gateway_checklists\s+WHERE student_id = \$1 AND qualification_id = \$2 FOR UPDATE`).
		WithArgs("st-1", "q-1").
		WillReturnRows(sqlmock.NewRows(checklistColumnNames))
	mock.ExpectExec(`INSERT INTO gateway_checklists`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var got *models.GatewayChecklist
	err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		got, err = tx.UpsertChecklist(ctx, key,
			func() *models.GatewayChecklist { return models.NewGatewayChecklist(key, 400, now) },
			func(c *models.GatewayChecklist) error {
				c.HoursCompleted = 50
				return nil
			})
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, 50, got.HoursCompleted)
	assert.Equal(t, int64(1), got.Version)
	assert.Len(t, got.Criteria, len(models.GatewayCriteria))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertChecklist_UpdatesExistingRow(t *testing.T) {
	s, mock := newMockStore(t)
	key := models.ChecklistKey{StudentID: "st-1", QualificationID: "q-1"}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(checklistColumnNames).AddRow(
		"st-1", "q-1", []byte(`{"english_l2_achieved":{"met":true}}`), 100, 400,
		false, nil, false, nil, "",
		int64(2), now, now,
	)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM gateway_checklists`).WillReturnRows(rows)
	mock.ExpectExec(`UPDATE gateway_checklists SET .+ AND version = \$3`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var got *models.GatewayChecklist
	err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		got, err = tx.UpsertChecklist(ctx, key,
			func() *models.GatewayChecklist {
				t.Fatal("defaults must not be used")
				return nil
			},
			func(c *models.GatewayChecklist) error {
				c.Criteria[models.CriterionMathsL2] = models.CriterionState{Met: true}
				return nil
			})
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Version)
	assert.True(t, got.Criteria[models.CriterionEnglishL2].Met)
	assert.True(t, got.Criteria[models.CriterionMathsL2].Met)
	assert.False(t, got.Criteria[models.CriterionPortfolioComplete].Met)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Error mapping
// ==========================

func TestMapErr(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		conflict bool
	}{
		{name: "unique violation", err: &pq.Error{Code: pqUniqueViolation}, conflict: true},
		{name: "serialization failure", err: &pq.Error{Code: pqSerializationFailure}, conflict: true},
		{name: "deadlock", err: &pq.Error{Code: pqDeadlockDetected}, conflict: true},
		{name: "syntax error", err: &pq.Error{Code: "42601"}, conflict: false},
		{name: "connection closed", err: sql.ErrConnDone, conflict: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.conflict, errors.Is(mapErr(tt.err), store.ErrConflict))
		})
	}
}
