package sampling

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-workers/internal/common/logger"
	"portfolio-workers/internal/directory"
	"portfolio-workers/internal/models"
	"portfolio-workers/internal/store/postgres"
	"portfolio-workers/internal/workflow"
)

var submissionColumns = []string{
	"id", "student_id", "qualification_id", "category", "status", "submitted_at",
	"submission_count", "assessor_feedback", "grade", "previous_feedback", "previous_grade",
	"action_note", "reviewer_id", "review_started_at", "feedback_at", "signed_off_at",
	"signed_off_by", "iqa_sampled", "iqa_sampled_at", "iqa_sampled_by", "version",
	"created_at", "updated_at",
}

func signedOffRow(at time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(submissionColumns).AddRow(
		"s-1", student, qual, "Electrical Safety", string(models.StatusSignedOff), at,
		1, "ok", string(models.GradePass), "", "",
		"", assessor, at, at, at,
		assessor, false, nil, "", int64(4),
		at, at,
	)
}

func TestSample_SingleConnectionPool(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)

	log := logger.NewTestLogger(t)
	svc := NewService(workflow.NewDeps(postgres.New(db), directory.NewPostgres(db, nil, time.Minute, log),
		workflow.WithLogger(log),
		workflow.WithClock(func() time.Time { return epoch }),
		workflow.WithIDGenerator(func() string { return "r-1" }),
	))

	mock.ExpectQuery(`SELECT .+ FROM category_submissions WHERE id = \$1$`).
		WithArgs("s-1").
		WillReturnRows(signedOffRow(epoch.Add(-time.Hour)))
	mock.ExpectQuery(`FROM staff_assignments`).
		WithArgs(iqa).
		WillReturnRows(sqlmock.NewRows([]string{"staff_id", "student_id", "qualification_id", "role"}).
			AddRow(iqa, student, qual, string(models.RoleIQA)))
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM category_submissions WHERE id = \$1 FOR UPDATE`).
		WithArgs("s-1").
		WillReturnRows(signedOffRow(epoch.Add(-time.Hour)))
	mock.ExpectExec(`INSERT INTO sampling_records`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE category_submissions SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	result, err := svc.Sample(ctx, SampleInput{ActorID: iqa, SubmissionID: "s-1"})

	require.NoError(t, err)
	assert.Equal(t, models.StatusIQASampled, result.Submission.Status)
	assert.Equal(t, "r-1", result.Record.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
