package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"portfolio-workers/internal/models"
	"portfolio-workers/internal/store"
)

const submissionColumns = `id, student_id, qualification_id, category, status, submitted_at,
	submission_count, assessor_feedback, grade, previous_feedback, previous_grade,
	action_note, reviewer_id, review_started_at, feedback_at, signed_off_at,
	signed_off_by, iqa_sampled, iqa_sampled_at, iqa_sampled_by, version,
	created_at, updated_at`

func scanSubmission(row rowScanner) (*models.CategorySubmission, error) {
	var (
		s                                     models.CategorySubmission
		status, grade, previousGrade          string
		reviewStarted, feedbackAt, signed, iq sql.NullTime
	)
	err := row.Scan(
		&s.ID, &s.StudentID, &s.QualificationID, &s.Category, &status, &s.SubmittedAt,
		&s.SubmissionCount, &s.AssessorFeedback, &grade, &s.PreviousFeedback, &previousGrade,
		&s.ActionNote, &s.ReviewerID, &reviewStarted, &feedbackAt, &signed,
		&s.SignedOffBy, &s.IQASampled, &iq, &s.IQASampledBy, &s.Version,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Status = models.SubmissionStatus(status)
	s.Grade = models.Grade(grade)
	s.PreviousGrade = models.Grade(previousGrade)
	s.ReviewStartedAt = nullTime(reviewStarted)
	s.FeedbackAt = nullTime(feedbackAt)
	s.SignedOffAt = nullTime(signed)
	s.IQASampledAt = nullTime(iq)
	return &s, nil
}

func collectSubmissions(rows *sql.Rows) ([]models.CategorySubmission, error) {
	defer rows.Close()
	out := []models.CategorySubmission{}
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func getSubmission(ctx context.Context, q querier, id string, lock bool) (*models.CategorySubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM category_submissions WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	s, err := scanSubmission(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

func (s *Store) GetSubmission(ctx context.Context, id string) (*models.CategorySubmission, error) {
	return getSubmission(ctx, s.db, id, false)
}

func (s *Store) ListPendingSubmissions(ctx context.Context, studentIDs []string) ([]models.CategorySubmission, error) {
	if len(studentIDs) == 0 {
		return []models.CategorySubmission{}, nil
	}
	statuses := make([]string, len(models.PendingReviewStatuses))
	for i, st := range models.PendingReviewStatuses {
		statuses[i] = string(st)
	}

	query := `SELECT ` + submissionColumns + ` FROM category_submissions
		WHERE status = ANY($1) AND student_id = ANY($2)
		ORDER BY submitted_at, id`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(statuses), pq.Array(studentIDs))
	if err != nil {
		return nil, fmt.Errorf("list pending submissions: %w", err)
	}
	return collectSubmissions(rows)
}

func (s *Store) ListSamplingCandidates(ctx context.Context, scopes []store.Scope) ([]models.CategorySubmission, error) {
	if len(scopes) == 0 {
		return []models.CategorySubmission{}, nil
	}
	students, quals := scopeArrays(scopes)

	query := `SELECT ` + submissionColumns + ` FROM category_submissions
		WHERE status = $1 AND NOT iqa_sampled
		AND (student_id, qualification_id) IN (SELECT * FROM unnest($2::text[], $3::text[]))
		ORDER BY signed_off_at, id`

	rows, err := s.db.QueryContext(ctx, query, string(models.StatusSignedOff), students, quals)
	if err != nil {
		return nil, fmt.Errorf("list sampling candidates: %w", err)
	}
	return collectSubmissions(rows)
}

func (tx *pgTx) GetSubmission(ctx context.Context, id string) (*models.CategorySubmission, error) {
	return getSubmission(ctx, tx.q, id, true)
}

func (tx *pgTx) FindSubmission(ctx context.Context, key models.SubmissionKey) (*models.CategorySubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM category_submissions
		WHERE student_id = $1 AND qualification_id = $2 AND category = $3 FOR UPDATE`

	s, err := scanSubmission(tx.q.QueryRowContext(ctx, query, key.StudentID, key.QualificationID, key.Category))
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

func (tx *pgTx) InsertSubmission(ctx context.Context, s *models.CategorySubmission) error {
	query := `INSERT INTO category_submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, 1, $21, $22)`

	_, err := tx.q.ExecContext(ctx, query,
		s.ID, s.StudentID, s.QualificationID, s.Category, string(s.Status), s.SubmittedAt,
		s.SubmissionCount, s.AssessorFeedback, string(s.Grade), s.PreviousFeedback, string(s.PreviousGrade),
		s.ActionNote, s.ReviewerID, toNullTime(s.ReviewStartedAt), toNullTime(s.FeedbackAt), toNullTime(s.SignedOffAt),
		s.SignedOffBy, s.IQASampled, toNullTime(s.IQASampledAt), s.IQASampledBy,
		s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return mapErr(fmt.Errorf("insert submission: %w", err))
	}
	s.Version = 1
	return nil
}

func (tx *pgTx) UpdateSubmission(ctx context.Context, s *models.CategorySubmission) error {
	query := `UPDATE category_submissions SET
			status = $3, submitted_at = $4, submission_count = $5, assessor_feedback = $6,
			grade = $7, previous_feedback = $8, previous_grade = $9, action_note = $10,
			reviewer_id = $11, review_started_at = $12, feedback_at = $13, signed_off_at = $14,
			signed_off_by = $15, iqa_sampled = $16, iqa_sampled_at = $17, iqa_sampled_by = $18,
			updated_at = $19, version = version + 1
		WHERE id = $1 AND version = $2`

	res, err := tx.q.ExecContext(ctx, query,
		s.ID, s.Version,
		string(s.Status), s.SubmittedAt, s.SubmissionCount, s.AssessorFeedback,
		string(s.Grade), s.PreviousFeedback, string(s.PreviousGrade), s.ActionNote,
		s.ReviewerID, toNullTime(s.ReviewStartedAt), toNullTime(s.FeedbackAt), toNullTime(s.SignedOffAt),
		s.SignedOffBy, s.IQASampled, toNullTime(s.IQASampledAt), s.IQASampledBy,
		s.UpdatedAt,
	)
	if err := checkVersioned(res, err); err != nil {
		return err
	}
	s.Version++
	return nil
}

func (tx *pgTx) UpsertCoverage(ctx context.Context, e models.CoverageEntry) error {
	query := `INSERT INTO coverage_matrix
			(student_id, qualification_id, category, complete, completed_at, completed_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (student_id, qualification_id, category) DO UPDATE SET
			complete = EXCLUDED.complete,
			completed_at = EXCLUDED.completed_at,
			completed_by = EXCLUDED.completed_by`

	if _, err := tx.q.ExecContext(ctx, query,
		e.StudentID, e.QualificationID, e.Category, e.Complete, e.CompletedAt, e.CompletedBy,
	); err != nil {
		return mapErr(fmt.Errorf("upsert coverage: %w", err))
	}
	return nil
}
