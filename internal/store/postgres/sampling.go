package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"portfolio-workers/internal/models"
	"portfolio-workers/internal/store"
)

const samplingColumns = `id, submission_id, student_id, qualification_id, sampled_by, sampled_at,
	verification_status, verified_at, verified_by, notes, feedback_quality,
	grading_accuracy, required_action, version`

func scanSamplingRecord(row rowScanner) (*models.SamplingRecord, error) {
	var (
		r                         models.SamplingRecord
		status, quality, accuracy string
		verifiedAt                sql.NullTime
	)
	err := row.Scan(
		&r.ID, &r.SubmissionID, &r.StudentID, &r.QualificationID, &r.SampledBy, &r.SampledAt,
		&status, &verifiedAt, &r.VerifiedBy, &r.Notes, &quality,
		&accuracy, &r.RequiredAction, &r.Version,
	)
	if err != nil {
		return nil, err
	}
	r.VerificationStatus = models.VerificationStatus(status)
	r.FeedbackQuality = models.FeedbackQuality(quality)
	r.GradingAccuracy = models.GradingAccuracy(accuracy)
	r.VerifiedAt = nullTime(verifiedAt)
	return &r, nil
}

func (s *Store) CountSamplingRecords(ctx context.Context, scopes []store.Scope) (map[models.VerificationStatus]int, error) {
	counts := map[models.VerificationStatus]int{
		models.VerificationPending:        0,
		models.VerificationVerified:       0,
		models.VerificationConcernsRaised: 0,
	}
	if len(scopes) == 0 {
		return counts, nil
	}
	students, quals := scopeArrays(scopes)

	query := `SELECT verification_status, COUNT(*) FROM sampling_records
		WHERE (student_id, qualification_id) IN (SELECT * FROM unnest($1::text[], $2::text[]))
		GROUP BY verification_status`

	rows, err := s.db.QueryContext(ctx, query, students, quals)
	if err != nil {
		return nil, fmt.Errorf("count sampling records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan sampling count: %w", err)
		}
		counts[models.VerificationStatus(status)] = n
	}
	return counts, rows.Err()
}

func getSamplingRecord(ctx context.Context, q querier, id string, lock bool) (*models.SamplingRecord, error) {
	query := `SELECT ` + samplingColumns + ` FROM sampling_records WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	r, err := scanSamplingRecord(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

func (s *Store) GetSamplingRecord(ctx context.Context, id string) (*models.SamplingRecord, error) {
	return getSamplingRecord(ctx, s.db, id, false)
}

func (tx *pgTx) GetSamplingRecord(ctx context.Context, id string) (*models.SamplingRecord, error) {
	return getSamplingRecord(ctx, tx.q, id, true)
}

func (tx *pgTx) InsertSamplingRecord(ctx context.Context, r *models.SamplingRecord) error {
	query := `INSERT INTO sampling_records (` + samplingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1)`

	_, err := tx.q.ExecContext(ctx, query,
		r.ID, r.SubmissionID, r.StudentID, r.QualificationID, r.SampledBy, r.SampledAt,
		string(r.VerificationStatus), toNullTime(r.VerifiedAt), r.VerifiedBy, r.Notes,
		string(r.FeedbackQuality), string(r.GradingAccuracy), r.RequiredAction,
	)
	if err != nil {
		return mapErr(fmt.Errorf("insert sampling record: %w", err))
	}
	r.Version = 1
	return nil
}

func (tx *pgTx) UpdateSamplingRecord(ctx context.Context, r *models.SamplingRecord) error {
	query := `UPDATE sampling_records SET
			verification_status = $3, verified_at = $4, verified_by = $5, notes = $6,
			feedback_quality = $7, grading_accuracy = $8, required_action = $9,
			version = version + 1
		WHERE id = $1 AND version = $2`

	res, err := tx.q.ExecContext(ctx, query,
		r.ID, r.Version,
		string(r.VerificationStatus), toNullTime(r.VerifiedAt), r.VerifiedBy, r.Notes,
		string(r.FeedbackQuality), string(r.GradingAccuracy), r.RequiredAction,
	)
	if err := checkVersioned(res, err); err != nil {
		return err
	}
	r.Version++
	return nil
}
