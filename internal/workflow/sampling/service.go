// Package sampling selects signed-off submissions for internal quality
// assurance and records the verification outcome.
package sampling

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	apperrors "portfolio-workers/internal/common/errors"
	"portfolio-workers/internal/common/logger"
	"portfolio-workers/internal/models"
	"portfolio-workers/internal/store"
	"portfolio-workers/internal/workflow"
)

type SampleInput struct {
	ActorID      string `json:"actorId"`
	SubmissionID string `json:"submissionId"`
}

type VerificationInput struct {
	ActorID         string                    `json:"actorId"`
	RecordID        string                    `json:"recordId"`
	Outcome         models.VerificationStatus `json:"outcome"`
	Notes           string                    `json:"notes"`
	FeedbackQuality models.FeedbackQuality    `json:"feedbackQuality"`
	GradingAccuracy models.GradingAccuracy    `json:"gradingAccuracy"`
	RequiredAction  string                    `json:"requiredAction"`
}

// SampleResult carries both records written by Sample.
type SampleResult struct {
	Record     *models.SamplingRecord     `json:"record"`
	Submission *models.CategorySubmission `json:"submission"`
}

type Service struct {
	workflow.Deps
	log logger.Logger
}

func NewService(deps workflow.Deps) *Service {
	return &Service{Deps: deps, log: logger.ForComponent(deps.Logger, "sampling")}
}

// Candidates lists the signed-off, unsampled submissions of the caller's IQA
// students, oldest sign-off first.
func (s *Service) Candidates(ctx context.Context, iqaID string) (_ []models.CategorySubmission, err error) {
	ctx, end := s.Obs.StartSpan(ctx, "sampling.candidates", attribute.String("actorId", iqaID))
	defer func() { end(err) }()

	if err := workflow.Required("actorId", iqaID); err != nil {
		return nil, err
	}
	scopes, err := s.Scopes(ctx, iqaID, models.RoleIQA)
	if err != nil {
		return nil, err
	}
	return s.candidates(ctx, scopes)
}

// Stats counts pending candidates and sampling records by status over the
// caller's IQA scope.
func (s *Service) Stats(ctx context.Context, iqaID string) (_ *models.SamplingStats, err error) {
	ctx, end := s.Obs.StartSpan(ctx, "sampling.stats", attribute.String("actorId", iqaID))
	defer func() { end(err) }()

	if err := workflow.Required("actorId", iqaID); err != nil {
		return nil, err
	}
	scopes, err := s.Scopes(ctx, iqaID, models.RoleIQA)
	if err != nil {
		return nil, err
	}
	candidates, err := s.candidates(ctx, scopes)
	if err != nil {
		return nil, err
	}

	stats := &models.SamplingStats{
		PendingCandidates: len(candidates),
		ByStatus: map[models.VerificationStatus]int{
			models.VerificationPending:        0,
			models.VerificationVerified:       0,
			models.VerificationConcernsRaised: 0,
		},
	}
	if len(scopes) == 0 {
		return stats, nil
	}
	counts, err := s.Store.CountSamplingRecords(ctx, scopes)
	if err != nil {
		return nil, apperrors.NewDatabaseConnectionFailedError(err)
	}
	for status, n := range counts {
		stats.ByStatus[status] = n
	}
	return stats, nil
}

func (s *Service) candidates(ctx context.Context, scopes []store.Scope) ([]models.CategorySubmission, error) {
	if len(scopes) == 0 {
		return []models.CategorySubmission{}, nil
	}
	out, err := s.Store.ListSamplingCandidates(ctx, scopes)
	if err != nil {
		return nil, apperrors.NewDatabaseConnectionFailedError(err)
	}
	return out, nil
}

// Sample creates a pending sampling record and marks the submission sampled,
// atomically.
func (s *Service) Sample(ctx context.Context, in SampleInput) (_ *SampleResult, err error) {
	ctx, end := s.Obs.StartSpan(ctx, "sampling.sample", attribute.String("submissionId", in.SubmissionID))
	defer func() { end(err) }()

	if err := workflow.Required("actorId", in.ActorID, "submissionId", in.SubmissionID); err != nil {
		return nil, err
	}

	current, err := s.Store.GetSubmission(ctx, in.SubmissionID)
	if err != nil {
		return nil, workflow.Lookup(err, "submission", in.SubmissionID)
	}
	if err := s.RequireRole(ctx, in.ActorID, current.StudentID, current.QualificationID, models.RoleIQA); err != nil {
		return nil, err
	}

	var result *SampleResult
	err = s.RunInTx(ctx, "sample-for-iqa", func(ctx context.Context, tx store.Tx) error {
		sub, err := tx.GetSubmission(ctx, in.SubmissionID)
		if err != nil {
			return workflow.NotFound(err, "submission", in.SubmissionID)
		}
		if sub.IQASampled {
			return apperrors.NewNotEligibleForSamplingError(sub.ID, "already sampled")
		}
		if sub.Status != models.StatusSignedOff {
			return apperrors.NewNotEligibleForSamplingError(sub.ID, "status is "+string(sub.Status))
		}

		now := s.Now()
		record := &models.SamplingRecord{
			ID:                 s.NewID(),
			SubmissionID:       sub.ID,
			StudentID:          sub.StudentID,
			QualificationID:    sub.QualificationID,
			SampledBy:          in.ActorID,
			SampledAt:          now,
			VerificationStatus: models.VerificationPending,
		}
		if err := tx.InsertSamplingRecord(ctx, record); err != nil {
			return err
		}

		sub.Status = models.StatusIQASampled
		sub.IQASampled = true
		sub.IQASampledAt = &now
		sub.IQASampledBy = in.ActorID
		sub.UpdatedAt = now
		if err := tx.UpdateSubmission(ctx, sub); err != nil {
			return err
		}
		result = &SampleResult{Record: record, Submission: sub}
		return nil
	})
	if err != nil {
		return nil, err
	}

	workflow.CountTransition(models.StatusSignedOff, models.StatusIQASampled)
	s.Cache.SubmissionChanged(ctx, result.Submission.StudentID, result.Submission.QualificationID)
	s.Notify(ctx, result.Submission.StudentID, models.NotifyIQASampled, map[string]interface{}{
		"submissionId":     result.Submission.ID,
		"samplingRecordId": result.Record.ID,
		"category":         result.Submission.Category,
	})
	s.log.Info("submission sampled", map[string]interface{}{
		"submissionId": result.Submission.ID,
		"recordId":     result.Record.ID,
		"sampledBy":    in.ActorID,
	})
	return result, nil
}

// CompleteVerification records the IQA outcome and marks the submission
// verified whatever the outcome, atomically.
func (s *Service) CompleteVerification(ctx context.Context, in VerificationInput) (_ *SampleResult, err error) {
	ctx, end := s.Obs.StartSpan(ctx, "sampling.complete_verification", attribute.String("recordId", in.RecordID))
	defer func() { end(err) }()

	if err := workflow.Required("actorId", in.ActorID, "recordId", in.RecordID, "outcome", string(in.Outcome)); err != nil {
		return nil, err
	}
	if !in.Outcome.IsOutcome() {
		return nil, apperrors.NewValidationError("outcome", "outcome must be verified or concerns_raised")
	}
	if !in.FeedbackQuality.Valid() {
		return nil, apperrors.NewValidationError("feedbackQuality", "unknown feedback quality "+string(in.FeedbackQuality))
	}
	if !in.GradingAccuracy.Valid() {
		return nil, apperrors.NewValidationError("gradingAccuracy", "unknown grading accuracy "+string(in.GradingAccuracy))
	}

	current, err := s.Store.GetSamplingRecord(ctx, in.RecordID)
	if err != nil {
		return nil, workflow.Lookup(err, "sampling record", in.RecordID)
	}
	if err := s.RequireRole(ctx, in.ActorID, current.StudentID, current.QualificationID, models.RoleIQA); err != nil {
		return nil, err
	}

	var result *SampleResult
	err = s.RunInTx(ctx, "complete-verification", func(ctx context.Context, tx store.Tx) error {
		record, err := tx.GetSamplingRecord(ctx, in.RecordID)
		if err != nil {
			return workflow.NotFound(err, "sampling record", in.RecordID)
		}
		if record.VerificationStatus != models.VerificationPending {
			return apperrors.NewInvalidStateTransitionError(string(record.VerificationStatus), string(in.Outcome))
		}

		sub, err := tx.GetSubmission(ctx, record.SubmissionID)
		if err != nil {
			return workflow.NotFound(err, "submission", record.SubmissionID)
		}
		if sub.Status != models.StatusIQASampled {
			return apperrors.NewInvalidStateTransitionError(string(sub.Status), string(models.StatusIQAVerified))
		}

		now := s.Now()
		record.VerificationStatus = in.Outcome
		record.VerifiedAt = &now
		record.VerifiedBy = in.ActorID
		record.Notes = in.Notes
		record.FeedbackQuality = in.FeedbackQuality
		record.GradingAccuracy = in.GradingAccuracy
		record.RequiredAction = in.RequiredAction
		if err := tx.UpdateSamplingRecord(ctx, record); err != nil {
			return err
		}

		sub.Status = models.StatusIQAVerified
		sub.UpdatedAt = now
		if err := tx.UpdateSubmission(ctx, sub); err != nil {
			return err
		}
		result = &SampleResult{Record: record, Submission: sub}
		return nil
	})
	if err != nil {
		return nil, err
	}

	workflow.CountTransition(models.StatusIQASampled, models.StatusIQAVerified)
	s.Cache.SubmissionChanged(ctx, result.Submission.StudentID, result.Submission.QualificationID)
	s.Notify(ctx, result.Submission.StudentID, models.NotifyIQAVerified, map[string]interface{}{
		"submissionId":     result.Submission.ID,
		"samplingRecordId": result.Record.ID,
		"outcome":          string(result.Record.VerificationStatus),
	})
	if result.Record.VerificationStatus == models.VerificationConcernsRaised {
		s.log.Warn("iqa concerns raised", map[string]interface{}{
			"submissionId":   result.Submission.ID,
			"recordId":       result.Record.ID,
			"requiredAction": result.Record.RequiredAction,
		})
	}
	return result, nil
}
