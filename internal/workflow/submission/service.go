// Package submission runs the category submission state machine.
package submission

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	apperrors "portfolio-workers/internal/common/errors"
	"portfolio-workers/internal/common/logger"
	"portfolio-workers/internal/models"
	"portfolio-workers/internal/store"
	"portfolio-workers/internal/workflow"
)

const DefaultEvidenceNote = "additional evidence required"

type SubmitInput struct {
	ActorID         string `json:"actorId"`
	StudentID       string `json:"studentId"`
	QualificationID string `json:"qualificationId"`
	Category        string `json:"category"`
}

type ReviewInput struct {
	ActorID      string `json:"actorId"`
	SubmissionID string `json:"submissionId"`
}

type FeedbackInput struct {
	ActorID      string       `json:"actorId"`
	SubmissionID string       `json:"submissionId"`
	Grade        models.Grade `json:"grade"`
	Feedback     string       `json:"feedback"`
}

type EvidenceRequestInput struct {
	ActorID      string `json:"actorId"`
	SubmissionID string `json:"submissionId"`
	Note         string `json:"note"`
	Feedback     string `json:"feedback"`
}

// ReviewResult is returned by StartReview. Reassigned is set when another
// assessor already held the review.
type ReviewResult struct {
	Submission       *models.CategorySubmission `json:"submission"`
	Reassigned       bool                       `json:"reassigned"`
	PreviousReviewer string                     `json:"previousReviewer,omitempty"`
}

type Service struct {
	workflow.Deps
	log logger.Logger
}

func NewService(deps workflow.Deps) *Service {
	return &Service{Deps: deps, log: logger.ForComponent(deps.Logger, "submission")}
}

// Submit creates the submission for a category or resubmits the existing one.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (_ *models.CategorySubmission, err error) {
	ctx, end := s.Obs.StartSpan(ctx, "submission.submit", attribute.String("studentId", in.StudentID))
	defer func() { end(err) }()

	in.Category = strings.TrimSpace(in.Category)
	if err := workflow.Required(
		"studentId", in.StudentID,
		"qualificationId", in.QualificationID,
		"category", in.Category,
	); err != nil {
		return nil, err
	}
	if in.ActorID != in.StudentID {
		return nil, apperrors.NewNotAuthorizedError(in.ActorID, in.StudentID)
	}

	key := models.SubmissionKey{StudentID: in.StudentID, QualificationID: in.QualificationID, Category: in.Category}
	var (
		result *models.CategorySubmission
		from   models.SubmissionStatus
	)
	err = s.RunInTx(ctx, "submit-category", func(ctx context.Context, tx store.Tx) error {
		now := s.Now()
		existing, err := tx.FindSubmission(ctx, key)
		switch {
		case errors.Is(err, store.ErrNotFound):
			sub := &models.CategorySubmission{
				ID:              s.NewID(),
				StudentID:       key.StudentID,
				QualificationID: key.QualificationID,
				Category:        key.Category,
				Status:          models.StatusSubmitted,
				SubmittedAt:     now,
				SubmissionCount: 1,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := tx.InsertSubmission(ctx, sub); err != nil {
				return err
			}
			from, result = "", sub
			return nil
		case err != nil:
			return err
		}

		if !canResubmit(existing.Status) {
			return apperrors.NewInvalidStateTransitionError(string(existing.Status), string(models.StatusResubmitted))
		}
		from = existing.Status
		existing.PreviousFeedback = existing.AssessorFeedback
		existing.PreviousGrade = existing.Grade
		existing.AssessorFeedback = ""
		existing.Grade = models.GradeNone
		existing.ActionNote = ""
		existing.SubmissionCount++
		existing.Status = models.StatusResubmitted
		existing.SubmittedAt = now
		existing.UpdatedAt = now
		if err := tx.UpdateSubmission(ctx, existing); err != nil {
			return err
		}
		result = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	workflow.CountTransition(from, result.Status)
	s.Cache.SubmissionChanged(ctx, result.StudentID, result.QualificationID)
	s.log.Info("category submitted", map[string]interface{}{
		"submissionId":    result.ID,
		"status":          result.Status,
		"submissionCount": result.SubmissionCount,
	})
	return result, nil
}

// StartReview moves a submitted or resubmitted submission under review.
func (s *Service) StartReview(ctx context.Context, in ReviewInput) (_ *ReviewResult, err error) {
	ctx, end := s.Obs.StartSpan(ctx, "submission.start_review", attribute.String("submissionId", in.SubmissionID))
	defer func() { end(err) }()

	if err := workflow.Required("actorId", in.ActorID, "submissionId", in.SubmissionID); err != nil {
		return nil, err
	}

	var (
		result  = &ReviewResult{}
		from    models.SubmissionStatus
		changed bool
	)
	if err := s.authorizeStaff(ctx, in.ActorID, in.SubmissionID); err != nil {
		return nil, err
	}

	err = s.RunInTx(ctx, "start-review", func(ctx context.Context, tx store.Tx) error {
		*result = ReviewResult{}
		changed = false

		sub, err := lockSubmission(ctx, tx, in.SubmissionID)
		if err != nil {
			return err
		}
		from = sub.Status

		switch sub.Status {
		case models.StatusSubmitted, models.StatusResubmitted:
		case models.StatusUnderReview:
			if sub.ReviewerID == in.ActorID {
				result.Submission = sub
				return nil
			}
			result.Reassigned = true
			result.PreviousReviewer = sub.ReviewerID
		default:
			return apperrors.NewInvalidStateTransitionError(string(sub.Status), string(models.StatusUnderReview))
		}

		now := s.Now()
		sub.Status = models.StatusUnderReview
		sub.ReviewerID = in.ActorID
		sub.ReviewStartedAt = &now
		sub.UpdatedAt = now
		if err := tx.UpdateSubmission(ctx, sub); err != nil {
			return err
		}
		result.Submission = sub
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !changed {
		return result, nil
	}
	if result.Reassigned {
		s.log.Warn("review reassigned", map[string]interface{}{
			"submissionId":     in.SubmissionID,
			"previousReviewer": result.PreviousReviewer,
			"reviewerId":       in.ActorID,
		})
	}
	if from != models.StatusUnderReview {
		workflow.CountTransition(from, models.StatusUnderReview)
	}
	s.Cache.SubmissionChanged(ctx, result.Submission.StudentID, result.Submission.QualificationID)
	return result, nil
}

// SubmitFeedback grades a submission under review. Rework grades send it
// back to the student; every other grade approves it.
func (s *Service) SubmitFeedback(ctx context.Context, in FeedbackInput) (_ *models.CategorySubmission, err error) {
	ctx, end := s.Obs.StartSpan(ctx, "submission.submit_feedback", attribute.String("submissionId", in.SubmissionID))
	defer func() { end(err) }()

	if err := workflow.Required("actorId", in.ActorID, "submissionId", in.SubmissionID, "grade", string(in.Grade)); err != nil {
		return nil, err
	}
	if !in.Grade.Valid() {
		return nil, apperrors.NewValidationError("grade", "unknown grade "+string(in.Grade))
	}

	target := models.StatusApproved
	if in.Grade.RequiresRework() {
		target = models.StatusFeedbackGiven
	}

	var result *models.CategorySubmission
	if err := s.authorizeStaff(ctx, in.ActorID, in.SubmissionID); err != nil {
		return nil, err
	}

	err = s.RunInTx(ctx, "submit-feedback", func(ctx context.Context, tx store.Tx) error {
		sub, err := lockSubmission(ctx, tx, in.SubmissionID)
		if err != nil {
			return err
		}
		if sub.Status != models.StatusUnderReview {
			return apperrors.NewInvalidStateTransitionError(string(sub.Status), string(target))
		}

		now := s.Now()
		sub.Status = target
		sub.Grade = in.Grade
		sub.AssessorFeedback = in.Feedback
		sub.FeedbackAt = &now
		sub.UpdatedAt = now
		if err := tx.UpdateSubmission(ctx, sub); err != nil {
			return err
		}
		result = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	workflow.CountTransition(models.StatusUnderReview, target)
	s.Cache.SubmissionChanged(ctx, result.StudentID, result.QualificationID)
	s.Notify(ctx, result.StudentID, models.NotifyFeedback, map[string]interface{}{
		"submissionId": result.ID,
		"category":     result.Category,
		"grade":        string(result.Grade),
		"status":       string(result.Status),
	})
	return result, nil
}

// RequestMoreEvidence sends a submission under review back without a grade.
func (s *Service) RequestMoreEvidence(ctx context.Context, in EvidenceRequestInput) (_ *models.CategorySubmission, err error) {
	ctx, end := s.Obs.StartSpan(ctx, "submission.request_more_evidence", attribute.String("submissionId", in.SubmissionID))
	defer func() { end(err) }()

	if err := workflow.Required("actorId", in.ActorID, "submissionId", in.SubmissionID); err != nil {
		return nil, err
	}
	note := strings.TrimSpace(in.Note)
	if note == "" {
		note = DefaultEvidenceNote
	}

	var result *models.CategorySubmission
	if err := s.authorizeStaff(ctx, in.ActorID, in.SubmissionID); err != nil {
		return nil, err
	}

	err = s.RunInTx(ctx, "request-more-evidence", func(ctx context.Context, tx store.Tx) error {
		sub, err := lockSubmission(ctx, tx, in.SubmissionID)
		if err != nil {
			return err
		}
		if sub.Status != models.StatusUnderReview {
			return apperrors.NewInvalidStateTransitionError(string(sub.Status), string(models.StatusFeedbackGiven))
		}

		now := s.Now()
		sub.Status = models.StatusFeedbackGiven
		sub.ActionNote = note
		if in.Feedback != "" {
			sub.AssessorFeedback = in.Feedback
		}
		sub.FeedbackAt = &now
		sub.UpdatedAt = now
		if err := tx.UpdateSubmission(ctx, sub); err != nil {
			return err
		}
		result = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	workflow.CountTransition(models.StatusUnderReview, models.StatusFeedbackGiven)
	s.Cache.SubmissionChanged(ctx, result.StudentID, result.QualificationID)
	s.Notify(ctx, result.StudentID, models.NotifyEvidenceRequested, map[string]interface{}{
		"submissionId": result.ID,
		"category":     result.Category,
		"actionNote":   result.ActionNote,
	})
	return result, nil
}

// SignOff closes an approved submission and completes its coverage-matrix
// entry in the same transaction.
func (s *Service) SignOff(ctx context.Context, in ReviewInput) (_ *models.CategorySubmission, err error) {
	ctx, end := s.Obs.StartSpan(ctx, "submission.sign_off", attribute.String("submissionId", in.SubmissionID))
	defer func() { end(err) }()

	if err := workflow.Required("actorId", in.ActorID, "submissionId", in.SubmissionID); err != nil {
		return nil, err
	}

	var result *models.CategorySubmission
	if err := s.authorizeStaff(ctx, in.ActorID, in.SubmissionID); err != nil {
		return nil, err
	}

	err = s.RunInTx(ctx, "sign-off", func(ctx context.Context, tx store.Tx) error {
		sub, err := lockSubmission(ctx, tx, in.SubmissionID)
		if err != nil {
			return err
		}
		if sub.Status != models.StatusApproved {
			return apperrors.NewInvalidStateTransitionError(string(sub.Status), string(models.StatusSignedOff))
		}

		now := s.Now()
		sub.Status = models.StatusSignedOff
		sub.SignedOffAt = &now
		sub.SignedOffBy = in.ActorID
		sub.UpdatedAt = now
		if err := tx.UpdateSubmission(ctx, sub); err != nil {
			return err
		}
		if err := tx.UpsertCoverage(ctx, models.CoverageEntry{
			StudentID:       sub.StudentID,
			QualificationID: sub.QualificationID,
			Category:        sub.Category,
			Complete:        true,
			CompletedAt:     now,
			CompletedBy:     in.ActorID,
		}); err != nil {
			return err
		}
		result = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	workflow.CountTransition(models.StatusApproved, models.StatusSignedOff)
	s.Cache.SubmissionChanged(ctx, result.StudentID, result.QualificationID)
	s.Notify(ctx, result.StudentID, models.NotifySignedOff, map[string]interface{}{
		"submissionId": result.ID,
		"category":     result.Category,
		"grade":        string(result.Grade),
	})
	return result, nil
}

// authorizeStaff checks the actor is assigned to the submission's student.
// It reads outside the transaction; student and qualification never change.
func (s *Service) authorizeStaff(ctx context.Context, actorID, submissionID string) error {
	sub, err := s.Store.GetSubmission(ctx, submissionID)
	if err != nil {
		return workflow.Lookup(err, "submission", submissionID)
	}
	return s.RequireAssigned(ctx, actorID, sub.StudentID, sub.QualificationID)
}

// lockSubmission re-reads the submission under the transaction's row lock.
func lockSubmission(ctx context.Context, tx store.Tx, submissionID string) (*models.CategorySubmission, error) {
	sub, err := tx.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, workflow.NotFound(err, "submission", submissionID)
	}
	return sub, nil
}

// canResubmit reports whether evidence may still change. Signed-off records
// are closed.
func canResubmit(status models.SubmissionStatus) bool {
	switch status {
	case models.StatusSignedOff, models.StatusIQASampled, models.StatusIQAVerified:
		return false
	}
	return true
}
