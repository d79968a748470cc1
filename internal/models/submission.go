// internal/models/submission.go
package models

import "time"

type SubmissionStatus string

const (
	StatusSubmitted     SubmissionStatus = "submitted"
	StatusUnderReview   SubmissionStatus = "under_review"
	StatusFeedbackGiven SubmissionStatus = "feedback_given"
	StatusApproved      SubmissionStatus = "approved"
	StatusSignedOff     SubmissionStatus = "signed_off"
	StatusIQASampled    SubmissionStatus = "iqa_sampled"
	StatusIQAVerified   SubmissionStatus = "iqa_verified"
	StatusResubmitted   SubmissionStatus = "resubmitted"
)

// PendingReviewStatuses are the statuses that put a submission on an
// assessor's work queue.
var PendingReviewStatuses = []SubmissionStatus{StatusSubmitted, StatusUnderReview, StatusResubmitted}

type Grade string

const (
	GradeNone            Grade = ""
	GradePass            Grade = "pass"
	GradeMerit           Grade = "merit"
	GradeDistinction     Grade = "distinction"
	GradeRefer           Grade = "refer"
	GradeNotYetCompetent Grade = "not_yet_competent"
)

func (g Grade) Valid() bool {
	switch g {
	case GradePass, GradeMerit, GradeDistinction, GradeRefer, GradeNotYetCompetent:
		return true
	}
	return false
}

// RequiresRework reports whether the grade sends the work back to the student.
func (g Grade) RequiresRework() bool {
	return g == GradeRefer || g == GradeNotYetCompetent
}

// SubmissionKey identifies the single active submission of a category.
type SubmissionKey struct {
	StudentID       string `json:"studentId"`
	QualificationID string `json:"qualificationId"`
	Category        string `json:"category"`
}

type CategorySubmission struct {
	ID               string           `json:"id"`
	StudentID        string           `json:"studentId"`
	QualificationID  string           `json:"qualificationId"`
	Category         string           `json:"category"`
	Status           SubmissionStatus `json:"status"`
	SubmittedAt      time.Time        `json:"submittedAt"`
	SubmissionCount  int              `json:"submissionCount"`
	AssessorFeedback string           `json:"assessorFeedback,omitempty"`
	Grade            Grade            `json:"grade,omitempty"`
	PreviousFeedback string           `json:"previousFeedback,omitempty"`
	PreviousGrade    Grade            `json:"previousGrade,omitempty"`
	ActionNote       string           `json:"actionNote,omitempty"`
	ReviewerID       string           `json:"reviewerId,omitempty"`
	ReviewStartedAt  *time.Time       `json:"reviewStartedAt,omitempty"`
	FeedbackAt       *time.Time       `json:"feedbackAt,omitempty"`
	SignedOffAt      *time.Time       `json:"signedOffAt,omitempty"`
	SignedOffBy      string           `json:"signedOffBy,omitempty"`
	IQASampled       bool             `json:"iqaSampled"`
	IQASampledAt     *time.Time       `json:"iqaSampledAt,omitempty"`
	IQASampledBy     string           `json:"iqaSampledBy,omitempty"`
	Version          int64            `json:"version"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

func (s *CategorySubmission) Key() SubmissionKey {
	return SubmissionKey{
		StudentID:       s.StudentID,
		QualificationID: s.QualificationID,
		Category:        s.Category,
	}
}

// CoverageEntry is the coverage-matrix cell a sign-off completes.
type CoverageEntry struct {
	StudentID       string    `json:"studentId"`
	QualificationID string    `json:"qualificationId"`
	Category        string    `json:"category"`
	Complete        bool      `json:"complete"`
	CompletedAt     time.Time `json:"completedAt"`
	CompletedBy     string    `json:"completedBy"`
}
