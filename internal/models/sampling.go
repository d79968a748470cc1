// internal/models/sampling.go
package models

import "time"

type VerificationStatus string

const (
	VerificationPending        VerificationStatus = "pending"
	VerificationVerified       VerificationStatus = "verified"
	VerificationConcernsRaised VerificationStatus = "concerns_raised"
)

// IsOutcome reports whether the status is a valid verification outcome.
func (v VerificationStatus) IsOutcome() bool {
	return v == VerificationVerified || v == VerificationConcernsRaised
}

type FeedbackQuality string

const (
	FeedbackExcellent FeedbackQuality = "excellent"
	FeedbackGood      FeedbackQuality = "good"
	FeedbackAdequate  FeedbackQuality = "adequate"
	FeedbackPoor      FeedbackQuality = "poor"
)

func (f FeedbackQuality) Valid() bool {
	switch f {
	case "", FeedbackExcellent, FeedbackGood, FeedbackAdequate, FeedbackPoor:
		return true
	}
	return false
}

type GradingAccuracy string

const (
	GradingAccurate GradingAccuracy = "accurate"
	GradingLenient  GradingAccuracy = "lenient"
	GradingSevere   GradingAccuracy = "severe"
)

func (g GradingAccuracy) Valid() bool {
	switch g {
	case "", GradingAccurate, GradingLenient, GradingSevere:
		return true
	}
	return false
}

type SamplingRecord struct {
	ID                 string             `json:"id"`
	SubmissionID       string             `json:"submissionId"`
	StudentID          string             `json:"studentId"`
	QualificationID    string             `json:"qualificationId"`
	SampledBy          string             `json:"sampledBy"`
	SampledAt          time.Time          `json:"sampledAt"`
	VerificationStatus VerificationStatus `json:"verificationStatus"`
	VerifiedAt         *time.Time         `json:"verifiedAt,omitempty"`
	VerifiedBy         string             `json:"verifiedBy,omitempty"`
	Notes              string             `json:"notes,omitempty"`
	FeedbackQuality    FeedbackQuality    `json:"feedbackQuality,omitempty"`
	GradingAccuracy    GradingAccuracy    `json:"gradingAccuracy,omitempty"`
	RequiredAction     string             `json:"requiredAction,omitempty"`
	Version            int64              `json:"version"`
}

type SamplingStats struct {
	PendingCandidates int                        `json:"pendingCandidates"`
	ByStatus          map[VerificationStatus]int `json:"byStatus"`
}
