package startreview

import "portfolio-workers/internal/models"

type Input struct {
	ActorID      string `json:"actorId"`
	SubmissionID string `json:"submissionId"`
}

type Output struct {
	Submission       *models.CategorySubmission `json:"submission"`
	Status           models.SubmissionStatus    `json:"submissionStatus"`
	Reassigned       bool                       `json:"reassigned"`
	PreviousReviewer string                     `json:"previousReviewer,omitempty"`
}
