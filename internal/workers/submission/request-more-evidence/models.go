package requestmoreevidence

import "portfolio-workers/internal/models"

type Input struct {
	ActorID      string `json:"actorId"`
	SubmissionID string `json:"submissionId"`
	Note         string `json:"note,omitempty"`
	Feedback     string `json:"feedback,omitempty"`
}

type Output struct {
	Submission *models.CategorySubmission `json:"submission"`
	Status     models.SubmissionStatus    `json:"submissionStatus"`
	ActionNote string                     `json:"actionNote"`
}
