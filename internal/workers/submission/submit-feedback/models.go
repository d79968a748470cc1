package submitfeedback

import "portfolio-workers/internal/models"

type Input struct {
	ActorID      string `json:"actorId"`
	SubmissionID string `json:"submissionId"`
	Grade        string `json:"grade"`
	Feedback     string `json:"feedback"`
}

type Output struct {
	Submission  *models.CategorySubmission `json:"submission"`
	Status      models.SubmissionStatus    `json:"submissionStatus"`
	NeedsRework bool                       `json:"needsRework"`
}
