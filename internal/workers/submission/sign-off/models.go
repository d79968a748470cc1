package signoff

import (
	"time"

	"portfolio-workers/internal/models"
)

type Input struct {
	ActorID      string `json:"actorId"`
	SubmissionID string `json:"submissionId"`
}

type Output struct {
	Submission  *models.CategorySubmission `json:"submission"`
	Status      models.SubmissionStatus    `json:"submissionStatus"`
	SignedOffAt *time.Time                 `json:"signedOffAt,omitempty"`
}
