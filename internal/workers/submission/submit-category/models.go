package submitcategory

import "portfolio-workers/internal/models"

type Input struct {
	ActorID         string `json:"actorId"`
	StudentID       string `json:"studentId"`
	QualificationID string `json:"qualificationId"`
	Category        string `json:"category"`
}

// Output exposes the id and status as top-level process variables so
// gateways in the BPMN model can branch on them.
type Output struct {
	Submission      *models.CategorySubmission `json:"submission"`
	SubmissionID    string                     `json:"submissionId"`
	Status          models.SubmissionStatus    `json:"submissionStatus"`
	SubmissionCount int                        `json:"submissionCount"`
}
