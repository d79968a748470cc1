package sampleforiqa

import "portfolio-workers/internal/models"

type Input struct {
	ActorID      string `json:"actorId"`
	SubmissionID string `json:"submissionId"`
}

type Output struct {
	SamplingRecord   *models.SamplingRecord     `json:"samplingRecord"`
	SamplingRecordID string                     `json:"samplingRecordId"`
	Submission       *models.CategorySubmission `json:"submission"`
}
