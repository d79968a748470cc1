package completeverification

import "portfolio-workers/internal/models"

type Input struct {
	ActorID          string `json:"actorId"`
	SamplingRecordID string `json:"samplingRecordId"`
	Outcome          string `json:"outcome"`
	Notes            string `json:"notes"`
	FeedbackQuality  string `json:"feedbackQuality,omitempty"`
	GradingAccuracy  string `json:"gradingAccuracy,omitempty"`
	RequiredAction   string `json:"requiredAction,omitempty"`
}

type Output struct {
	SamplingRecord *models.SamplingRecord     `json:"samplingRecord"`
	Submission     *models.CategorySubmission `json:"submission"`
	ConcernsRaised bool                       `json:"concernsRaised"`
}
