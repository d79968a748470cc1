package listsamplingcandidates

import "portfolio-workers/internal/models"

type Input struct {
	ActorID      string `json:"actorId"`
	IncludeStats bool   `json:"includeStats"`
}

type Output struct {
	Candidates []models.CategorySubmission `json:"candidates"`
	Count      int                         `json:"candidateCount"`
	Stats      *models.SamplingStats       `json:"stats,omitempty"`
}
