package getworkqueue

import "portfolio-workers/internal/models"

// Input defaults StaffID to the actor.
type Input struct {
	ActorID string `json:"actorId"`
	StaffID string `json:"staffId,omitempty"`
}

type Output struct {
	WorkQueue   *models.WorkQueue `json:"workQueue"`
	ItemCount   int               `json:"itemCount"`
	UrgentCount int               `json:"urgentCount"`
	Partial     bool              `json:"partial"`
}
