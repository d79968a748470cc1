package verifyksbmapping

import "portfolio-workers/internal/models"

type Input struct {
	ActorID         string `json:"actorId"`
	ItemID          string `json:"itemId"`
	KSBID           string `json:"ksbId"`
	QualificationID string `json:"qualificationId"`
	Coverage        string `json:"coverage"`
}

type Output struct {
	PortfolioItem    *models.PortfolioItem `json:"portfolioItem"`
	VerifiedMappings int                   `json:"verifiedMappings"`
	TotalMappings    int                   `json:"totalMappings"`
}
