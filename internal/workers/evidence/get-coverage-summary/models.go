package getcoveragesummary

import "portfolio-workers/internal/models"

type Output struct {
	CoverageSummary *models.CoverageSummary `json:"coverageSummary"`
}
