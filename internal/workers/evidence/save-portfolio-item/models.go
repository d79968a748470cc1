package saveportfolioitem

import "portfolio-workers/internal/models"

type Output struct {
	PortfolioItem *models.PortfolioItem `json:"portfolioItem"`
	ItemID        string                `json:"itemId"`
}
