// internal/models/portfolio.go
package models

import "time"

type PortfolioStatus string

const (
	PortfolioDraft     PortfolioStatus = "draft"
	PortfolioCompleted PortfolioStatus = "completed"
	PortfolioReviewed  PortfolioStatus = "reviewed"
)

func (s PortfolioStatus) Valid() bool {
	return s == PortfolioDraft || s == PortfolioCompleted || s == PortfolioReviewed
}

type MappingStatus string

const (
	MappingUnverified MappingStatus = "unverified"
	MappingVerified   MappingStatus = "verified"
)

type CoverageLevel string

const (
	CoveragePartial CoverageLevel = "partial"
	CoverageFull    CoverageLevel = "full"
)

func (c CoverageLevel) Valid() bool {
	return c == CoveragePartial || c == CoverageFull
}

type KSBMapping struct {
	KSBID      string        `json:"ksbId"`
	Status     MappingStatus `json:"status"`
	Coverage   CoverageLevel `json:"coverage"`
	VerifiedBy string        `json:"verifiedBy,omitempty"`
	VerifiedAt *time.Time    `json:"verifiedAt,omitempty"`
}

type PortfolioItem struct {
	ID          string          `json:"id"`
	StudentID   string          `json:"studentId"`
	Category    string          `json:"category"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Status      PortfolioStatus `json:"status"`
	KSBMappings []KSBMapping    `json:"ksbMappings"`
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Clone returns a copy that shares no slices with the receiver.
func (p PortfolioItem) Clone() PortfolioItem {
	out := p
	out.KSBMappings = append([]KSBMapping(nil), p.KSBMappings...)
	return out
}

// CoverageSummary counts distinct KSBs across a student's items in a category.
type CoverageSummary struct {
	StudentID    string `json:"studentId"`
	Category     string `json:"category"`
	Items        int    `json:"items"`
	MappedKSBs   int    `json:"mappedKsbs"`
	VerifiedKSBs int    `json:"verifiedKsbs"`
	FullKSBs     int    `json:"fullyCoveredKsbs"`
}
