package store

import (
	"context"
	"errors"

	"portfolio-workers/internal/models"
)

var (
	// ErrConflict means the row changed since it was read. The whole
	// operation is retried from a fresh read.
	ErrConflict = errors.New("store: version conflict")
	ErrNotFound = errors.New("store: record not found")
)

// ChecklistPatch mutates a checklist inside an upsert.
type ChecklistPatch func(c *models.GatewayChecklist) error

// Scope is one (student, qualification) pair a caller may see.
type Scope struct {
	StudentID       string
	QualificationID string
}

// Queries are read-only lookups used outside transactions. They never lock
// rows and never share a connection with an open Tx.
type Queries interface {
	GetSubmission(ctx context.Context, id string) (*models.CategorySubmission, error)
	ListPendingSubmissions(ctx context.Context, studentIDs []string) ([]models.CategorySubmission, error)
	ListSamplingCandidates(ctx context.Context, scopes []Scope) ([]models.CategorySubmission, error)
	CountSamplingRecords(ctx context.Context, scopes []Scope) (map[models.VerificationStatus]int, error)
	GetSamplingRecord(ctx context.Context, id string) (*models.SamplingRecord, error)
	GetChecklist(ctx context.Context, key models.ChecklistKey) (*models.GatewayChecklist, error)
	GetPortfolioItem(ctx context.Context, id string) (*models.PortfolioItem, error)
	ListPortfolioItems(ctx context.Context, studentID, category string) ([]models.PortfolioItem, error)
}

// Tx is the unit of work handed to WithinTx. Every Update* call checks the
// record's Version and bumps it on success.
type Tx interface {
	GetSubmission(ctx context.Context, id string) (*models.CategorySubmission, error)
	FindSubmission(ctx context.Context, key models.SubmissionKey) (*models.CategorySubmission, error)
	InsertSubmission(ctx context.Context, s *models.CategorySubmission) error
	UpdateSubmission(ctx context.Context, s *models.CategorySubmission) error

	UpsertCoverage(ctx context.Context, entry models.CoverageEntry) error

	GetSamplingRecord(ctx context.Context, id string) (*models.SamplingRecord, error)
	InsertSamplingRecord(ctx context.Context, r *models.SamplingRecord) error
	UpdateSamplingRecord(ctx context.Context, r *models.SamplingRecord) error

	// UpsertChecklist loads the checklist for key, creating it from defaults
	// when absent, applies patch and writes it back.
	UpsertChecklist(ctx context.Context, key models.ChecklistKey, defaults func() *models.GatewayChecklist, patch ChecklistPatch) (*models.GatewayChecklist, error)

	GetPortfolioItem(ctx context.Context, id string) (*models.PortfolioItem, error)
	InsertPortfolioItem(ctx context.Context, p *models.PortfolioItem) error
	UpdatePortfolioItem(ctx context.Context, p *models.PortfolioItem) error
}

type Store interface {
	Queries
	// WithinTx runs fn in one transaction. It commits when fn returns nil and
	// rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
