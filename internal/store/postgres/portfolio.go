package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"portfolio-workers/internal/models"
)

const portfolioColumns = `id, student_id, category, title, description, status, ksb_mappings,
	version, created_at, updated_at`

func scanPortfolioItem(row rowScanner) (*models.PortfolioItem, error) {
	var (
		p        models.PortfolioItem
		status   string
		mappings []byte
	)
	err := row.Scan(
		&p.ID, &p.StudentID, &p.Category, &p.Title, &p.Description, &status, &mappings,
		&p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = models.PortfolioStatus(status)
	p.KSBMappings = []models.KSBMapping{}
	if len(mappings) > 0 {
		if err := json.Unmarshal(mappings, &p.KSBMappings); err != nil {
			return nil, fmt.Errorf("decode ksb mappings: %w", err)
		}
	}
	return &p, nil
}

func getPortfolioItem(ctx context.Context, q querier, id string, lock bool) (*models.PortfolioItem, error) {
	query := `SELECT ` + portfolioColumns + ` FROM portfolio_items WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	p, err := scanPortfolioItem(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func encodeMappings(m []models.KSBMapping) ([]byte, error) {
	if m == nil {
		m = []models.KSBMapping{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode ksb mappings: %w", err)
	}
	return b, nil
}

func (s *Store) GetPortfolioItem(ctx context.Context, id string) (*models.PortfolioItem, error) {
	return getPortfolioItem(ctx, s.db, id, false)
}

func (s *Store) ListPortfolioItems(ctx context.Context, studentID, category string) ([]models.PortfolioItem, error) {
	query := `SELECT ` + portfolioColumns + ` FROM portfolio_items
		WHERE student_id = $1 AND ($2 = '' OR category = $2)
		ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, studentID, category)
	if err != nil {
		return nil, fmt.Errorf("list portfolio items: %w", err)
	}
	defer rows.Close()

	out := []models.PortfolioItem{}
	for rows.Next() {
		p, err := scanPortfolioItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan portfolio item: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (tx *pgTx) GetPortfolioItem(ctx context.Context, id string) (*models.PortfolioItem, error) {
	return getPortfolioItem(ctx, tx.q, id, true)
}

func (tx *pgTx) InsertPortfolioItem(ctx context.Context, p *models.PortfolioItem) error {
	mappings, err := encodeMappings(p.KSBMappings)
	if err != nil {
		return err
	}

	query := `INSERT INTO portfolio_items (` + portfolioColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8, $9)`

	_, err = tx.q.ExecContext(ctx, query,
		p.ID, p.StudentID, p.Category, p.Title, p.Description, string(p.Status), mappings,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return mapErr(fmt.Errorf("insert portfolio item: %w", err))
	}
	p.Version = 1
	return nil
}

func (tx *pgTx) UpdatePortfolioItem(ctx context.Context, p *models.PortfolioItem) error {
	mappings, err := encodeMappings(p.KSBMappings)
	if err != nil {
		return err
	}

	query := `UPDATE portfolio_items SET
			category = $3, title = $4, description = $5, status = $6, ksb_mappings = $7,
			updated_at = $8, version = version + 1
		WHERE id = $1 AND version = $2`

	res, err := tx.q.ExecContext(ctx, query,
		p.ID, p.Version,
		p.Category, p.Title, p.Description, string(p.Status), mappings,
		p.UpdatedAt,
	)
	if err := checkVersioned(res, err); err != nil {
		return err
	}
	p.Version++
	return nil
}
