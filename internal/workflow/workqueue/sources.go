package workqueue

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/lib/pq"

	"portfolio-workers/internal/models"
	"portfolio-workers/internal/store"
)

// Request is what every source sees for one aggregation.
type Request struct {
	StaffID    string
	StudentIDs []string
	Now        time.Time
}

// Source contributes items of one type. Sources run concurrently.
type Source interface {
	Name() string
	Fetch(ctx context.Context, req Request) ([]models.WorkQueueItem, error)
}

// ============================================================================
// Grade records (Postgres)
// ============================================================================

type GradeSource struct {
	db *sql.DB
}

func NewGradeSource(db *sql.DB) *GradeSource {
	return &GradeSource{db: db}
}

func (s *GradeSource) Name() string { return string(models.WorkItemGrade) }

func (s *GradeSource) Fetch(ctx context.Context, req Request) ([]models.WorkQueueItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, title, status, created_at
		FROM grade_records
		WHERE status = $1 AND student_id = ANY($2)
		ORDER BY created_at, id`,
		GradePending, pq.Array(req.StudentIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("query grade records: %w", err)
	}
	defer rows.Close()

	items := []models.WorkQueueItem{}
	for rows.Next() {
		var r models.GradeRecord
		if err := rows.Scan(&r.ID, &r.StudentID, &r.Title, &r.Status, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan grade record: %w", err)
		}
		items = append(items, GradeItem(r))
	}
	return items, rows.Err()
}

// ============================================================================
// Learner progress (Postgres)
// ============================================================================

type GatewaySource struct {
	db *sql.DB
}

func NewGatewaySource(db *sql.DB) *GatewaySource {
	return &GatewaySource{db: db}
}

func (s *GatewaySource) Name() string { return string(models.WorkItemGateway) }

func (s *GatewaySource) Fetch(ctx context.Context, req Request) ([]models.WorkQueueItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, qualification_id, status, updated_at
		FROM learner_progress
		WHERE status = $1 AND student_id = ANY($2)
		ORDER BY updated_at, id`,
		ExternalGatewayReady, pq.Array(req.StudentIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("query learner progress: %w", err)
	}
	defer rows.Close()

	items := []models.WorkQueueItem{}
	for rows.Next() {
		var p models.LearnerProgress
		if err := rows.Scan(&p.ID, &p.StudentID, &p.QualificationID, &p.Status, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan learner progress: %w", err)
		}
		items = append(items, GatewayItem(p))
	}
	return items, rows.Err()
}

// ============================================================================
// ILP reviews (Elasticsearch)
// ============================================================================

const DefaultILPIndex = "ilp_reviews"

type ILPSource struct {
	client *elasticsearch.Client
	index  string
	size   int
}

func NewILPSource(client *elasticsearch.Client, index string) *ILPSource {
	if index == "" {
		index = DefaultILPIndex
	}
	return &ILPSource{client: client, index: index, size: 500}
}

func (s *ILPSource) Name() string { return string(models.WorkItemILP) }

// overdueQuery selects open reviews for the students whose due date has passed.
func (s *ILPSource) overdueQuery(req Request) map[string]interface{} {
	return map[string]interface{}{
		"size": s.size,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"terms": map[string]interface{}{"student_id": req.StudentIDs}},
					map[string]interface{}{"range": map[string]interface{}{
						"due_date": map[string]interface{}{"lt": req.Now.Format(time.RFC3339)},
					}},
				},
				"must_not": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"status": ILPCompleted}},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"due_date": map[string]interface{}{"order": "asc"}},
		},
	}
}

type ilpSearchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string           `json:"_id"`
			Source models.ILPReview `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ILPSource) Fetch(ctx context.Context, req Request) ([]models.WorkQueueItem, error) {
	body, err := json.Marshal(s.overdueQuery(req))
	if err != nil {
		return nil, err
	}

	search := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
	}
	res, err := search.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", s.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search %s failed: %s", s.index, res.Status())
	}

	var decoded ilpSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", s.index, err)
	}

	items := make([]models.WorkQueueItem, 0, len(decoded.Hits.Hits))
	for _, hit := range decoded.Hits.Hits {
		review := hit.Source
		if review.ID == "" {
			review.ID = hit.ID
		}
		if review.Status == ILPCompleted || !review.DueDate.Before(req.Now) {
			continue
		}
		items = append(items, ILPItem(review))
	}
	return items, nil
}

// ============================================================================
// Pending submissions (store)
// ============================================================================

type PortfolioSource struct {
	queries store.Queries
}

func NewPortfolioSource(queries store.Queries) *PortfolioSource {
	return &PortfolioSource{queries: queries}
}

func (s *PortfolioSource) Name() string { return string(models.WorkItemPortfolio) }

func (s *PortfolioSource) Fetch(ctx context.Context, req Request) ([]models.WorkQueueItem, error) {
	subs, err := s.queries.ListPendingSubmissions(ctx, req.StudentIDs)
	if err != nil {
		return nil, fmt.Errorf("list pending submissions: %w", err)
	}
	items := make([]models.WorkQueueItem, 0, len(subs))
	for _, sub := range subs {
		items = append(items, PortfolioItem(sub, req.Now))
	}
	return items, nil
}
