package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"portfolio-workers/internal/models"
	"portfolio-workers/internal/store"
)

const checklistColumns = `student_id, qualification_id, criteria, hours_completed, hours_required,
	gateway_passed, gateway_passed_date, epa_eligible, epa_booked_date, epa_booked_by,
	version, created_at, updated_at`

func scanChecklist(row rowScanner) (*models.GatewayChecklist, error) {
	var (
		c                   models.GatewayChecklist
		criteria            []byte
		passedDate, epaDate sql.NullTime
	)
	err := row.Scan(
		&c.StudentID, &c.QualificationID, &criteria, &c.HoursCompleted, &c.HoursRequired,
		&c.GatewayPassed, &passedDate, &c.EPAEligible, &epaDate, &c.EPABookedBy,
		&c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Criteria = make(map[models.Criterion]models.CriterionState, len(models.GatewayCriteria))
	if len(criteria) > 0 {
		if err := json.Unmarshal(criteria, &c.Criteria); err != nil {
			return nil, fmt.Errorf("decode criteria: %w", err)
		}
	}
	for _, k := range models.GatewayCriteria {
		if _, ok := c.Criteria[k]; !ok {
			c.Criteria[k] = models.CriterionState{}
		}
	}
	c.GatewayPassedDate = nullTime(passedDate)
	c.EPABookedDate = nullTime(epaDate)
	return &c, nil
}

func (s *Store) GetChecklist(ctx context.Context, key models.ChecklistKey) (*models.GatewayChecklist, error) {
	query := `SELECT ` + checklistColumns + ` FROM gateway_checklists
		WHERE student_id = $1 AND qualification_id = $2`
	c, err := scanChecklist(s.db.QueryRowContext(ctx, query, key.StudentID, key.QualificationID))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// UpsertChecklist locks the existing row or inserts a fresh one. A concurrent
// insert of the same key surfaces as ErrConflict through the primary key.
func (tx *pgTx) UpsertChecklist(ctx context.Context, key models.ChecklistKey, defaults func() *models.GatewayChecklist, patch store.ChecklistPatch) (*models.GatewayChecklist, error) {
	query := `SELECT ` + checklistColumns + ` FROM gateway_checklists
		WHERE student_id = $1 AND qualification_id = $2 FOR UPDATE`

	existing, err := scanChecklist(tx.q.QueryRowContext(ctx, query, key.StudentID, key.QualificationID))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		c := defaults()
		if err := patch(c); err != nil {
			return nil, err
		}
		if err := tx.insertChecklist(ctx, c); err != nil {
			return nil, err
		}
		return c, nil
	case err != nil:
		return nil, fmt.Errorf("load checklist: %w", err)
	}

	if err := patch(existing); err != nil {
		return nil, err
	}
	if err := tx.updateChecklist(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (tx *pgTx) insertChecklist(ctx context.Context, c *models.GatewayChecklist) error {
	criteria, err := json.Marshal(c.Criteria)
	if err != nil {
		return fmt.Errorf("encode criteria: %w", err)
	}

	query := `INSERT INTO gateway_checklists (` + checklistColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, $11, $12)`

	_, err = tx.q.ExecContext(ctx, query,
		c.StudentID, c.QualificationID, criteria, c.HoursCompleted, c.HoursRequired,
		c.GatewayPassed, toNullTime(c.GatewayPassedDate), c.EPAEligible, toNullTime(c.EPABookedDate), c.EPABookedBy,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return mapErr(fmt.Errorf("insert checklist: %w", err))
	}
	c.Version = 1
	return nil
}

func (tx *pgTx) updateChecklist(ctx context.Context, c *models.GatewayChecklist) error {
	criteria, err := json.Marshal(c.Criteria)
	if err != nil {
		return fmt.Errorf("encode criteria: %w", err)
	}

	query := `UPDATE gateway_checklists SET
			criteria = $4, hours_completed = $5, hours_required = $6, gateway_passed = $7,
			gateway_passed_date = $8, epa_eligible = $9, epa_booked_date = $10, epa_booked_by = $11,
			updated_at = $12, version = version + 1
		WHERE student_id = $1 AND qualification_id = $2 AND version = $3`

	res, err := tx.q.ExecContext(ctx, query,
		c.StudentID, c.QualificationID, c.Version,
		criteria, c.HoursCompleted, c.HoursRequired, c.GatewayPassed,
		toNullTime(c.GatewayPassedDate), c.EPAEligible, toNullTime(c.EPABookedDate), c.EPABookedBy,
		c.UpdatedAt,
	)
	if err := checkVersioned(res, err); err != nil {
		return err
	}
	c.Version++
	return nil
}
