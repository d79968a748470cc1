// Package directory answers who is assigned to which student.
package directory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"portfolio-workers/internal/common/logger"
	"portfolio-workers/internal/models"
)

type Directory interface {
	ResolveAssignments(ctx context.Context, staffID string) ([]models.Assignment, error)
	IsAssigned(ctx context.Context, staffID, studentID, qualificationID string) (bool, error)
	AssignedStaff(ctx context.Context, studentID, qualificationID string) ([]string, error)
}

const assignmentKeyPrefix = "assignments:"

// Postgres reads staff_assignments and caches each staff member's list in Redis.
type Postgres struct {
	db     *sql.DB
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

var _ Directory = (*Postgres)(nil)

// NewPostgres builds the directory. A nil redis client disables caching.
func NewPostgres(db *sql.DB, redisClient *redis.Client, ttl time.Duration, log logger.Logger) *Postgres {
	return &Postgres{
		db:     db,
		redis:  redisClient,
		ttl:    ttl,
		logger: logger.ForComponent(log, "directory"),
	}
}

func (d *Postgres) ResolveAssignments(ctx context.Context, staffID string) ([]models.Assignment, error) {
	if cached, ok := d.cached(ctx, staffID); ok {
		return cached, nil
	}

	query := `SELECT staff_id, student_id, qualification_id, role FROM staff_assignments
		WHERE staff_id = $1 ORDER BY student_id, qualification_id, role`

	rows, err := d.db.QueryContext(ctx, query, staffID)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	defer rows.Close()

	out := []models.Assignment{}
	for rows.Next() {
		var a models.Assignment
		var role string
		if err := rows.Scan(&a.StaffID, &a.StudentID, &a.QualificationID, &role); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		a.Role = models.Role(role)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}

	d.store(ctx, staffID, out)
	return out, nil
}

func (d *Postgres) IsAssigned(ctx context.Context, staffID, studentID, qualificationID string) (bool, error) {
	assignments, err := d.ResolveAssignments(ctx, staffID)
	if err != nil {
		return false, err
	}
	return Covers(assignments, studentID, qualificationID), nil
}

func (d *Postgres) AssignedStaff(ctx context.Context, studentID, qualificationID string) ([]string, error) {
	query := `SELECT DISTINCT staff_id FROM staff_assignments
		WHERE student_id = $1 AND qualification_id = $2 ORDER BY staff_id`

	rows, err := d.db.QueryContext(ctx, query, studentID, qualificationID)
	if err != nil {
		return nil, fmt.Errorf("query assigned staff: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan staff id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (d *Postgres) cached(ctx context.Context, staffID string) ([]models.Assignment, bool) {
	if d.redis == nil {
		return nil, false
	}
	val, err := d.redis.Get(ctx, assignmentKeyPrefix+staffID).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			d.logger.Warn("assignment cache read failed", map[string]interface{}{
				"staffId": staffID,
				"error":   err.Error(),
			})
		}
		return nil, false
	}
	var out []models.Assignment
	if err := json.Unmarshal([]byte(val), &out); err != nil {
		return nil, false
	}
	return out, true
}

func (d *Postgres) store(ctx context.Context, staffID string, assignments []models.Assignment) {
	if d.redis == nil {
		return
	}
	data, err := json.Marshal(assignments)
	if err != nil {
		return
	}
	if err := d.redis.Set(ctx, assignmentKeyPrefix+staffID, data, d.ttl).Err(); err != nil {
		d.logger.Warn("assignment cache write failed", map[string]interface{}{
			"staffId": staffID,
			"error":   err.Error(),
		})
	}
}

// Covers reports whether any assignment is for the given student and qualification.
func Covers(assignments []models.Assignment, studentID, qualificationID string) bool {
	for _, a := range assignments {
		if a.StudentID == studentID && a.QualificationID == qualificationID {
			return true
		}
	}
	return false
}
