package directory

import (
	"context"
	"sort"
	"sync"

	"portfolio-workers/internal/models"
)

// Static is a fixed, in-memory directory for tests and local runs.
type Static struct {
	mu          sync.RWMutex
	assignments []models.Assignment
	err         error
}

var _ Directory = (*Static)(nil)

func NewStatic(assignments ...models.Assignment) *Static {
	return &Static{assignments: append([]models.Assignment(nil), assignments...)}
}

func (s *Static) Add(a models.Assignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments = append(s.assignments, a)
}

// FailWith makes every lookup return err. nil restores normal behaviour.
func (s *Static) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Static) ResolveAssignments(_ context.Context, staffID string) ([]models.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	out := []models.Assignment{}
	for _, a := range s.assignments {
		if a.StaffID == staffID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Static) IsAssigned(ctx context.Context, staffID, studentID, qualificationID string) (bool, error) {
	assignments, err := s.ResolveAssignments(ctx, staffID)
	if err != nil {
		return false, err
	}
	return Covers(assignments, studentID, qualificationID), nil
}

func (s *Static) AssignedStaff(_ context.Context, studentID, qualificationID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	seen := map[string]struct{}{}
	out := []string{}
	for _, a := range s.assignments {
		if a.StudentID != studentID || a.QualificationID != qualificationID {
			continue
		}
		if _, ok := seen[a.StaffID]; ok {
			continue
		}
		seen[a.StaffID] = struct{}{}
		out = append(out, a.StaffID)
	}
	sort.Strings(out)
	return out, nil
}
