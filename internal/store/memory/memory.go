// Package memory is an in-process Store used by tests and local runs.
// Transactions are serialized: WithinTx holds the write lock, works on a copy
// of every table and swaps the copy in on commit.
package memory

import (
	"context"
	"sort"
	"sync"

	"portfolio-workers/internal/models"
	"portfolio-workers/internal/store"
)

type coverageKey struct {
	studentID       string
	qualificationID string
	category        string
}

type tables struct {
	submissions map[string]models.CategorySubmission
	coverage    map[coverageKey]models.CoverageEntry
	sampling    map[string]models.SamplingRecord
	checklists  map[models.ChecklistKey]models.GatewayChecklist
	portfolio   map[string]models.PortfolioItem
}

func newTables() *tables {
	return &tables{
		submissions: map[string]models.CategorySubmission{},
		coverage:    map[coverageKey]models.CoverageEntry{},
		sampling:    map[string]models.SamplingRecord{},
		checklists:  map[models.ChecklistKey]models.GatewayChecklist{},
		portfolio:   map[string]models.PortfolioItem{},
	}
}

func (t *tables) clone() *tables {
	out := newTables()
	for k, v := range t.submissions {
		out.submissions[k] = v
	}
	for k, v := range t.coverage {
		out.coverage[k] = v
	}
	for k, v := range t.sampling {
		out.sampling[k] = v
	}
	for k, v := range t.checklists {
		out.checklists[k] = v.Clone()
	}
	for k, v := range t.portfolio {
		out.portfolio[k] = v.Clone()
	}
	return out
}

type fault struct {
	err       error
	remaining int
}

type Store struct {
	mu     sync.RWMutex
	data   *tables
	faults map[string]*fault
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{data: newTables(), faults: map[string]*fault{}}
}

// FailOn makes the named Tx method return err. times <= 0 fails every call.
func (s *Store) FailOn(op string, err error, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = &fault{err: err, remaining: times}
}

// CoverageEntry returns the stored coverage-matrix cell, if any.
func (s *Store) CoverageEntry(studentID, qualificationID, category string) (models.CoverageEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data.coverage[coverageKey{studentID, qualificationID, category}]
	return e, ok
}

// ChecklistCount is the number of stored gateway checklists.
func (s *Store) ChecklistCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.checklists)
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.data.clone()
	if err := fn(ctx, &memTx{t: work, store: s}); err != nil {
		return err
	}
	s.data = work
	return nil
}

// ============================================================================
// Queries
// ============================================================================

func (s *Store) GetSubmission(_ context.Context, id string) (*models.CategorySubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.data.submissions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &sub, nil
}

func (s *Store) ListPendingSubmissions(_ context.Context, studentIDs []string) ([]models.CategorySubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	students := toSet(studentIDs)
	out := []models.CategorySubmission{}
	for _, sub := range s.data.submissions {
		if _, ok := students[sub.StudentID]; !ok {
			continue
		}
		if isPending(sub.Status) {
			out = append(out, sub)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out, nil
}

func (s *Store) ListSamplingCandidates(_ context.Context, scopes []store.Scope) ([]models.CategorySubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allowed := scopeSet(scopes)
	out := []models.CategorySubmission{}
	for _, sub := range s.data.submissions {
		if sub.Status != models.StatusSignedOff || sub.IQASampled {
			continue
		}
		if _, ok := allowed[store.Scope{StudentID: sub.StudentID, QualificationID: sub.QualificationID}]; ok {
			out = append(out, sub)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].SignedOffAt, out[j].SignedOffAt
		if a == nil || b == nil || a.Equal(*b) {
			return out[i].ID < out[j].ID
		}
		return a.Before(*b)
	})
	return out, nil
}

func (s *Store) CountSamplingRecords(_ context.Context, scopes []store.Scope) (map[models.VerificationStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allowed := scopeSet(scopes)
	counts := map[models.VerificationStatus]int{
		models.VerificationPending:        0,
		models.VerificationVerified:       0,
		models.VerificationConcernsRaised: 0,
	}
	for _, r := range s.data.sampling {
		if _, ok := allowed[store.Scope{StudentID: r.StudentID, QualificationID: r.QualificationID}]; ok {
			counts[r.VerificationStatus]++
		}
	}
	return counts, nil
}

func (s *Store) GetSamplingRecord(_ context.Context, id string) (*models.SamplingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.data.sampling[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

func (s *Store) GetChecklist(_ context.Context, key models.ChecklistKey) (*models.GatewayChecklist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.data.checklists[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := c.Clone()
	return &clone, nil
}

func (s *Store) GetPortfolioItem(_ context.Context, id string) (*models.PortfolioItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.data.portfolio[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := p.Clone()
	return &clone, nil
}

func (s *Store) ListPortfolioItems(_ context.Context, studentID, category string) ([]models.PortfolioItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.PortfolioItem{}
	for _, p := range s.data.portfolio {
		if p.StudentID == studentID && (category == "" || p.Category == category) {
			out = append(out, p.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func isPending(status models.SubmissionStatus) bool {
	for _, s := range models.PendingReviewStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func toSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

func scopeSet(scopes []store.Scope) map[store.Scope]struct{} {
	out := make(map[store.Scope]struct{}, len(scopes))
	for _, s := range scopes {
		out[s] = struct{}{}
	}
	return out
}
