package memory

import (
	"context"

	"portfolio-workers/internal/models"
	"portfolio-workers/internal/store"
)

type memTx struct {
	t     *tables
	store *Store
}

// fault is called with the store lock held by WithinTx.
func (tx *memTx) fault(op string) error {
	f, ok := tx.store.faults[op]
	if !ok {
		return nil
	}
	if f.remaining > 0 {
		f.remaining--
		if f.remaining == 0 {
			delete(tx.store.faults, op)
		}
	}
	return f.err
}

func (tx *memTx) GetSubmission(_ context.Context, id string) (*models.CategorySubmission, error) {
	sub, ok := tx.t.submissions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &sub, nil
}

func (tx *memTx) FindSubmission(_ context.Context, key models.SubmissionKey) (*models.CategorySubmission, error) {
	for _, sub := range tx.t.submissions {
		if sub.Key() == key {
			found := sub
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (tx *memTx) InsertSubmission(_ context.Context, s *models.CategorySubmission) error {
	if err := tx.fault("InsertSubmission"); err != nil {
		return err
	}
	for _, existing := range tx.t.submissions {
		if existing.Key() == s.Key() {
			return store.ErrConflict
		}
	}
	s.Version = 1
	tx.t.submissions[s.ID] = *s
	return nil
}

func (tx *memTx) UpdateSubmission(_ context.Context, s *models.CategorySubmission) error {
	if err := tx.fault("UpdateSubmission"); err != nil {
		return err
	}
	current, ok := tx.t.submissions[s.ID]
	if !ok {
		return store.ErrNotFound
	}
	if current.Version != s.Version {
		return store.ErrConflict
	}
	s.Version++
	tx.t.submissions[s.ID] = *s
	return nil
}

func (tx *memTx) UpsertCoverage(_ context.Context, entry models.CoverageEntry) error {
	if err := tx.fault("UpsertCoverage"); err != nil {
		return err
	}
	tx.t.coverage[coverageKey{entry.StudentID, entry.QualificationID, entry.Category}] = entry
	return nil
}

func (tx *memTx) GetSamplingRecord(_ context.Context, id string) (*models.SamplingRecord, error) {
	r, ok := tx.t.sampling[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

func (tx *memTx) InsertSamplingRecord(_ context.Context, r *models.SamplingRecord) error {
	if err := tx.fault("InsertSamplingRecord"); err != nil {
		return err
	}
	for _, existing := range tx.t.sampling {
		if existing.SubmissionID == r.SubmissionID {
			return store.ErrConflict
		}
	}
	r.Version = 1
	tx.t.sampling[r.ID] = *r
	return nil
}

func (tx *memTx) UpdateSamplingRecord(_ context.Context, r *models.SamplingRecord) error {
	if err := tx.fault("UpdateSamplingRecord"); err != nil {
		return err
	}
	current, ok := tx.t.sampling[r.ID]
	if !ok {
		return store.ErrNotFound
	}
	if current.Version != r.Version {
		return store.ErrConflict
	}
	r.Version++
	tx.t.sampling[r.ID] = *r
	return nil
}

func (tx *memTx) UpsertChecklist(_ context.Context, key models.ChecklistKey, defaults func() *models.GatewayChecklist, patch store.ChecklistPatch) (*models.GatewayChecklist, error) {
	if err := tx.fault("UpsertChecklist"); err != nil {
		return nil, err
	}

	var working models.GatewayChecklist
	if existing, ok := tx.t.checklists[key]; ok {
		working = existing.Clone()
	} else {
		working = *defaults()
	}

	if err := patch(&working); err != nil {
		return nil, err
	}
	working.Version++
	tx.t.checklists[key] = working.Clone()
	return &working, nil
}

func (tx *memTx) GetPortfolioItem(_ context.Context, id string) (*models.PortfolioItem, error) {
	p, ok := tx.t.portfolio[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := p.Clone()
	return &clone, nil
}

func (tx *memTx) InsertPortfolioItem(_ context.Context, p *models.PortfolioItem) error {
	if err := tx.fault("InsertPortfolioItem"); err != nil {
		return err
	}
	if _, exists := tx.t.portfolio[p.ID]; exists {
		return store.ErrConflict
	}
	p.Version = 1
	tx.t.portfolio[p.ID] = p.Clone()
	return nil
}

func (tx *memTx) UpdatePortfolioItem(_ context.Context, p *models.PortfolioItem) error {
	if err := tx.fault("UpdatePortfolioItem"); err != nil {
		return err
	}
	current, ok := tx.t.portfolio[p.ID]
	if !ok {
		return store.ErrNotFound
	}
	if current.Version != p.Version {
		return store.ErrConflict
	}
	p.Version++
	tx.t.portfolio[p.ID] = p.Clone()
	return nil
}
