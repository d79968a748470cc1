// Package evidence manages portfolio items and their KSB mappings.
package evidence

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	apperrors "portfolio-workers/internal/common/errors"
	"portfolio-workers/internal/common/logger"
	"portfolio-workers/internal/models"
	"portfolio-workers/internal/store"
	"portfolio-workers/internal/workflow"
)

// SaveInput creates an item when ItemID is empty. A nil KSBIDs leaves the
// existing mappings alone.
type SaveInput struct {
	ActorID     string                 `json:"actorId"`
	ItemID      string                 `json:"itemId,omitempty"`
	StudentID   string                 `json:"studentId"`
	Category    string                 `json:"category"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Status      models.PortfolioStatus `json:"status"`
	KSBIDs      []string               `json:"ksbIds"`
}

type VerifyInput struct {
	ActorID         string               `json:"actorId"`
	ItemID          string               `json:"itemId"`
	KSBID           string               `json:"ksbId"`
	QualificationID string               `json:"qualificationId"`
	Coverage        models.CoverageLevel `json:"coverage"`
}

type SummaryInput struct {
	ActorID         string `json:"actorId"`
	StudentID       string `json:"studentId"`
	QualificationID string `json:"qualificationId"`
	Category        string `json:"category"`
}

type Service struct {
	workflow.Deps
	log logger.Logger
}

func NewService(deps workflow.Deps) *Service {
	return &Service{Deps: deps, log: logger.ForComponent(deps.Logger, "evidence")}
}

// SaveItem creates or edits the student's own portfolio item. Mappings for
// KSBs that stay listed keep their verification.
func (s *Service) SaveItem(ctx context.Context, in SaveInput) (_ *models.PortfolioItem, err error) {
	ctx, end := s.Obs.StartSpan(ctx, "evidence.save_item", attribute.String("studentId", in.StudentID))
	defer func() { end(err) }()

	in.Category = strings.TrimSpace(in.Category)
	in.Title = strings.TrimSpace(in.Title)
	if err := workflow.Required(
		"studentId", in.StudentID,
		"category", in.Category,
		"title", in.Title,
	); err != nil {
		return nil, err
	}
	if in.ActorID != in.StudentID {
		return nil, apperrors.NewNotAuthorizedError(in.ActorID, in.StudentID)
	}
	if in.Status == "" {
		in.Status = models.PortfolioDraft
	}
	if !in.Status.Valid() {
		return nil, apperrors.NewValidationError("status", "unknown portfolio status "+string(in.Status))
	}

	var result *models.PortfolioItem
	err = s.RunInTx(ctx, "save-portfolio-item", func(ctx context.Context, tx store.Tx) error {
		now := s.Now()
		if in.ItemID == "" {
			item := &models.PortfolioItem{
				ID:          s.NewID(),
				StudentID:   in.StudentID,
				Category:    in.Category,
				Title:       in.Title,
				Description: in.Description,
				Status:      in.Status,
				KSBMappings: remap(nil, in.KSBIDs),
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := tx.InsertPortfolioItem(ctx, item); err != nil {
				return err
			}
			result = item
			return nil
		}

		item, err := tx.GetPortfolioItem(ctx, in.ItemID)
		if err != nil {
			return workflow.NotFound(err, "portfolio item", in.ItemID)
		}
		if item.StudentID != in.StudentID {
			return apperrors.NewNotAuthorizedError(in.ActorID, item.StudentID)
		}
		item.Category = in.Category
		item.Title = in.Title
		item.Description = in.Description
		item.Status = in.Status
		if in.KSBIDs != nil {
			item.KSBMappings = remap(item.KSBMappings, in.KSBIDs)
		}
		item.UpdatedAt = now
		if err := tx.UpdatePortfolioItem(ctx, item); err != nil {
			return err
		}
		result = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("portfolio item saved", map[string]interface{}{
		"itemId":   result.ID,
		"mappings": len(result.KSBMappings),
	})
	return result, nil
}

// remap returns one mapping per distinct KSB id, reusing existing entries.
func remap(existing []models.KSBMapping, ksbIDs []string) []models.KSBMapping {
	byID := make(map[string]models.KSBMapping, len(existing))
	for _, m := range existing {
		byID[m.KSBID] = m
	}
	out := []models.KSBMapping{}
	seen := map[string]bool{}
	for _, id := range ksbIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if m, ok := byID[id]; ok {
			out = append(out, m)
			continue
		}
		out = append(out, models.KSBMapping{KSBID: id, Status: models.MappingUnverified})
	}
	return out
}

// VerifyMapping marks one KSB mapping verified with the given coverage.
func (s *Service) VerifyMapping(ctx context.Context, in VerifyInput) (_ *models.PortfolioItem, err error) {
	ctx, end := s.Obs.StartSpan(ctx, "evidence.verify_mapping",
		attribute.String("itemId", in.ItemID),
		attribute.String("ksbId", in.KSBID),
	)
	defer func() { end(err) }()

	if err := workflow.Required(
		"actorId", in.ActorID,
		"itemId", in.ItemID,
		"ksbId", in.KSBID,
		"qualificationId", in.QualificationID,
	); err != nil {
		return nil, err
	}
	if !in.Coverage.Valid() {
		return nil, apperrors.NewValidationError("coverage", "coverage must be partial or full")
	}

	current, err := s.Store.GetPortfolioItem(ctx, in.ItemID)
	if err != nil {
		return nil, workflow.Lookup(err, "portfolio item", in.ItemID)
	}
	if err := s.RequireAssigned(ctx, in.ActorID, current.StudentID, in.QualificationID); err != nil {
		return nil, err
	}

	var result *models.PortfolioItem
	err = s.RunInTx(ctx, "verify-ksb-mapping", func(ctx context.Context, tx store.Tx) error {
		item, err := tx.GetPortfolioItem(ctx, in.ItemID)
		if err != nil {
			return workflow.NotFound(err, "portfolio item", in.ItemID)
		}

		idx := -1
		for i, m := range item.KSBMappings {
			if m.KSBID == in.KSBID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return apperrors.NewRecordNotFoundError("ksb mapping", in.KSBID)
		}

		now := s.Now()
		item.KSBMappings[idx].Status = models.MappingVerified
		item.KSBMappings[idx].Coverage = in.Coverage
		item.KSBMappings[idx].VerifiedBy = in.ActorID
		item.KSBMappings[idx].VerifiedAt = &now
		item.UpdatedAt = now
		if err := tx.UpdatePortfolioItem(ctx, item); err != nil {
			return err
		}
		result = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("ksb mapping verified", map[string]interface{}{
		"itemId":   result.ID,
		"ksbId":    in.KSBID,
		"coverage": in.Coverage,
	})
	return result, nil
}

// CoverageSummary counts distinct KSBs across the student's items in a
// category. Staff need an assignment for the qualification.
func (s *Service) CoverageSummary(ctx context.Context, in SummaryInput) (_ *models.CoverageSummary, err error) {
	ctx, end := s.Obs.StartSpan(ctx, "evidence.coverage_summary", attribute.String("studentId", in.StudentID))
	defer func() { end(err) }()

	if err := workflow.Required("studentId", in.StudentID, "category", in.Category); err != nil {
		return nil, err
	}
	if in.ActorID != in.StudentID {
		if err := workflow.Required("qualificationId", in.QualificationID); err != nil {
			return nil, err
		}
		if err := s.RequireAssigned(ctx, in.ActorID, in.StudentID, in.QualificationID); err != nil {
			return nil, err
		}
	}

	items, err := s.Store.ListPortfolioItems(ctx, in.StudentID, in.Category)
	if err != nil {
		return nil, apperrors.NewDatabaseConnectionFailedError(err)
	}
	return Summarize(in.StudentID, in.Category, items), nil
}

// Summarize counts each KSB once however many items map it. A KSB is
// verified or fully covered if any item's mapping says so.
func Summarize(studentID, category string, items []models.PortfolioItem) *models.CoverageSummary {
	mapped := map[string]bool{}
	verified := map[string]bool{}
	full := map[string]bool{}
	for _, item := range items {
		for _, m := range item.KSBMappings {
			mapped[m.KSBID] = true
			if m.Status != models.MappingVerified {
				continue
			}
			verified[m.KSBID] = true
			if m.Coverage == models.CoverageFull {
				full[m.KSBID] = true
			}
		}
	}
	return &models.CoverageSummary{
		StudentID:    studentID,
		Category:     category,
		Items:        len(items),
		MappedKSBs:   len(mapped),
		VerifiedKSBs: len(verified),
		FullKSBs:     len(full),
	}
}
