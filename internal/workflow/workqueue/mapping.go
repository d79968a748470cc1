package workqueue

import (
	"fmt"
	"sort"
	"time"

	"portfolio-workers/internal/models"
)

const (
	GradePending         = "pending"
	ILPCompleted         = "completed"
	ExternalGatewayReady = "Gateway Ready"
)

func itemID(p models.WorkPayload) string {
	return fmt.Sprintf("%s-%s", p.ItemType(), p.SourceID())
}

func GradeItem(r models.GradeRecord) models.WorkQueueItem {
	payload := models.GradePayload{GradeRecordID: r.ID, Title: r.Title}
	return models.WorkQueueItem{
		ID:        itemID(payload),
		Type:      models.WorkItemGrade,
		Title:     "Grade: " + r.Title,
		StudentID: r.StudentID,
		Priority:  models.PriorityNormal,
		Status:    models.WorkItemPending,
		CreatedAt: r.CreatedAt,
		Payload:   payload,
	}
}

func ILPItem(r models.ILPReview) models.WorkQueueItem {
	payload := models.ILPPayload{ReviewID: r.ID, ReviewType: r.ReviewType, DueDate: r.DueDate}
	due := r.DueDate
	title := "Overdue ILP review"
	if r.ReviewType != "" {
		title = "Overdue ILP review: " + r.ReviewType
	}
	return models.WorkQueueItem{
		ID:        itemID(payload),
		Type:      models.WorkItemILP,
		Title:     title,
		StudentID: r.StudentID,
		Priority:  models.PriorityUrgent,
		Status:    models.WorkItemPending,
		CreatedAt: r.CreatedAt,
		DueAt:     &due,
		Payload:   payload,
	}
}

func GatewayItem(p models.LearnerProgress) models.WorkQueueItem {
	payload := models.GatewayPayload{ProgressID: p.ID, QualificationID: p.QualificationID, ExternalStatus: p.Status}
	return models.WorkQueueItem{
		ID:        itemID(payload),
		Type:      models.WorkItemGateway,
		Title:     "Gateway review: " + p.QualificationID,
		StudentID: p.StudentID,
		Priority:  models.PriorityHigh,
		Status:    models.WorkItemPending,
		CreatedAt: p.UpdatedAt,
		Payload:   payload,
	}
}

// DaysAwaiting counts whole days since submission.
func DaysAwaiting(submittedAt, now time.Time) int {
	if now.Before(submittedAt) {
		return 0
	}
	return int(now.Sub(submittedAt).Hours() / 24)
}

func ReviewPriority(daysAwaiting, submissionCount int) models.PortfolioPriority {
	switch {
	case daysAwaiting > 7 || submissionCount > 2:
		return models.PortfolioPriorityHigh
	case daysAwaiting > 3 || submissionCount > 1:
		return models.PortfolioPriorityMedium
	default:
		return models.PortfolioPriorityLow
	}
}

// QueuePriority maps a portfolio review priority onto the queue scale.
func QueuePriority(p models.PortfolioPriority) models.Priority {
	switch p {
	case models.PortfolioPriorityHigh:
		return models.PriorityUrgent
	case models.PortfolioPriorityMedium:
		return models.PriorityHigh
	default:
		return models.PriorityNormal
	}
}

func PortfolioItem(s models.CategorySubmission, now time.Time) models.WorkQueueItem {
	days := DaysAwaiting(s.SubmittedAt, now)
	review := ReviewPriority(days, s.SubmissionCount)
	payload := models.PortfolioPayload{
		SubmissionID:    s.ID,
		QualificationID: s.QualificationID,
		Category:        s.Category,
		Status:          s.Status,
		SubmissionCount: s.SubmissionCount,
		DaysAwaiting:    days,
		ReviewPriority:  review,
	}
	return models.WorkQueueItem{
		ID:        itemID(payload),
		Type:      models.WorkItemPortfolio,
		Title:     "Portfolio review: " + s.Category,
		StudentID: s.StudentID,
		Priority:  QueuePriority(review),
		Status:    models.WorkItemPending,
		CreatedAt: s.SubmittedAt,
		Payload:   payload,
	}
}

// Order sorts by priority rank, keeping source order within a rank.
func Order(items []models.WorkQueueItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Priority.Rank() < items[j].Priority.Rank()
	})
}
