// internal/models/workqueue.go
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type WorkItemType string

const (
	WorkItemGrade     WorkItemType = "grade"
	WorkItemILP       WorkItemType = "ilp"
	WorkItemGateway   WorkItemType = "gateway"
	WorkItemPortfolio WorkItemType = "portfolio"
)

type Priority string

const (
	PriorityUrgent Priority = "Urgent"
	PriorityHigh   Priority = "High"
	PriorityNormal Priority = "Normal"
)

// Rank orders priorities for sorting, lowest first.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	default:
		return 2
	}
}

const WorkItemPending = "Pending"

// WorkPayload is implemented by exactly the four source payload types.
type WorkPayload interface {
	ItemType() WorkItemType
	SourceID() string
}

type GradePayload struct {
	GradeRecordID string `json:"gradeRecordId"`
	Title         string `json:"title"`
}

func (GradePayload) ItemType() WorkItemType { return WorkItemGrade }
func (p GradePayload) SourceID() string     { return p.GradeRecordID }

type ILPPayload struct {
	ReviewID   string    `json:"reviewId"`
	ReviewType string    `json:"reviewType,omitempty"`
	DueDate    time.Time `json:"dueDate"`
}

func (ILPPayload) ItemType() WorkItemType { return WorkItemILP }
func (p ILPPayload) SourceID() string     { return p.ReviewID }

type GatewayPayload struct {
	ProgressID      string `json:"progressId"`
	QualificationID string `json:"qualificationId"`
	ExternalStatus  string `json:"externalStatus"`
}

func (GatewayPayload) ItemType() WorkItemType { return WorkItemGateway }
func (p GatewayPayload) SourceID() string     { return p.ProgressID }

type PortfolioPriority string

const (
	PortfolioPriorityHigh   PortfolioPriority = "high"
	PortfolioPriorityMedium PortfolioPriority = "medium"
	PortfolioPriorityLow    PortfolioPriority = "low"
)

type PortfolioPayload struct {
	SubmissionID    string            `json:"submissionId"`
	QualificationID string            `json:"qualificationId"`
	Category        string            `json:"category"`
	Status          SubmissionStatus  `json:"status"`
	SubmissionCount int               `json:"submissionCount"`
	DaysAwaiting    int               `json:"daysAwaiting"`
	ReviewPriority  PortfolioPriority `json:"reviewPriority"`
}

func (PortfolioPayload) ItemType() WorkItemType { return WorkItemPortfolio }
func (p PortfolioPayload) SourceID() string     { return p.SubmissionID }

type WorkQueueItem struct {
	ID        string       `json:"id"`
	Type      WorkItemType `json:"type"`
	Title     string       `json:"title"`
	StudentID string       `json:"studentId"`
	Priority  Priority     `json:"priority"`
	Status    string       `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	DueAt     *time.Time   `json:"dueAt,omitempty"`
	Payload   WorkPayload  `json:"payload"`
}

// UnmarshalJSON restores the concrete payload type from the item type tag.
func (w *WorkQueueItem) UnmarshalJSON(data []byte) error {
	type plain WorkQueueItem
	var raw struct {
		plain
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var (
		payload WorkPayload
		err     error
	)
	switch raw.Type {
	case WorkItemGrade:
		var p GradePayload
		err = json.Unmarshal(raw.Payload, &p)
		payload = p
	case WorkItemILP:
		var p ILPPayload
		err = json.Unmarshal(raw.Payload, &p)
		payload = p
	case WorkItemGateway:
		var p GatewayPayload
		err = json.Unmarshal(raw.Payload, &p)
		payload = p
	case WorkItemPortfolio:
		var p PortfolioPayload
		err = json.Unmarshal(raw.Payload, &p)
		payload = p
	default:
		return fmt.Errorf("unknown work item type %q", raw.Type)
	}
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", raw.Type, err)
	}

	*w = WorkQueueItem(raw.plain)
	w.Payload = payload
	return nil
}

// WorkQueue is the aggregated, ordered result for one staff member.
type WorkQueue struct {
	StaffID       string          `json:"staffId"`
	Items         []WorkQueueItem `json:"items"`
	FailedSources []string        `json:"failedSources,omitempty"`
	GeneratedAt   time.Time       `json:"generatedAt"`
}

// Source records read by the work queue.

type GradeRecord struct {
	ID        string    `json:"id"`
	StudentID string    `json:"studentId"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type ILPReview struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	ReviewType string    `json:"review_type"`
	DueDate    time.Time `json:"due_date"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

type LearnerProgress struct {
	ID              string    `json:"id"`
	StudentID       string    `json:"studentId"`
	QualificationID string    `json:"qualificationId"`
	Status          string    `json:"status"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
