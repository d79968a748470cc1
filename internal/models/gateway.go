// internal/models/gateway.go
package models

import "time"

type Criterion string

const (
	CriterionPortfolioComplete  Criterion = "portfolio_complete"
	CriterionPortfolioSignedOff Criterion = "portfolio_signed_off"
	CriterionOJTHoursVerified   Criterion = "ojt_hours_verified"
	CriterionEnglishL2          Criterion = "english_l2_achieved"
	CriterionMathsL2            Criterion = "maths_l2_achieved"
	CriterionEmployerSatisfied  Criterion = "employer_satisfied"
	CriterionProviderSatisfied  Criterion = "provider_satisfied"
	CriterionGatewayMeetingHeld Criterion = "gateway_meeting_held"
)

// GatewayCriteria is the fixed, ordered set of required checklist items.
var GatewayCriteria = []Criterion{
	CriterionPortfolioComplete,
	CriterionPortfolioSignedOff,
	CriterionOJTHoursVerified,
	CriterionEnglishL2,
	CriterionMathsL2,
	CriterionEmployerSatisfied,
	CriterionProviderSatisfied,
	CriterionGatewayMeetingHeld,
}

func (c Criterion) Valid() bool {
	for _, known := range GatewayCriteria {
		if c == known {
			return true
		}
	}
	return false
}

type CriterionState struct {
	Met         bool       `json:"met"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CompletedBy string     `json:"completedBy,omitempty"`
}

type ChecklistKey struct {
	StudentID       string `json:"studentId"`
	QualificationID string `json:"qualificationId"`
}

type GatewayChecklist struct {
	StudentID         string                       `json:"studentId"`
	QualificationID   string                       `json:"qualificationId"`
	Criteria          map[Criterion]CriterionState `json:"criteria"`
	HoursCompleted    int                          `json:"hoursCompleted"`
	HoursRequired     int                          `json:"hoursRequired"`
	GatewayPassed     bool                         `json:"gatewayPassed"`
	GatewayPassedDate *time.Time                   `json:"gatewayPassedDate,omitempty"`
	EPAEligible       bool                         `json:"epaEligible"`
	EPABookedDate     *time.Time                   `json:"epaBookedDate,omitempty"`
	EPABookedBy       string                       `json:"epaBookedBy,omitempty"`
	Version           int64                        `json:"version"`
	CreatedAt         time.Time                    `json:"createdAt"`
	UpdatedAt         time.Time                    `json:"updatedAt"`
}

func NewGatewayChecklist(key ChecklistKey, hoursRequired int, now time.Time) *GatewayChecklist {
	criteria := make(map[Criterion]CriterionState, len(GatewayCriteria))
	for _, c := range GatewayCriteria {
		criteria[c] = CriterionState{}
	}
	return &GatewayChecklist{
		StudentID:       key.StudentID,
		QualificationID: key.QualificationID,
		Criteria:        criteria,
		HoursRequired:   hoursRequired,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (g *GatewayChecklist) Key() ChecklistKey {
	return ChecklistKey{StudentID: g.StudentID, QualificationID: g.QualificationID}
}

func (g GatewayChecklist) Clone() GatewayChecklist {
	out := g
	out.Criteria = make(map[Criterion]CriterionState, len(g.Criteria))
	for k, v := range g.Criteria {
		out.Criteria[k] = v
	}
	return out
}

type Readiness string

const (
	ReadinessGatewayPassed Readiness = "gateway_passed"
	ReadinessReady         Readiness = "ready"
	ReadinessNearlyReady   Readiness = "nearly_ready"
	ReadinessNotReady      Readiness = "not_ready"
)

const WarningEPABookedBeforeEligible = "epa_booked_before_eligible"

// GatewayStatus is the derived view of a checklist.
type GatewayStatus struct {
	Checklist       GatewayChecklist `json:"checklist"`
	CompletedItems  int              `json:"completedItems"`
	RequiredItems   int              `json:"requiredItems"`
	OverallProgress int              `json:"overallProgress"`
	ReadinessStatus Readiness        `json:"readinessStatus"`
	Warnings        []string         `json:"warnings,omitempty"`
}
