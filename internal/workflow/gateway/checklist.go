package gateway

import (
	"time"

	"portfolio-workers/internal/models"
)

const nearlyReadyThreshold = 75

// SetCriterion ticks or clears one criterion. A met criterion without an
// explicit date is stamped with now; clearing drops the date and actor.
func SetCriterion(c *models.GatewayChecklist, key models.Criterion, met bool, date *time.Time, actorID string, now time.Time) {
	if !met {
		c.Criteria[key] = models.CriterionState{}
		return
	}
	at := now
	if date != nil {
		at = date.UTC()
	}
	c.Criteria[key] = models.CriterionState{Met: true, CompletedAt: &at, CompletedBy: actorID}
}

// SetHours records completed hours and derives the OJT criterion from them.
// The criterion keeps its original date while it stays met.
func SetHours(c *models.GatewayChecklist, hours int, actorID string, now time.Time) {
	c.HoursCompleted = hours
	verified := c.HoursRequired > 0 && c.HoursCompleted >= c.HoursRequired
	current := c.Criteria[models.CriterionOJTHoursVerified]
	if verified && current.Met {
		return
	}
	SetCriterion(c, models.CriterionOJTHoursVerified, verified, nil, actorID, now)
}

// Recompute applies the pass ratchet. It reports true only on the call that
// first passes the gateway; a passed gateway is never reopened here.
func Recompute(c *models.GatewayChecklist, now time.Time) bool {
	if c.GatewayPassed {
		return false
	}
	if MetCount(c) < len(models.GatewayCriteria) {
		return false
	}
	c.GatewayPassed = true
	c.GatewayPassedDate = &now
	c.EPAEligible = true
	return true
}

func MetCount(c *models.GatewayChecklist) int {
	n := 0
	for _, key := range models.GatewayCriteria {
		if c.Criteria[key].Met {
			n++
		}
	}
	return n
}

// Derive builds the read view of a checklist.
func Derive(c models.GatewayChecklist) models.GatewayStatus {
	met := MetCount(&c)
	required := len(models.GatewayCriteria)
	progress := met * 100 / required

	status := models.GatewayStatus{
		Checklist:       c,
		CompletedItems:  met,
		RequiredItems:   required,
		OverallProgress: progress,
	}
	switch {
	case c.GatewayPassed:
		status.ReadinessStatus = models.ReadinessGatewayPassed
	case progress == 100:
		status.ReadinessStatus = models.ReadinessReady
	case progress >= nearlyReadyThreshold:
		status.ReadinessStatus = models.ReadinessNearlyReady
	default:
		status.ReadinessStatus = models.ReadinessNotReady
	}
	if c.EPABookedDate != nil && !c.EPAEligible {
		status.Warnings = append(status.Warnings, models.WarningEPABookedBeforeEligible)
	}
	return status
}
