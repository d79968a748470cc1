// internal/models/notification.go
package models

import "time"

type NotificationKind string

const (
	NotifyFeedback          NotificationKind = "feedback"
	NotifyEvidenceRequested NotificationKind = "evidence-requested"
	NotifySignedOff         NotificationKind = "signed-off"
	NotifyIQASampled        NotificationKind = "iqa-sampled"
	NotifyIQAVerified       NotificationKind = "iqa-verified"
	NotifyGatewayUpdate     NotificationKind = "gateway-update"
	NotifyGatewayPassed     NotificationKind = "gateway-passed"
)

type NotificationEvent struct {
	StudentID  string                 `json:"studentId"`
	Kind       NotificationKind       `json:"kind"`
	Payload    map[string]interface{} `json:"payload"`
	OccurredAt time.Time              `json:"occurredAt"`
}
