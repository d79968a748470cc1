// internal/models/assignment.go
package models

type Role string

const (
	RoleTutor    Role = "tutor"
	RoleAssessor Role = "assessor"
	RoleIQA      Role = "iqa"
)

// Assignment links a staff member to a student for one qualification.
type Assignment struct {
	StaffID         string `json:"staffId"`
	StudentID       string `json:"studentId"`
	QualificationID string `json:"qualificationId"`
	Role            Role   `json:"role"`
}

// StudentIDs returns the distinct students across assignments, in first-seen order.
func StudentIDs(assignments []Assignment) []string {
	seen := make(map[string]struct{}, len(assignments))
	out := make([]string, 0, len(assignments))
	for _, a := range assignments {
		if _, ok := seen[a.StudentID]; ok {
			continue
		}
		seen[a.StudentID] = struct{}{}
		out = append(out, a.StudentID)
	}
	return out
}

// FilterRole keeps assignments held in the given role.
func FilterRole(assignments []Assignment, role Role) []Assignment {
	out := make([]Assignment, 0, len(assignments))
	for _, a := range assignments {
		if a.Role == role {
			out = append(out, a)
		}
	}
	return out
}
