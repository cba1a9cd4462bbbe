// Package domain defines the intervention lifecycle vocabulary.
package domain

// Status is the lifecycle state of an intervention. The chain is strictly
// forward-only: SCHEDULED -> IN_PROGRESS -> COMPLETED -> VALIDATED.
type Status string

const (
	StatusScheduled  Status = "SCHEDULED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusValidated  Status = "VALIDATED"
)

// OpenStatuses are the states counting toward a technician's current load.
var OpenStatuses = []Status{StatusScheduled, StatusInProgress}

// AllStatuses lists every lifecycle state in chain order.
var AllStatuses = []Status{StatusScheduled, StatusInProgress, StatusCompleted, StatusValidated}

// ValidStatus reports whether the value is a known lifecycle state.
func ValidStatus(value string) bool {
	switch Status(value) {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusValidated:
		return true
	}
	return false
}

// CanTransition reports whether moving from current to next is a legal
// single step along the chain. Same-status moves are handled by the caller
// as no-ops, not here.
func CanTransition(current, next Status) bool {
	switch current {
	case StatusScheduled:
		return next == StatusInProgress
	case StatusInProgress:
		return next == StatusCompleted
	case StatusCompleted:
		return next == StatusValidated
	case StatusValidated:
		return false
	}
	return false
}

// AssignmentMode selects how a technician is attached to an intervention.
type AssignmentMode string

const (
	AssignmentManual AssignmentMode = "MANUAL"
	AssignmentAuto   AssignmentMode = "AUTO"
)

// ValidAssignmentMode reports whether the value is a known assignment mode.
func ValidAssignmentMode(value string) bool {
	switch AssignmentMode(value) {
	case AssignmentManual, AssignmentAuto:
		return true
	}
	return false
}
