package domain

import "time"

// ActionType labels which watched field a history record describes.
type ActionType string

const (
	ActionStatus                 ActionType = "Status"
	ActionPriority               ActionType = "Priority"
	ActionExpectedCompletionDate ActionType = "Expected Completion Date"
	ActionAssigneeDepartment     ActionType = "Assignee Department"
	ActionAssigneeSubDepartment  ActionType = "Assignee Sub-Department"
	ActionAssigneeEmployee       ActionType = "Assignee Employee"
	ActionITAcknowledged         ActionType = "IT Acknowledged"
)

// AssigneeActions are the action types that identify a change of ownership.
// Any of them firing in an update batch means the (new) assignee must be told.
var AssigneeActions = []ActionType{
	ActionAssigneeDepartment,
	ActionAssigneeSubDepartment,
	ActionAssigneeEmployee,
}

// HistoryRecord is an append-only audit entry owned by exactly one ticket.
// Records are never updated or deleted after insert; the read flag is the
// single exception, flipped when the record is consumed as a notification.
type HistoryRecord struct {
	ID           int64
	TicketNumber string
	Actor        Actor
	ActionType   ActionType
	BeforeState  *string
	AfterState   *string
	Comment      string
	Timestamp    time.Time
	IsRead       bool
}
