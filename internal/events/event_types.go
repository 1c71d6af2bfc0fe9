package events

import (
	"time"

	"github.com/spotdesk/spot-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated    EventType = "ticket_created"
	EventTicketUpdated    EventType = "ticket_updated"
	EventTicketAutoClosed EventType = "ticket_auto_closed"
)

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID           string       `json:"id"`
	Type         EventType    `json:"type"`
	TicketNumber string       `json:"ticket_number"`
	Actor        domain.Actor `json:"actor"`
	Timestamp    time.Time    `json:"timestamp"`
	Payload      interface{}  `json:"payload"`
}

// ChangeSummary mirrors one audit record produced by an update.
type ChangeSummary struct {
	Field   domain.ActionType `json:"field"`
	Before  *string           `json:"before,omitempty"`
	After   *string           `json:"after,omitempty"`
	Comment string            `json:"comment,omitempty"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title         string                `json:"title"`
	Priority      domain.TicketPriority `json:"priority"`
	ReporterEmpID string                `json:"reporter_emp_id"`
	AssigneeEmpID string                `json:"assignee_emp_id"`
}

// TicketUpdatedPayload payload. Changes holds one entry per watched field
// that actually changed, in the order they were recorded.
type TicketUpdatedPayload struct {
	Changes       []ChangeSummary `json:"changes"`
	ReporterEmpID string          `json:"reporter_emp_id"`
	AssigneeEmpID string          `json:"assignee_emp_id"`
	// PreviousAssigneeEmpID is set when the update moved the ticket to a
	// different assignee.
	PreviousAssigneeEmpID *string `json:"previous_assignee_emp_id,omitempty"`
}

// TicketAutoClosedPayload payload.
type TicketAutoClosedPayload struct {
	ReporterEmpID string    `json:"reporter_emp_id"`
	AssigneeEmpID string    `json:"assignee_emp_id"`
	ResolvedAt    time.Time `json:"resolved_at"`
}
