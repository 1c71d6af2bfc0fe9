package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	StatusInProgress TicketStatus = "In-Progress"
	StatusOverdue    TicketStatus = "Overdue"
	StatusResolved   TicketStatus = "Resolved"
	StatusClosed     TicketStatus = "Closed"
)

// Valid reports whether s is a known status value.
func (s TicketStatus) Valid() bool {
	switch s {
	case StatusInProgress, StatusOverdue, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are permitted.
func (s TicketStatus) Terminal() bool {
	return s == StatusClosed
}

// allowedTransitions is the full edge set of the ticket state machine.
// Closed has no outgoing edges for any actor, including the sweeper.
var allowedTransitions = map[TicketStatus][]TicketStatus{
	StatusInProgress: {StatusOverdue, StatusResolved},
	StatusOverdue:    {StatusInProgress, StatusResolved},
	StatusResolved:   {StatusClosed, StatusInProgress},
	StatusClosed:     {},
}

// CanTransition reports whether the edge current -> next is legal.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	PriorityHigh   TicketPriority = "High"
	PriorityMedium TicketPriority = "Medium"
	PriorityLow    TicketPriority = "Low"
)

// Valid reports whether p is a known priority value.
func (p TicketPriority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Ticket is the aggregate for reported incidents. TicketNumber is assigned
// exactly once at creation and never changes afterwards.
type Ticket struct {
	TicketNumber string
	Type         string
	Title        string
	Description  string
	Priority     TicketPriority
	Status       TicketStatus

	Department string
	SubDept    string
	SubTask    string
	TaskLabel  string

	ReporterEmpID      string
	ReporterLocation   string
	ReporterDepartment string

	AssigneeEmpID   string
	AssigneeDept    string
	AssigneeSubDept string

	CreationDate           time.Time
	IncidentReportedDate   time.Time
	IncidentReportedTime   string
	ExpectedCompletionDate *time.Time
	ITIncidentDate         *time.Time
	ITIncidentTime         *string
	ITAckFlag              bool
	ITAckTimestamp         *time.Time

	Attachment *string
}

// IsOverdue reports whether the ticket counts as overdue for listings and
// dashboard figures. A ticket is overdue when its status was explicitly set
// to Overdue, or when the expected completion date has passed while the
// ticket is still open. Resolved and Closed tickets are never overdue.
func (t *Ticket) IsOverdue(now time.Time) bool {
	if t.Status == StatusOverdue {
		return true
	}
	if t.Status == StatusResolved || t.Status == StatusClosed {
		return false
	}
	if t.ExpectedCompletionDate == nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return t.ExpectedCompletionDate.Before(today)
}

// StatusCounts aggregates tickets per displayed state for dashboards.
// Overdue includes date-derived overdue tickets, not just the stored status.
type StatusCounts struct {
	Total      int `json:"total"`
	InProgress int `json:"inProgress"`
	Overdue    int `json:"overdue"`
	Resolved   int `json:"resolved"`
	Closed     int `json:"closed"`
	Unassigned int `json:"unassigned"`
}

// CountStatuses tallies the given tickets as of now. Tickets without an
// expected completion date count as unassigned.
func CountStatuses(tickets []Ticket, now time.Time) StatusCounts {
	var counts StatusCounts
	for i := range tickets {
		t := &tickets[i]
		counts.Total++
		if t.ExpectedCompletionDate == nil {
			counts.Unassigned++
		}
		switch {
		case t.Status == StatusClosed:
			counts.Closed++
		case t.Status == StatusResolved:
			counts.Resolved++
		case t.IsOverdue(now):
			counts.Overdue++
		default:
			counts.InProgress++
		}
	}
	return counts
}
