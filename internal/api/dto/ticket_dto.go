package dto

import (
	"time"

	"github.com/spotdesk/spot-service/internal/domain"
)

// CreateTicketRequest payload. Dates use YYYY-MM-DD.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`

	Department string `json:"department"`
	SubDept    string `json:"sub_dept"`
	SubTask    string `json:"sub_task"`
	TaskLabel  string `json:"task_label"`

	IncidentReportedDate *string `json:"incident_reported_date"`
	IncidentReportedTime *string `json:"incident_reported_time"`
	ITIncidentDate       *string `json:"it_incident_date"`
	ITIncidentTime       *string `json:"it_incident_time"`
	Attachment           *string `json:"attachment"`
}

// UpdateTicketRequest payload. Absent fields stay unchanged. An empty
// expected_completion_date string clears the date.
type UpdateTicketRequest struct {
	Status                 *string `json:"status"`
	Priority               *string `json:"priority"`
	ExpectedCompletionDate *string `json:"expected_completion_date"`
	AssigneeEmpID          *string `json:"assignee_emp_id"`
	AssigneeDept           *string `json:"assignee_dept"`
	AssigneeSubDept        *string `json:"assignee_sub_dept"`
	ITIncidentDate         *string `json:"it_incident_date"`
	ITIncidentTime         *string `json:"it_incident_time"`
	Comment                string  `json:"comment"`
}

// ResolutionRequest payload for the reporter's accept/reject decision.
type ResolutionRequest struct {
	Action  string `json:"action"`
	Comment string `json:"comment"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	TicketNumber string `json:"ticket_number"`
	Type         string `json:"type"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Priority     string `json:"priority"`
	Status       string `json:"status"`
	IsOverdue    bool   `json:"is_overdue"`

	Department string `json:"department"`
	SubDept    string `json:"sub_dept"`
	SubTask    string `json:"sub_task"`
	TaskLabel  string `json:"task_label"`

	ReporterEmpID      string `json:"reporter_emp_id"`
	ReporterLocation   string `json:"reporter_location"`
	ReporterDepartment string `json:"reporter_department"`

	AssigneeEmpID   string `json:"assignee_emp_id"`
	AssigneeDept    string `json:"assignee_dept"`
	AssigneeSubDept string `json:"assignee_sub_dept"`

	CreationDate           time.Time  `json:"creation_date"`
	IncidentReportedDate   time.Time  `json:"incident_reported_date"`
	IncidentReportedTime   string     `json:"incident_reported_time"`
	ExpectedCompletionDate *time.Time `json:"expected_completion_date"`
	ITIncidentDate         *time.Time `json:"it_incident_date"`
	ITIncidentTime         *string    `json:"it_incident_time"`
	ITAckFlag              bool       `json:"it_ack_flag"`
	ITAckTimestamp         *time.Time `json:"it_ack_timestamp"`

	Attachment *string `json:"attachment"`
}

// HistoryResponse is one audit trail entry.
type HistoryResponse struct {
	ID          int64     `json:"id"`
	ActionType  string    `json:"action_type"`
	Actor       string    `json:"actor"`
	IsSystem    bool      `json:"is_system"`
	BeforeState *string   `json:"before_state"`
	AfterState  *string   `json:"after_state"`
	Comment     string    `json:"comment"`
	Timestamp   time.Time `json:"timestamp"`
	IsRead      bool      `json:"is_read"`
}

// TicketFromDomain maps a ticket for responses.
func TicketFromDomain(t *domain.Ticket, now time.Time) TicketResponse {
	return TicketResponse{
		TicketNumber:           t.TicketNumber,
		Type:                   t.Type,
		Title:                  t.Title,
		Description:            t.Description,
		Priority:               string(t.Priority),
		Status:                 string(t.Status),
		IsOverdue:              t.IsOverdue(now),
		Department:             t.Department,
		SubDept:                t.SubDept,
		SubTask:                t.SubTask,
		TaskLabel:              t.TaskLabel,
		ReporterEmpID:          t.ReporterEmpID,
		ReporterLocation:       t.ReporterLocation,
		ReporterDepartment:     t.ReporterDepartment,
		AssigneeEmpID:          t.AssigneeEmpID,
		AssigneeDept:           t.AssigneeDept,
		AssigneeSubDept:        t.AssigneeSubDept,
		CreationDate:           t.CreationDate,
		IncidentReportedDate:   t.IncidentReportedDate,
		IncidentReportedTime:   t.IncidentReportedTime,
		ExpectedCompletionDate: t.ExpectedCompletionDate,
		ITIncidentDate:         t.ITIncidentDate,
		ITIncidentTime:         t.ITIncidentTime,
		ITAckFlag:              t.ITAckFlag,
		ITAckTimestamp:         t.ITAckTimestamp,
		Attachment:             t.Attachment,
	}
}

// HistoryFromDomain maps an audit record for responses.
func HistoryFromDomain(r *domain.HistoryRecord) HistoryResponse {
	return HistoryResponse{
		ID:          r.ID,
		ActionType:  string(r.ActionType),
		Actor:       r.Actor.UserID(),
		IsSystem:    r.Actor.IsSystem(),
		BeforeState: r.BeforeState,
		AfterState:  r.AfterState,
		Comment:     r.Comment,
		Timestamp:   r.Timestamp,
		IsRead:      r.IsRead,
	}
}
