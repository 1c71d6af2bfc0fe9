package dto

import "github.com/spotdesk/spot-service/internal/domain"

// CreateMappingRequest payload.
type CreateMappingRequest struct {
	Location      string `json:"location"`
	Department    string `json:"department"`
	SubDept       string `json:"sub_dept"`
	SubTask       string `json:"sub_task"`
	TaskLabel     string `json:"task_label"`
	TicketType    string `json:"ticket_type"`
	AssigneeEmpID string `json:"assignee_emp_id"`
}

// MappingResponse is one routing rule.
type MappingResponse struct {
	ID            int64  `json:"id"`
	Location      string `json:"location"`
	Department    string `json:"department"`
	SubDept       string `json:"sub_dept"`
	SubTask       string `json:"sub_task"`
	TaskLabel     string `json:"task_label"`
	TicketType    string `json:"ticket_type"`
	AssigneeEmpID string `json:"assignee_emp_id"`
}

// MappingFromDomain maps a rule for responses.
func MappingFromDomain(m *domain.AssigneeMapping) MappingResponse {
	return MappingResponse{
		ID:            m.ID,
		Location:      m.Location,
		Department:    m.Department,
		SubDept:       m.SubDept,
		SubTask:       m.SubTask,
		TaskLabel:     m.TaskLabel,
		TicketType:    m.TicketType,
		AssigneeEmpID: m.AssigneeEmpID,
	}
}
