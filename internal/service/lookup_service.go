package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spotdesk/spot-service/internal/domain"
	"github.com/spotdesk/spot-service/internal/repository"
	apperrors "github.com/spotdesk/spot-service/pkg/util"
)

// ResolvedAssignee is the outcome of a routing lookup: the employee the
// ticket goes to and their directory department/sub-department.
type ResolvedAssignee struct {
	EmpID   string
	Dept    string
	SubDept string
}

// LookupService resolves new tickets to assignees through the static
// five-tuple mapping table. Pure lookup, no side effects.
type LookupService struct {
	mappings  repository.MappingRepository
	employees repository.EmployeeRepository
}

// NewLookupService constructs the service.
func NewLookupService(mappings repository.MappingRepository, employees repository.EmployeeRepository) *LookupService {
	return &LookupService{mappings: mappings, employees: employees}
}

// ResolveAssignee finds the mapping matching the key exactly and cross-checks
// the assignee against the employee directory. A routing miss aborts ticket
// creation; there is no default or unassigned fallback.
func (s *LookupService) ResolveAssignee(ctx context.Context, key domain.RouteKey) (*ResolvedAssignee, error) {
	if !key.Complete() {
		return nil, apperrors.NewValidationError("all five routing fields are required", map[string]any{
			"location":   key.Location,
			"department": key.Department,
			"sub_dept":   key.SubDept,
			"sub_task":   key.SubTask,
			"task_label": key.TaskLabel,
		})
	}

	mapping, err := s.mappings.Resolve(ctx, key)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNoAssigneeFound(map[string]any{
				"location":   key.Location,
				"department": key.Department,
				"sub_dept":   key.SubDept,
				"sub_task":   key.SubTask,
				"task_label": key.TaskLabel,
			})
		}
		return nil, err
	}

	assignee, err := s.employees.GetByID(ctx, mapping.AssigneeEmpID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewAssigneeDirectoryMismatch(mapping.AssigneeEmpID)
		}
		return nil, err
	}
	if assignee.Department == "" || assignee.SubDept == "" {
		return nil, apperrors.NewAssigneeDirectoryMismatch(mapping.AssigneeEmpID)
	}

	return &ResolvedAssignee{
		EmpID:   assignee.EmpID,
		Dept:    assignee.Department,
		SubDept: assignee.SubDept,
	}, nil
}
