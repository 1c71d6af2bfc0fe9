package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spotdesk/spot-service/internal/domain"
	"github.com/spotdesk/spot-service/internal/repository"
	apperrors "github.com/spotdesk/spot-service/pkg/util"
)

// MappingService administers the assignee routing table.
type MappingService struct {
	mappings  repository.MappingRepository
	employees repository.EmployeeRepository
}

// NewMappingService constructs the service.
func NewMappingService(mappings repository.MappingRepository, employees repository.EmployeeRepository) *MappingService {
	return &MappingService{mappings: mappings, employees: employees}
}

// List returns all routing rules.
func (s *MappingService) List(ctx context.Context) ([]domain.AssigneeMapping, error) {
	return s.mappings.List(ctx)
}

// Create adds a routing rule. The five-tuple must be complete and unique,
// and the assignee must exist in the directory.
func (s *MappingService) Create(ctx context.Context, mapping *domain.AssigneeMapping) (*domain.AssigneeMapping, error) {
	if !mapping.Key().Complete() {
		return nil, apperrors.NewValidationError("all five routing fields are required", nil)
	}
	if mapping.AssigneeEmpID == "" {
		return nil, apperrors.NewValidationError("assignee employee id is required", nil)
	}
	if _, err := s.employees.GetByID(ctx, mapping.AssigneeEmpID); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewAssigneeDirectoryMismatch(mapping.AssigneeEmpID)
		}
		return nil, err
	}
	if err := s.mappings.Create(ctx, mapping); err != nil {
		return nil, err
	}
	return mapping, nil
}

// Delete removes a routing rule by id.
func (s *MappingService) Delete(ctx context.Context, id int64) error {
	if err := s.mappings.Delete(ctx, id); err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("mapping", map[string]any{"id": id})
		}
		return err
	}
	return nil
}
