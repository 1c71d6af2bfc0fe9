package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spotdesk/spot-service/internal/domain"
	apperrors "github.com/spotdesk/spot-service/pkg/util"
)

// MappingRepository manages the static assignee routing rules and the
// per-sub-department ticket number prefixes.
type MappingRepository interface {
	Resolve(ctx context.Context, key domain.RouteKey) (*domain.AssigneeMapping, error)
	List(ctx context.Context) ([]domain.AssigneeMapping, error)
	Create(ctx context.Context, mapping *domain.AssigneeMapping) error
	Delete(ctx context.Context, id int64) error
	PrefixForSubDept(ctx context.Context, subDept string) (string, error)
}

type mappingRepository struct {
	db Querier
}

// NewMappingRepository builds the repository.
func NewMappingRepository(db Querier) MappingRepository {
	return &mappingRepository{db: db}
}

const mappingColumns = `id, location, department, sub_dept, sub_task, task_label, ticket_type, assignee_emp_id`

func (r *mappingRepository) Resolve(ctx context.Context, key domain.RouteKey) (*domain.AssigneeMapping, error) {
	query := `SELECT ` + mappingColumns + `
        FROM assignee_mappings
        WHERE location=$1 AND department=$2 AND sub_dept=$3 AND sub_task=$4 AND task_label=$5`
	var mapping domain.AssigneeMapping
	err := r.db.QueryRow(ctx, query,
		key.Location, key.Department, key.SubDept, key.SubTask, key.TaskLabel,
	).Scan(
		&mapping.ID,
		&mapping.Location,
		&mapping.Department,
		&mapping.SubDept,
		&mapping.SubTask,
		&mapping.TaskLabel,
		&mapping.TicketType,
		&mapping.AssigneeEmpID,
	)
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

func (r *mappingRepository) List(ctx context.Context) ([]domain.AssigneeMapping, error) {
	query := `SELECT ` + mappingColumns + ` FROM assignee_mappings ORDER BY id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AssigneeMapping
	for rows.Next() {
		var mapping domain.AssigneeMapping
		if err := rows.Scan(
			&mapping.ID,
			&mapping.Location,
			&mapping.Department,
			&mapping.SubDept,
			&mapping.SubTask,
			&mapping.TaskLabel,
			&mapping.TicketType,
			&mapping.AssigneeEmpID,
		); err != nil {
			return nil, err
		}
		result = append(result, mapping)
	}
	return result, rows.Err()
}

func (r *mappingRepository) Create(ctx context.Context, mapping *domain.AssigneeMapping) error {
	const query = `
        INSERT INTO assignee_mappings (location, department, sub_dept, sub_task, task_label, ticket_type, assignee_emp_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id`
	err := r.db.QueryRow(ctx, query,
		mapping.Location,
		mapping.Department,
		mapping.SubDept,
		mapping.SubTask,
		mapping.TaskLabel,
		mapping.TicketType,
		mapping.AssigneeEmpID,
	).Scan(&mapping.ID)
	if err != nil && isUniqueViolation(err) {
		return apperrors.NewConflict("a mapping already exists for this routing key", map[string]any{
			"location":   mapping.Location,
			"department": mapping.Department,
			"sub_dept":   mapping.SubDept,
			"sub_task":   mapping.SubTask,
			"task_label": mapping.TaskLabel,
		})
	}
	return err
}

func (r *mappingRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM assignee_mappings WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *mappingRepository) PrefixForSubDept(ctx context.Context, subDept string) (string, error) {
	var prefix string
	err := r.db.QueryRow(ctx, `SELECT prefix FROM subdept_prefixes WHERE sub_dept=$1`, subDept).Scan(&prefix)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return prefix, nil
}
