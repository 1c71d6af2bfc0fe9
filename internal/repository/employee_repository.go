package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spotdesk/spot-service/internal/domain"
)

// EmployeeRepository reads the employee master directory and the department
// head table. Both are reference data maintained outside the ticket flows.
type EmployeeRepository interface {
	GetByID(ctx context.Context, empID string) (*domain.Employee, error)
	GetByEmail(ctx context.Context, email string) (*domain.Employee, error)
	// IsHODFor reports whether empID heads the given department.
	IsHODFor(ctx context.Context, empID, department string) (bool, error)
}

type employeeRepository struct {
	db Querier
}

// NewEmployeeRepository builds the repository.
func NewEmployeeRepository(db Querier) EmployeeRepository {
	return &employeeRepository{db: db}
}

const employeeColumns = `emp_id, name, email, department, sub_dept, location, active`

func (r *employeeRepository) GetByID(ctx context.Context, empID string) (*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE emp_id=$1`
	return scanEmployee(r.db.QueryRow(ctx, query, empID))
}

func (r *employeeRepository) GetByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE LOWER(email)=LOWER($1)`
	return scanEmployee(r.db.QueryRow(ctx, query, email))
}

func (r *employeeRepository) IsHODFor(ctx context.Context, empID, department string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM department_heads WHERE emp_id=$1 AND department=$2)`
	if err := r.db.QueryRow(ctx, query, empID, department).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func scanEmployee(row pgx.Row) (*domain.Employee, error) {
	var emp domain.Employee
	if err := row.Scan(
		&emp.EmpID,
		&emp.Name,
		&emp.Email,
		&emp.Department,
		&emp.SubDept,
		&emp.Location,
		&emp.Active,
	); err != nil {
		return nil, err
	}
	return &emp, nil
}
