package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spotdesk/spot-service/internal/domain"
)

// TicketFilter captures listing parameters. Exactly one scope field is
// normally set, matching the listing modes of the ticket screens.
type TicketFilter struct {
	AssigneeEmpID      *string
	ReporterEmpID      *string
	ReporterDepartment *string
	AssigneeDept       *string
	Statuses           []domain.TicketStatus
	CreatedBefore      *time.Time
	Limit              int
	Offset             int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	WithTx(tx pgx.Tx) TicketRepository
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByNumber(ctx context.Context, ticketNumber string) (*domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) error
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListNumbersByStatus(ctx context.Context, status domain.TicketStatus) ([]string, error)
	NumbersForParticipant(ctx context.Context, empID string) ([]string, error)

	// AcquireNumberLock serializes ticket number generation for one
	// prefix+date key until the surrounding transaction ends.
	AcquireNumberLock(ctx context.Context, key string) error
	// LastNumberForDay returns the highest existing ticket number for the
	// prefix on the given YYYYMMDD day, or "" when none exist yet.
	LastNumberForDay(ctx context.Context, prefix, day string) (string, error)

	// CloseIfStatus atomically moves the ticket to Closed when its current
	// status still equals expected. Returns false when another writer got
	// there first.
	CloseIfStatus(ctx context.Context, ticketNumber string, expected domain.TicketStatus) (bool, error)
	// Acknowledge flips the IT ack flag once. Returns the stamped time and
	// false when the ticket was already acknowledged.
	Acknowledge(ctx context.Context, ticketNumber string, at time.Time) (bool, error)
}

type ticketRepository struct {
	db Querier
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db Querier) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) WithTx(tx pgx.Tx) TicketRepository {
	return &ticketRepository{db: tx}
}

const ticketColumns = `ticket_number, ticket_type, title, description, priority, status,
               department, sub_dept, sub_task, task_label,
               reporter_emp_id, reporter_location, reporter_department,
               assignee_emp_id, assignee_dept, assignee_sub_dept,
               creation_date, incident_reported_date, incident_reported_time,
               expected_completion_date, it_incident_date, it_incident_time,
               it_ack_flag, it_ack_timestamp, attachment`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_number, ticket_type, title, description, priority, status,
            department, sub_dept, sub_task, task_label,
            reporter_emp_id, reporter_location, reporter_department,
            assignee_emp_id, assignee_dept, assignee_sub_dept,
            creation_date, incident_reported_date, incident_reported_time,
            expected_completion_date, it_incident_date, it_incident_time,
            it_ack_flag, it_ack_timestamp, attachment)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)`
	_, err := r.db.Exec(ctx, query,
		ticket.TicketNumber,
		ticket.Type,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.Department,
		ticket.SubDept,
		ticket.SubTask,
		ticket.TaskLabel,
		ticket.ReporterEmpID,
		ticket.ReporterLocation,
		ticket.ReporterDepartment,
		ticket.AssigneeEmpID,
		ticket.AssigneeDept,
		ticket.AssigneeSubDept,
		ticket.CreationDate,
		ticket.IncidentReportedDate,
		ticket.IncidentReportedTime,
		ticket.ExpectedCompletionDate,
		ticket.ITIncidentDate,
		ticket.ITIncidentTime,
		ticket.ITAckFlag,
		ticket.ITAckTimestamp,
		ticket.Attachment,
	)
	return err
}

func (r *ticketRepository) GetByNumber(ctx context.Context, ticketNumber string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_number=$1`
	var ticket domain.Ticket
	if err := scanTicket(r.db.QueryRow(ctx, query, ticketNumber), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET priority=$1, status=$2,
            assignee_emp_id=$3, assignee_dept=$4, assignee_sub_dept=$5,
            expected_completion_date=$6, it_incident_date=$7, it_incident_time=$8,
            it_ack_flag=$9, it_ack_timestamp=$10
        WHERE ticket_number=$11`
	cmd, err := r.db.Exec(ctx, query,
		ticket.Priority,
		ticket.Status,
		ticket.AssigneeEmpID,
		ticket.AssigneeDept,
		ticket.AssigneeSubDept,
		ticket.ExpectedCompletionDate,
		ticket.ITIncidentDate,
		ticket.ITIncidentTime,
		ticket.ITAckFlag,
		ticket.ITAckTimestamp,
		ticket.TicketNumber,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.AssigneeEmpID != nil {
		args = append(args, *filter.AssigneeEmpID)
		clauses = append(clauses, fmt.Sprintf("assignee_emp_id=$%d", len(args)))
	}
	if filter.ReporterEmpID != nil {
		args = append(args, *filter.ReporterEmpID)
		clauses = append(clauses, fmt.Sprintf("reporter_emp_id=$%d", len(args)))
	}
	if filter.ReporterDepartment != nil {
		args = append(args, *filter.ReporterDepartment)
		clauses = append(clauses, fmt.Sprintf("reporter_department=$%d", len(args)))
	}
	if filter.AssigneeDept != nil {
		args = append(args, *filter.AssigneeDept)
		clauses = append(clauses, fmt.Sprintf("assignee_dept=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		wantOverdue := false
		for i, status := range filter.Statuses {
			if status == domain.StatusOverdue {
				wantOverdue = true
			}
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		statusClause := fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ","))
		if wantOverdue {
			// a date-overdue open ticket counts as Overdue even while its
			// stored status still says In-Progress
			args = append(args, domain.StatusInProgress)
			statusClause = fmt.Sprintf("(%s OR (status=$%d AND expected_completion_date < CURRENT_DATE))",
				statusClause, len(args))
		}
		clauses = append(clauses, statusClause)
	}
	if filter.CreatedBefore != nil {
		args = append(args, *filter.CreatedBefore)
		clauses = append(clauses, fmt.Sprintf("creation_date < $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY creation_date DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListNumbersByStatus(ctx context.Context, status domain.TicketStatus) ([]string, error) {
	const query = `SELECT ticket_number FROM tickets WHERE status=$1 ORDER BY creation_date`
	rows, err := r.db.Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (r *ticketRepository) NumbersForParticipant(ctx context.Context, empID string) ([]string, error) {
	const query = `SELECT ticket_number FROM tickets WHERE assignee_emp_id=$1 OR reporter_emp_id=$1`
	rows, err := r.db.Query(ctx, query, empID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (r *ticketRepository) AcquireNumberLock(ctx context.Context, key string) error {
	_, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key)
	return err
}

func (r *ticketRepository) LastNumberForDay(ctx context.Context, prefix, day string) (string, error) {
	// Underscores are LIKE wildcards and must be escaped for an exact
	// prefix+day match. Ordering by length first keeps four-digit serials
	// above three-digit ones, where plain text ordering would invert them.
	const query = `
        SELECT ticket_number FROM tickets
        WHERE ticket_number LIKE $1 ESCAPE '\'
        ORDER BY length(ticket_number) DESC, ticket_number DESC
        LIMIT 1`
	pattern := strings.ReplaceAll(prefix, "_", `\_`) + `\_` + day + `\_%`
	var number string
	err := r.db.QueryRow(ctx, query, pattern).Scan(&number)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return number, nil
}

func (r *ticketRepository) CloseIfStatus(ctx context.Context, ticketNumber string, expected domain.TicketStatus) (bool, error) {
	const query = `UPDATE tickets SET status=$1 WHERE ticket_number=$2 AND status=$3`
	cmd, err := r.db.Exec(ctx, query, domain.StatusClosed, ticketNumber, expected)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) Acknowledge(ctx context.Context, ticketNumber string, at time.Time) (bool, error) {
	const query = `
        UPDATE tickets SET it_ack_flag=TRUE, it_ack_timestamp=$1
        WHERE ticket_number=$2 AND it_ack_flag=FALSE`
	cmd, err := r.db.Exec(ctx, query, at, ticketNumber)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.TicketNumber,
		&ticket.Type,
		&ticket.Title,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.Department,
		&ticket.SubDept,
		&ticket.SubTask,
		&ticket.TaskLabel,
		&ticket.ReporterEmpID,
		&ticket.ReporterLocation,
		&ticket.ReporterDepartment,
		&ticket.AssigneeEmpID,
		&ticket.AssigneeDept,
		&ticket.AssigneeSubDept,
		&ticket.CreationDate,
		&ticket.IncidentReportedDate,
		&ticket.IncidentReportedTime,
		&ticket.ExpectedCompletionDate,
		&ticket.ITIncidentDate,
		&ticket.ITIncidentTime,
		&ticket.ITAckFlag,
		&ticket.ITAckTimestamp,
		&ticket.Attachment,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func scanStrings(rows pgx.Rows) ([]string, error) {
	var result []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		result = append(result, value)
	}
	return result, rows.Err()
}
