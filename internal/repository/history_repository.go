package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spotdesk/spot-service/internal/domain"
)

// ReadFilter selects notifications by their read flag.
type ReadFilter string

const (
	ReadFilterAll    ReadFilter = "all"
	ReadFilterRead   ReadFilter = "read"
	ReadFilterUnread ReadFilter = "unread"
)

// NotificationCounts summarizes a recipient's notification inbox.
type NotificationCounts struct {
	All    int `json:"all"`
	Read   int `json:"read"`
	Unread int `json:"unread"`
}

// HistoryRepository stores the append-only audit trail. Entries are never
// updated after insert apart from MarkRead flipping the read flag.
type HistoryRepository interface {
	WithTx(tx pgx.Tx) HistoryRepository
	Create(ctx context.Context, record *domain.HistoryRecord) error
	ListByTicket(ctx context.Context, ticketNumber string) ([]domain.HistoryRecord, error)
	// LatestStatusTransition returns the most recent Status record whose
	// after-state equals the given status, or nil when none exists.
	LatestStatusTransition(ctx context.Context, ticketNumber string, after domain.TicketStatus) (*domain.HistoryRecord, error)
	// ListForRecipient returns history rows on the given tickets excluding
	// ones the recipient authored, newest first.
	ListForRecipient(ctx context.Context, recipientUserID string, ticketNumbers []string, filter ReadFilter) ([]domain.HistoryRecord, error)
	CountsForRecipient(ctx context.Context, recipientUserID string, ticketNumbers []string) (NotificationCounts, error)
	MarkRead(ctx context.Context, id int64) (bool, error)
}

type historyRepository struct {
	db Querier
}

// NewHistoryRepository builds repository.
func NewHistoryRepository(db Querier) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) WithTx(tx pgx.Tx) HistoryRepository {
	return &historyRepository{db: tx}
}

func (r *historyRepository) Create(ctx context.Context, record *domain.HistoryRecord) error {
	const query = `
        INSERT INTO ticket_history (ticket_number, user_id, action_type, before_state, after_state, comment, occurred_at, is_read)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		record.TicketNumber,
		record.Actor.UserID(),
		record.ActionType,
		record.BeforeState,
		record.AfterState,
		record.Comment,
		record.Timestamp,
		record.IsRead,
	).Scan(&record.ID)
}

const historyColumns = `id, ticket_number, user_id, action_type, before_state, after_state, comment, occurred_at, is_read`

func (r *historyRepository) ListByTicket(ctx context.Context, ticketNumber string) ([]domain.HistoryRecord, error) {
	query := `SELECT ` + historyColumns + ` FROM ticket_history WHERE ticket_number=$1 ORDER BY occurred_at DESC, id DESC`
	rows, err := r.db.Query(ctx, query, ticketNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistory(rows)
}

func (r *historyRepository) LatestStatusTransition(ctx context.Context, ticketNumber string, after domain.TicketStatus) (*domain.HistoryRecord, error) {
	query := `SELECT ` + historyColumns + `
        FROM ticket_history
        WHERE ticket_number=$1 AND action_type=$2 AND after_state=$3
        ORDER BY occurred_at DESC, id DESC
        LIMIT 1`
	record, err := scanHistoryRow(r.db.QueryRow(ctx, query, ticketNumber, domain.ActionStatus, string(after)))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *historyRepository) ListForRecipient(ctx context.Context, recipientUserID string, ticketNumbers []string, filter ReadFilter) ([]domain.HistoryRecord, error) {
	if len(ticketNumbers) == 0 {
		return []domain.HistoryRecord{}, nil
	}
	args := []any{recipientUserID}
	placeholders := make([]string, len(ticketNumbers))
	for i, number := range ticketNumbers {
		args = append(args, number)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	query := `SELECT ` + historyColumns + `
        FROM ticket_history
        WHERE ticket_number IN (` + strings.Join(placeholders, ",") + `) AND user_id <> $1`
	switch filter {
	case ReadFilterRead:
		query += ` AND is_read = TRUE`
	case ReadFilterUnread:
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY occurred_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistory(rows)
}

func (r *historyRepository) CountsForRecipient(ctx context.Context, recipientUserID string, ticketNumbers []string) (NotificationCounts, error) {
	var counts NotificationCounts
	if len(ticketNumbers) == 0 {
		return counts, nil
	}
	args := []any{recipientUserID}
	placeholders := make([]string, len(ticketNumbers))
	for i, number := range ticketNumbers {
		args = append(args, number)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	query := `
        SELECT COUNT(*),
               COALESCE(SUM(CASE WHEN is_read THEN 1 ELSE 0 END), 0),
               COALESCE(SUM(CASE WHEN is_read THEN 0 ELSE 1 END), 0)
        FROM ticket_history
        WHERE ticket_number IN (` + strings.Join(placeholders, ",") + `) AND user_id <> $1`
	if err := r.db.QueryRow(ctx, query, args...).Scan(&counts.All, &counts.Read, &counts.Unread); err != nil {
		return counts, err
	}
	return counts, nil
}

func (r *historyRepository) MarkRead(ctx context.Context, id int64) (bool, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE ticket_history SET is_read=TRUE WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func scanHistoryRow(row pgx.Row) (*domain.HistoryRecord, error) {
	var record domain.HistoryRecord
	var userID string
	if err := row.Scan(
		&record.ID,
		&record.TicketNumber,
		&userID,
		&record.ActionType,
		&record.BeforeState,
		&record.AfterState,
		&record.Comment,
		&record.Timestamp,
		&record.IsRead,
	); err != nil {
		return nil, err
	}
	record.Actor = domain.ActorFromUserID(userID)
	return &record, nil
}

func scanHistory(rows pgx.Rows) ([]domain.HistoryRecord, error) {
	var result []domain.HistoryRecord
	for rows.Next() {
		var record domain.HistoryRecord
		var userID string
		if err := rows.Scan(
			&record.ID,
			&record.TicketNumber,
			&userID,
			&record.ActionType,
			&record.BeforeState,
			&record.AfterState,
			&record.Comment,
			&record.Timestamp,
			&record.IsRead,
		); err != nil {
			return nil, err
		}
		record.Actor = domain.ActorFromUserID(userID)
		result = append(result, record)
	}
	return result, rows.Err()
}
