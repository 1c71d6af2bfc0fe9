package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spotdesk/spot-service/internal/config"
	"github.com/spotdesk/spot-service/internal/domain"
	"github.com/spotdesk/spot-service/internal/events"
	"github.com/spotdesk/spot-service/internal/mailer"
	"github.com/spotdesk/spot-service/internal/repository"
	apperrors "github.com/spotdesk/spot-service/pkg/util"
)

// NotificationService turns committed ticket changes into outbound emails
// and serves the in-app notification inbox built on the history table.
// Delivery is best-effort: failures are logged and never surface to the
// request that triggered them.
type NotificationService struct {
	dispatcher events.Dispatcher
	employees  repository.EmployeeRepository
	tickets    repository.TicketRepository
	history    repository.HistoryRepository
	sender     mailer.Sender
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(
	dispatcher events.Dispatcher,
	employees repository.EmployeeRepository,
	tickets repository.TicketRepository,
	history repository.HistoryRepository,
	sender mailer.Sender,
	logger *zap.Logger,
	cfg config.NotificationConfig,
) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		employees:  employees,
		tickets:    tickets,
		history:    history,
		sender:     sender,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketUpdated, n.handleTicketUpdated)
	n.dispatcher.Subscribe(events.EventTicketAutoClosed, n.handleTicketAutoClosed)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	n.notify(ctx, payload.ReporterEmpID, event.TicketNumber,
		fmt.Sprintf("Ticket %s registered", event.TicketNumber),
		fmt.Sprintf("Your ticket %q has been registered and assigned. You will be notified as it progresses.", payload.Title))
	n.notify(ctx, payload.AssigneeEmpID, event.TicketNumber,
		fmt.Sprintf("Ticket %s assigned to you", event.TicketNumber),
		fmt.Sprintf("A new ticket %q has been assigned to you.", payload.Title))
	return nil
}

// handleTicketUpdated applies the dispatch rules over the full change batch
// of one update. Multiple rules can fire; each sends one email to one
// recipient.
func (n *NotificationService) handleTicketUpdated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketUpdatedPayload)
	if !ok {
		return nil
	}

	for _, change := range payload.Changes {
		if change.Field != domain.ActionStatus || change.After == nil {
			continue
		}
		switch domain.TicketStatus(*change.After) {
		case domain.StatusResolved:
			n.notify(ctx, payload.ReporterEmpID, event.TicketNumber,
				fmt.Sprintf("Ticket %s resolved", event.TicketNumber),
				"Your ticket has been marked resolved. Please accept or reject the resolution; otherwise it will close automatically after the grace period.")
		case domain.StatusClosed:
			n.notify(ctx, payload.ReporterEmpID, event.TicketNumber,
				fmt.Sprintf("Ticket %s closed", event.TicketNumber),
				"Your ticket has been closed.")
		case domain.StatusInProgress:
			n.notify(ctx, payload.AssigneeEmpID, event.TicketNumber,
				fmt.Sprintf("Ticket %s reopened", event.TicketNumber),
				"The reporter rejected the resolution. Please re-address the ticket.")
		}
	}

	for _, change := range payload.Changes {
		if change.Field == domain.ActionExpectedCompletionDate {
			n.notify(ctx, payload.AssigneeEmpID, event.TicketNumber,
				fmt.Sprintf("Ticket %s deadline changed", event.TicketNumber),
				"The expected completion date of the ticket has changed.")
			break
		}
	}

	if hasAssigneeChange(payload.Changes) {
		n.notify(ctx, payload.AssigneeEmpID, event.TicketNumber,
			fmt.Sprintf("Ticket %s assigned to you", event.TicketNumber),
			"The ticket has been reassigned and you are now responsible for it.")
	}
	return nil
}

func (n *NotificationService) handleTicketAutoClosed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAutoClosedPayload)
	if !ok {
		return nil
	}
	n.notify(ctx, payload.ReporterEmpID, event.TicketNumber,
		fmt.Sprintf("Ticket %s closed", event.TicketNumber),
		"Your resolved ticket received no response within the grace period and has been closed automatically.")
	return nil
}

func hasAssigneeChange(changes []events.ChangeSummary) bool {
	for _, change := range changes {
		for _, action := range domain.AssigneeActions {
			if change.Field == action {
				return true
			}
		}
	}
	return false
}

// notify resolves the employee's address and sends one email. Failures are
// logged, never returned.
func (n *NotificationService) notify(ctx context.Context, empID, ticketNumber, subject, body string) {
	if empID == "" || n.sender == nil {
		return
	}
	employee, err := n.employees.GetByID(ctx, empID)
	if err != nil {
		n.logger.Warn("notification recipient lookup failed",
			zap.String("emp_id", empID),
			zap.String("ticket_number", ticketNumber),
			zap.Error(err))
		return
	}
	msg := mailer.Message{
		To:       []string{employee.Email},
		Subject:  subject,
		HTMLBody: fmt.Sprintf("<p>%s</p>", body),
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		n.logger.Warn("notification delivery failed",
			zap.String("emp_id", empID),
			zap.String("ticket_number", ticketNumber),
			zap.String("subject", subject),
			zap.Error(err))
	}
}

// Inbox returns history entries on the employee's tickets authored by
// someone else, which double as in-app notifications.
func (n *NotificationService) Inbox(ctx context.Context, empID string, filter repository.ReadFilter) ([]domain.HistoryRecord, error) {
	numbers, err := n.tickets.NumbersForParticipant(ctx, empID)
	if err != nil {
		return nil, err
	}
	return n.history.ListForRecipient(ctx, empID, numbers, filter)
}

// InboxCounts returns read/unread totals for the employee's inbox.
func (n *NotificationService) InboxCounts(ctx context.Context, empID string) (repository.NotificationCounts, error) {
	numbers, err := n.tickets.NumbersForParticipant(ctx, empID)
	if err != nil {
		return repository.NotificationCounts{}, err
	}
	return n.history.CountsForRecipient(ctx, empID, numbers)
}

// MarkRead flips one notification's read flag.
func (n *NotificationService) MarkRead(ctx context.Context, id int64) error {
	updated, err := n.history.MarkRead(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("notification", map[string]any{"id": id})
		}
		return err
	}
	if !updated {
		return apperrors.NewNotFound("notification", map[string]any{"id": id})
	}
	return nil
}
