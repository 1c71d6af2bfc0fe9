package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spotdesk/spot-service/internal/domain"
	"github.com/spotdesk/spot-service/internal/events"
	"github.com/spotdesk/spot-service/internal/repository"
	apperrors "github.com/spotdesk/spot-service/pkg/util"
)

// TicketService coordinates ticket workflows: creation with assignee
// routing and number generation, field updates with the audit trail,
// resolution responses and acknowledgement.
type TicketService struct {
	tickets   repository.TicketRepository
	history   repository.HistoryRepository
	employees repository.EmployeeRepository
	lookup    *LookupService
	numbers   *NumberGenerator
	tx        repository.TxRunner
	events    events.Dispatcher
	now       func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	HistoryRepo  repository.HistoryRepository
	EmployeeRepo repository.EmployeeRepository
	Lookup       *LookupService
	Numbers      *NumberGenerator
	Tx           repository.TxRunner
	Dispatcher   events.Dispatcher
	// Now overrides the clock in tests. Defaults to time.Now.
	Now func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &TicketService{
		tickets:   deps.TicketRepo,
		history:   deps.HistoryRepo,
		employees: deps.EmployeeRepo,
		lookup:    deps.Lookup,
		numbers:   deps.Numbers,
		tx:        deps.Tx,
		events:    deps.Dispatcher,
		now:       now,
	}
}

// TicketCreateInput describes ticket creation payload. The reporter's
// identity and location come from the authenticated caller, not the body.
// IncidentReportedDate/Time default to the creation time when absent.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority

	Department string
	SubDept    string
	SubTask    string
	TaskLabel  string

	IncidentReportedDate *time.Time
	IncidentReportedTime *string
	ITIncidentDate       *time.Time
	ITIncidentTime       *string
	Attachment           *string
}

// TicketUpdateInput describes a field update. Nil pointers mean "leave
// unchanged". ExpectedCompletionDateSet distinguishes clearing the date
// (set true, value nil) from not touching it at all. The IT incident
// date/time are not audited fields: setting them writes no history.
type TicketUpdateInput struct {
	Status                    *domain.TicketStatus
	Priority                  *domain.TicketPriority
	ExpectedCompletionDate    *time.Time
	ExpectedCompletionDateSet bool
	AssigneeEmpID             *string
	AssigneeDept              *string
	AssigneeSubDept           *string
	ITIncidentDate            *time.Time
	ITIncidentTime            *string
	Comment                   string
}

// CreateTicket routes the ticket to an assignee, generates its number and
// persists it, then notifies reporter and assignee best-effort.
func (s *TicketService) CreateTicket(ctx context.Context, reporter *domain.Employee, input TicketCreateInput) (*domain.Ticket, error) {
	if input.Title == "" || input.Description == "" {
		return nil, apperrors.NewValidationError("title and description are required", nil)
	}
	if !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}

	key := domain.RouteKey{
		Location:   reporter.Location,
		Department: input.Department,
		SubDept:    input.SubDept,
		SubTask:    input.SubTask,
		TaskLabel:  input.TaskLabel,
	}
	assignee, err := s.lookup.ResolveAssignee(ctx, key)
	if err != nil {
		return nil, err
	}

	prefix, err := s.numbers.Prefix(ctx, input.SubDept)
	if err != nil {
		return nil, err
	}

	createdAt := s.now()
	reportedDate := createdAt
	if input.IncidentReportedDate != nil {
		reportedDate = *input.IncidentReportedDate
	}
	reportedTime := createdAt.Format("15:04:05")
	if input.IncidentReportedTime != nil && *input.IncidentReportedTime != "" {
		reportedTime = *input.IncidentReportedTime
	}
	ticket := &domain.Ticket{
		Type:        "Incident",
		Title:       input.Title,
		Description: input.Description,
		Priority:    input.Priority,
		Status:      domain.StatusInProgress,

		Department: input.Department,
		SubDept:    input.SubDept,
		SubTask:    input.SubTask,
		TaskLabel:  input.TaskLabel,

		ReporterEmpID:      reporter.EmpID,
		ReporterLocation:   reporter.Location,
		ReporterDepartment: reporter.Department,

		AssigneeEmpID:   assignee.EmpID,
		AssigneeDept:    assignee.Dept,
		AssigneeSubDept: assignee.SubDept,

		CreationDate:         createdAt,
		IncidentReportedDate: reportedDate,
		IncidentReportedTime: reportedTime,
		ITIncidentDate:       input.ITIncidentDate,
		ITIncidentTime:       input.ITIncidentTime,

		Attachment: input.Attachment,
	}

	// Number generation and insert share one transaction so the advisory
	// lock covers the read-max-then-insert sequence.
	err = s.tx.WithinTx(ctx, func(tx pgx.Tx) error {
		repo := s.tickets.WithTx(tx)
		number, err := s.numbers.Generate(ctx, repo, prefix, createdAt)
		if err != nil {
			return err
		}
		ticket.TicketNumber = number
		return repo.Create(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		ID:           uuid.New().String(),
		Type:         events.EventTicketCreated,
		TicketNumber: ticket.TicketNumber,
		Actor:        domain.HumanActor(reporter.EmpID),
		Timestamp:    createdAt,
		Payload: events.TicketCreatedPayload{
			Title:         ticket.Title,
			Priority:      ticket.Priority,
			ReporterEmpID: ticket.ReporterEmpID,
			AssigneeEmpID: ticket.AssigneeEmpID,
		},
	})
	return ticket, nil
}

// watchedField describes one audited ticket field: how to read its value
// from a snapshot and the default comment when the caller supplies none.
type watchedField struct {
	action         domain.ActionType
	defaultComment string
	value          func(*domain.Ticket) *string
}

var watchedFields = []watchedField{
	{domain.ActionStatus, "Updated Status", func(t *domain.Ticket) *string {
		return strPtr(string(t.Status))
	}},
	{domain.ActionPriority, "Updated Priority", func(t *domain.Ticket) *string {
		return strPtr(string(t.Priority))
	}},
	{domain.ActionExpectedCompletionDate, "Updated Expected Completion Date", func(t *domain.Ticket) *string {
		if t.ExpectedCompletionDate == nil {
			return nil
		}
		return strPtr(t.ExpectedCompletionDate.Format("2006-01-02"))
	}},
	{domain.ActionAssigneeDepartment, "Updated Assignee Department", func(t *domain.Ticket) *string {
		return strPtr(t.AssigneeDept)
	}},
	{domain.ActionAssigneeSubDepartment, "Updated Assignee Sub-Department", func(t *domain.Ticket) *string {
		return strPtr(t.AssigneeSubDept)
	}},
	{domain.ActionAssigneeEmployee, "Updated Assignee Employee", func(t *domain.Ticket) *string {
		return strPtr(t.AssigneeEmpID)
	}},
}

// diffAndRecord compares the watched fields of two snapshots and emits one
// history record per difference. Unchanged fields emit nothing.
func diffAndRecord(before, after *domain.Ticket, actor domain.Actor, comment string, at time.Time) []domain.HistoryRecord {
	var records []domain.HistoryRecord
	for _, field := range watchedFields {
		oldVal := field.value(before)
		newVal := field.value(after)
		if strPtrEqual(oldVal, newVal) {
			continue
		}
		recordComment := comment
		if recordComment == "" {
			recordComment = field.defaultComment
		}
		records = append(records, domain.HistoryRecord{
			TicketNumber: before.TicketNumber,
			Actor:        actor,
			ActionType:   field.action,
			BeforeState:  oldVal,
			AfterState:   newVal,
			Comment:      recordComment,
			Timestamp:    at,
		})
	}
	return records
}

// UpdateTicket applies an assignee/HOD field update. Validation happens
// before any write; the mutation and its history records commit atomically;
// notifications go out only after commit.
func (s *TicketService) UpdateTicket(ctx context.Context, caller *domain.Employee, ticketNumber string, input TicketUpdateInput) (*domain.Ticket, error) {
	before, err := s.getTicket(ctx, ticketNumber)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeMutation(ctx, caller, before); err != nil {
		return nil, err
	}
	if before.Status.Terminal() {
		return nil, apperrors.NewIllegalTransition(string(before.Status), string(before.Status))
	}

	after := *before
	if input.ITIncidentDate != nil {
		after.ITIncidentDate = input.ITIncidentDate
	}
	if input.ITIncidentTime != nil {
		after.ITIncidentTime = input.ITIncidentTime
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *input.Status})
		}
		if *input.Status != before.Status && !domain.CanTransition(before.Status, *input.Status) {
			return nil, apperrors.NewIllegalTransition(string(before.Status), string(*input.Status))
		}
		after.Status = *input.Status
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *input.Priority})
		}
		after.Priority = *input.Priority
	}
	if input.ExpectedCompletionDateSet {
		if input.ExpectedCompletionDate != nil {
			if err := validateCompletionDate(*input.ExpectedCompletionDate, &after); err != nil {
				return nil, err
			}
		}
		after.ExpectedCompletionDate = input.ExpectedCompletionDate
	}
	if input.AssigneeEmpID != nil {
		after.AssigneeEmpID = *input.AssigneeEmpID
	}
	if input.AssigneeDept != nil {
		after.AssigneeDept = *input.AssigneeDept
	}
	if input.AssigneeSubDept != nil {
		after.AssigneeSubDept = *input.AssigneeSubDept
	}

	now := s.now()
	itIncidentTouched := input.ITIncidentDate != nil || input.ITIncidentTime != nil
	records := diffAndRecord(before, &after, domain.HumanActor(caller.EmpID), input.Comment, now)
	if len(records) == 0 && !itIncidentTouched {
		return before, nil
	}

	err = s.tx.WithinTx(ctx, func(tx pgx.Tx) error {
		if err := s.tickets.WithTx(tx).Update(ctx, &after); err != nil {
			return err
		}
		historyRepo := s.history.WithTx(tx)
		for i := range records {
			if err := historyRepo.Create(ctx, &records[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(records) > 0 {
		s.publishUpdate(ctx, before, &after, domain.HumanActor(caller.EmpID), records, now)
	}
	return &after, nil
}

// RespondResolution records the reporter's accept/reject decision on a
// resolved ticket. Accept closes it; reject reopens it.
func (s *TicketService) RespondResolution(ctx context.Context, caller *domain.Employee, ticketNumber string, accept bool, comment string) (*domain.Ticket, error) {
	before, err := s.getTicket(ctx, ticketNumber)
	if err != nil {
		return nil, err
	}
	if before.ReporterEmpID != caller.EmpID {
		return nil, apperrors.NewForbidden("only the reporter may respond to a resolution")
	}
	if before.Status != domain.StatusResolved {
		return nil, apperrors.NewIllegalTransition(string(before.Status), string(domain.StatusClosed))
	}

	after := *before
	defaultComment := "Resolution accepted"
	if accept {
		after.Status = domain.StatusClosed
	} else {
		after.Status = domain.StatusInProgress
		defaultComment = "Resolution rejected"
	}
	if comment == "" {
		comment = defaultComment
	}

	now := s.now()
	record := domain.HistoryRecord{
		TicketNumber: before.TicketNumber,
		Actor:        domain.HumanActor(caller.EmpID),
		ActionType:   domain.ActionStatus,
		BeforeState:  strPtr(string(before.Status)),
		AfterState:   strPtr(string(after.Status)),
		Comment:      comment,
		Timestamp:    now,
	}

	err = s.tx.WithinTx(ctx, func(tx pgx.Tx) error {
		if err := s.tickets.WithTx(tx).Update(ctx, &after); err != nil {
			return err
		}
		return s.history.WithTx(tx).Create(ctx, &record)
	})
	if err != nil {
		return nil, err
	}

	s.publishUpdate(ctx, before, &after, record.Actor, []domain.HistoryRecord{record}, now)
	return &after, nil
}

// Acknowledge flips the IT ack flag once. Repeat calls are no-ops that
// write no history.
func (s *TicketService) Acknowledge(ctx context.Context, caller *domain.Employee, ticketNumber string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketNumber)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeMutation(ctx, caller, ticket); err != nil {
		return nil, err
	}
	if ticket.ITAckFlag {
		return ticket, nil
	}

	now := s.now()
	record := domain.HistoryRecord{
		TicketNumber: ticket.TicketNumber,
		Actor:        domain.HumanActor(caller.EmpID),
		ActionType:   domain.ActionITAcknowledged,
		AfterState:   strPtr("Acknowledged"),
		Comment:      "IT acknowledged the ticket",
		Timestamp:    now,
	}

	err = s.tx.WithinTx(ctx, func(tx pgx.Tx) error {
		acked, err := s.tickets.WithTx(tx).Acknowledge(ctx, ticket.TicketNumber, now)
		if err != nil {
			return err
		}
		if !acked {
			// lost the race to another acknowledger; nothing to record
			return nil
		}
		ticket.ITAckFlag = true
		ticket.ITAckTimestamp = &now
		return s.history.WithTx(tx).Create(ctx, &record)
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// GetTicket returns one ticket by number.
func (s *TicketService) GetTicket(ctx context.Context, ticketNumber string) (*domain.Ticket, error) {
	return s.getTicket(ctx, ticketNumber)
}

// History returns the audit trail for one ticket, newest first.
func (s *TicketService) History(ctx context.Context, ticketNumber string) ([]domain.HistoryRecord, error) {
	if _, err := s.getTicket(ctx, ticketNumber); err != nil {
		return nil, err
	}
	return s.history.ListByTicket(ctx, ticketNumber)
}

// ListTickets returns tickets matching the filter.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	return s.tickets.ListWithFilter(ctx, filter)
}

// Dashboard aggregates status counts for the filter's scope: the full
// current set plus the subset created before today, for trend display.
type Dashboard struct {
	Current  domain.StatusCounts `json:"current"`
	PriorDay domain.StatusCounts `json:"priorDay"`
}

// DashboardCounts computes dashboard figures for the filter's scope.
func (s *TicketService) DashboardCounts(ctx context.Context, filter repository.TicketFilter) (*Dashboard, error) {
	now := s.now()
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, err
	}

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	priorFilter := filter
	priorFilter.CreatedBefore = &startOfDay
	prior, err := s.tickets.ListWithFilter(ctx, priorFilter)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Current:  domain.CountStatuses(tickets, now),
		PriorDay: domain.CountStatuses(prior, now),
	}, nil
}

func (s *TicketService) getTicket(ctx context.Context, ticketNumber string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByNumber(ctx, ticketNumber)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewTicketNotFound(ticketNumber)
		}
		return nil, err
	}
	return ticket, nil
}

// authorizeMutation enforces that only the current assignee or the head of
// the assignee department may mutate ticket fields.
func (s *TicketService) authorizeMutation(ctx context.Context, caller *domain.Employee, ticket *domain.Ticket) error {
	if caller.EmpID == ticket.AssigneeEmpID {
		return nil
	}
	isHOD, err := s.employees.IsHODFor(ctx, caller.EmpID, ticket.AssigneeDept)
	if err != nil {
		return err
	}
	if isHOD {
		return nil
	}
	return apperrors.NewForbidden("only the assignee or department head may update this ticket")
}

// validateCompletionDate rejects an expected completion date earlier than
// the incident reported date or the IT incident date.
func validateCompletionDate(date time.Time, ticket *domain.Ticket) error {
	reported := dateOnly(ticket.IncidentReportedDate)
	if dateOnly(date).Before(reported) {
		return apperrors.NewInvalidCompletionDate("expected completion date precedes incident reported date")
	}
	if ticket.ITIncidentDate != nil && dateOnly(date).Before(dateOnly(*ticket.ITIncidentDate)) {
		return apperrors.NewInvalidCompletionDate("expected completion date precedes IT incident date")
	}
	return nil
}

func (s *TicketService) publishUpdate(ctx context.Context, before, after *domain.Ticket, actor domain.Actor, records []domain.HistoryRecord, at time.Time) {
	payload := events.TicketUpdatedPayload{
		Changes:       make([]events.ChangeSummary, 0, len(records)),
		ReporterEmpID: after.ReporterEmpID,
		AssigneeEmpID: after.AssigneeEmpID,
	}
	if before.AssigneeEmpID != after.AssigneeEmpID {
		prev := before.AssigneeEmpID
		payload.PreviousAssigneeEmpID = &prev
	}
	for _, record := range records {
		payload.Changes = append(payload.Changes, events.ChangeSummary{
			Field:   record.ActionType,
			Before:  record.BeforeState,
			After:   record.AfterState,
			Comment: record.Comment,
		})
	}
	s.publish(ctx, events.Event{
		ID:           uuid.New().String(),
		Type:         events.EventTicketUpdated,
		TicketNumber: after.TicketNumber,
		Actor:        actor,
		Timestamp:    at,
		Payload:      payload,
	})
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(ctx, event)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func strPtr(s string) *string {
	return &s
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
