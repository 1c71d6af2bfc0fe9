package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spotdesk/spot-service/internal/domain"
	"github.com/spotdesk/spot-service/internal/events"
	"github.com/spotdesk/spot-service/internal/mailer"
	"github.com/spotdesk/spot-service/internal/repository"
)

// fakeTx satisfies repository.TxRunner without a database; repositories in
// these tests ignore the tx handle entirely.
type fakeTx struct{}

func (fakeTx) WithinTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type fakeTicketRepo struct {
	tickets map[string]*domain.Ticket
	// numbers created via Create, in order
	created []string
	now     time.Time
}

func newFakeTicketRepo(tickets ...*domain.Ticket) *fakeTicketRepo {
	repo := &fakeTicketRepo{tickets: map[string]*domain.Ticket{}, now: testNow}
	for _, ticket := range tickets {
		copied := *ticket
		repo.tickets[ticket.TicketNumber] = &copied
	}
	return repo
}

func (r *fakeTicketRepo) WithTx(pgx.Tx) repository.TicketRepository { return r }

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	copied := *ticket
	r.tickets[ticket.TicketNumber] = &copied
	r.created = append(r.created, ticket.TicketNumber)
	return nil
}

func (r *fakeTicketRepo) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	ticket, ok := r.tickets[number]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := r.tickets[ticket.TicketNumber]; !ok {
		return pgx.ErrNoRows
	}
	copied := *ticket
	r.tickets[ticket.TicketNumber] = &copied
	return nil
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.AssigneeEmpID != nil && ticket.AssigneeEmpID != *filter.AssigneeEmpID {
			continue
		}
		if filter.ReporterEmpID != nil && ticket.ReporterEmpID != *filter.ReporterEmpID {
			continue
		}
		if filter.ReporterDepartment != nil && ticket.ReporterDepartment != *filter.ReporterDepartment {
			continue
		}
		if len(filter.Statuses) > 0 && !statusMatches(ticket, filter.Statuses, r.now) {
			continue
		}
		if filter.CreatedBefore != nil && !ticket.CreationDate.Before(*filter.CreatedBefore) {
			continue
		}
		result = append(result, *ticket)
	}
	return result, nil
}

// statusMatches mirrors the listing semantics: a requested Overdue status
// also matches open tickets whose expected completion date has passed.
func statusMatches(t *domain.Ticket, statuses []domain.TicketStatus, now time.Time) bool {
	for _, status := range statuses {
		if t.Status == status {
			return true
		}
		if status == domain.StatusOverdue && t.IsOverdue(now) {
			return true
		}
	}
	return false
}

func (r *fakeTicketRepo) ListNumbersByStatus(_ context.Context, status domain.TicketStatus) ([]string, error) {
	var numbers []string
	for number, ticket := range r.tickets {
		if ticket.Status == status {
			numbers = append(numbers, number)
		}
	}
	return numbers, nil
}

func (r *fakeTicketRepo) NumbersForParticipant(_ context.Context, empID string) ([]string, error) {
	var numbers []string
	for number, ticket := range r.tickets {
		if ticket.AssigneeEmpID == empID || ticket.ReporterEmpID == empID {
			numbers = append(numbers, number)
		}
	}
	return numbers, nil
}

func (r *fakeTicketRepo) AcquireNumberLock(context.Context, string) error { return nil }

func (r *fakeTicketRepo) LastNumberForDay(_ context.Context, prefix, day string) (string, error) {
	var last string
	want := prefix + "_" + day + "_"
	for number := range r.tickets {
		if len(number) <= len(want) || number[:len(want)] != want {
			continue
		}
		// longer serials sort above shorter ones regardless of text order
		if len(number) > len(last) || (len(number) == len(last) && number > last) {
			last = number
		}
	}
	return last, nil
}

func (r *fakeTicketRepo) CloseIfStatus(_ context.Context, number string, expected domain.TicketStatus) (bool, error) {
	ticket, ok := r.tickets[number]
	if !ok || ticket.Status != expected {
		return false, nil
	}
	ticket.Status = domain.StatusClosed
	return true, nil
}

func (r *fakeTicketRepo) Acknowledge(_ context.Context, number string, at time.Time) (bool, error) {
	ticket, ok := r.tickets[number]
	if !ok || ticket.ITAckFlag {
		return false, nil
	}
	ticket.ITAckFlag = true
	stamp := at
	ticket.ITAckTimestamp = &stamp
	return true, nil
}

type fakeHistoryRepo struct {
	records []domain.HistoryRecord
	nextID  int64
}

func (r *fakeHistoryRepo) WithTx(pgx.Tx) repository.HistoryRepository { return r }

func (r *fakeHistoryRepo) Create(_ context.Context, record *domain.HistoryRecord) error {
	r.nextID++
	record.ID = r.nextID
	r.records = append(r.records, *record)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(_ context.Context, number string) ([]domain.HistoryRecord, error) {
	var result []domain.HistoryRecord
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].TicketNumber == number {
			result = append(result, r.records[i])
		}
	}
	return result, nil
}

func (r *fakeHistoryRepo) LatestStatusTransition(_ context.Context, number string, after domain.TicketStatus) (*domain.HistoryRecord, error) {
	for i := len(r.records) - 1; i >= 0; i-- {
		record := r.records[i]
		if record.TicketNumber == number && record.ActionType == domain.ActionStatus &&
			record.AfterState != nil && *record.AfterState == string(after) {
			return &record, nil
		}
	}
	return nil, nil
}

func (r *fakeHistoryRepo) ListForRecipient(_ context.Context, recipient string, numbers []string, _ repository.ReadFilter) ([]domain.HistoryRecord, error) {
	allowed := map[string]bool{}
	for _, number := range numbers {
		allowed[number] = true
	}
	var result []domain.HistoryRecord
	for _, record := range r.records {
		if allowed[record.TicketNumber] && record.Actor.UserID() != recipient {
			result = append(result, record)
		}
	}
	return result, nil
}

func (r *fakeHistoryRepo) CountsForRecipient(ctx context.Context, recipient string, numbers []string) (repository.NotificationCounts, error) {
	records, err := r.ListForRecipient(ctx, recipient, numbers, repository.ReadFilterAll)
	if err != nil {
		return repository.NotificationCounts{}, err
	}
	counts := repository.NotificationCounts{All: len(records)}
	for _, record := range records {
		if record.IsRead {
			counts.Read++
		} else {
			counts.Unread++
		}
	}
	return counts, nil
}

func (r *fakeHistoryRepo) MarkRead(_ context.Context, id int64) (bool, error) {
	for i := range r.records {
		if r.records[i].ID == id {
			r.records[i].IsRead = true
			return true, nil
		}
	}
	return false, nil
}

// byAction filters recorded history by action type.
func (r *fakeHistoryRepo) byAction(action domain.ActionType) []domain.HistoryRecord {
	var result []domain.HistoryRecord
	for _, record := range r.records {
		if record.ActionType == action {
			result = append(result, record)
		}
	}
	return result
}

type fakeEmployeeRepo struct {
	employees map[string]*domain.Employee
	hods      map[string]string // department -> emp id
}

func newFakeEmployeeRepo(employees ...*domain.Employee) *fakeEmployeeRepo {
	repo := &fakeEmployeeRepo{employees: map[string]*domain.Employee{}, hods: map[string]string{}}
	for _, emp := range employees {
		repo.employees[emp.EmpID] = emp
	}
	return repo
}

func (r *fakeEmployeeRepo) GetByID(_ context.Context, empID string) (*domain.Employee, error) {
	emp, ok := r.employees[empID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return emp, nil
}

func (r *fakeEmployeeRepo) GetByEmail(_ context.Context, email string) (*domain.Employee, error) {
	for _, emp := range r.employees {
		if emp.Email == email {
			return emp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeEmployeeRepo) IsHODFor(_ context.Context, empID, department string) (bool, error) {
	return r.hods[department] == empID, nil
}

type fakeMappingRepo struct {
	mappings []domain.AssigneeMapping
	prefixes map[string]string
}

func (r *fakeMappingRepo) Resolve(_ context.Context, key domain.RouteKey) (*domain.AssigneeMapping, error) {
	for i := range r.mappings {
		if r.mappings[i].Key() == key {
			mapping := r.mappings[i]
			return &mapping, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeMappingRepo) List(context.Context) ([]domain.AssigneeMapping, error) {
	return r.mappings, nil
}

func (r *fakeMappingRepo) Create(_ context.Context, mapping *domain.AssigneeMapping) error {
	mapping.ID = int64(len(r.mappings) + 1)
	r.mappings = append(r.mappings, *mapping)
	return nil
}

func (r *fakeMappingRepo) Delete(_ context.Context, id int64) error {
	for i := range r.mappings {
		if r.mappings[i].ID == id {
			r.mappings = append(r.mappings[:i], r.mappings[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeMappingRepo) PrefixForSubDept(_ context.Context, subDept string) (string, error) {
	return r.prefixes[subDept], nil
}

// captureDispatcher records published events without invoking handlers.
type captureDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *captureDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *captureDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *captureDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}

// captureSender records outbound mail.
type captureSender struct {
	messages []mailer.Message
}

func (s *captureSender) Send(_ context.Context, msg mailer.Message) error {
	s.messages = append(s.messages, msg)
	return nil
}
