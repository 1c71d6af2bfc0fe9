package service

import (
	"context"
	"testing"
	"time"

	"github.com/spotdesk/spot-service/internal/domain"
	"github.com/spotdesk/spot-service/internal/events"
	"github.com/spotdesk/spot-service/internal/repository"
	apperrors "github.com/spotdesk/spot-service/pkg/util"
)

var testNow = time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

var (
	reporter = &domain.Employee{
		EmpID: "R1", Name: "Ravi", Email: "ravi@premierenergies.com",
		Department: "Finance", SubDept: "Accounts", Location: "HYD", Active: true,
	}
	assignee = &domain.Employee{
		EmpID: "E42", Name: "Nila", Email: "nila@premierenergies.com",
		Department: "IT", SubDept: "Networks", Location: "HYD", Active: true,
	}
	hod = &domain.Employee{
		EmpID: "H1", Name: "Head", Email: "head@premierenergies.com",
		Department: "IT", SubDept: "Networks", Location: "HYD", Active: true,
	}
	outsider = &domain.Employee{
		EmpID: "X9", Name: "Someone", Email: "someone@premierenergies.com",
		Department: "HR", SubDept: "HR", Location: "HYD", Active: true,
	}
)

type ticketFixture struct {
	service    *TicketService
	tickets    *fakeTicketRepo
	history    *fakeHistoryRepo
	employees  *fakeEmployeeRepo
	mappings   *fakeMappingRepo
	dispatcher *captureDispatcher
}

func newTicketFixture(existing ...*domain.Ticket) *ticketFixture {
	ticketRepo := newFakeTicketRepo(existing...)
	historyRepo := &fakeHistoryRepo{}
	employeeRepo := newFakeEmployeeRepo(reporter, assignee, hod, outsider)
	employeeRepo.hods["IT"] = hod.EmpID
	mappingRepo := &fakeMappingRepo{
		mappings: []domain.AssigneeMapping{{
			ID: 1, Location: "HYD", Department: "IT", SubDept: "IT",
			SubTask: "Network", TaskLabel: "WiFi", TicketType: "Incident",
			AssigneeEmpID: assignee.EmpID,
		}},
		prefixes: map[string]string{"IT": "ITN"},
	}
	dispatcher := &captureDispatcher{}

	svc := NewTicketService(TicketDependencies{
		TicketRepo:   ticketRepo,
		HistoryRepo:  historyRepo,
		EmployeeRepo: employeeRepo,
		Lookup:       NewLookupService(mappingRepo, employeeRepo),
		Numbers:      NewNumberGenerator(mappingRepo),
		Tx:           fakeTx{},
		Dispatcher:   dispatcher,
		Now:          func() time.Time { return testNow },
	})
	return &ticketFixture{
		service:    svc,
		tickets:    ticketRepo,
		history:    historyRepo,
		employees:  employeeRepo,
		mappings:   mappingRepo,
		dispatcher: dispatcher,
	}
}

func baseCreateInput() TicketCreateInput {
	return TicketCreateInput{
		Title:       "WiFi down on floor 3",
		Description: "No connectivity since morning",
		Priority:    domain.PriorityHigh,
		Department:  "IT",
		SubDept:     "IT",
		SubTask:     "Network",
		TaskLabel:   "WiFi",
	}
}

func existingTicket(status domain.TicketStatus) *domain.Ticket {
	return &domain.Ticket{
		TicketNumber:         "ITN_20260827_001",
		Type:                 "Incident",
		Title:                "Printer jam",
		Description:          "Shared printer keeps jamming",
		Priority:             domain.PriorityMedium,
		Status:               status,
		Department:           "IT",
		SubDept:              "IT",
		SubTask:              "Hardware",
		TaskLabel:            "Printer",
		ReporterEmpID:        reporter.EmpID,
		ReporterLocation:     reporter.Location,
		ReporterDepartment:   reporter.Department,
		AssigneeEmpID:        assignee.EmpID,
		AssigneeDept:         assignee.Department,
		AssigneeSubDept:      assignee.SubDept,
		CreationDate:         testNow.AddDate(0, 0, -1),
		IncidentReportedDate: testNow.AddDate(0, 0, -1),
		IncidentReportedTime: "09:00:00",
	}
}

func TestCreateTicketRoutesAndNumbers(t *testing.T) {
	fx := newTicketFixture()

	first, err := fx.service.CreateTicket(context.Background(), reporter, baseCreateInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if first.TicketNumber != "ITN_20260828_001" {
		t.Errorf("first ticket number = %s, want ITN_20260828_001", first.TicketNumber)
	}
	if first.AssigneeEmpID != assignee.EmpID {
		t.Errorf("assignee = %s, want %s", first.AssigneeEmpID, assignee.EmpID)
	}
	if first.AssigneeDept != "IT" || first.AssigneeSubDept != "Networks" {
		t.Errorf("assignee dept/sub-dept = %s/%s, want IT/Networks", first.AssigneeDept, first.AssigneeSubDept)
	}
	if first.Status != domain.StatusInProgress {
		t.Errorf("status = %s, want In-Progress", first.Status)
	}
	if !first.IncidentReportedDate.Equal(testNow) {
		t.Errorf("incident reported date should default to creation time")
	}

	second, err := fx.service.CreateTicket(context.Background(), reporter, baseCreateInput())
	if err != nil {
		t.Fatalf("second create failed: %v", err)
	}
	if second.TicketNumber != "ITN_20260828_002" {
		t.Errorf("second ticket number = %s, want ITN_20260828_002", second.TicketNumber)
	}

	if created := fx.dispatcher.byType(events.EventTicketCreated); len(created) != 2 {
		t.Errorf("created events = %d, want 2", len(created))
	}
}

func TestCreateTicketHonorsReportedDateAndTime(t *testing.T) {
	fx := newTicketFixture()
	input := baseCreateInput()
	reported := testNow.AddDate(0, 0, -2)
	reportedTime := "22:15:00"
	input.IncidentReportedDate = &reported
	input.IncidentReportedTime = &reportedTime

	ticket, err := fx.service.CreateTicket(context.Background(), reporter, input)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !ticket.IncidentReportedDate.Equal(reported) {
		t.Errorf("incident reported date = %v, want the caller-supplied %v", ticket.IncidentReportedDate, reported)
	}
	if ticket.IncidentReportedTime != reportedTime {
		t.Errorf("incident reported time = %q, want %q", ticket.IncidentReportedTime, reportedTime)
	}
	if !ticket.CreationDate.Equal(testNow) {
		t.Errorf("creation date = %v, must stay the creation time", ticket.CreationDate)
	}
}

func TestCreateTicketNoAssignee(t *testing.T) {
	fx := newTicketFixture()
	input := baseCreateInput()
	input.TaskLabel = "VPN"

	_, err := fx.service.CreateTicket(context.Background(), reporter, input)
	if !apperrors.IsCode(err, "NO_ASSIGNEE_FOUND") {
		t.Fatalf("err = %v, want NO_ASSIGNEE_FOUND", err)
	}
	if len(fx.tickets.created) != 0 {
		t.Error("no ticket row may exist after a routing miss")
	}
}

func TestCreateTicketDirectoryMismatch(t *testing.T) {
	fx := newTicketFixture()
	fx.mappings.mappings[0].AssigneeEmpID = "GHOST"

	_, err := fx.service.CreateTicket(context.Background(), reporter, baseCreateInput())
	if !apperrors.IsCode(err, "ASSIGNEE_DIRECTORY_MISMATCH") {
		t.Fatalf("err = %v, want ASSIGNEE_DIRECTORY_MISMATCH", err)
	}
}

func TestCreateTicketUnknownPrefix(t *testing.T) {
	fx := newTicketFixture()
	delete(fx.mappings.prefixes, "IT")

	_, err := fx.service.CreateTicket(context.Background(), reporter, baseCreateInput())
	if !apperrors.IsCode(err, "UNKNOWN_SUBDEPT_PREFIX") {
		t.Fatalf("err = %v, want UNKNOWN_SUBDEPT_PREFIX", err)
	}
	if len(fx.tickets.created) != 0 {
		t.Error("no ticket number may be consumed without a prefix")
	}
}

func TestUpdateTicketWritesOneRecordPerChangedField(t *testing.T) {
	ticket := existingTicket(domain.StatusInProgress)
	fx := newTicketFixture(ticket)

	status := domain.StatusResolved
	priority := domain.PriorityHigh
	updated, err := fx.service.UpdateTicket(context.Background(), assignee, ticket.TicketNumber, TicketUpdateInput{
		Status:   &status,
		Priority: &priority,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Status != domain.StatusResolved || updated.Priority != domain.PriorityHigh {
		t.Errorf("ticket not mutated: %+v", updated)
	}
	if len(fx.history.records) != 2 {
		t.Fatalf("history records = %d, want 2 (one per changed field)", len(fx.history.records))
	}

	statusRecords := fx.history.byAction(domain.ActionStatus)
	if len(statusRecords) != 1 {
		t.Fatalf("status records = %d, want 1", len(statusRecords))
	}
	record := statusRecords[0]
	if record.BeforeState == nil || *record.BeforeState != "In-Progress" {
		t.Errorf("before = %v, want In-Progress", record.BeforeState)
	}
	if record.AfterState == nil || *record.AfterState != "Resolved" {
		t.Errorf("after = %v, want Resolved", record.AfterState)
	}
	if record.Comment != "Updated Status" {
		t.Errorf("comment = %q, want the per-field default", record.Comment)
	}
	if record.Actor.IsSystem() || record.Actor.EmpID != assignee.EmpID {
		t.Errorf("actor = %+v, want the assignee", record.Actor)
	}
}

func TestUpdateTicketUnchangedWritesNothing(t *testing.T) {
	ticket := existingTicket(domain.StatusInProgress)
	fx := newTicketFixture(ticket)

	priority := ticket.Priority
	_, err := fx.service.UpdateTicket(context.Background(), assignee, ticket.TicketNumber, TicketUpdateInput{
		Priority: &priority,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if len(fx.history.records) != 0 {
		t.Errorf("history records = %d, want 0 for a no-op update", len(fx.history.records))
	}
	if updates := fx.dispatcher.byType(events.EventTicketUpdated); len(updates) != 0 {
		t.Errorf("update events = %d, want 0", len(updates))
	}
}

func TestUpdateTicketSetsITIncidentFieldsWithoutHistory(t *testing.T) {
	ticket := existingTicket(domain.StatusInProgress)
	fx := newTicketFixture(ticket)

	incident := testNow.AddDate(0, 0, -2)
	incidentTime := "08:30:00"
	updated, err := fx.service.UpdateTicket(context.Background(), assignee, ticket.TicketNumber, TicketUpdateInput{
		ITIncidentDate: &incident,
		ITIncidentTime: &incidentTime,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.ITIncidentDate == nil || !updated.ITIncidentDate.Equal(incident) {
		t.Errorf("it incident date = %v, want %v", updated.ITIncidentDate, incident)
	}
	if updated.ITIncidentTime == nil || *updated.ITIncidentTime != incidentTime {
		t.Errorf("it incident time = %v, want %q", updated.ITIncidentTime, incidentTime)
	}

	stored, _ := fx.tickets.GetByNumber(context.Background(), ticket.TicketNumber)
	if stored.ITIncidentDate == nil || !stored.ITIncidentDate.Equal(incident) {
		t.Error("it incident date must be persisted")
	}
	if len(fx.history.records) != 0 {
		t.Errorf("history records = %d, want 0 (unaudited fields)", len(fx.history.records))
	}
	if updates := fx.dispatcher.byType(events.EventTicketUpdated); len(updates) != 0 {
		t.Errorf("update events = %d, want 0", len(updates))
	}
}

func TestListTicketsOverdueFilterIncludesDateOverdue(t *testing.T) {
	past := testNow.AddDate(0, 0, -3)
	future := testNow.AddDate(0, 0, 3)

	late := existingTicket(domain.StatusInProgress)
	late.TicketNumber = "ITN_20260825_001"
	late.ExpectedCompletionDate = &past

	onTrack := existingTicket(domain.StatusInProgress)
	onTrack.TicketNumber = "ITN_20260825_002"
	onTrack.ExpectedCompletionDate = &future

	flagged := existingTicket(domain.StatusOverdue)
	flagged.TicketNumber = "ITN_20260825_003"

	fx := newTicketFixture(late, onTrack, flagged)
	empID := assignee.EmpID
	listed, err := fx.service.ListTickets(context.Background(), repository.TicketFilter{
		AssigneeEmpID: &empID,
		Statuses:      []domain.TicketStatus{domain.StatusOverdue},
	})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	got := map[string]bool{}
	for _, ticket := range listed {
		got[ticket.TicketNumber] = true
	}
	if len(got) != 2 || !got[late.TicketNumber] || !got[flagged.TicketNumber] {
		t.Errorf("overdue listing = %v, want the stored-Overdue and date-overdue tickets only", got)
	}
}

func TestUpdateTicketForbiddenForOutsider(t *testing.T) {
	ticket := existingTicket(domain.StatusInProgress)
	fx := newTicketFixture(ticket)

	priority := domain.PriorityLow
	_, err := fx.service.UpdateTicket(context.Background(), outsider, ticket.TicketNumber, TicketUpdateInput{
		Priority: &priority,
	})
	if !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("err = %v, want FORBIDDEN", err)
	}
	if len(fx.history.records) != 0 {
		t.Error("forbidden update must not write history")
	}
}

func TestUpdateTicketHODAllowed(t *testing.T) {
	ticket := existingTicket(domain.StatusInProgress)
	fx := newTicketFixture(ticket)

	priority := domain.PriorityLow
	_, err := fx.service.UpdateTicket(context.Background(), hod, ticket.TicketNumber, TicketUpdateInput{
		Priority: &priority,
	})
	if err != nil {
		t.Fatalf("department head update failed: %v", err)
	}
}

func TestUpdateClosedTicketFails(t *testing.T) {
	ticket := existingTicket(domain.StatusClosed)
	fx := newTicketFixture(ticket)

	priority := domain.PriorityLow
	_, err := fx.service.UpdateTicket(context.Background(), assignee, ticket.TicketNumber, TicketUpdateInput{
		Priority: &priority,
	})
	if !apperrors.IsCode(err, "ILLEGAL_TRANSITION") {
		t.Fatalf("err = %v, want ILLEGAL_TRANSITION", err)
	}
}

func TestUpdateIllegalStatusEdge(t *testing.T) {
	ticket := existingTicket(domain.StatusInProgress)
	fx := newTicketFixture(ticket)

	status := domain.StatusClosed
	_, err := fx.service.UpdateTicket(context.Background(), assignee, ticket.TicketNumber, TicketUpdateInput{
		Status: &status,
	})
	if !apperrors.IsCode(err, "ILLEGAL_TRANSITION") {
		t.Fatalf("err = %v, want ILLEGAL_TRANSITION (In-Progress cannot close directly)", err)
	}
}

func TestUpdateInvalidCompletionDate(t *testing.T) {
	ticket := existingTicket(domain.StatusInProgress)
	fx := newTicketFixture(ticket)

	early := ticket.IncidentReportedDate.AddDate(0, 0, -3)
	_, err := fx.service.UpdateTicket(context.Background(), assignee, ticket.TicketNumber, TicketUpdateInput{
		ExpectedCompletionDate:    &early,
		ExpectedCompletionDateSet: true,
	})
	if !apperrors.IsCode(err, "INVALID_COMPLETION_DATE") {
		t.Fatalf("err = %v, want INVALID_COMPLETION_DATE", err)
	}
	if len(fx.history.records) != 0 {
		t.Error("validation failure must leave ticket and history unchanged")
	}
	stored, _ := fx.tickets.GetByNumber(context.Background(), ticket.TicketNumber)
	if stored.ExpectedCompletionDate != nil {
		t.Error("ticket must not be mutated on validation failure")
	}
}

func TestRespondResolutionAcceptCloses(t *testing.T) {
	ticket := existingTicket(domain.StatusResolved)
	fx := newTicketFixture(ticket)

	updated, err := fx.service.RespondResolution(context.Background(), reporter, ticket.TicketNumber, true, "")
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if updated.Status != domain.StatusClosed {
		t.Errorf("status = %s, want Closed", updated.Status)
	}
	if len(fx.history.records) != 1 {
		t.Fatalf("history records = %d, want 1", len(fx.history.records))
	}
}

func TestRespondResolutionRejectReopens(t *testing.T) {
	ticket := existingTicket(domain.StatusResolved)
	fx := newTicketFixture(ticket)

	updated, err := fx.service.RespondResolution(context.Background(), reporter, ticket.TicketNumber, false, "not fixed")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if updated.Status != domain.StatusInProgress {
		t.Errorf("status = %s, want In-Progress", updated.Status)
	}
	if fx.history.records[0].Comment != "not fixed" {
		t.Errorf("comment = %q, want caller-supplied", fx.history.records[0].Comment)
	}

	// a second reject is no longer legal once the ticket reopened
	_, err = fx.service.RespondResolution(context.Background(), reporter, ticket.TicketNumber, false, "")
	if !apperrors.IsCode(err, "ILLEGAL_TRANSITION") {
		t.Fatalf("err = %v, want ILLEGAL_TRANSITION", err)
	}
}

func TestRespondResolutionReporterOnly(t *testing.T) {
	ticket := existingTicket(domain.StatusResolved)
	fx := newTicketFixture(ticket)

	_, err := fx.service.RespondResolution(context.Background(), assignee, ticket.TicketNumber, true, "")
	if !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("err = %v, want FORBIDDEN", err)
	}
}

func TestAcknowledgeIsIdempotent(t *testing.T) {
	ticket := existingTicket(domain.StatusInProgress)
	fx := newTicketFixture(ticket)

	first, err := fx.service.Acknowledge(context.Background(), assignee, ticket.TicketNumber)
	if err != nil {
		t.Fatalf("ack failed: %v", err)
	}
	if !first.ITAckFlag || first.ITAckTimestamp == nil {
		t.Fatal("first ack must set flag and timestamp")
	}
	if len(fx.history.records) != 1 {
		t.Fatalf("history records = %d, want 1", len(fx.history.records))
	}

	stamp := *first.ITAckTimestamp
	second, err := fx.service.Acknowledge(context.Background(), assignee, ticket.TicketNumber)
	if err != nil {
		t.Fatalf("second ack failed: %v", err)
	}
	if !second.ITAckFlag {
		t.Error("flag must stay true")
	}
	if second.ITAckTimestamp == nil || !second.ITAckTimestamp.Equal(stamp) {
		t.Error("timestamp must not change on repeat ack")
	}
	if len(fx.history.records) != 1 {
		t.Errorf("history records = %d, want still 1 after repeat ack", len(fx.history.records))
	}
}

func TestTicketNotFound(t *testing.T) {
	fx := newTicketFixture()
	_, err := fx.service.GetTicket(context.Background(), "ITN_20260828_999")
	if !apperrors.IsCode(err, "TICKET_NOT_FOUND") {
		t.Fatalf("err = %v, want TICKET_NOT_FOUND", err)
	}
}
