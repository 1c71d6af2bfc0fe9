package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/spotdesk/spot-service/internal/config"
	"github.com/spotdesk/spot-service/internal/domain"
	"github.com/spotdesk/spot-service/internal/events"
)

func newNotificationFixture(tickets *fakeTicketRepo, history *fakeHistoryRepo) (events.Dispatcher, *captureSender, *NotificationService) {
	dispatcher := events.NewInMemoryDispatcher()
	sender := &captureSender{}
	employees := newFakeEmployeeRepo(reporter, assignee, hod)
	svc := NewNotificationService(
		dispatcher, employees, tickets, history, sender, zap.NewNop(),
		config.NotificationConfig{EmailFrom: "spot@premierenergies.com"})
	svc.RegisterHandlers()
	return dispatcher, sender, svc
}

func statusChange(from, to domain.TicketStatus) events.ChangeSummary {
	before := string(from)
	after := string(to)
	return events.ChangeSummary{
		Field:  domain.ActionStatus,
		Before: &before,
		After:  &after,
	}
}

func publishUpdate(dispatcher events.Dispatcher, changes ...events.ChangeSummary) {
	_ = dispatcher.Publish(context.Background(), events.Event{
		ID:           "evt-1",
		Type:         events.EventTicketUpdated,
		TicketNumber: "ITN_20260827_001",
		Actor:        domain.HumanActor(assignee.EmpID),
		Payload: events.TicketUpdatedPayload{
			Changes:       changes,
			ReporterEmpID: reporter.EmpID,
			AssigneeEmpID: assignee.EmpID,
		},
	})
}

func TestResolvedNotifiesReporter(t *testing.T) {
	dispatcher, sender, _ := newNotificationFixture(newFakeTicketRepo(), &fakeHistoryRepo{})

	publishUpdate(dispatcher, statusChange(domain.StatusInProgress, domain.StatusResolved))

	if len(sender.messages) != 1 {
		t.Fatalf("messages = %d, want exactly 1", len(sender.messages))
	}
	if sender.messages[0].To[0] != reporter.Email {
		t.Errorf("recipient = %s, want the reporter", sender.messages[0].To[0])
	}
}

func TestClosedNotifiesReporter(t *testing.T) {
	dispatcher, sender, _ := newNotificationFixture(newFakeTicketRepo(), &fakeHistoryRepo{})

	publishUpdate(dispatcher, statusChange(domain.StatusResolved, domain.StatusClosed))

	if len(sender.messages) != 1 || sender.messages[0].To[0] != reporter.Email {
		t.Fatalf("want one message to the reporter, got %+v", sender.messages)
	}
}

func TestReopenNotifiesAssignee(t *testing.T) {
	dispatcher, sender, _ := newNotificationFixture(newFakeTicketRepo(), &fakeHistoryRepo{})

	publishUpdate(dispatcher, statusChange(domain.StatusResolved, domain.StatusInProgress))

	if len(sender.messages) != 1 || sender.messages[0].To[0] != assignee.Email {
		t.Fatalf("want one message to the assignee, got %+v", sender.messages)
	}
}

func TestDeadlineChangeNotifiesAssignee(t *testing.T) {
	dispatcher, sender, _ := newNotificationFixture(newFakeTicketRepo(), &fakeHistoryRepo{})

	after := "2026-09-05"
	publishUpdate(dispatcher, events.ChangeSummary{
		Field: domain.ActionExpectedCompletionDate,
		After: &after,
	})

	if len(sender.messages) != 1 || sender.messages[0].To[0] != assignee.Email {
		t.Fatalf("want one message to the assignee, got %+v", sender.messages)
	}
}

func TestReassignmentNotifiesNewAssignee(t *testing.T) {
	dispatcher, sender, _ := newNotificationFixture(newFakeTicketRepo(), &fakeHistoryRepo{})

	before := "E7"
	after := assignee.EmpID
	publishUpdate(dispatcher, events.ChangeSummary{
		Field:  domain.ActionAssigneeEmployee,
		Before: &before,
		After:  &after,
	})

	if len(sender.messages) != 1 || sender.messages[0].To[0] != assignee.Email {
		t.Fatalf("want one message to the new assignee, got %+v", sender.messages)
	}
}

func TestMultipleRulesFireFromOneUpdate(t *testing.T) {
	dispatcher, sender, _ := newNotificationFixture(newFakeTicketRepo(), &fakeHistoryRepo{})

	after := "2026-09-05"
	publishUpdate(dispatcher,
		statusChange(domain.StatusInProgress, domain.StatusResolved),
		events.ChangeSummary{Field: domain.ActionExpectedCompletionDate, After: &after},
	)

	if len(sender.messages) != 2 {
		t.Fatalf("messages = %d, want 2 (one per fired rule)", len(sender.messages))
	}
}

func TestPriorityOnlyChangeSendsNothing(t *testing.T) {
	dispatcher, sender, _ := newNotificationFixture(newFakeTicketRepo(), &fakeHistoryRepo{})

	before := "Medium"
	after := "High"
	publishUpdate(dispatcher, events.ChangeSummary{
		Field:  domain.ActionPriority,
		Before: &before,
		After:  &after,
	})

	if len(sender.messages) != 0 {
		t.Fatalf("messages = %d, want 0 for a priority-only change", len(sender.messages))
	}
}

func TestInboxExcludesSelfAuthoredRecords(t *testing.T) {
	ticket := existingTicket(domain.StatusInProgress)
	tickets := newFakeTicketRepo(ticket)
	history := &fakeHistoryRepo{}
	_, _, svc := newNotificationFixture(tickets, history)

	_ = history.Create(context.Background(), &domain.HistoryRecord{
		TicketNumber: ticket.TicketNumber,
		Actor:        domain.HumanActor(assignee.EmpID),
		ActionType:   domain.ActionStatus,
		Comment:      "Updated Status",
	})
	_ = history.Create(context.Background(), &domain.HistoryRecord{
		TicketNumber: ticket.TicketNumber,
		Actor:        domain.HumanActor(reporter.EmpID),
		ActionType:   domain.ActionStatus,
		Comment:      "Resolution rejected",
	})

	inbox, err := svc.Inbox(context.Background(), reporter.EmpID, "all")
	if err != nil {
		t.Fatalf("inbox failed: %v", err)
	}
	if len(inbox) != 1 {
		t.Fatalf("inbox entries = %d, want 1 (self-authored excluded)", len(inbox))
	}
	if inbox[0].Actor.EmpID != assignee.EmpID {
		t.Errorf("inbox entry author = %s, want the assignee", inbox[0].Actor.EmpID)
	}

	counts, err := svc.InboxCounts(context.Background(), reporter.EmpID)
	if err != nil {
		t.Fatalf("counts failed: %v", err)
	}
	if counts.All != 1 || counts.Unread != 1 || counts.Read != 0 {
		t.Errorf("counts = %+v, want all=1 unread=1 read=0", counts)
	}
}
