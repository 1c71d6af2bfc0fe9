package domain

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	legal := []struct{ from, to TicketStatus }{
		{StatusInProgress, StatusResolved},
		{StatusInProgress, StatusOverdue},
		{StatusOverdue, StatusInProgress},
		{StatusOverdue, StatusResolved},
		{StatusResolved, StatusClosed},
		{StatusResolved, StatusInProgress},
	}
	for _, edge := range legal {
		if !CanTransition(edge.from, edge.to) {
			t.Errorf("expected %s -> %s to be legal", edge.from, edge.to)
		}
	}

	illegal := []struct{ from, to TicketStatus }{
		{StatusInProgress, StatusClosed},
		{StatusOverdue, StatusClosed},
		{StatusClosed, StatusInProgress},
		{StatusClosed, StatusResolved},
		{StatusClosed, StatusOverdue},
		{StatusResolved, StatusOverdue},
	}
	for _, edge := range illegal {
		if CanTransition(edge.from, edge.to) {
			t.Errorf("expected %s -> %s to be illegal", edge.from, edge.to)
		}
	}
}

func TestClosedIsTerminal(t *testing.T) {
	if !StatusClosed.Terminal() {
		t.Fatal("Closed must be terminal")
	}
	for _, next := range []TicketStatus{StatusInProgress, StatusOverdue, StatusResolved, StatusClosed} {
		if CanTransition(StatusClosed, next) {
			t.Errorf("Closed must have no outgoing edge, found -> %s", next)
		}
	}
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	tomorrow := now.AddDate(0, 0, 1)

	cases := []struct {
		name   string
		ticket Ticket
		want   bool
	}{
		{"explicit overdue status", Ticket{Status: StatusOverdue}, true},
		{"past deadline while open", Ticket{Status: StatusInProgress, ExpectedCompletionDate: &yesterday}, true},
		{"future deadline", Ticket{Status: StatusInProgress, ExpectedCompletionDate: &tomorrow}, false},
		{"no deadline", Ticket{Status: StatusInProgress}, false},
		{"resolved never overdue", Ticket{Status: StatusResolved, ExpectedCompletionDate: &yesterday}, false},
		{"closed never overdue", Ticket{Status: StatusClosed, ExpectedCompletionDate: &yesterday}, false},
	}
	for _, tc := range cases {
		if got := tc.ticket.IsOverdue(now); got != tc.want {
			t.Errorf("%s: IsOverdue = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCountStatuses(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	tomorrow := now.AddDate(0, 0, 1)

	tickets := []Ticket{
		{Status: StatusInProgress, ExpectedCompletionDate: &tomorrow},
		{Status: StatusInProgress, ExpectedCompletionDate: &yesterday}, // derived overdue
		{Status: StatusOverdue, ExpectedCompletionDate: &tomorrow},     // stored overdue
		{Status: StatusResolved},
		{Status: StatusClosed},
		{Status: StatusInProgress}, // no deadline: unassigned
	}

	counts := CountStatuses(tickets, now)
	if counts.Total != 6 {
		t.Errorf("Total = %d, want 6", counts.Total)
	}
	if counts.InProgress != 2 {
		t.Errorf("InProgress = %d, want 2", counts.InProgress)
	}
	if counts.Overdue != 2 {
		t.Errorf("Overdue = %d, want 2", counts.Overdue)
	}
	if counts.Resolved != 1 {
		t.Errorf("Resolved = %d, want 1", counts.Resolved)
	}
	if counts.Closed != 1 {
		t.Errorf("Closed = %d, want 1", counts.Closed)
	}
	// resolved, closed and the last in-progress ticket carry no deadline
	if counts.Unassigned != 3 {
		t.Errorf("Unassigned = %d, want 3", counts.Unassigned)
	}
}

func TestActorRoundTrip(t *testing.T) {
	human := HumanActor("E42")
	if human.IsSystem() || human.UserID() != "E42" {
		t.Fatalf("unexpected human actor encoding: %+v", human)
	}
	system := SystemActor()
	if !system.IsSystem() {
		t.Fatal("system actor must report IsSystem")
	}
	if got := ActorFromUserID(system.UserID()); !got.IsSystem() {
		t.Fatal("system actor must survive a storage round trip")
	}
	if got := ActorFromUserID("E42"); got.IsSystem() || got.EmpID != "E42" {
		t.Fatalf("human actor must survive a storage round trip, got %+v", got)
	}
}
