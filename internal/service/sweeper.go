package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spotdesk/spot-service/internal/domain"
	"github.com/spotdesk/spot-service/internal/events"
	"github.com/spotdesk/spot-service/internal/observability"
	"github.com/spotdesk/spot-service/internal/repository"
)

const autoCloseComment = "Auto-closed: no response within the grace period"

// Sweeper closes tickets that sat in Resolved past the grace period without
// a reporter response. It runs concurrently with user updates, so the close
// re-checks the status inside its own transaction.
type Sweeper struct {
	tickets repository.TicketRepository
	history repository.HistoryRepository
	tx      repository.TxRunner
	events  events.Dispatcher
	logger  *zap.Logger
	metrics *observability.Metrics
	grace   time.Duration
	now     func() time.Time
}

// SweeperDependencies bundles collaborators for the sweeper.
type SweeperDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.HistoryRepository
	Tx          repository.TxRunner
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Grace       time.Duration
	Now         func() time.Time
}

// NewSweeper constructs the sweeper.
func NewSweeper(deps SweeperDependencies) *Sweeper {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Sweeper{
		tickets: deps.TicketRepo,
		history: deps.HistoryRepo,
		tx:      deps.Tx,
		events:  deps.Dispatcher,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		grace:   deps.Grace,
		now:     now,
	}
}

// Sweep runs one pass: every Resolved ticket whose latest resolution is
// older than the grace period moves to Closed with a system history record.
// Per-ticket failures are logged and do not abort the rest of the batch.
// Returns how many tickets were closed.
func (s *Sweeper) Sweep(ctx context.Context) int {
	numbers, err := s.tickets.ListNumbersByStatus(ctx, domain.StatusResolved)
	if err != nil {
		s.logger.Error("sweep: listing resolved tickets failed", zap.Error(err))
		return 0
	}

	closed := 0
	for _, number := range numbers {
		ok, err := s.sweepOne(ctx, number)
		if err != nil {
			s.logger.Error("sweep: ticket failed",
				zap.String("ticket_number", number),
				zap.Error(err))
			continue
		}
		if ok {
			closed++
		}
	}
	if closed > 0 {
		s.metrics.RecordSweepClosed(closed)
		s.logger.Info("sweep completed", zap.Int("closed", closed), zap.Int("candidates", len(numbers)))
	}
	return closed
}

func (s *Sweeper) sweepOne(ctx context.Context, ticketNumber string) (bool, error) {
	anchor, err := s.history.LatestStatusTransition(ctx, ticketNumber, domain.StatusResolved)
	if err != nil {
		return false, err
	}
	if anchor == nil {
		// resolved ticket without a resolution record; nothing to anchor
		// the grace period on, so leave it alone
		return false, nil
	}

	now := s.now()
	if now.Sub(anchor.Timestamp) < s.grace {
		return false, nil
	}

	record := domain.HistoryRecord{
		TicketNumber: ticketNumber,
		Actor:        domain.SystemActor(),
		ActionType:   domain.ActionStatus,
		BeforeState:  strPtr(string(domain.StatusResolved)),
		AfterState:   strPtr(string(domain.StatusClosed)),
		Comment:      autoCloseComment,
		Timestamp:    now,
	}

	swept := false
	err = s.tx.WithinTx(ctx, func(tx pgx.Tx) error {
		// re-verify the status right before writing; a concurrent manual
		// close must not produce a second transition or duplicate history
		closed, err := s.tickets.WithTx(tx).CloseIfStatus(ctx, ticketNumber, domain.StatusResolved)
		if err != nil {
			return err
		}
		if !closed {
			return nil
		}
		swept = true
		return s.history.WithTx(tx).Create(ctx, &record)
	})
	if err != nil || !swept {
		return false, err
	}

	s.publishAutoClose(ctx, ticketNumber, anchor.Timestamp, now)
	return true, nil
}

func (s *Sweeper) publishAutoClose(ctx context.Context, ticketNumber string, resolvedAt, at time.Time) {
	if s.events == nil {
		return
	}
	ticket, err := s.tickets.GetByNumber(ctx, ticketNumber)
	if err != nil {
		s.logger.Warn("sweep: reload for notification failed",
			zap.String("ticket_number", ticketNumber),
			zap.Error(err))
		return
	}
	_ = s.events.Publish(ctx, events.Event{
		ID:           uuid.New().String(),
		Type:         events.EventTicketAutoClosed,
		TicketNumber: ticketNumber,
		Actor:        domain.SystemActor(),
		Timestamp:    at,
		Payload: events.TicketAutoClosedPayload{
			ReporterEmpID: ticket.ReporterEmpID,
			AssigneeEmpID: ticket.AssigneeEmpID,
			ResolvedAt:    resolvedAt,
		},
	})
}
