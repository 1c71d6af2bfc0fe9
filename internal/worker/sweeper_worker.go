package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spotdesk/spot-service/internal/service"
)

// SweeperWorker drives the auto-close sweeper on a fixed cadence.
type SweeperWorker struct {
	sweeper  *service.Sweeper
	interval time.Duration
	logger   *zap.Logger
	stop     chan struct{}
	done     chan struct{}
}

// NewSweeperWorker constructs the worker.
func NewSweeperWorker(sweeper *service.Sweeper, interval time.Duration, logger *zap.Logger) *SweeperWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SweeperWorker{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop in its own goroutine.
func (w *SweeperWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *SweeperWorker) run(ctx context.Context) {
	defer close(w.done)
	w.logger.Info("sweeper worker started", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweeper.Sweep(ctx)
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop signals the loop to exit and waits for it to finish.
func (w *SweeperWorker) Stop() {
	close(w.stop)
	<-w.done
	w.logger.Info("sweeper worker stopped")
}
