package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/eventcraft/notifications/internal/observability"
	"go.uber.org/zap"
)

const defaultDueScanInterval = 30 * time.Second

type scheduledDispatcher interface {
	ProcessScheduled(ctx context.Context) error
}

// DueScanner periodically dispatches pending notifications whose scheduled
// time has passed. An in-progress flag skips a tick instead of letting two
// scans race when one runs long.
type DueScanner struct {
	dispatch scheduledDispatcher
	logger   *zap.Logger
	metrics  *observability.Metrics
	interval time.Duration
	running  atomic.Bool
}

func NewDueScanner(dispatch scheduledDispatcher, interval time.Duration, logger *zap.Logger) (*DueScanner, error) {
	if dispatch == nil {
		return nil, fmt.Errorf("dispatch service is required")
	}
	if interval <= 0 {
		interval = defaultDueScanInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DueScanner{
		dispatch: dispatch,
		logger:   logger,
		interval: interval,
	}, nil
}

func (s *DueScanner) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *DueScanner) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Run an initial scan so already-due records do not wait for the first
	// ticker edge.
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *DueScanner) runOnce(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Info("due scan still in progress, skipping tick")
		s.metrics.IncSchedulerRun("due_scan", "skipped")
		return
	}
	defer s.running.Store(false)

	if err := s.dispatch.ProcessScheduled(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("due scan failed", zap.Error(err))
		s.metrics.IncSchedulerRun("due_scan", "error")
		return
	}

	s.metrics.IncSchedulerRun("due_scan", "ok")
}
