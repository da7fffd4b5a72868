package delivery

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Runner executes one delivery run.
type Runner interface {
	Run(ctx context.Context, chat Chat, trackID string, status StatusMessage) Result
}

// Launcher starts delivery runs as detached background tasks so that
// update handlers return immediately.
type Launcher struct {
	runner  Runner
	slots   *semaphore.Weighted
	timeout time.Duration
	logger  *zap.Logger

	wg sync.WaitGroup
}

// NewLauncher allows at most maxParallel runs in flight, each bounded by timeout.
func NewLauncher(runner Runner, maxParallel int, timeout time.Duration, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxParallel <= 0 {
		maxParallel = 1
	}
	return &Launcher{
		runner:  runner,
		slots:   semaphore.NewWeighted(int64(maxParallel)),
		timeout: timeout,
		logger:  logger,
	}
}

// Launch accepts a run and returns at once. A false result means every slot
// is busy and nothing was started; true means accepted, not completed.
// The run outlives ctx cancellation but keeps its values.
func (l *Launcher) Launch(ctx context.Context, chat Chat, trackID string, status StatusMessage) bool {
	if !l.slots.TryAcquire(1) {
		l.logger.Warn("download rejected: all slots busy", zap.String("trackID", trackID))
		return false
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer l.slots.Release(1)
		defer func() {
			if rec := recover(); rec != nil {
				l.logger.Error("detached download panicked", zap.String("trackID", trackID), zap.Any("panic", rec), zap.Stack("stack"))
			}
		}()

		runCtx := context.WithoutCancel(ctx)
		if l.timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(runCtx, l.timeout)
			defer cancel()
		}

		res := l.runner.Run(runCtx, chat, trackID, status)
		if !res.Delivered() {
			l.logger.Info("detached download finished without delivery",
				zap.String("trackID", trackID),
				zap.String("runID", res.RunID),
				zap.Stringer("failure", res.Failure))
		}
	}()
	return true
}

// Wait blocks until every accepted run has finished or ctx is done.
func (l *Launcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
