package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/platewise/platewise-backend/internal/logger"
)

// Scheduler enqueues a full sync on a fixed interval. An interval of zero
// or less disables it entirely.
type Scheduler struct {
	queue    *Queue
	interval time.Duration
	log      *logger.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewScheduler(queue *Queue, interval time.Duration, baseLog *logger.Logger) *Scheduler {
	return &Scheduler{
		queue:    queue,
		interval: interval,
		log:      baseLog.With("component", "SyncScheduler"),
	}
}

// Start is idempotent; a second call while running does nothing.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info("periodic sync disabled")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.started = true
	s.log.Info("periodic sync enabled", "interval", s.interval.String())
	go s.loop(ctx)
}

// Stop blocks until the ticker goroutine has exited; no enqueue happens
// after it returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.queue.EnqueueSync(ctx, nil, ""); err != nil {
				if errors.Is(err, ErrQueueFull) {
					s.log.Warn("skipping scheduled sync, queue full")
					continue
				}
				s.log.Error("scheduled sync enqueue failed", "error", err)
			}
		}
	}
}
