package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/platewise/platewise-backend/internal/logger"
	"github.com/platewise/platewise-backend/internal/repos"
	"github.com/platewise/platewise-backend/internal/types"
)

// ErrQueueFull is returned when the pending backlog is at capacity; the
// caller should retry later rather than pile on.
var ErrQueueFull = errors.New("sync queue full")

const defaultQueueCapacity = 32

// Runner is the work a job executes. Satisfied by services.SyncService.
type Runner interface {
	SyncProvider(ctx context.Context, providerKey, query string) (int, error)
	SyncAll(ctx context.Context, query string) (int, error)
	ImportFromURL(ctx context.Context, providerKey, menuURL string) (int, error)
}

// Queue runs sync and import jobs strictly one at a time off a bounded FIFO
// backlog. Enqueue returns the persisted job id immediately; progress is
// observed by polling the job row.
type Queue struct {
	jobRepo repos.SyncJobRepo
	runner  Runner
	log     *logger.Logger

	pending chan uuid.UUID

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewQueue(jobRepo repos.SyncJobRepo, runner Runner, capacity int, baseLog *logger.Logger) *Queue {
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	return &Queue{
		jobRepo: jobRepo,
		runner:  runner,
		log:     baseLog.With("component", "SyncQueue"),
		pending: make(chan uuid.UUID, capacity),
	}
}

// Start launches the single worker goroutine. Calling it twice is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.done = make(chan struct{})
	q.started = true
	go q.loop(ctx)
}

// Stop halts the worker after the in-flight job, if any, finishes.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.started = false
	cancel, done := q.cancel, q.done
	q.mu.Unlock()

	cancel()
	<-done
}

// EnqueueSync queues a provider cycle. A nil providerKey means all
// registered providers.
func (q *Queue) EnqueueSync(ctx context.Context, providerKey *string, query string) (uuid.UUID, error) {
	job := &types.SyncJob{
		Kind:        types.SyncJobKindSync,
		ProviderKey: providerKey,
		Status:      types.SyncJobStatusPending,
		Query:       query,
	}
	return q.enqueue(ctx, job)
}

func (q *Queue) EnqueueImportFromURL(ctx context.Context, providerKey, menuURL string) (uuid.UUID, error) {
	key := providerKey
	job := &types.SyncJob{
		Kind:        types.SyncJobKindImport,
		ProviderKey: &key,
		Status:      types.SyncJobStatusPending,
		ImportURL:   menuURL,
	}
	return q.enqueue(ctx, job)
}

func (q *Queue) enqueue(ctx context.Context, job *types.SyncJob) (uuid.UUID, error) {
	if err := q.jobRepo.Create(ctx, nil, job); err != nil {
		return uuid.Nil, err
	}
	select {
	case q.pending <- job.ID:
		return job.ID, nil
	default:
		// Backlog full; fail the row so the caller sees a terminal state.
		_ = q.jobRepo.UpdateFields(ctx, nil, job.ID, map[string]interface{}{
			"status":        types.SyncJobStatusFailed,
			"error_message": ErrQueueFull.Error(),
		})
		return uuid.Nil, ErrQueueFull
	}
}

func (q *Queue) loop(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-q.pending:
			// The cancel only stops dequeueing. A job already picked up
			// must still reach a terminal row state, so it runs detached.
			q.runJob(context.WithoutCancel(ctx), id)
		}
	}
}

// runJob executes one job to a terminal status. Panics in the runner are
// contained so a bad provider payload cannot kill the worker.
func (q *Queue) runJob(ctx context.Context, id uuid.UUID) {
	job, err := q.jobRepo.GetByID(ctx, nil, id)
	if err != nil || job == nil {
		q.log.Error("job lookup failed", "job_id", id, "error", err)
		return
	}

	started := time.Now().UTC()
	if err := q.jobRepo.UpdateFields(ctx, nil, id, map[string]interface{}{
		"status":     types.SyncJobStatusRunning,
		"started_at": started,
	}); err != nil {
		q.log.Error("job start update failed", "job_id", id, "error", err)
		return
	}

	synced, runErr := q.execute(ctx, job)

	finished := time.Now().UTC()
	updates := map[string]interface{}{
		"finished_at":        finished,
		"restaurants_synced": synced,
	}
	if runErr != nil {
		updates["status"] = types.SyncJobStatusFailed
		updates["error_message"] = runErr.Error()
		q.log.Error("job failed", "job_id", id, "kind", job.Kind, "error", runErr)
	} else {
		updates["status"] = types.SyncJobStatusCompleted
		q.log.Info("job completed", "job_id", id, "kind", job.Kind, "restaurants_synced", synced, "duration", finished.Sub(started).String())
	}
	if err := q.jobRepo.UpdateFields(ctx, nil, id, updates); err != nil {
		q.log.Error("job finish update failed", "job_id", id, "error", err)
	}
}

func (q *Queue) execute(ctx context.Context, job *types.SyncJob) (synced int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panic: %v", r)
			q.log.Error("job panicked", "job_id", job.ID, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	switch {
	case job.Kind == types.SyncJobKindImport:
		return q.runner.ImportFromURL(ctx, deref(job.ProviderKey), job.ImportURL)
	case job.ProviderKey != nil && *job.ProviderKey != "":
		return q.runner.SyncProvider(ctx, *job.ProviderKey, job.Query)
	default:
		return q.runner.SyncAll(ctx, job.Query)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
