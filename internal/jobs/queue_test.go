package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/platewise/platewise-backend/internal/repos"
	"github.com/platewise/platewise-backend/internal/repos/testutil"
	"github.com/platewise/platewise-backend/internal/types"
)

// gateRunner blocks inside SyncProvider until released, so tests can
// observe the queue mid-job.
type gateRunner struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
	err     error
}

func newGateRunner() *gateRunner {
	return &gateRunner{started: make(chan struct{}, 8), release: make(chan struct{})}
}

func (r *gateRunner) SyncProvider(ctx context.Context, providerKey, query string) (int, error) {
	r.calls.Add(1)
	r.started <- struct{}{}
	<-r.release
	return 1, r.err
}

func (r *gateRunner) SyncAll(ctx context.Context, query string) (int, error) {
	return r.SyncProvider(ctx, "", query)
}

func (r *gateRunner) ImportFromURL(ctx context.Context, providerKey, menuURL string) (int, error) {
	return r.SyncProvider(ctx, providerKey, menuURL)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func strPtr(s string) *string { return &s }

func TestQueue_RunsJobsOneAtATime(t *testing.T) {
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	jobRepo := repos.NewSyncJobRepo(gdb, log)
	runner := newGateRunner()
	q := NewQueue(jobRepo, runner, 8, log)
	q.Start(context.Background())
	defer q.Stop()

	ctx := context.Background()
	idA, err := q.EnqueueSync(ctx, strPtr("wolt"), "")
	if err != nil {
		t.Fatalf("enqueue A: %v", err)
	}
	idB, err := q.EnqueueSync(ctx, strPtr("lieferando"), "")
	if err != nil {
		t.Fatalf("enqueue B: %v", err)
	}

	<-runner.started

	// A is blocked mid-run; B must still be pending, never a second runner.
	running, err := jobRepo.CountByStatus(ctx, nil, types.SyncJobStatusRunning)
	if err != nil || running != 1 {
		t.Fatalf("expected exactly 1 running job, got %d (err %v)", running, err)
	}
	jobB, err := jobRepo.GetByID(ctx, nil, idB)
	if err != nil || jobB == nil {
		t.Fatalf("load job B: %v", err)
	}
	if jobB.Status != types.SyncJobStatusPending {
		t.Fatalf("expected job B pending while A runs, got %q", jobB.Status)
	}
	if got := runner.calls.Load(); got != 1 {
		t.Fatalf("expected 1 runner invocation so far, got %d", got)
	}

	runner.release <- struct{}{}
	<-runner.started
	runner.release <- struct{}{}

	waitFor(t, "both jobs to complete", func() bool {
		a, _ := jobRepo.GetByID(ctx, nil, idA)
		b, _ := jobRepo.GetByID(ctx, nil, idB)
		return a != nil && b != nil &&
			a.Status == types.SyncJobStatusCompleted &&
			b.Status == types.SyncJobStatusCompleted
	})
}

func TestQueue_FailedJobRecordsError(t *testing.T) {
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	jobRepo := repos.NewSyncJobRepo(gdb, log)
	runner := newGateRunner()
	runner.err = errors.New("database gone away")
	q := NewQueue(jobRepo, runner, 8, log)
	q.Start(context.Background())
	defer q.Stop()

	ctx := context.Background()
	id, err := q.EnqueueSync(ctx, strPtr("wolt"), "")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	<-runner.started
	runner.release <- struct{}{}

	waitFor(t, "job to fail", func() bool {
		job, _ := jobRepo.GetByID(ctx, nil, id)
		return job != nil && job.Status == types.SyncJobStatusFailed
	})

	job, err := jobRepo.GetByID(ctx, nil, id)
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	if job.ErrorMessage != "database gone away" {
		t.Fatalf("expected error recorded, got %q", job.ErrorMessage)
	}
	if job.StartedAt == nil || job.FinishedAt == nil {
		t.Fatalf("expected timestamps on terminal job, got %+v", job)
	}
}

func TestQueue_StopLetsInFlightJobFinish(t *testing.T) {
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	jobRepo := repos.NewSyncJobRepo(gdb, log)
	runner := newGateRunner()
	q := NewQueue(jobRepo, runner, 8, log)
	q.Start(context.Background())

	ctx := context.Background()
	id, err := q.EnqueueSync(ctx, strPtr("wolt"), "")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	<-runner.started

	stopped := make(chan struct{})
	go func() {
		q.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatalf("Stop returned while a job was still running")
	case <-time.After(50 * time.Millisecond):
	}

	runner.release <- struct{}{}
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatalf("Stop never returned after the job finished")
	}

	// Shutdown must not strand the row mid-flight.
	job, err := jobRepo.GetByID(ctx, nil, id)
	if err != nil || job == nil {
		t.Fatalf("load job: %v", err)
	}
	if job.Status != types.SyncJobStatusCompleted {
		t.Fatalf("expected completed job after Stop, got %q", job.Status)
	}
	if job.FinishedAt == nil {
		t.Fatalf("expected finished_at on job after Stop, got %+v", job)
	}
}

type panicRunner struct{}

func (panicRunner) SyncProvider(ctx context.Context, providerKey, query string) (int, error) {
	panic("connector exploded")
}
func (panicRunner) SyncAll(ctx context.Context, query string) (int, error) { panic("boom") }
func (panicRunner) ImportFromURL(ctx context.Context, providerKey, menuURL string) (int, error) {
	panic("boom")
}

func TestQueue_PanicDoesNotKillWorker(t *testing.T) {
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	jobRepo := repos.NewSyncJobRepo(gdb, log)
	q := NewQueue(jobRepo, panicRunner{}, 8, log)
	q.Start(context.Background())
	defer q.Stop()

	ctx := context.Background()
	first, err := q.EnqueueSync(ctx, strPtr("wolt"), "")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	second, err := q.EnqueueSync(ctx, strPtr("wolt"), "")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitFor(t, "both panicking jobs to fail", func() bool {
		a, _ := jobRepo.GetByID(ctx, nil, first)
		b, _ := jobRepo.GetByID(ctx, nil, second)
		return a != nil && b != nil &&
			a.Status == types.SyncJobStatusFailed &&
			b.Status == types.SyncJobStatusFailed
	})
}

func TestQueue_FullBacklogRejectsEnqueue(t *testing.T) {
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	jobRepo := repos.NewSyncJobRepo(gdb, log)
	// Worker never started: the first enqueue fills the backlog.
	q := NewQueue(jobRepo, newGateRunner(), 1, log)

	ctx := context.Background()
	if _, err := q.EnqueueSync(ctx, strPtr("wolt"), ""); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	id, err := q.EnqueueSync(ctx, strPtr("wolt"), "")
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if id != uuid.Nil {
		t.Fatalf("expected nil id on rejection")
	}

	failed, err := jobRepo.CountByStatus(ctx, nil, types.SyncJobStatusFailed)
	if err != nil || failed != 1 {
		t.Fatalf("expected rejected job recorded as failed, got %d (err %v)", failed, err)
	}
}

func TestQueue_EnqueueImportFromURL(t *testing.T) {
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	jobRepo := repos.NewSyncJobRepo(gdb, log)
	runner := newGateRunner()
	q := NewQueue(jobRepo, runner, 8, log)
	q.Start(context.Background())
	defer q.Stop()

	ctx := context.Background()
	id, err := q.EnqueueImportFromURL(ctx, "wolt", "https://example.test/menu")
	if err != nil {
		t.Fatalf("enqueue import: %v", err)
	}
	<-runner.started
	runner.release <- struct{}{}

	waitFor(t, "import job to complete", func() bool {
		job, _ := jobRepo.GetByID(ctx, nil, id)
		return job != nil && job.Status == types.SyncJobStatusCompleted
	})

	job, _ := jobRepo.GetByID(ctx, nil, id)
	if job.Kind != types.SyncJobKindImport || job.ImportURL != "https://example.test/menu" {
		t.Fatalf("unexpected job row: %+v", job)
	}
}
