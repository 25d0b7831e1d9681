package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/platewise/platewise-backend/internal/repos"
	"github.com/platewise/platewise-backend/internal/repos/testutil"
)

func countJobs(t *testing.T, jobRepo repos.SyncJobRepo) int {
	t.Helper()
	rows, err := jobRepo.ListRecent(context.Background(), nil, 100)
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	return len(rows)
}

func TestScheduler_EnqueuesAndStopsCleanly(t *testing.T) {
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	jobRepo := repos.NewSyncJobRepo(gdb, log)
	q := NewQueue(jobRepo, newGateRunner(), 32, log)

	s := NewScheduler(q, 10*time.Millisecond, log)
	s.Start(context.Background())
	// Second Start while running is a no-op.
	s.Start(context.Background())

	waitFor(t, "scheduled jobs to appear", func() bool {
		return countJobs(t, jobRepo) >= 2
	})

	s.Stop()
	after := countJobs(t, jobRepo)
	time.Sleep(50 * time.Millisecond)
	if got := countJobs(t, jobRepo); got != after {
		t.Fatalf("enqueues continued after Stop: %d then %d", after, got)
	}

	// Stop twice is safe, and the scheduler can be restarted.
	s.Stop()
	s.Start(context.Background())
	waitFor(t, "restarted scheduler to enqueue", func() bool {
		return countJobs(t, jobRepo) > after
	})
	s.Stop()
}

func TestScheduler_ZeroIntervalDisables(t *testing.T) {
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	jobRepo := repos.NewSyncJobRepo(gdb, log)
	q := NewQueue(jobRepo, newGateRunner(), 32, log)

	s := NewScheduler(q, 0, log)
	s.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	if got := countJobs(t, jobRepo); got != 0 {
		t.Fatalf("disabled scheduler enqueued %d jobs", got)
	}
	// Stop on a never-started scheduler must not block.
	s.Stop()
}
