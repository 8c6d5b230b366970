package workersvc_test

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/importer"
	blobsvc "github.com/cpmappstudio/alef-university-sub001/services/blob"
	queuesvc "github.com/cpmappstudio/alef-university-sub001/services/queue"
	workersvc "github.com/cpmappstudio/alef-university-sub001/services/worker"
	testutil "github.com/cpmappstudio/alef-university-sub001/tests"
)

const gradesJSONL = `{"programCode":"01L","courseCode":"CCOU-08","bimesterName":"2021 Bimester I","groupNumber":1,"professorEmail":"prof@alef.test","students":[{"studentCode":"01L-0001","percentageGrade":91},{"studentCode":"01L-0002","percentageGrade":78.5}]}
{"programCode":"01L","courseCode":"CCOU-08","bimesterName":"2021 Bimester I","groupNumber":2,"professorEmail":"prof@alef.test","students":[{"studentCode":"01L-0003","percentageGrade":150}]}
`

func TestPool(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()

	pool := workersvc.NewPool(3, f.Logger)
	pool.Start(ctx)

	var done int32
	for i := 0; i < 20; i++ {
		require.NoError(t, pool.Submit(ctx, func(context.Context) error {
			atomic.AddInt32(&done, 1)
			return nil
		}))
	}
	pool.Stop()
	assert.Equal(t, int32(20), atomic.LoadInt32(&done), "Stop waits for submitted tasks")

	err := pool.Submit(ctx, func(context.Context) error { return nil })
	assert.Equal(t, workersvc.ErrPoolStopped, err)
	pool.Stop() // stopping twice is harmless
}

func TestPool_DrainsAfterCancel(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	pool := workersvc.NewPool(1, f.Logger)
	pool.Start(ctx)

	release := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func(context.Context) error {
		<-release
		return nil
	}))
	var drained, canceled int32
	for i := 0; i < 2; i++ {
		require.NoError(t, pool.Submit(context.Background(), func(ctx context.Context) error {
			atomic.AddInt32(&drained, 1)
			if ctx.Err() != nil {
				atomic.AddInt32(&canceled, 1)
			}
			return nil
		}))
	}

	cancel()
	close(release)
	pool.Stop()
	assert.Equal(t, int32(2), atomic.LoadInt32(&drained), "buffered tasks run after cancel")
	assert.Equal(t, int32(2), atomic.LoadInt32(&canceled))
}

type setup struct {
	fixture   *testutil.Fixture
	cat       testutil.Catalog
	queue     *queuesvc.MemoryQueue
	blobs     *blobsvc.LocalStore
	runner    *workersvc.ImportRunner
	scheduler *workersvc.Scheduler
}

func newSetup(t *testing.T) setup {
	t.Helper()
	f := testutil.NewFixture(t)
	blobs, err := blobsvc.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	q := queuesvc.NewMemoryQueue(time.Hour, f.Logger, f.Clock)
	runner, err := workersvc.NewImportRunner(q, blobs, f.Services.Importer, 2, f.Logger)
	require.NoError(t, err)
	return setup{
		fixture:   f,
		cat:       f.Seed(t),
		queue:     q,
		blobs:     blobs,
		runner:    runner,
		scheduler: workersvc.NewScheduler(q, blobs, f.Clock),
	}
}

func waitFor(t *testing.T, s setup, id string, status queuesvc.Status) queuesvc.State {
	t.Helper()
	var st queuesvc.State
	require.Eventually(t, func() bool {
		var err error
		st, err = s.scheduler.State(context.Background(), id)
		return err == nil && st.Status == status
	}, 5*time.Second, 10*time.Millisecond, "job %s never reached %s", id, status)
	return st
}

func TestImportRunner(t *testing.T) {
	s := newSetup(t)
	admin := testutil.Principal(s.cat.Admin)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job, err := s.scheduler.Schedule(ctx, admin, importer.Source{Name: "grades.jsonl", Reader: strings.NewReader(gradesJSONL)}, false)
	require.NoError(t, err)
	assert.Equal(t, "imports/"+job.ID+"/grades.jsonl", job.BlobKey)
	assert.Equal(t, admin.UserID, job.Actor.UserID)

	st, err := s.scheduler.State(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, queuesvc.StatusQueued, st.Status)

	stopped := make(chan error)
	go func() { stopped <- s.runner.Run(ctx) }()

	st = waitFor(t, s, job.ID, queuesvc.StatusCompleted)
	assert.Equal(t, importer.PhaseCompleted, st.Phase)
	require.NotNil(t, st.Result)
	assert.Equal(t, 2, st.Result.TotalRecords)
	assert.Equal(t, 1, st.Result.ValidRecords)
	assert.Equal(t, 2, st.Result.EnrollmentsCreated)
	assert.Len(t, st.Result.Errors, 1)

	// the file stays archived
	ok, err := s.blobs.Exists(ctx, job.BlobKey)
	require.NoError(t, err)
	assert.True(t, ok)

	// a dry run of the same file would change nothing
	job, err = s.scheduler.Schedule(ctx, admin, importer.Source{Name: "grades.jsonl", Reader: strings.NewReader(gradesJSONL)}, true)
	require.NoError(t, err)
	st = waitFor(t, s, job.ID, queuesvc.StatusCompleted)
	assert.True(t, st.Result.DryRun)
	assert.Equal(t, 2, st.Result.EnrollmentsUnchanged)

	cancel()
	select {
	case err = <-stopped:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return")
	}
}

func TestImportRunner_Failures(t *testing.T) {
	s := newSetup(t)
	admin := testutil.Principal(s.cat.Admin)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broken, err := s.scheduler.Schedule(ctx, admin, importer.Source{Name: "broken.jsonl", Reader: strings.NewReader("{\n")}, false)
	require.NoError(t, err)

	lost := queuesvc.Job{ID: "lost", Source: "lost.jsonl", BlobKey: "imports/lost/lost.jsonl", Actor: *admin}
	require.NoError(t, s.queue.Enqueue(ctx, lost))

	go func() { _ = s.runner.Run(ctx) }()

	st := waitFor(t, s, broken.ID, queuesvc.StatusFailed)
	assert.Equal(t, importer.PhaseIdle, st.Phase)
	assert.Contains(t, st.Error, "line 1")
	assert.Nil(t, st.Result)

	st = waitFor(t, s, lost.ID, queuesvc.StatusFailed)
	assert.Contains(t, st.Error, core.ErrBlobNotFound.Error())

	// both failed jobs end up in the dead-letter list
	require.Eventually(t, func() bool { return len(s.queue.Dead()) == 2 }, 5*time.Second, 10*time.Millisecond)
	var ids []string
	for _, job := range s.queue.Dead() {
		ids = append(ids, job.ID)
	}
	assert.ElementsMatch(t, []string{broken.ID, lost.ID}, ids)
}

func TestImportRunner_SucceededJobsNotDeadLettered(t *testing.T) {
	s := newSetup(t)
	admin := testutil.Principal(s.cat.Admin)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job, err := s.scheduler.Schedule(ctx, admin, importer.Source{Name: "grades.jsonl", Reader: strings.NewReader(gradesJSONL)}, true)
	require.NoError(t, err)
	go func() { _ = s.runner.Run(ctx) }()

	waitFor(t, s, job.ID, queuesvc.StatusCompleted)
	assert.Empty(t, s.queue.Dead())
}

func TestScheduler_Rejects(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()
	src := importer.Source{Name: "grades.jsonl", Reader: strings.NewReader(gradesJSONL)}

	_, err := s.scheduler.Schedule(ctx, nil, src, false)
	assert.Equal(t, core.ErrUnauthenticated, err)

	_, err = s.scheduler.Schedule(ctx, testutil.Principal(s.cat.Professor), src, false)
	assert.Equal(t, core.ErrForbidden, err)

	_, err = s.scheduler.Schedule(ctx, testutil.Principal(s.cat.Admin), importer.Source{Name: "grades.csv", Reader: strings.NewReader("")}, false)
	assert.Equal(t, importer.ErrUnsupportedFileType, err)
}
