package workersvc

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/importer"
	"github.com/cpmappstudio/alef-university-sub001/core/user"
	blobsvc "github.com/cpmappstudio/alef-university-sub001/services/blob"
	queuesvc "github.com/cpmappstudio/alef-university-sub001/services/queue"
)

// ImportRunner consumes the import queue and runs each job through the importer.
type ImportRunner struct {
	queue    queuesvc.Queue
	blobs    core.BlobStore
	importer *importer.Service
	pool     *Pool
	logger   core.Logger
}

func NewImportRunner(
	queue queuesvc.Queue,
	blobs core.BlobStore,
	imp *importer.Service,
	workers int,
	logger core.Logger,
) (*ImportRunner, error) {
	err := vala.BeginValidation().Validate(
		vala.IsNotNil(queue, "queue"),
		vala.IsNotNil(blobs, "blobs"),
		vala.IsNotNil(imp, "importer"),
		vala.IsNotNil(logger, "logger"),
	).Check()
	if err != nil {
		return nil, errors.Wrap(err, "workersvc.NewImportRunner")
	}
	return &ImportRunner{
		queue:    queue,
		blobs:    blobs,
		importer: imp,
		pool:     NewPool(workers, logger),
		logger:   logger,
	}, nil
}

// Run blocks until ctx is done, then waits for the running jobs.
func (r *ImportRunner) Run(ctx context.Context) error {
	r.pool.Start(ctx)
	err := r.queue.Consume(ctx, r.handle)
	r.pool.Stop()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// handle hands job to the pool. The task dead-letters the job when its import fails.
func (r *ImportRunner) handle(ctx context.Context, job queuesvc.Job) error {
	return r.pool.Submit(ctx, func(ctx context.Context) error {
		err := r.Process(ctx, job)
		if err != nil {
			if dlqErr := r.queue.DeadLetter(context.WithoutCancel(ctx), job); dlqErr != nil {
				r.logger.Error(fmt.Sprintf("workersvc: dead-lettering job %s: %v", job.ID, dlqErr), dlqErr)
			}
		}
		return err
	})
}

// Process runs one job, recording its progress in the queue's state store.
func (r *ImportRunner) Process(ctx context.Context, job queuesvc.Job) error {
	state := queuesvc.State{Job: job, Status: queuesvc.StatusRunning, Phase: importer.PhaseIdle}
	stateCtx := context.WithoutCancel(ctx)
	save := func() {
		if err := r.queue.SaveState(stateCtx, state); err != nil {
			r.logger.Error(fmt.Sprintf("workersvc: saving state of job %s: %v", job.ID, err), err)
		}
	}
	fail := func(err error) error {
		state.Status = queuesvc.StatusFailed
		state.Phase = importer.PhaseIdle
		state.Error = err.Error()
		save()
		return errors.Wrapf(err, "import job %s", job.ID)
	}
	save()

	rc, err := r.blobs.Download(ctx, job.BlobKey)
	if err != nil {
		return fail(err)
	}
	defer func() { _ = rc.Close() }()

	actor := job.Actor
	res, err := r.importer.Run(ctx, &actor, importer.Source{Name: job.Source, Reader: rc}, importer.Options{
		DryRun: job.DryRun,
		OnPhase: func(p importer.Phase) {
			state.Phase = p
			save()
		},
	})
	if err != nil {
		return fail(err)
	}

	state.Status = queuesvc.StatusCompleted
	state.Phase = res.Phase
	state.Result = res
	save()
	r.logger.Info(fmt.Sprintf("workersvc: import job %s completed: %d/%d valid records",
		job.ID, res.ValidRecords, res.TotalRecords), &actor)
	return nil
}

// Scheduler archives import files and queues them.
type Scheduler struct {
	queue queuesvc.Queue
	blobs core.BlobStore
	clock core.Clock
}

func NewScheduler(queue queuesvc.Queue, blobs core.BlobStore, clock core.Clock) *Scheduler {
	if clock == nil {
		clock = core.SystemClock
	}
	return &Scheduler{queue: queue, blobs: blobs, clock: clock}
}

// Schedule stores src under a new job id and queues the job on behalf of actor, who must be an admin. Its state is "queued" once this returns.
func (s *Scheduler) Schedule(ctx context.Context, actor *core.Principal, src importer.Source, dryRun bool) (queuesvc.Job, error) {
	if err := actor.Require(user.AdminRoles...); err != nil {
		return queuesvc.Job{}, err
	}
	if _, err := importer.DetectFormat(src.Name); err != nil {
		return queuesvc.Job{}, err
	}

	id := uuid.New().String()
	job := queuesvc.Job{
		ID:         id,
		Source:     src.Name,
		BlobKey:    blobsvc.ImportKey(id, src.Name),
		DryRun:     dryRun,
		Actor:      *actor,
		EnqueuedAt: s.clock.Now().UTC(),
	}
	if err := s.blobs.Upload(ctx, job.BlobKey, src.Reader); err != nil {
		return queuesvc.Job{}, errors.Wrap(err, "archiving import file")
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		_ = s.blobs.Delete(ctx, job.BlobKey)
		return queuesvc.Job{}, err
	}
	return job, nil
}

// State returns the state of job id.
func (s *Scheduler) State(ctx context.Context, id string) (queuesvc.State, error) {
	return s.queue.State(ctx, id)
}
