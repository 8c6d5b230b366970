package queuesvc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/cpmappstudio/alef-university-sub001/core"
)

const memoryQueueSize = 64

// MemoryQueue runs jobs within the API process when no Redis is configured.
// States expire like Redis keys do.
type MemoryQueue struct {
	jobs   chan Job
	states *cache.Cache
	logger core.Logger
	clock  core.Clock

	mu   sync.Mutex
	dead []Job
}

var _ Queue = (*MemoryQueue)(nil) // interface compliance check

func NewMemoryQueue(ttl time.Duration, logger core.Logger, clock core.Clock) *MemoryQueue {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	if clock == nil {
		clock = core.SystemClock
	}
	return &MemoryQueue{
		jobs:   make(chan Job, memoryQueueSize),
		states: cache.New(ttl, 10*time.Minute),
		logger: logger,
		clock:  clock,
	}
}

// Enqueue fails instead of blocking when the queue is full.
func (q *MemoryQueue) Enqueue(ctx context.Context, job Job) error {
	if err := q.SaveState(ctx, State{Job: job, Status: StatusQueued}); err != nil {
		return err
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		q.states.Delete(job.ID)
		return fmt.Errorf("import queue is full (%d jobs)", memoryQueueSize)
	}
}

func (q *MemoryQueue) Consume(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-q.jobs:
			if err := handler(ctx, job); err != nil {
				q.logger.Error(fmt.Sprintf("queuesvc: processing job %s: %v", job.ID, err), err)
				_ = q.DeadLetter(ctx, job)
			}
		}
	}
}

func (q *MemoryQueue) DeadLetter(_ context.Context, job Job) error {
	q.mu.Lock()
	q.dead = append(q.dead, job)
	q.mu.Unlock()
	return nil
}

func (q *MemoryQueue) SaveState(_ context.Context, state State) error {
	state.UpdatedAt = q.clock.Now().UTC()
	q.states.SetDefault(state.Job.ID, state)
	return nil
}

func (q *MemoryQueue) State(_ context.Context, id string) (State, error) {
	v, ok := q.states.Get(id)
	if !ok {
		return State{}, ErrJobNotFound
	}
	return v.(State), nil
}

// Dead returns the jobs whose handler failed.
func (q *MemoryQueue) Dead() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Job(nil), q.dead...)
}

func (q *MemoryQueue) Close() error {
	return nil
}
