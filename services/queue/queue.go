// Package queuesvc hands import jobs from the API to the workers and keeps their state.
package queuesvc

import (
	"context"
	"time"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/importer"
)

var ErrJobNotFound = core.NewNotFoundError("import job not found")

// Job is an import waiting for a worker. Its file is stored in the blob store under BlobKey.
type Job struct {
	ID         string         `json:"id"`
	Source     string         `json:"source"` // original file name
	BlobKey    string         `json:"blob_key"`
	DryRun     bool           `json:"dry_run"`
	Actor      core.Principal `json:"actor"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
}

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// State is what a client polls while its job runs.
type State struct {
	Job       Job              `json:"job"`
	Status    Status           `json:"status"`
	Phase     importer.Phase   `json:"phase"`
	Result    *importer.Result `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Handler processes one job. A returned error sends the job to the dead-letter list.
// Handlers that finish a job asynchronously call DeadLetter themselves.
type Handler func(ctx context.Context, job Job) error

type Queue interface {
	// Enqueue pushes job and records it as queued.
	Enqueue(ctx context.Context, job Job) error
	// Consume hands jobs to handler one at a time until ctx is done.
	Consume(ctx context.Context, handler Handler) error
	// DeadLetter moves a failed job to the dead-letter list.
	DeadLetter(ctx context.Context, job Job) error
	SaveState(ctx context.Context, state State) error
	// State returns ErrJobNotFound for unknown or expired jobs.
	State(ctx context.Context, id string) (State, error)
	Close() error
}

// NewQueue returns a Redis queue when one is configured, an in-process one otherwise.
func NewQueue(conf *core.Config, logger core.Logger, clock core.Clock) (Queue, error) {
	if conf.RedisEnabled() {
		return NewRedisQueue(conf, logger, clock)
	}
	return NewMemoryQueue(conf.Redis.JobTTL, logger, clock), nil
}
