package queuesvc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/cpmappstudio/alef-university-sub001/core"
)

// popTimeout bounds each BRPOP so that a canceled context is noticed.
const popTimeout = 5 * time.Second

type RedisQueue struct {
	client *redis.Client
	name   string
	dlq    string
	ttl    time.Duration
	logger core.Logger
	clock  core.Clock
}

var _ Queue = (*RedisQueue)(nil) // interface compliance check

func NewRedisQueue(conf *core.Config, logger core.Logger, clock core.Clock) (*RedisQueue, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address(),
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
		PoolSize: conf.Redis.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}

	if clock == nil {
		clock = core.SystemClock
	}
	return &RedisQueue{
		client: rdb,
		name:   conf.Redis.ImportQueue,
		dlq:    conf.Redis.ImportQueue + conf.Redis.DLQSuffix,
		ttl:    conf.Redis.JobTTL,
		logger: logger,
		clock:  clock,
	}, nil
}

func (q *RedisQueue) stateKey(id string) string {
	return fmt.Sprintf("%s:job:%s", q.name, id)
}

func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, "encoding job")
	}
	if err = q.SaveState(ctx, State{Job: job, Status: StatusQueued}); err != nil {
		return err
	}
	return errors.Wrap(q.client.LPush(ctx, q.name, data).Err(), "enqueuing job")
}

func (q *RedisQueue) Consume(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := q.client.BRPop(ctx, popTimeout, q.name).Result()
		if err != nil {
			if err == redis.Nil {
				continue // timeout, poll again
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			q.logger.Error(fmt.Sprintf("queuesvc: consuming %s: %v", q.name, err), err)
			continue
		}
		if len(result) < 2 {
			continue
		}

		message := result[1]
		var job Job
		if err = json.Unmarshal([]byte(message), &job); err == nil {
			err = handler(ctx, job)
		}
		if err != nil {
			q.logger.Error(fmt.Sprintf("queuesvc: processing job from %s: %v", q.name, err), err)
			if dlqErr := q.client.LPush(ctx, q.dlq, message).Err(); dlqErr != nil {
				q.logger.Error(fmt.Sprintf("queuesvc: moving job to %s: %v", q.dlq, dlqErr), dlqErr)
			}
		}
	}
}

func (q *RedisQueue) DeadLetter(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, "encoding job")
	}
	return errors.Wrapf(q.client.LPush(ctx, q.dlq, data).Err(), "moving job to %s", q.dlq)
}

func (q *RedisQueue) SaveState(ctx context.Context, state State) error {
	state.UpdatedAt = q.clock.Now().UTC()
	data, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "encoding job state")
	}
	return errors.Wrap(q.client.Set(ctx, q.stateKey(state.Job.ID), data, q.ttl).Err(), "saving job state")
}

func (q *RedisQueue) State(ctx context.Context, id string) (State, error) {
	data, err := q.client.Get(ctx, q.stateKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return State{}, ErrJobNotFound
		}
		return State{}, errors.Wrap(err, "reading job state")
	}
	var state State
	if err = json.Unmarshal(data, &state); err != nil {
		return State{}, errors.Wrap(err, "decoding job state")
	}
	return state, nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
