package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueCompensations is the Redis list key for compensation jobs.
	QueueCompensations = "worker:compensations"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
	// dequeueWait bounds one blocking pop so cancellation is observed.
	dequeueWait = 5 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeAccountDeletion      JobType = "account_deletion"
	JobTypeRegistrationDeletion JobType = "registration_deletion"
)

// AccountDeletionPayload asks the worker to delete an account in the user service.
type AccountDeletionPayload struct {
	UserID int64  `json:"user_id"`
	Reason string `json:"reason"`
}

// RegistrationDeletionPayload asks the worker to finish a withdrawal whose row
// could not be deleted inline.
type RegistrationDeletionPayload struct {
	RegistrationID int64 `json:"registration_id"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// EnqueueAccountDeletion enqueues deletion of an orphaned account.
func (q *Queue) EnqueueAccountDeletion(ctx context.Context, userID int64, reason string) error {
	job, err := NewJob(JobTypeAccountDeletion, AccountDeletionPayload{UserID: userID, Reason: reason})
	if err != nil {
		return err
	}
	if err := q.push(ctx, QueueCompensations, job); err != nil {
		return err
	}
	q.logger.Debug("enqueued account deletion job", zap.String("job_id", job.ID), zap.Int64("user_id", userID))
	return nil
}

// EnqueueRegistrationDeletion enqueues deletion of a withdrawn registration row.
func (q *Queue) EnqueueRegistrationDeletion(ctx context.Context, registrationID int64) error {
	job, err := NewJob(JobTypeRegistrationDeletion, RegistrationDeletionPayload{RegistrationID: registrationID})
	if err != nil {
		return err
	}
	if err := q.push(ctx, QueueCompensations, job); err != nil {
		return err
	}
	q.logger.Debug("enqueued registration deletion job", zap.String("job_id", job.ID), zap.Int64("registration_id", registrationID))
	return nil
}

// Dequeue waits briefly for a job. It returns a nil job when none arrived.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.client.BLPop(ctx, dequeueWait, QueueCompensations).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// Retry re-enqueues a job with incremented attempt. If attempt >= MaxRetries, pushes to DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	if job.Attempt >= MaxRetries {
		if err := q.push(ctx, QueueDLQ, job); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	if err := q.push(ctx, QueueCompensations, job); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}

func (q *Queue) push(ctx context.Context, key string, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	return nil
}

// NewJob wraps payload in a fresh job envelope.
func NewJob(t JobType, payload any) (*Job, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Job{
		ID:        uuid.New().String(),
		Type:      t,
		Payload:   body,
		CreatedAt: time.Now(),
	}, nil
}
