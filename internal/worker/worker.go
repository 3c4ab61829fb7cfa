package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
	"go.uber.org/zap"

	"github.com/aura-events/registration-service/internal/registrations"
	"github.com/aura-events/registration-service/pkg/queue"
)

// maxRetryDelay caps the pause after consecutive failures.
const maxRetryDelay = 2 * time.Minute

// JobQueue is the part of the compensation queue the processor consumes.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// AccountDeleter deletes accounts in the user service.
type AccountDeleter interface {
	DeleteAccount(ctx context.Context, userID int64) error
}

// RegistrationDeleter deletes registration rows.
type RegistrationDeleter interface {
	DeleteByID(ctx context.Context, id int64) error
}

// CompensationProcessor finishes compensating actions the lifecycle engine
// could not complete inline: orphaned account deletion and deferred
// registration row deletion.
type CompensationProcessor struct {
	queue         JobQueue
	accounts      AccountDeleter
	registrations RegistrationDeleter
	logger        *zap.Logger
	delay         *backoff.Backoff
}

// NewCompensationProcessor creates a compensation processor.
func NewCompensationProcessor(q JobQueue, accounts AccountDeleter, regs RegistrationDeleter, logger *zap.Logger) *CompensationProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompensationProcessor{
		queue:         q,
		accounts:      accounts,
		registrations: regs,
		logger:        logger,
		delay: &backoff.Backoff{
			Min:    queue.RetryBackoff,
			Max:    maxRetryDelay,
			Factor: 2,
			Jitter: true,
		},
	}
}

// Process executes one compensation job.
func (p *CompensationProcessor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeAccountDeletion:
		var payload queue.AccountDeletionPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		err := p.accounts.DeleteAccount(ctx, payload.UserID)
		if err != nil && !errors.Is(err, registrations.ErrRemoteNotFound) {
			return fmt.Errorf("delete account %d: %w", payload.UserID, err)
		}
		p.logger.Info("orphaned account deleted",
			zap.Int64("user_id", payload.UserID), zap.String("reason", payload.Reason))
		return nil

	case queue.JobTypeRegistrationDeletion:
		var payload queue.RegistrationDeletionPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		if err := p.registrations.DeleteByID(ctx, payload.RegistrationID); err != nil {
			return fmt.Errorf("delete registration %d: %w", payload.RegistrationID, err)
		}
		p.logger.Info("deferred registration deletion completed", zap.Int64("registration_id", payload.RegistrationID))
		return nil

	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *CompensationProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("compensation worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(context.WithoutCancel(ctx), job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
			continue
		}
		p.delay.Reset()
	}
}

// sleep waits the next backoff step; consecutive failures wait longer.
func (p *CompensationProcessor) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(p.delay.Duration()):
	}
}
