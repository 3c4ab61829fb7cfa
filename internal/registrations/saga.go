package registrations

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// step is one forward action of a saga and, optionally, how to undo it.
type step struct {
	name       string
	forward    func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

// saga runs steps in order. When a step fails, the compensations of every
// step that already completed run in reverse order and the step error is
// returned. Compensation failures are handed to onCompensationFailure.
type saga struct {
	name   string
	steps  []step
	logger *zap.Logger

	onCompensationFailure func(ctx context.Context, stepName string, err error)
}

func newSaga(name string, logger *zap.Logger) *saga {
	return &saga{name: name, logger: logger}
}

func (s *saga) then(name string, forward func(ctx context.Context) error) *saga {
	s.steps = append(s.steps, step{name: name, forward: forward})
	return s
}

func (s *saga) thenUndoable(name string, forward, compensate func(ctx context.Context) error) *saga {
	s.steps = append(s.steps, step{name: name, forward: forward, compensate: compensate})
	return s
}

func (s *saga) run(ctx context.Context) error {
	for i, st := range s.steps {
		if err := st.forward(ctx); err != nil {
			s.rollback(ctx, i)
			if isDomainError(err) {
				return err
			}
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

func (s *saga) rollback(ctx context.Context, failed int) {
	// Compensations must run even if the request context is already done.
	ctx = context.WithoutCancel(ctx)
	for i := failed - 1; i >= 0; i-- {
		st := s.steps[i]
		if st.compensate == nil {
			continue
		}
		if err := st.compensate(ctx); err != nil {
			s.logger.Error("compensation failed",
				zap.String("saga", s.name), zap.String("step", st.name), zap.Error(err))
			recordCompensation(st.name, outcomeFailure)
			if s.onCompensationFailure != nil {
				s.onCompensationFailure(ctx, st.name, err)
			}
			continue
		}
		s.logger.Info("compensated", zap.String("saga", s.name), zap.String("step", st.name))
		recordCompensation(st.name, outcomeSuccess)
	}
}
