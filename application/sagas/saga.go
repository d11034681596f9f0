package sagas

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SagaStep represents a single step in a saga. Steps default to a
// single attempt; persistence-adjacent flows deliberately do not retry.
type SagaStep struct {
	Name       string
	Execute    func(ctx context.Context, data interface{}) (interface{}, error)
	Compensate func(ctx context.Context, data interface{}) error
	MaxRetries int
	RetryDelay time.Duration
}

// SagaState represents the current state of a saga execution
type SagaState string

const (
	SagaStatePending      SagaState = "PENDING"
	SagaStateRunning      SagaState = "RUNNING"
	SagaStateCompleted    SagaState = "COMPLETED"
	SagaStateFailed       SagaState = "FAILED"
	SagaStateCompensating SagaState = "COMPENSATING"
	SagaStateCompensated  SagaState = "COMPENSATED"
)

// Saga orchestrates a series of steps with compensation logic. When a
// step fails, the compensations registered by the completed steps run
// in reverse order.
type Saga struct {
	id            string
	name          string
	steps         []SagaStep
	compensations []func(ctx context.Context) error
	state         SagaState
	logger        *zap.Logger
}

// NewSaga creates a new saga instance
func NewSaga(name string, logger *zap.Logger) *Saga {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Saga{
		id:     generateSagaID(),
		name:   name,
		steps:  make([]SagaStep, 0),
		state:  SagaStatePending,
		logger: logger,
	}
}

// AddStep adds a step to the saga
func (s *Saga) AddStep(step SagaStep) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Execute runs the saga. The data value threads through the steps: each
// step receives what the previous one returned.
func (s *Saga) Execute(ctx context.Context, initialData interface{}) (interface{}, error) {
	s.state = SagaStateRunning
	s.logger.Debug("starting saga",
		zap.String("saga_id", s.id),
		zap.String("saga_name", s.name),
		zap.Int("total_steps", len(s.steps)),
	)

	var data interface{} = initialData
	completedSteps := 0

	for i, step := range s.steps {
		result, err := s.executeStepWithRetry(ctx, step, data)
		if err != nil {
			s.state = SagaStateFailed
			s.logger.Warn("saga step failed",
				zap.String("saga_id", s.id),
				zap.String("saga_name", s.name),
				zap.String("step_name", step.Name),
				zap.Error(err),
			)

			s.compensate(ctx, completedSteps)
			return nil, fmt.Errorf("saga %s failed at step %s: %w", s.name, step.Name, err)
		}

		data = result
		completedSteps = i + 1

		if step.Compensate != nil {
			stepData := data
			s.compensations = append(s.compensations, func(ctx context.Context) error {
				return step.Compensate(ctx, stepData)
			})
		} else {
			s.compensations = append(s.compensations, nil)
		}

		s.logger.Debug("saga step completed",
			zap.String("saga_id", s.id),
			zap.String("step_name", step.Name),
		)
	}

	s.state = SagaStateCompleted
	return data, nil
}

// executeStepWithRetry executes a step, retrying only when the step
// asked for it
func (s *Saga) executeStepWithRetry(ctx context.Context, step SagaStep, data interface{}) (interface{}, error) {
	maxRetries := step.MaxRetries
	if maxRetries == 0 {
		maxRetries = 1
	}

	retryDelay := step.RetryDelay
	if retryDelay == 0 {
		retryDelay = time.Second
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Debug("retrying saga step",
				zap.String("saga_id", s.id),
				zap.String("step_name", step.Name),
				zap.Int("attempt", attempt+1),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}

		result, err := step.Execute(ctx, data)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	return nil, lastErr
}

// compensate runs compensation logic in reverse order. A failing
// compensation is logged and the remaining ones still run.
func (s *Saga) compensate(ctx context.Context, steps int) {
	s.state = SagaStateCompensating
	s.logger.Debug("compensating saga",
		zap.String("saga_id", s.id),
		zap.String("saga_name", s.name),
		zap.Int("steps_to_compensate", steps),
	)

	for i := steps - 1; i >= 0; i-- {
		if i >= len(s.compensations) || s.compensations[i] == nil {
			continue
		}
		if err := s.compensations[i](ctx); err != nil {
			s.logger.Error("saga compensation failed",
				zap.String("saga_id", s.id),
				zap.Int("step_number", i+1),
				zap.Error(err),
			)
		}
	}

	s.state = SagaStateCompensated
}

// GetState returns the current state of the saga
func (s *Saga) GetState() SagaState {
	return s.state
}

// GetID returns the saga ID
func (s *Saga) GetID() string {
	return s.id
}

// generateSagaID generates a unique saga ID
func generateSagaID() string {
	return fmt.Sprintf("saga_%d", time.Now().UnixNano())
}
