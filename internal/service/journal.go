package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/estate-sales-api/internal/auth"
	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/straye-as/estate-sales-api/internal/repository"
	"go.uber.org/zap"
)

// Journal records every lifecycle transition in the transition log. An entry is written as
// pending before the transaction starts and finished after it ends, so a crash between the two
// leaves a pending entry for the sweep job to fail.
type Journal struct {
	repo   *repository.TransitionLogRepository
	logger *zap.Logger
}

func NewJournal(repo *repository.TransitionLogRepository, logger *zap.Logger) *Journal {
	return &Journal{repo: repo, logger: logger}
}

type retryOfKey struct{}

// withRetryOf marks transitions started from ctx as a retry of a failed journal entry
func withRetryOf(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, retryOfKey{}, id)
}

func retryOfFrom(ctx context.Context) *uuid.UUID {
	if id, ok := ctx.Value(retryOfKey{}).(uuid.UUID); ok {
		return &id
	}
	return nil
}

// transitionRun tracks the steps of one journaled transition
type transitionRun struct {
	entry      *domain.TransitionLog
	entityID   *uuid.UUID
	steps      []string
	failedStep string
	warning    string
}

// do runs one named step and records its outcome
func (r *transitionRun) do(step string, fn func() error) error {
	if err := fn(); err != nil {
		r.failedStep = step
		return err
	}
	r.steps = append(r.steps, step)
	return nil
}

func (r *transitionRun) setEntity(id uuid.UUID) {
	r.entityID = &id
}

// warn records a post-commit step that failed without undoing the transition
func (r *transitionRun) warn(step string, err error) {
	r.failedStep = step
	r.warning = err.Error()
}

// Begin writes the pending entry. payload is what Retry replays.
func (j *Journal) Begin(ctx context.Context, op domain.TransitionOperation, actor *auth.Actor, payload interface{}) (*transitionRun, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transition payload: %w", err)
	}

	entry := &domain.TransitionLog{
		Operation: op,
		Status:    domain.TransitionStatusPending,
		ActorID:   actor.EmployeeID,
		Payload:   string(raw),
		RetryOfID: retryOfFrom(ctx),
	}
	if err := j.repo.Create(ctx, entry); err != nil {
		return nil, &DependencyError{Op: "journal " + string(op), Err: err}
	}
	return &transitionRun{entry: entry}, nil
}

// Finish records the outcome. A failure here after a committed transaction is returned as a
// ConsistencyWarning by the caller.
func (j *Journal) Finish(ctx context.Context, run *transitionRun, txErr error) error {
	status := domain.TransitionStatusCompleted
	errMsg := run.warning
	if txErr != nil {
		status = domain.TransitionStatusFailed
		errMsg = txErr.Error()
	}

	// The request context may already be cancelled; the outcome must still be recorded.
	err := j.repo.Finish(context.WithoutCancel(ctx), run.entry.ID, status, run.entityID,
		strings.Join(run.steps, ","), run.failedStep, errMsg)
	if err != nil {
		j.logger.Error("failed to finish transition journal entry",
			zap.String("transition_id", run.entry.ID.String()),
			zap.String("operation", string(run.entry.Operation)),
			zap.Error(err))
		return err
	}
	return nil
}
