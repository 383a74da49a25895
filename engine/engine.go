package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/credik/underwrite/logger"
	"github.com/credik/underwrite/model"
	"github.com/credik/underwrite/persistence"
	"github.com/credik/underwrite/router"
	"github.com/credik/underwrite/stage"
	"go.uber.org/zap"
)

// ErrRunTerminal is returned by Resume when the loaded record already
// reached a terminal status; no further stage execution is allowed.
var ErrRunTerminal = errors.New("run already reached a terminal status")

// Engine drives one record through the stage pipeline strictly
// sequentially: run stage, merge outcome, route, checkpoint, repeat until
// a sink is reached. Different records may be driven concurrently; one
// record never is.
type Engine struct {
	registry *stage.Registry
	router   *router.Router
	runner   *stage.Runner
	store    persistence.CheckpointStore
}

func New(registry *stage.Registry, rt *router.Router, runner *stage.Runner, store persistence.CheckpointStore) (*Engine, error) {
	if err := rt.Validate(); err != nil {
		return nil, fmt.Errorf("invalid routing configuration: %w", err)
	}
	return &Engine{
		registry: registry,
		router:   rt,
		runner:   runner,
		store:    store,
	}, nil
}

// Start creates a record for the application and runs it from the first
// declared stage until a terminal sink or cancellation. Stage failures
// never surface as errors here; the returned record's status carries the
// outcome. The error return is reserved for infrastructure faults
// (checkpoint saves).
func (e *Engine) Start(ctx context.Context, app *model.LoanApplication, rules model.BusinessRules) (*model.Record, error) {
	record := model.NewRecord(uuid.New().String(), app, rules)
	record.UpdateStage(e.registry.First())
	logger.Info("starting underwriting run", zap.String("recordId", record.Id), zap.String("firstStage", record.CurrentStage))
	if err := e.store.Save(ctx, record); err != nil {
		return nil, err
	}
	return e.run(ctx, record)
}

// Resume reloads a checkpointed record and continues from its current
// stage. The stage's prior attempt is dropped so re-merging is explicit;
// prerequisites are re-validated through the normal runner path. Optional
// user input is attached to the application before re-running.
func (e *Engine) Resume(ctx context.Context, runId string, userInput map[string]any) (*model.Record, error) {
	record, err := e.store.Load(ctx, runId)
	if err != nil {
		return nil, err
	}
	if record.Status.Terminal() {
		return record, ErrRunTerminal
	}
	if userInput != nil {
		record.Application.UserInput = userInput
	}
	if record.CurrentStage == "" {
		record.UpdateStage(e.registry.First())
	}
	record.DropStage(record.CurrentStage)
	logger.Info("resuming underwriting run", zap.String("recordId", record.Id), zap.String("stage", record.CurrentStage))
	return e.run(ctx, record)
}

func (e *Engine) run(ctx context.Context, record *model.Record) (*model.Record, error) {
	state := record.CurrentStage
	for !model.IsSink(state) {
		if ctx.Err() != nil {
			return e.cancel(record, state)
		}
		current, ok := e.registry.Get(state)
		if !ok {
			// Startup validation makes this unreachable from router output;
			// it guards corrupted checkpoints.
			record.AddError(state, fmt.Sprintf("unknown stage %s", state), nil)
			state = model.SINK_ERROR
			break
		}
		record.UpdateStage(state)

		outcome := e.runner.Run(ctx, current, record)
		if err := record.MergeOutcome(outcome); err != nil {
			return record, fmt.Errorf("merge outcome: %w", err)
		}
		decision := e.router.Decide(state, outcome, record)
		record.AddRoutingDecision(decision)
		logger.Info("routing decision", zap.String("recordId", record.Id), zap.String("from", state), zap.String("to", decision.NextStage), zap.String("reason", decision.Reason))

		if err := e.store.Save(ctx, record); err != nil {
			return record, err
		}
		state = decision.NextStage
	}

	if err := record.SetStatus(model.TerminalStatusFor(state)); err != nil {
		return record, err
	}
	if err := e.store.Save(ctx, record); err != nil {
		return record, err
	}
	logger.Info("underwriting run finished", zap.String("recordId", record.Id), zap.String("status", string(record.Status)))
	return record, nil
}

// cancel stops the run between stages: status becomes error with a
// distinct cancellation reason so operators can tell abandonment from
// failure.
func (e *Engine) cancel(record *model.Record, state string) (*model.Record, error) {
	logger.Info("underwriting run cancelled", zap.String("recordId", record.Id), zap.String("stage", state))
	record.AddError(state, model.ErrCancelled.Error(), nil)
	record.AddRoutingDecision(model.RoutingDecision{
		FromStage: state,
		NextStage: model.SINK_ERROR,
		Reason:    model.ErrCancelled.Error(),
	})
	if err := record.SetStatus(model.STATUS_ERROR); err != nil {
		return record, err
	}
	// Persist with a fresh context: the run context is already done.
	if err := e.store.Save(context.Background(), record); err != nil {
		return record, err
	}
	return record, nil
}
