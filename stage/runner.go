package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/credik/underwrite/logger"
	"github.com/credik/underwrite/model"
	"go.uber.org/zap"
)

// Runner is the uniform lifecycle wrapper around every stage invocation:
// timing, prerequisite check, failure boundary, metadata capture. No error
// from a stage ever propagates past Run; the caller always gets exactly one
// RunOutcome.
type Runner struct{}

func NewRunner() *Runner {
	return &Runner{}
}

func (r *Runner) Run(ctx context.Context, s Stage, record *model.Record) *model.RunOutcome {
	startTime := time.Now().UTC()
	logger.Info("running stage", zap.String("stage", s.Name()), zap.String("recordId", record.Id))

	if err := s.ValidatePrerequisites(record); err != nil {
		logger.Error("stage prerequisites not met", zap.String("stage", s.Name()), zap.String("recordId", record.Id), zap.Error(err))
		return failedOutcome(s.Name(), startTime, model.CallMetrics{}, err.Error())
	}

	if record.BusinessRules.StageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, record.BusinessRules.StageTimeout)
		defer cancel()
	}
	outcome, err := r.executeGuarded(ctx, s, record)
	endTime := time.Now().UTC()
	if err != nil {
		logger.Error("stage execution failed", zap.String("stage", s.Name()), zap.String("recordId", record.Id), zap.Error(err))
		metrics := model.CallMetrics{}
		if outcome != nil {
			metrics = outcome.Metrics
		}
		return failedOutcome(s.Name(), startTime, metrics, err.Error())
	}

	logger.Info("stage completed", zap.String("stage", s.Name()), zap.String("recordId", record.Id), zap.Duration("duration", endTime.Sub(startTime)))
	return &model.RunOutcome{
		StageName: s.Name(),
		Status:    model.RUN_STATUS_COMPLETED,
		Metadata: model.StageMetadata{
			StartTime:     startTime,
			EndTime:       endTime,
			Duration:      endTime.Sub(startTime),
			ExternalCalls: outcome.Metrics.ExternalCalls,
			ExternalCost:  outcome.Metrics.ExternalCost,
		},
		Result:           outcome.Result,
		SuggestedRouting: outcome.SuggestedRouting,
	}
}

// executeGuarded runs Execute inside a panic boundary so a misbehaving
// stage still yields a structured outcome.
func (r *Runner) executeGuarded(ctx context.Context, s Stage, record *model.Record) (outcome *model.StageOutcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			outcome = nil
			err = model.StageExecutionError{Stage: s.Name(), Cause: fmt.Errorf("panic: %v", rec)}
		}
	}()
	outcome, err = s.Execute(ctx, record)
	if err != nil {
		if _, ok := err.(model.StageExecutionError); !ok {
			err = model.StageExecutionError{Stage: s.Name(), Cause: err}
		}
	} else if outcome == nil {
		err = model.StageExecutionError{Stage: s.Name(), Cause: fmt.Errorf("stage returned no outcome")}
	}
	return outcome, err
}

func failedOutcome(stageName string, startTime time.Time, metrics model.CallMetrics, message string) *model.RunOutcome {
	endTime := time.Now().UTC()
	return &model.RunOutcome{
		StageName: stageName,
		Status:    model.RUN_STATUS_FAILED,
		Metadata: model.StageMetadata{
			StartTime:     startTime,
			EndTime:       endTime,
			Duration:      endTime.Sub(startTime),
			ExternalCalls: metrics.ExternalCalls,
			ExternalCost:  metrics.ExternalCost,
		},
		ErrorMessage: message,
	}
}
