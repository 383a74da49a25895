package stage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/credik/underwrite/model"
	"github.com/stretchr/testify/require"
)

type fakeStage struct {
	name      string
	priors    []string
	executeFn func(ctx context.Context, record *model.Record) (*model.StageOutcome, error)
	executed  int
}

func (s *fakeStage) Name() string                  { return s.name }
func (s *fakeStage) RequiredPriorStages() []string { return s.priors }

func (s *fakeStage) ValidatePrerequisites(record *model.Record) error {
	return validateRequiredResults(s, record)
}

func (s *fakeStage) Execute(ctx context.Context, record *model.Record) (*model.StageOutcome, error) {
	s.executed++
	return s.executeFn(ctx, record)
}

func runnerTestRecord() *model.Record {
	return model.NewRecord("run-1", &model.LoanApplication{}, model.DefaultBusinessRules())
}

func TestRunCompletedOutcome(t *testing.T) {
	s := &fakeStage{
		name: "stage1",
		executeFn: func(ctx context.Context, record *model.Record) (*model.StageOutcome, error) {
			time.Sleep(5 * time.Millisecond)
			return &model.StageOutcome{
				Result:  map[string]any{"score": 0.9},
				Metrics: model.CallMetrics{ExternalCalls: 3, ExternalCost: 1.2},
			}, nil
		},
	}

	outcome := NewRunner().Run(context.Background(), s, runnerTestRecord())

	require.Equal(t, model.RUN_STATUS_COMPLETED, outcome.Status)
	require.Equal(t, "stage1", outcome.StageName)
	require.Equal(t, map[string]any{"score": 0.9}, outcome.Result)
	require.Equal(t, 3, outcome.Metadata.ExternalCalls)
	require.InDelta(t, 1.2, outcome.Metadata.ExternalCost, 0.0001)
	require.True(t, outcome.Metadata.EndTime.After(outcome.Metadata.StartTime))
	require.GreaterOrEqual(t, outcome.Metadata.Duration, 5*time.Millisecond)
}

func TestRunPrerequisiteFailureSkipsExecute(t *testing.T) {
	s := &fakeStage{
		name:   "stage2",
		priors: []string{"stage1"},
		executeFn: func(ctx context.Context, record *model.Record) (*model.StageOutcome, error) {
			return &model.StageOutcome{}, nil
		},
	}

	outcome := NewRunner().Run(context.Background(), s, runnerTestRecord())

	require.Equal(t, model.RUN_STATUS_FAILED, outcome.Status)
	require.Contains(t, outcome.ErrorMessage, "stage1")
	require.Zero(t, s.executed)
	require.Zero(t, outcome.Metadata.ExternalCalls)
}

func TestRunExecuteErrorYieldsFailedOutcome(t *testing.T) {
	s := &fakeStage{
		name: "stage1",
		executeFn: func(ctx context.Context, record *model.Record) (*model.StageOutcome, error) {
			return nil, errors.New("upstream unavailable")
		},
	}

	outcome := NewRunner().Run(context.Background(), s, runnerTestRecord())

	require.Equal(t, model.RUN_STATUS_FAILED, outcome.Status)
	require.Contains(t, outcome.ErrorMessage, "upstream unavailable")
	require.Contains(t, outcome.ErrorMessage, "stage1")
}

func TestRunRecoversFromPanic(t *testing.T) {
	s := &fakeStage{
		name: "stage1",
		executeFn: func(ctx context.Context, record *model.Record) (*model.StageOutcome, error) {
			panic("index out of range")
		},
	}

	var outcome *model.RunOutcome
	require.NotPanics(t, func() {
		outcome = NewRunner().Run(context.Background(), s, runnerTestRecord())
	})
	require.Equal(t, model.RUN_STATUS_FAILED, outcome.Status)
	require.Contains(t, outcome.ErrorMessage, "index out of range")
}

func TestRunNilOutcomeIsFailure(t *testing.T) {
	s := &fakeStage{
		name: "stage1",
		executeFn: func(ctx context.Context, record *model.Record) (*model.StageOutcome, error) {
			return nil, nil
		},
	}

	outcome := NewRunner().Run(context.Background(), s, runnerTestRecord())
	require.Equal(t, model.RUN_STATUS_FAILED, outcome.Status)
}
