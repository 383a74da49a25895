package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testApplication() *LoanApplication {
	return &LoanApplication{
		ApplicantName: "Acme Traders",
		Constitution:  "partnership",
		PanNumber:     "AAAPA1234A",
		LoanContext:   LoanContext{LoanAmount: 100000, LoanType: "msme_supply_chain"},
	}
}

func completedOutcome(stage string) *RunOutcome {
	now := time.Now().UTC()
	return &RunOutcome{
		StageName: stage,
		Status:    RUN_STATUS_COMPLETED,
		Metadata: StageMetadata{
			StartTime:     now.Add(-time.Second),
			EndTime:       now,
			Duration:      time.Second,
			ExternalCalls: 2,
			ExternalCost:  0.5,
		},
		Result: map[string]any{"ok": true},
	}
}

func TestMergeOutcomeAccumulates(t *testing.T) {
	r := NewRecord("run-1", testApplication(), DefaultBusinessRules())

	require.NoError(t, r.MergeOutcome(completedOutcome("stage1")))
	require.NoError(t, r.MergeOutcome(completedOutcome("stage2")))

	require.Len(t, r.Results, 2)
	require.Len(t, r.StageMetadata, 2)
	require.Equal(t, 4, r.TotalExternalCalls())
	require.InDelta(t, 1.0, r.TotalExternalCost(), 0.0001)
}

func TestMergeOutcomeRejectsDuplicate(t *testing.T) {
	r := NewRecord("run-1", testApplication(), DefaultBusinessRules())

	require.NoError(t, r.MergeOutcome(completedOutcome("stage1")))
	err := r.MergeOutcome(completedOutcome("stage1"))
	require.Error(t, err)
	require.Len(t, r.Results, 1)
	require.Len(t, r.StageMetadata, 1)
}

func TestMergeOutcomeAfterDropStage(t *testing.T) {
	r := NewRecord("run-1", testApplication(), DefaultBusinessRules())

	require.NoError(t, r.MergeOutcome(completedOutcome("stage1")))
	r.DropStage("stage1")
	require.NoError(t, r.MergeOutcome(completedOutcome("stage1")))
}

func TestMergeFailedOutcomeRecordsError(t *testing.T) {
	r := NewRecord("run-1", testApplication(), DefaultBusinessRules())

	outcome := completedOutcome("stage1")
	outcome.Status = RUN_STATUS_FAILED
	outcome.Result = nil
	outcome.ErrorMessage = "bureau timeout"
	require.NoError(t, r.MergeOutcome(outcome))

	require.False(t, r.HasResult("stage1"))
	require.Len(t, r.Errors, 1)
	require.Equal(t, "stage1", r.Errors[0].Stage)
	require.Equal(t, "bureau timeout", r.Errors[0].Message)
	// metadata keys stay a subset of result keys plus error stages
	_, hasMetadata := r.StageMetadata["stage1"]
	require.True(t, hasMetadata)
}

func TestStatusMonotonic(t *testing.T) {
	r := NewRecord("run-1", testApplication(), DefaultBusinessRules())

	require.NoError(t, r.SetStatus(STATUS_COMPLETED))
	require.Error(t, r.SetStatus(STATUS_ERROR))
	require.Equal(t, STATUS_COMPLETED, r.Status)

	require.Error(t, r.MergeOutcome(completedOutcome("stage2")))
}

func TestStatusRejectsNonTerminalTransition(t *testing.T) {
	r := NewRecord("run-1", testApplication(), DefaultBusinessRules())
	require.Error(t, r.SetStatus(Status("paused")))
	require.Equal(t, STATUS_IN_PROGRESS, r.Status)
}

func TestTerminalStatusFor(t *testing.T) {
	require.Equal(t, STATUS_COMPLETED, TerminalStatusFor(SINK_SUCCESS))
	require.Equal(t, STATUS_HUMAN_REVIEW, TerminalStatusFor(SINK_HUMAN_REVIEW))
	require.Equal(t, STATUS_ERROR, TerminalStatusFor(SINK_ERROR))
}
