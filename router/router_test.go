package router

import (
	"context"
	"testing"

	"github.com/credik/underwrite/model"
	"github.com/credik/underwrite/stage"
	"github.com/stretchr/testify/require"
)

type stubStage struct {
	name string
}

func (s stubStage) Name() string { return s.name }

func (s stubStage) RequiredPriorStages() []string { return nil }

func (s stubStage) ValidatePrerequisites(record *model.Record) error { return nil }
func (s stubStage) Execute(ctx context.Context, record *model.Record) (*model.StageOutcome, error) {
	return &model.StageOutcome{Result: map[string]any{}}, nil
}

func testRouter(t *testing.T) *Router {
	t.Helper()
	registry, err := stage.NewRegistry(
		stubStage{stage.STAGE_DOCUMENT_CLASSIFICATION},
		stubStage{stage.STAGE_ENTITY_KMP},
		stubStage{stage.STAGE_VERIFICATION},
		stubStage{stage.STAGE_FINANCIAL},
		stubStage{stage.STAGE_BANKING},
		stubStage{stage.STAGE_FINAL_ASSEMBLY},
	)
	require.NoError(t, err)
	return New(registry)
}

func testRecord() *model.Record {
	return model.NewRecord("run-1", &model.LoanApplication{Constitution: "partnership"}, model.DefaultBusinessRules())
}

func goodDocumentResult() map[string]any {
	return map[string]any{
		"borrower_pan_available":  true,
		"borrower_pan_confidence": 0.95,
		"missing_mandatory_count": 0,
		"average_confidence":      0.92,
	}
}

func TestDecideProceedsWhenAllGatesPass(t *testing.T) {
	r := testRouter(t)
	outcome := &model.RunOutcome{
		StageName: stage.STAGE_DOCUMENT_CLASSIFICATION,
		Status:    model.RUN_STATUS_COMPLETED,
		Result:    goodDocumentResult(),
	}

	decision := r.Decide(stage.STAGE_DOCUMENT_CLASSIFICATION, outcome, testRecord())

	require.Equal(t, stage.STAGE_ENTITY_KMP, decision.NextStage)
	require.ElementsMatch(t, []string{
		"borrower_pan_available",
		"high_confidence_extraction",
		"sufficient_documents",
		"minimum_confidence",
	}, decision.ConditionsMet)
	require.Empty(t, decision.BypassConditions)
}

func TestDecideRoutesGateFailureToHumanReview(t *testing.T) {
	r := testRouter(t)
	result := goodDocumentResult()
	result["borrower_pan_confidence"] = 0.5
	result["average_confidence"] = 0.6
	outcome := &model.RunOutcome{
		StageName: stage.STAGE_DOCUMENT_CLASSIFICATION,
		Status:    model.RUN_STATUS_COMPLETED,
		Result:    result,
	}

	decision := r.Decide(stage.STAGE_DOCUMENT_CLASSIFICATION, outcome, testRecord())

	require.Equal(t, model.SINK_HUMAN_REVIEW, decision.NextStage)
	require.ElementsMatch(t, []string{"high_confidence_extraction", "minimum_confidence"}, decision.BypassConditions)
	require.Empty(t, decision.ConditionsMet)
	require.Contains(t, decision.Reason, "high_confidence_extraction")
}

func TestDecideRoutesFailureToErrorSink(t *testing.T) {
	r := testRouter(t)
	outcome := &model.RunOutcome{
		StageName:    stage.STAGE_VERIFICATION,
		Status:       model.RUN_STATUS_FAILED,
		ErrorMessage: "bureau timeout",
	}

	decision := r.Decide(stage.STAGE_VERIFICATION, outcome, testRecord())

	require.Equal(t, model.SINK_ERROR, decision.NextStage)
	require.Empty(t, decision.ConditionsMet)
	require.Empty(t, decision.BypassConditions)
	require.Contains(t, decision.Reason, "bureau timeout")
}

func TestDecideFailureBeatsGates(t *testing.T) {
	r := testRouter(t)
	// a failed outcome routes to error even when the partial result
	// would also fail a gate
	outcome := &model.RunOutcome{
		StageName:    stage.STAGE_DOCUMENT_CLASSIFICATION,
		Status:       model.RUN_STATUS_FAILED,
		Result:       map[string]any{"borrower_pan_available": false},
		ErrorMessage: "processing service unavailable",
	}

	decision := r.Decide(stage.STAGE_DOCUMENT_CLASSIFICATION, outcome, testRecord())
	require.Equal(t, model.SINK_ERROR, decision.NextStage)
}

func TestDecideLastStageRoutesToSuccess(t *testing.T) {
	r := testRouter(t)
	outcome := &model.RunOutcome{
		StageName: stage.STAGE_FINAL_ASSEMBLY,
		Status:    model.RUN_STATUS_COMPLETED,
		Result:    map[string]any{"final_report": map[string]any{}},
	}

	decision := r.Decide(stage.STAGE_FINAL_ASSEMBLY, outcome, testRecord())

	require.Equal(t, model.SINK_SUCCESS, decision.NextStage)
	require.Equal(t, []string{"stage_completed"}, decision.ConditionsMet)
}

func TestDecideIsDeterministic(t *testing.T) {
	r := testRouter(t)
	outcome := &model.RunOutcome{
		StageName: stage.STAGE_DOCUMENT_CLASSIFICATION,
		Status:    model.RUN_STATUS_COMPLETED,
		Result:    goodDocumentResult(),
	}
	record := testRecord()

	first := r.Decide(stage.STAGE_DOCUMENT_CLASSIFICATION, outcome, record)
	second := r.Decide(stage.STAGE_DOCUMENT_CLASSIFICATION, outcome, record)
	require.Equal(t, first, second)
}

func TestDecideThresholdsComeFromRecordSnapshot(t *testing.T) {
	r := testRouter(t)
	record := testRecord()
	// snapshot allows lower confidence than the default rules
	record.BusinessRules.MinPANConfidence = 0.4
	record.BusinessRules.MinDocumentConfidence = 0.4
	result := goodDocumentResult()
	result["borrower_pan_confidence"] = 0.5
	result["average_confidence"] = 0.5
	outcome := &model.RunOutcome{
		StageName: stage.STAGE_DOCUMENT_CLASSIFICATION,
		Status:    model.RUN_STATUS_COMPLETED,
		Result:    result,
	}

	decision := r.Decide(stage.STAGE_DOCUMENT_CLASSIFICATION, outcome, record)
	require.Equal(t, stage.STAGE_ENTITY_KMP, decision.NextStage)
}

func TestGateFailsOnUnresolvablePath(t *testing.T) {
	gate := Gate{Condition: "borrower_pan_available", Path: "$.borrower_pan_available", Op: OP_TRUE}
	require.False(t, gate.Passes(map[string]any{}, model.DefaultBusinessRules()))
}

func TestValidateDefaultTable(t *testing.T) {
	require.NoError(t, testRouter(t).Validate())
}

func TestValidateRejectsUnknownGateStage(t *testing.T) {
	registry, err := stage.NewRegistry(stubStage{stage.STAGE_DOCUMENT_CLASSIFICATION})
	require.NoError(t, err)
	r := &Router{
		registry: registry,
		gates: map[string][]Gate{
			"no_such_stage": {{Condition: "x", Path: "$.x", Op: OP_TRUE}},
		},
	}
	require.Error(t, r.Validate())
}
