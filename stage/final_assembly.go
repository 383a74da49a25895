package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/credik/underwrite/logger"
	"github.com/credik/underwrite/model"
	"go.uber.org/zap"
)

// FinalAssemblyStage folds every prior stage's result into the final
// underwriting report. It is the last stage on the proceed path; its
// suggested routing is always the success sink.
type FinalAssemblyStage struct{}

var _ Stage = new(FinalAssemblyStage)

func NewFinalAssemblyStage() *FinalAssemblyStage {
	return &FinalAssemblyStage{}
}

func (s *FinalAssemblyStage) Name() string {
	return STAGE_FINAL_ASSEMBLY
}

func (s *FinalAssemblyStage) RequiredPriorStages() []string {
	return []string{
		STAGE_DOCUMENT_CLASSIFICATION,
		STAGE_ENTITY_KMP,
		STAGE_VERIFICATION,
		STAGE_FINANCIAL,
		STAGE_BANKING,
	}
}

func (s *FinalAssemblyStage) ValidatePrerequisites(record *model.Record) error {
	return validateRequiredResults(s, record)
}

func (s *FinalAssemblyStage) Execute(ctx context.Context, record *model.Record) (*model.StageOutcome, error) {
	verification := record.Results[STAGE_VERIFICATION]
	financial := record.Results[STAGE_FINANCIAL]
	banking := record.Results[STAGE_BANKING]
	kmp := record.Results[STAGE_ENTITY_KMP]

	recommendation := "approve"
	if resultString(verification, "overall_eligibility") == "review" ||
		resultString(financial, "servicing_capacity") == "marginal" ||
		resultString(banking, "account_conduct") == "watch" {
		recommendation = "approve_with_conditions"
	}

	report := map[string]any{
		"report_id":    fmt.Sprintf("RPT_%s_%s", record.Id[:8], time.Now().UTC().Format("20060102")),
		"generated_at": time.Now().UTC(),
		"executive_summary": map[string]any{
			"applicant":      record.Application.ApplicantName,
			"loan_amount":    record.Application.LoanContext.LoanAmount,
			"loan_type":      record.Application.LoanContext.LoanType,
			"recommendation": recommendation,
			"eligibility":    resultString(verification, "overall_eligibility"),
		},
		"entity_summary": kmp["entity_profile"],
		"financial_summary": map[string]any{
			"average_turnover":      resultFloat(financial, "average_turnover"),
			"net_profit_margin":     resultFloat(financial, "net_profit_margin"),
			"debt_service_coverage": resultFloat(financial, "debt_service_coverage"),
			"servicing_capacity":    resultString(financial, "servicing_capacity"),
		},
		"banking_summary": map[string]any{
			"accounts_analyzed":  resultFloat(banking, "accounts_analyzed"),
			"statement_coverage": resultFloat(banking, "statement_coverage"),
			"account_conduct":    resultString(banking, "account_conduct"),
		},
		"processing_summary": map[string]any{
			"stages_executed":       len(record.StageMetadata),
			"total_processing_time": record.TotalProcessingTime().Seconds(),
			"total_external_calls":  record.TotalExternalCalls(),
			"total_external_cost":   record.TotalExternalCost(),
		},
	}

	logger.Info("final report assembled", zap.String("recordId", record.Id), zap.String("recommendation", recommendation))

	return &model.StageOutcome{
		Result: map[string]any{
			"final_report":   report,
			"recommendation": recommendation,
		},
		Metrics: model.CallMetrics{},
		SuggestedRouting: &model.RoutingDecision{
			NextStage:     model.SINK_SUCCESS,
			Reason:        "all analysis completed",
			ConditionsMet: []string{"all_analysis_completed", "report_assembled"},
		},
	}, nil
}
