package stage

import (
	"context"
	"fmt"

	"github.com/credik/underwrite/logger"
	"github.com/credik/underwrite/model"
	"go.uber.org/zap"
)

// FinancialStage derives turnover, margin and debt-service capacity from
// the classified financial documents. It makes no external calls; the
// extracted figures are already on the document classification result.
type FinancialStage struct{}

var _ Stage = new(FinancialStage)

func NewFinancialStage() *FinancialStage {
	return &FinancialStage{}
}

func (s *FinancialStage) Name() string {
	return STAGE_FINANCIAL
}

func (s *FinancialStage) RequiredPriorStages() []string {
	return []string{STAGE_DOCUMENT_CLASSIFICATION, STAGE_VERIFICATION}
}

func (s *FinancialStage) ValidatePrerequisites(record *model.Record) error {
	return validateRequiredResults(s, record)
}

func (s *FinancialStage) Execute(ctx context.Context, record *model.Record) (*model.StageOutcome, error) {
	docResult := record.Results[STAGE_DOCUMENT_CLASSIFICATION]
	documents := resultMaps(docResult, "documents")

	statements := make([]map[string]any, 0)
	for _, doc := range documents {
		class := resultString(doc, "document_type")
		if class != "audited_financials" && class != "provisional_financials" {
			continue
		}
		if extracted, ok := doc["extracted_data"].(map[string]any); ok {
			statements = append(statements, extracted)
		}
	}
	if len(statements) == 0 {
		return nil, fmt.Errorf("no financial statements available for analysis")
	}

	var totalTurnover, totalProfit, totalDebtService float64
	for _, st := range statements {
		totalTurnover += resultFloat(st, "annual_turnover")
		totalProfit += resultFloat(st, "net_profit")
		totalDebtService += resultFloat(st, "annual_debt_service")
	}
	years := float64(len(statements))
	avgTurnover := totalTurnover / years
	avgProfit := totalProfit / years
	profitMargin := 0.0
	if avgTurnover > 0 {
		profitMargin = avgProfit / avgTurnover
	}

	// DSCR against the requested loan, assuming flat amortization over a
	// nominal five year tenure.
	requestedDebtService := record.Application.LoanContext.LoanAmount / 5
	existingDebtService := totalDebtService / years
	dscr := 0.0
	if requestedDebtService+existingDebtService > 0 {
		dscr = avgProfit / (requestedDebtService + existingDebtService)
	}

	servicingCapacity := "adequate"
	if dscr < 1.0 {
		servicingCapacity = "insufficient"
	} else if dscr < 1.25 {
		servicingCapacity = "marginal"
	}

	logger.Info("financial analysis complete", zap.String("recordId", record.Id), zap.Float64("dscr", dscr), zap.String("capacity", servicingCapacity))

	result := map[string]any{
		"statements_analyzed":   len(statements),
		"average_turnover":      avgTurnover,
		"average_net_profit":    avgProfit,
		"net_profit_margin":     profitMargin,
		"debt_service_coverage": dscr,
		"servicing_capacity":    servicingCapacity,
	}

	return &model.StageOutcome{
		Result:           result,
		Metrics:          model.CallMetrics{},
		SuggestedRouting: s.suggestRouting(dscr, servicingCapacity),
	}, nil
}

func (s *FinancialStage) suggestRouting(dscr float64, capacity string) *model.RoutingDecision {
	if capacity == "insufficient" {
		return &model.RoutingDecision{
			NextStage:        model.SINK_HUMAN_REVIEW,
			Reason:           fmt.Sprintf("debt service coverage %.2f below 1.0", dscr),
			BypassConditions: []string{"servicing_capacity_adequate"},
		}
	}
	return &model.RoutingDecision{
		NextStage:     STAGE_BANKING,
		Reason:        "financial analysis complete, banking validation required",
		ConditionsMet: []string{"financial_statements_analyzed", "servicing_capacity_calculated"},
	}
}
