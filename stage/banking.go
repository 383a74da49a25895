package stage

import (
	"context"
	"strings"

	"github.com/credik/underwrite/logger"
	"github.com/credik/underwrite/model"
	"go.uber.org/zap"
)

// BankingStage checks that statements cover the declared bank accounts and
// summarizes account conduct from the extracted statement data.
type BankingStage struct{}

var _ Stage = new(BankingStage)

func NewBankingStage() *BankingStage {
	return &BankingStage{}
}

func (s *BankingStage) Name() string {
	return STAGE_BANKING
}

func (s *BankingStage) RequiredPriorStages() []string {
	return []string{STAGE_DOCUMENT_CLASSIFICATION, STAGE_FINANCIAL}
}

func (s *BankingStage) ValidatePrerequisites(record *model.Record) error {
	return validateRequiredResults(s, record)
}

func (s *BankingStage) Execute(ctx context.Context, record *model.Record) (*model.StageOutcome, error) {
	docResult := record.Results[STAGE_DOCUMENT_CLASSIFICATION]
	documents := resultMaps(docResult, "documents")

	statements := make([]map[string]any, 0)
	for _, doc := range documents {
		if resultString(doc, "document_type") != "bank_statement" {
			continue
		}
		if extracted, ok := doc["extracted_data"].(map[string]any); ok {
			statements = append(statements, extracted)
		}
	}

	covered := 0
	var totalBalance float64
	bounceCount := 0.0
	for _, account := range record.Application.DeclaredAccounts {
		for _, st := range statements {
			if accountMatches(account, st) {
				covered++
				totalBalance += resultFloat(st, "average_balance")
				bounceCount += resultFloat(st, "cheque_bounces")
				break
			}
		}
	}
	coverage := 1.0
	if len(record.Application.DeclaredAccounts) > 0 {
		coverage = float64(covered) / float64(len(record.Application.DeclaredAccounts))
	}
	avgBalance := 0.0
	if covered > 0 {
		avgBalance = totalBalance / float64(covered)
	}
	conduct := "satisfactory"
	if bounceCount > 3 {
		conduct = "adverse"
	} else if bounceCount > 0 {
		conduct = "watch"
	}

	logger.Info("banking analysis complete", zap.String("recordId", record.Id), zap.Float64("coverage", coverage), zap.String("conduct", conduct))

	result := map[string]any{
		"accounts_declared":  len(record.Application.DeclaredAccounts),
		"accounts_analyzed":  covered,
		"statement_coverage": coverage,
		"average_balance":    avgBalance,
		"cheque_bounces":     bounceCount,
		"account_conduct":    conduct,
	}

	return &model.StageOutcome{
		Result:           result,
		Metrics:          model.CallMetrics{},
		SuggestedRouting: s.suggestRouting(coverage, conduct),
	}, nil
}

func accountMatches(account model.DeclaredAccount, statement map[string]any) bool {
	number := resultString(statement, "account_number")
	if number == "" {
		return false
	}
	return strings.HasSuffix(account.AccountNumber, number) || strings.HasSuffix(number, account.AccountNumber)
}

func (s *BankingStage) suggestRouting(coverage float64, conduct string) *model.RoutingDecision {
	if conduct == "adverse" {
		return &model.RoutingDecision{
			NextStage:        model.SINK_HUMAN_REVIEW,
			Reason:           "adverse account conduct detected",
			BypassConditions: []string{"account_conduct_satisfactory"},
		}
	}
	if coverage < 0.5 {
		return &model.RoutingDecision{
			NextStage:        model.SINK_HUMAN_REVIEW,
			Reason:           "declared accounts not sufficiently covered by statements",
			BypassConditions: []string{"statement_coverage_sufficient"},
		}
	}
	return &model.RoutingDecision{
		NextStage:     STAGE_FINAL_ASSEMBLY,
		Reason:        "banking analysis complete, ready for final assembly",
		ConditionsMet: []string{"banking_analysis_completed"},
	}
}
